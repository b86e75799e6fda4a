package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wrale/wsplay/internal/wsplayd/rotator"
)

func newTickerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticker",
		Short: "Ticker tools",
	}

	cmd.AddCommand(newTickerPlanCmd())

	return cmd
}

func newTickerPlanCmd() *cobra.Command {
	var (
		width     float64
		container float64
		speed     float64
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute the scroll plan for measured ticker widths",
		Long: `Compute how many copies of the message set the ticker strip holds and how
long one scroll cycle takes, given the rendered width of one message set, the
visible width of the ticker bar and the scroll speed in pixels per second.`,
		Example: `  # A 4000px message set in a 2000px bar at 50px/s
  wsplayctl ticker plan --width 4000 --container 2000 --speed 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if container <= 0 {
				return fmt.Errorf("container width must be positive")
			}

			plan := rotator.PlanScroll(width, container, speed)
			fmt.Fprintf(cmd.OutOrStdout(), "copies:   %d\n", plan.Copies)
			fmt.Fprintf(cmd.OutOrStdout(), "duration: %s\n", plan.Duration)
			return nil
		},
	}

	cmd.Flags().Float64Var(&width, "width", 0, "Pixel width of one message set")
	cmd.Flags().Float64Var(&container, "container", 0, "Pixel width of the ticker bar")
	cmd.Flags().Float64Var(&speed, "speed", rotator.DefaultTickerSpeed, "Scroll speed in pixels per second")
	cmd.MarkFlagRequired("width")
	cmd.MarkFlagRequired("container")

	return cmd
}
