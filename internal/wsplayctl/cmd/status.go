package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayctl/util"
)

// statusOutput is the JSON shape of the status command
type statusOutput struct {
	Status v1alpha1.ScreenStatus   `json:"status"`
	Events []v1alpha1.ScreenEvent `json:"events,omitempty"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var (
		output string
		events int
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a screen's status",
		Long: `Show the top-level state of a screen and the position of every zone.

With --events the most recent state transitions recorded by the daemon's
status store are listed as well.`,
		Example: `  # Show the status of the current context's screen
  wsplayctl status

  # Include the last 10 transitions as JSON
  wsplayctl status --events 10 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := opts.currentContext()
			if err != nil {
				return err
			}
			c, err := util.GetClient(ctx)
			if err != nil {
				return err
			}

			st, err := c.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("error getting status: %w", err)
			}

			result := statusOutput{Status: *st}
			if events > 0 {
				result.Events, err = c.Events(cmd.Context(), events)
				if err != nil {
					return fmt.Errorf("error getting status events: %w", err)
				}
			}

			switch output {
			case "json":
				return util.PrintJSON(cmd.OutOrStdout(), result)
			case "table":
				printStatus(cmd, result)
				return nil
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	cmd.Flags().IntVar(&events, "events", 0, "Number of recent state transitions to show")

	return cmd
}

func printStatus(cmd *cobra.Command, result statusOutput) {
	now := time.Now()
	st := result.Status

	tw := util.NewTabWriter(cmd.OutOrStdout())
	fmt.Fprintf(tw, "CENTER\tSCREEN\tSTATE\tPLAYLIST\tUPDATED\tERROR\n")
	lastErr := "-"
	if st.LastError != nil {
		lastErr = *st.LastError
	}
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
		st.CenterID,
		st.ScreenID,
		st.State,
		util.ValueOr(st.PlaylistID, "-"),
		util.FormatAge(st.UpdatedAt, now),
		lastErr)
	tw.Flush()

	if len(st.Zones) > 0 {
		fmt.Fprintln(cmd.OutOrStdout())
		tw = util.NewTabWriter(cmd.OutOrStdout())
		fmt.Fprintf(tw, "ZONE\tPOSITION\tITEM\tERRORS\tFAILED\tAUDIO BLOCKED\n")
		for _, z := range st.Zones {
			fmt.Fprintf(tw, "%s\t%d/%d\t%s\t%d\t%v\t%v\n",
				z.Zone,
				z.Index+1,
				z.Count,
				util.ValueOr(z.ItemID, "-"),
				z.ConsecutiveErrors,
				z.Failed,
				z.AudioBlocked)
		}
		tw.Flush()
	}

	if len(result.Events) > 0 {
		fmt.Fprintln(cmd.OutOrStdout())
		tw = util.NewTabWriter(cmd.OutOrStdout())
		fmt.Fprintf(tw, "WHEN\tSTATE\tERROR\n")
		for _, e := range result.Events {
			fmt.Fprintf(tw, "%s\t%s\t%s\n",
				e.At.Local().Format(time.RFC3339),
				e.State,
				util.ValueOr(e.LastError, "-"))
		}
		tw.Flush()
	}
}
