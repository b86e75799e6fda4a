package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayctl/util"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream a screen's frames",
		Long: `Attach to the screen daemon as an observer and print every frame it
renders as one JSON line. The current frame is printed first.`,
		Example: `  # Follow the screen until interrupted
  wsplayctl watch

  # Print the current frame and exit
  wsplayctl watch --count 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := opts.currentContext()
			if err != nil {
				return err
			}
			c, err := util.GetClient(ctx)
			if err != nil {
				return err
			}

			conn, err := c.Watch(cmd.Context())
			if err != nil {
				return fmt.Errorf("error connecting to %s: %w", c.BaseURL(), err)
			}
			defer conn.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			seen := 0
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case msg, ok := <-conn.Messages():
					if !ok {
						select {
						case err := <-conn.Errors():
							return fmt.Errorf("connection closed: %w", err)
						default:
							return nil
						}
					}
					if msg.Type != v1alpha1.ControlMessageFrame || msg.Frame == nil {
						continue
					}
					if err := enc.Encode(msg.Frame); err != nil {
						return err
					}
					seen++
					if count > 0 && seen >= count {
						return nil
					}
				}
			}
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many frames (0 follows forever)")

	return cmd
}
