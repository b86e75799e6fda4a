package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wrale/wsplay/internal/wsplayctl/util"
)

func newReloadCmd(opts *rootOptions) *cobra.Command {
	var reloadShell bool

	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Reload a screen's configuration",
		Long: `Ask the screen to fetch its configuration again. This is the only way out
of the error state.

With --shell the browser page hosting the screen is reloaded too.`,
		Example: `  # Refetch configuration
  wsplayctl reload

  # Also reload the browser shell
  wsplayctl reload --shell`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := opts.currentContext()
			if err != nil {
				return err
			}
			c, err := util.GetClient(ctx)
			if err != nil {
				return err
			}

			resp, err := c.Reload(cmd.Context(), reloadShell)
			if err != nil {
				return fmt.Errorf("error requesting reload: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Reload requested for %s\n", c.BaseURL())
			if reloadShell && !resp.Shell {
				fmt.Fprintln(cmd.OutOrStdout(), "Shell not connected, page not reloaded")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reloadShell, "shell", false, "Also reload the browser shell page")

	return cmd
}
