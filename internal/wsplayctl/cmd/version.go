package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// These variables are set during build
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wsplayctl version %s\n", version)
			if opts.debug {
				fmt.Fprintf(out, "  commit: %s\n", commit)
				fmt.Fprintf(out, "  built:  %s\n", date)
			}
		},
	}
}
