package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wrale/wsplay/internal/wsplayctl/config"
	"github.com/wrale/wsplay/internal/wsplayctl/util"
)

// newContextCmd creates the context command that manages named screens
func newContextCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Manage screen contexts",
		Long: `A context names one screen: the URL of its daemon plus the configuration
API, token, center and locale used to resolve its playlists. Commands use the
current context unless --context or individual flags override it.`,
	}

	cmd.AddCommand(
		newContextSetCmd(opts),
		newContextUseCmd(opts),
		newContextListCmd(opts),
		newContextDeleteCmd(opts),
	)

	return cmd
}

func newContextSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set NAME",
		Short: "Create or update a context",
		Long: `Create a context from the global --daemon, --api, --token, --center and
--locale flags. Updating an existing context only changes the flags given.
The first context created becomes the current one.`,
		Example: `  # A lobby screen in center 7
  wsplayctl context set lobby --daemon http://10.0.0.5:8090 \
    --api https://signage.example/api --token secret --center 7

  # Point an existing context at a new daemon address
  wsplayctl context set lobby --daemon http://10.0.0.9:8090`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			name := args[0]
			ctx := &config.Context{}
			if existing, err := cfg.GetContext(name); err == nil {
				*ctx = *existing
			}

			o := opts.overrides
			if o.Daemon != "" {
				ctx.Daemon = o.Daemon
			}
			if o.API != "" {
				ctx.API = o.API
			}
			if o.Token != "" {
				ctx.Token = o.Token
			}
			if o.Center != "" {
				ctx.Center = o.Center
			}
			if o.Locale != "" {
				ctx.Locale = o.Locale
			}
			if ctx.Daemon == "" && ctx.API == "" {
				return fmt.Errorf("a context needs --daemon or --api")
			}

			cfg.AddContext(name, ctx)
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Context %q updated\n", ctx.Name)
			return nil
		},
	}
}

func newContextUseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "use NAME",
		Short:   "Switch to a different context",
		Example: `  wsplayctl context use lobby`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			if err := cfg.SetCurrentContext(args[0]); err != nil {
				return fmt.Errorf("error setting current context: %w", err)
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q\n", cfg.CurrentContext)
			return nil
		},
	}
}

func newContextListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			tw := util.NewTabWriter(cmd.OutOrStdout())
			defer tw.Flush()

			fmt.Fprintf(tw, "CURRENT\tNAME\tDAEMON\tAPI\tCENTER\n")
			for _, name := range cfg.Names() {
				ctx := cfg.Contexts[name]
				current := ""
				if name == cfg.CurrentContext {
					current = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					current,
					name,
					util.ValueOr(ctx.Daemon, "-"),
					util.ValueOr(ctx.API, "-"),
					util.ValueOr(ctx.Center, "-"))
			}
			return nil
		},
	}
}

func newContextDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			if err := cfg.RemoveContext(args[0]); err != nil {
				return fmt.Errorf("error removing context: %w", err)
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Context %q deleted\n", args[0])
			return nil
		},
	}
}
