// Package cmd implements the wsplayctl commands
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wrale/wsplay/internal/wsplayctl/config"
	"github.com/wrale/wsplay/internal/wsplayctl/util"
)

// rootOptions holds the global flags shared by every command
type rootOptions struct {
	configPath string
	overrides  util.Overrides
	debug      bool

	cfg *config.Config
}

// loadConfig loads the CLI configuration once per invocation
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	o.cfg = cfg
	return cfg, nil
}

// currentContext returns the effective context after flag and env overrides
func (o *rootOptions) currentContext() (*config.Context, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return util.ResolveContext(cfg, o.overrides)
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "wsplayctl",
		Short: "Signage player control tool",
		Long: `wsplayctl inspects and controls the signage engines running on school
screens. It talks to a screen's wsplayd for status, reloads and live frames,
and to the configuration API to check which playlist a screen will play.`,
		SilenceUsage: true,
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default is $HOME/.wsplayctl/config.yaml)")
	flags.StringVar(&opts.overrides.Context, "context", "", "Context to use instead of the current one")
	flags.StringVar(&opts.overrides.Daemon, "daemon", "", "Screen daemon URL")
	flags.StringVar(&opts.overrides.API, "api", "", "Configuration API URL")
	flags.StringVar(&opts.overrides.Token, "token", "", "Configuration API token")
	flags.StringVar(&opts.overrides.Center, "center", "", "Center ID")
	flags.StringVar(&opts.overrides.Locale, "locale", "", "Weekday playlist locale (es, en)")
	flags.BoolVar(&opts.debug, "debug", false, "Verbose output")

	cmd.AddCommand(
		newStatusCmd(opts),
		newReloadCmd(opts),
		newWatchCmd(opts),
		newResolveCmd(opts),
		newTickerCmd(),
		newContextCmd(opts),
		newVersionCmd(opts),
	)

	return cmd
}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
