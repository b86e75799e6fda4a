package util

import (
	"fmt"
	"os"

	"github.com/wrale/wsplay/internal/wsplayctl/client"
	"github.com/wrale/wsplay/internal/wsplayctl/config"
	"github.com/wrale/wsplay/internal/wsplayd/configclient"
)

// Overrides are context settings given on the command line
type Overrides struct {
	Context string
	Daemon  string
	API     string
	Token   string
	Center  string
	Locale  string
}

// ResolveContext merges the environment and then o over the selected
// context. Without any context configured an empty one is used, so flags
// alone are enough.
func ResolveContext(cfg *config.Config, o Overrides) (*config.Context, error) {
	resolved := config.Context{}

	switch {
	case o.Context != "":
		ctx, err := cfg.GetContext(o.Context)
		if err != nil {
			return nil, err
		}
		resolved = *ctx
	case cfg.CurrentContext != "":
		ctx, err := cfg.GetCurrentContext()
		if err != nil {
			return nil, err
		}
		resolved = *ctx
	}

	overlay(&resolved.Daemon, os.Getenv("WSPLAYCTL_DAEMON_URL"), o.Daemon)
	overlay(&resolved.API, os.Getenv("WSPLAYCTL_API_URL"), o.API)
	overlay(&resolved.Token, os.Getenv("WSPLAYCTL_API_TOKEN"), o.Token)
	overlay(&resolved.Center, os.Getenv("WSPLAYCTL_CENTER_ID"), o.Center)
	overlay(&resolved.Locale, "", o.Locale)
	if resolved.Locale == "" {
		resolved.Locale = "es"
	}

	return &resolved, nil
}

func overlay(dst *string, values ...string) {
	for _, v := range values {
		if v != "" {
			*dst = v
		}
	}
}

// GetClient creates a daemon client for ctx
func GetClient(ctx *config.Context) (*client.Client, error) {
	if ctx.Daemon == "" {
		return nil, fmt.Errorf("no daemon configured - set WSPLAYCTL_DAEMON_URL, pass --daemon or configure a context")
	}
	c, err := client.NewClient(ctx.Daemon)
	if err != nil {
		return nil, fmt.Errorf("failed to create daemon client: %w", err)
	}
	return c, nil
}

// GetAPIClient creates a configuration API client for ctx
func GetAPIClient(ctx *config.Context) (*configclient.Client, error) {
	if ctx.API == "" {
		return nil, fmt.Errorf("no API server configured - set WSPLAYCTL_API_URL, pass --api or configure a context")
	}
	var opts []configclient.ClientOption
	if ctx.Token != "" {
		opts = append(opts, configclient.WithToken(ctx.Token))
	}
	c, err := configclient.New(ctx.API, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return c, nil
}
