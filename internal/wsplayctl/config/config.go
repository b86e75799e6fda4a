// Package config provides configuration management for the wsplayctl CLI
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the CLI configuration
type Config struct {
	// CurrentContext is the name of the active context
	CurrentContext string `mapstructure:"current-context"`
	// Contexts holds the known screens
	Contexts map[string]*Context `mapstructure:"contexts"`

	path string
}

// Context points the CLI at one screen daemon and its configuration API.
// Names are case-insensitive.
type Context struct {
	// Name is the context identifier
	Name string `mapstructure:"name"`
	// Daemon is the base URL of the screen's wsplayd
	Daemon string `mapstructure:"daemon"`
	// API is the base URL of the configuration API
	API string `mapstructure:"api"`
	// Token authenticates against the configuration API
	Token string `mapstructure:"token"`
	// Center is the center id used by resolve
	Center string `mapstructure:"center"`
	// Locale selects weekday playlist names ("es" or "en")
	Locale string `mapstructure:"locale"`
}

// DefaultPath returns the config file path, honouring WSPLAYCTL_CONFIG
func DefaultPath() string {
	if p := os.Getenv("WSPLAYCTL_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wsplayctl/config.yaml"
	}
	return filepath.Join(home, ".wsplayctl", "config.yaml")
}

// Load reads the configuration at path, or DefaultPath when path is empty.
// A missing file yields an empty configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := &Config{
		Contexts: map[string]*Context{},
		path:     path,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = map[string]*Context{}
	}
	for name, c := range cfg.Contexts {
		c.Name = name
	}

	return cfg, nil
}

// Path returns the file the configuration is saved to
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration to its file
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	contexts := make(map[string]interface{}, len(c.Contexts))
	for name, ctx := range c.Contexts {
		contexts[name] = map[string]interface{}{
			"daemon": ctx.Daemon,
			"api":    ctx.API,
			"token":  ctx.Token,
			"center": ctx.Center,
			"locale": ctx.Locale,
		}
	}

	v := viper.New()
	v.SetConfigFile(c.path)
	v.SetConfigType("yaml")
	v.Set("current-context", c.CurrentContext)
	v.Set("contexts", contexts)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return nil
}

// GetCurrentContext returns the active context configuration
func (c *Config) GetCurrentContext() (*Context, error) {
	if c.CurrentContext == "" {
		return nil, fmt.Errorf("no current context set")
	}

	ctx, ok := c.Contexts[c.CurrentContext]
	if !ok {
		return nil, fmt.Errorf("current context %q not found", c.CurrentContext)
	}
	return ctx, nil
}

// GetContext returns the named context
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// AddContext adds or updates a context. The first context becomes current.
func (c *Config) AddContext(name string, context *Context) {
	name = normalize(name)
	context.Name = name
	c.Contexts[name] = context
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
}

// SetCurrentContext sets the active context
func (c *Config) SetCurrentContext(name string) error {
	name = normalize(name)
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return nil
}

// RemoveContext removes a context from the configuration
func (c *Config) RemoveContext(name string) error {
	name = normalize(name)
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)

	// If we removed the current context, clear it
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return nil
}

// Names returns the context names in order
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// normalize matches viper, which lowercases every key it reads
func normalize(name string) string {
	return strings.ToLower(name)
}
