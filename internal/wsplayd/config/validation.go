package config

import (
	"fmt"
	"net/url"
	"time"
)

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base URL is required")
	}
	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		return fmt.Errorf("invalid api base URL: %w", err)
	}
	if c.Screen.CenterID == "" {
		return fmt.Errorf("center ID is required")
	}
	if c.Screen.Locale != "es" && c.Screen.Locale != "en" {
		return fmt.Errorf("unsupported locale %q", c.Screen.Locale)
	}
	if c.Screen.Width < 320 || c.Screen.Height < 240 {
		return fmt.Errorf("invalid screen size %dx%d", c.Screen.Width, c.Screen.Height)
	}
	if _, err := url.ParseRequestURI(c.Player.Origin); err != nil {
		return fmt.Errorf("invalid player origin: %w", err)
	}
	if c.Player.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("player poll interval must be at least 100ms")
	}
	if c.Player.ReadyTimeout <= 0 || c.Player.StallTimeout <= 0 {
		return fmt.Errorf("player timeouts must be positive")
	}
	if c.Refresh.Config < time.Minute || c.Refresh.Ticker < time.Minute || c.Refresh.Standby < time.Minute {
		return fmt.Errorf("refresh intervals must be at least 1 minute")
	}
	if c.RateLimit.Enabled {
		for name, l := range map[string]LimitConfig{"reload": c.RateLimit.Reload, "connect": c.RateLimit.Connect} {
			if l.Rate <= 0 || l.Period <= 0 || l.Burst < 0 {
				return fmt.Errorf("invalid %s rate limit", name)
			}
		}
	}
	return nil
}
