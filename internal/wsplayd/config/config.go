// Package config provides configuration management for the signage player daemon
package config

import (
	"time"
)

// Config holds all configuration for the daemon
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	API     APIConfig     `yaml:"api"`
	Screen  ScreenConfig  `yaml:"screen"`
	Player  PlayerConfig  `yaml:"player"`
	Refresh RefreshConfig `yaml:"refresh"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

// ServerConfig holds settings of the local HTTP/websocket endpoint the shell connects to
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
}

// APIConfig holds settings of the configuration API
type APIConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// ScreenConfig identifies the screen and its physical properties
type ScreenConfig struct {
	CenterID         string `yaml:"centerId"`
	ScreenID         string `yaml:"screenId"`
	PlaylistOverride string `yaml:"playlistOverride"`
	Locale           string `yaml:"locale"`
	Timezone         string `yaml:"timezone"`
	Width            int    `yaml:"width"`
	Height           int    `yaml:"height"`
	// ResolvePlaylists selects the weekday playlist locally instead of
	// trusting the config endpoint's currentPlaylist
	ResolvePlaylists bool `yaml:"resolvePlaylists"`
}

// PlayerConfig holds embedded player settings
type PlayerConfig struct {
	Origin        string        `yaml:"origin"`
	EmbedBase     string        `yaml:"embedBase"`
	ReadyTimeout  time.Duration `yaml:"readyTimeout"`
	StallTimeout  time.Duration `yaml:"stallTimeout"`
	PollInterval  time.Duration `yaml:"pollInterval"`
	FadeDuration  time.Duration `yaml:"fadeDuration"`
	TitleDuration time.Duration `yaml:"titleDuration"`
	// FailedRetry is how long a zone whose items all failed waits before
	// starting a fresh pass
	FailedRetry time.Duration `yaml:"failedRetry"`
}

// RefreshConfig holds background refresh intervals. Config re-fetches the
// whole display configuration and its feeds while a screen is active.
type RefreshConfig struct {
	Config  time.Duration `yaml:"config"`
	Ticker  time.Duration `yaml:"ticker"`
	Standby time.Duration `yaml:"standby"`
}

// RedisConfig holds status store settings. An empty Addr disables the store.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	StatusTTL time.Duration `yaml:"statusTTL"`
}

// RateLimitConfig bounds how often the control endpoints may be hit.
// Counters live in Redis when it is configured, in process otherwise.
type RateLimitConfig struct {
	Enabled bool        `yaml:"enabled"`
	Reload  LimitConfig `yaml:"reload"`
	Connect LimitConfig `yaml:"connect"`
}

// LimitConfig is a fixed window limit
type LimitConfig struct {
	Rate   int           `yaml:"rate"`
	Period time.Duration `yaml:"period"`
	Burst  int           `yaml:"burst"`
}

// Default returns a configuration with every optional setting filled in
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8090,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		API: APIConfig{
			Timeout: 30 * time.Second,
		},
		Screen: ScreenConfig{
			ScreenID:         "main",
			Locale:           "es",
			Timezone:         "Local",
			Width:            1920,
			Height:           1080,
			ResolvePlaylists: true,
		},
		Player: PlayerConfig{
			Origin:        "https://player.vimeo.com",
			EmbedBase:     "https://player.vimeo.com/video/",
			ReadyTimeout:  2 * time.Second,
			StallTimeout:  5 * time.Second,
			PollInterval:  time.Second,
			FadeDuration:  250 * time.Millisecond,
			TitleDuration: 5 * time.Second,
			FailedRetry:   5 * time.Minute,
		},
		Refresh: RefreshConfig{
			Config:  30 * time.Minute,
			Ticker:  5 * time.Minute,
			Standby: 30 * time.Minute,
		},
		Redis: RedisConfig{
			StatusTTL: 2 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Reload:  LimitConfig{Rate: 6, Period: time.Minute},
			Connect: LimitConfig{Rate: 30, Period: time.Minute, Burst: 10},
		},
	}
}

// Load builds the configuration from defaults and environment variables only
func Load() (*Config, error) {
	cfg := Default()
	cfg.overlayEnv()
	return cfg, cfg.validate()
}

// Location returns the screen's time zone
func (c *Config) Location() *time.Location {
	if c.Screen.Timezone == "" || c.Screen.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Screen.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// overlayEnv overlays environment variables on top of file-based config
func (c *Config) overlayEnv() {
	// Server config
	if host := getEnv("WSPLAY_SERVER_HOST", ""); host != "" {
		c.Server.Host = host
	}
	if port := getEnvAsInt("WSPLAY_SERVER_PORT", 0); port != 0 {
		c.Server.Port = port
	}
	if origins := getEnvAsList("WSPLAY_ALLOWED_ORIGINS"); len(origins) > 0 {
		c.Server.AllowedOrigins = origins
	}

	// API config - check multiple env var names
	if baseURL := getEnvMulti([]string{"WSPLAY_API_URL", "SIGNAGE_API_URL"}, ""); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if token := getEnvMulti([]string{"WSPLAY_API_TOKEN", "SIGNAGE_API_TOKEN"}, ""); token != "" {
		c.API.Token = token
	}
	if timeout := getEnvAsDuration("WSPLAY_API_TIMEOUT", 0); timeout != 0 {
		c.API.Timeout = timeout
	}

	// Screen config
	if center := getEnv("WSPLAY_CENTER_ID", ""); center != "" {
		c.Screen.CenterID = center
	}
	if screen := getEnv("WSPLAY_SCREEN_ID", ""); screen != "" {
		c.Screen.ScreenID = screen
	}
	if override := getEnv("WSPLAY_PLAYLIST", ""); override != "" {
		c.Screen.PlaylistOverride = override
	}
	if locale := getEnv("WSPLAY_LOCALE", ""); locale != "" {
		c.Screen.Locale = locale
	}
	if tz := getEnvMulti([]string{"WSPLAY_TIMEZONE", "TZ"}, ""); tz != "" {
		c.Screen.Timezone = tz
	}

	// Redis config
	if addr := getEnvMulti([]string{"WSPLAY_REDIS_ADDR", "REDIS_ADDR"}, ""); addr != "" {
		c.Redis.Addr = addr
	}
	if password := getEnvMulti([]string{"WSPLAY_REDIS_PASSWORD", "REDIS_PASSWORD"}, ""); password != "" {
		c.Redis.Password = password
	}
	if db := getEnvAsInt("WSPLAY_REDIS_DB", -1); db >= 0 {
		c.Redis.DB = db
	}

	// Rate limits
	if enabled, ok := getEnvAsBool("WSPLAY_RATE_LIMIT"); ok {
		c.RateLimit.Enabled = enabled
	}
}
