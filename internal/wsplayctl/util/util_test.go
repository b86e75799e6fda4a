package util

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrale/wsplay/internal/wsplayctl/config"
)

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{name: "zero", want: "never"},
		{name: "seconds", t: now.Add(-30 * time.Second), want: "Just now"},
		{name: "minutes", t: now.Add(-5 * time.Minute), want: "5m ago"},
		{name: "hours", t: now.Add(-3 * time.Hour), want: "3h ago"},
		{name: "days", t: now.Add(-49 * time.Hour), want: "2d ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAge(tt.t, now))
		})
	}
}

func TestResolveContext(t *testing.T) {
	t.Setenv("WSPLAYCTL_DAEMON_URL", "")
	t.Setenv("WSPLAYCTL_API_URL", "https://env.example/api")
	t.Setenv("WSPLAYCTL_API_TOKEN", "")
	t.Setenv("WSPLAYCTL_CENTER_ID", "")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	cfg.AddContext("lobby", &config.Context{
		Daemon: "http://10.0.0.5:8090",
		API:    "https://ctx.example/api",
		Center: "7",
	})
	cfg.AddContext("gym", &config.Context{Daemon: "http://10.0.0.6:8090", Locale: "en"})

	t.Run("current context with env", func(t *testing.T) {
		ctx, err := ResolveContext(cfg, Overrides{})
		require.NoError(t, err)
		assert.Equal(t, "http://10.0.0.5:8090", ctx.Daemon)
		assert.Equal(t, "https://env.example/api", ctx.API)
		assert.Equal(t, "7", ctx.Center)
		assert.Equal(t, "es", ctx.Locale)
	})

	t.Run("named context and flags", func(t *testing.T) {
		ctx, err := ResolveContext(cfg, Overrides{Context: "gym", API: "https://flag.example/api"})
		require.NoError(t, err)
		assert.Equal(t, "http://10.0.0.6:8090", ctx.Daemon)
		assert.Equal(t, "https://flag.example/api", ctx.API)
		assert.Equal(t, "en", ctx.Locale)
	})

	t.Run("unknown context", func(t *testing.T) {
		_, err := ResolveContext(cfg, Overrides{Context: "roof"})
		assert.Error(t, err)
	})

	t.Run("does not modify stored context", func(t *testing.T) {
		_, err := ResolveContext(cfg, Overrides{Daemon: "http://override:1"})
		require.NoError(t, err)
		lobby, err := cfg.GetContext("lobby")
		require.NoError(t, err)
		assert.Equal(t, "http://10.0.0.5:8090", lobby.Daemon)
	})
}

func TestGetClient_RequiresDaemon(t *testing.T) {
	_, err := GetClient(&config.Context{})
	assert.Error(t, err)

	_, err = GetAPIClient(&config.Context{})
	assert.Error(t, err)

	c, err := GetClient(&config.Context{Daemon: "http://127.0.0.1:8090"})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8090", c.BaseURL())
}
