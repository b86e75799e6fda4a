// The wsplayd command runs the signage engine of one screen
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/wrale/wsplay/internal/wsplayd/config"
	"github.com/wrale/wsplay/internal/wsplayd/configclient"
	"github.com/wrale/wsplay/internal/wsplayd/loop"
	"github.com/wrale/wsplay/internal/wsplayd/orchestrator"
	"github.com/wrale/wsplay/internal/wsplayd/ratelimit"
	"github.com/wrale/wsplay/internal/wsplayd/resolver"
	"github.com/wrale/wsplay/internal/wsplayd/rotator"
	"github.com/wrale/wsplay/internal/wsplayd/shell"
	"github.com/wrale/wsplay/internal/wsplayd/status"
	"github.com/wrale/wsplay/internal/wsplayd/timer"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file (default: "+config.FileName+" in the config directories)")
	flag.Parse()

	// Initialize structured logging with JSON format for easier parsing
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	httpLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Load configuration
	var cfg *config.Config
	var err error

	loader := config.NewFileLoader()
	if *configPath == "" {
		if found, ok := loader.Locate(); ok {
			*configPath = found
		}
	}
	if *configPath != "" {
		cfg, err = loader.Load(*configPath)
		if err != nil {
			logger.Error("failed to load config file", "error", err)
			os.Exit(1)
		}
	} else {
		cfg, err = config.Load()
		if err != nil {
			logger.Error("failed to load configuration", "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := loop.New(logger)
	clock := timer.NewRealClock(events)
	hub := shell.NewHub(events, httpLogger)
	rdb := setupRedis(cfg)
	if rdb != nil {
		defer rdb.Close()
	}
	store := setupStatusStore(ctx, rdb, cfg, logger)

	limiter, err := setupRateLimiter(rdb, cfg, logger)
	if err != nil {
		logger.Error("failed to set up rate limits", "error", err)
		os.Exit(1)
	}

	orch, err := setupOrchestrator(cfg, hub, store, events, clock, logger)
	if err != nil {
		logger.Error("failed to set up screen", "error", err)
		os.Exit(1)
	}
	hub.OnTickerMeasured(orch.TickerMeasured)

	handlerOpts := []shell.HandlerOption{
		shell.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		shell.WithReadiness(events.Running),
	}
	if limiter != nil {
		handlerOpts = append(handlerOpts, shell.WithRateLimiter(limiter))
	}
	handler := shell.NewHandler(hub, orch, store, httpLogger, handlerOpts...)

	// Create HTTP server with timeouts and configuration
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine to allow for graceful shutdown
	go func() {
		logger.Info("starting server",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	events.Post(func() { orch.Start(ctx) })
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		events.Run(ctx)
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	logger.Info("shutting down...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// The loop has stopped draining; teardown runs on this goroutine instead
	<-loopDone
	orch.Stop()

	logger.Info("screen stopped")
}

// setupOrchestrator wires the configuration API, the playlist resolver and
// the shell hub into one screen
func setupOrchestrator(cfg *config.Config, hub *shell.Hub, store status.Store, exec loop.Executor,
	clock timer.Clock, logger *slog.Logger,
) (*orchestrator.Orchestrator, error) {
	api, err := configclient.New(cfg.API.BaseURL,
		configclient.WithToken(cfg.API.Token),
		configclient.WithTimeout(cfg.API.Timeout),
	)
	if err != nil {
		return nil, err
	}

	var res orchestrator.PlaylistResolver
	if cfg.Screen.ResolvePlaylists {
		r, err := resolver.New(api, cfg.Screen.Locale, logger)
		if err != nil {
			return nil, err
		}
		res = r
	}

	opts := orchestrator.Options{
		CenterID:         cfg.Screen.CenterID,
		ScreenID:         cfg.Screen.ScreenID,
		PlaylistOverride: cfg.Screen.PlaylistOverride,
		ResolvePlaylists: cfg.Screen.ResolvePlaylists,
		Width:            cfg.Screen.Width,
		Height:           cfg.Screen.Height,
		Location:         cfg.Location(),
		Player: rotator.PlayerSettings{
			Origin:       cfg.Player.Origin,
			EmbedBase:    cfg.Player.EmbedBase,
			ReadyTimeout: cfg.Player.ReadyTimeout,
			StallTimeout: cfg.Player.StallTimeout,
			PollInterval: cfg.Player.PollInterval,
		},
		FadeDuration:   cfg.Player.FadeDuration,
		TitleDuration:  cfg.Player.TitleDuration,
		FailedRetry:    cfg.Player.FailedRetry,
		ConfigRefresh:  cfg.Refresh.Config,
		TickerRefresh:  cfg.Refresh.Ticker,
		StandbyRefresh: cfg.Refresh.Standby,
	}

	return orchestrator.New(opts, api, res, hub, hub, store, exec, clock, logger)
}

// setupRedis returns a client when Redis is configured, nil otherwise
func setupRedis(cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// setupStatusStore uses Redis when configured. An unreachable Redis is only
// logged; publishing keeps failing softly until it comes back.
func setupStatusStore(ctx context.Context, rdb *redis.Client, cfg *config.Config, logger *slog.Logger) status.Store {
	if rdb == nil {
		logger.Info("status store disabled")
		return status.Noop{}
	}

	store := status.NewRedisStore(rdb, cfg.Redis.StatusTTL)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		logger.Warn("status store unreachable", "addr", cfg.Redis.Addr, "error", err)
	} else {
		logger.Info("status store connected", "addr", cfg.Redis.Addr)
	}
	return store
}

// setupRateLimiter keeps counters in Redis when available, in process otherwise
func setupRateLimiter(rdb *redis.Client, cfg *config.Config, logger *slog.Logger) (*ratelimit.Service, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}

	var store ratelimit.Store = ratelimit.NewMemoryStore(nil)
	if rdb != nil {
		store = ratelimit.NewRedisStore(rdb)
	}

	limiter := ratelimit.NewService(store, logger.With("component", "ratelimit"))
	if err := limiter.RegisterConfiguredLimits(cfg.RateLimit); err != nil {
		return nil, err
	}
	return limiter, nil
}
