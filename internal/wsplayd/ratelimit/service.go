package ratelimit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wrale/wsplay/internal/wsplayd/config"
)

// Decision is the outcome of one Allow call
type Decision struct {
	Limit     Limit
	Count     int
	Remaining int
	// Unlimited is set when no limit is registered for the key's type
	Unlimited bool
}

// Service checks counters against registered limits
type Service struct {
	store   Store
	logger  *slog.Logger
	limits  map[string]Limit
	limitsM sync.RWMutex
}

// NewService creates a new rate limiting service
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		limits: make(map[string]Limit),
	}
}

// RegisterLimit adds or updates a rate limit configuration
func (s *Service) RegisterLimit(limitType string, limit Limit) error {
	if limitType == "" {
		return ErrInvalidKey
	}
	if limit.Rate <= 0 || limit.Period <= 0 || limit.BurstSize < 0 {
		return ErrInvalidLimit
	}

	s.limitsM.Lock()
	defer s.limitsM.Unlock()

	s.limits[limitType] = limit
	return nil
}

// RegisterConfiguredLimits registers the reload and connect limits
func (s *Service) RegisterConfiguredLimits(cfg config.RateLimitConfig) error {
	for limitType, l := range map[string]config.LimitConfig{
		TypeReload:  cfg.Reload,
		TypeConnect: cfg.Connect,
	} {
		if err := s.RegisterLimit(limitType, Limit{Rate: l.Rate, Period: l.Period, BurstSize: l.Burst}); err != nil {
			return err
		}
	}
	return nil
}

// GetLimit returns the configured limit for a key type
func (s *Service) GetLimit(limitType string) Limit {
	s.limitsM.RLock()
	defer s.limitsM.RUnlock()

	return s.limits[limitType]
}

// Allow counts one operation and reports ErrLimitExceeded once the window is full
func (s *Service) Allow(ctx context.Context, key LimitKey) (Decision, error) {
	if key.Type == "" {
		return Decision{}, ErrInvalidKey
	}

	limit := s.GetLimit(key.Type)
	if limit.Rate == 0 {
		s.logger.Warn("no rate limit configured for type",
			"type", key.Type,
		)
		return Decision{Unlimited: true}, nil
	}

	count, err := s.store.Increment(ctx, key, limit)
	if err != nil {
		s.logger.Error("rate limit check failed",
			"error", err,
			"type", key.Type,
			"remoteIP", key.RemoteIP,
		)
		return Decision{}, err
	}

	d := Decision{
		Limit:     limit,
		Count:     count,
		Remaining: limit.Max() - count,
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}

	s.logger.Debug("rate limit check",
		"type", key.Type,
		"count", count,
		"limit", limit.Rate,
		"burst", limit.BurstSize,
		"remoteIP", key.RemoteIP,
	)

	if count > limit.Max() {
		return d, ErrLimitExceeded
	}
	return d, nil
}

// Reset clears rate limit counters for a key
func (s *Service) Reset(ctx context.Context, key LimitKey) error {
	if key.Type == "" {
		return ErrInvalidKey
	}

	if err := s.store.Reset(ctx, key); err != nil {
		s.logger.Error("failed to reset rate limit",
			"error", err,
			"type", key.Type,
			"remoteIP", key.RemoteIP,
		)
		return err
	}

	return nil
}
