package status

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayd/errors"
)

const (
	// DefaultStatusTTL bounds how long a silent screen's status survives
	DefaultStatusTTL = 2 * time.Minute
	// MaxEvents is the length of the per-screen event list
	MaxEvents = 100
	// eventsExpiry keeps the history of decommissioned screens from piling up
	eventsExpiry = 7 * 24 * time.Hour
)

// RedisStore implements Store on Redis
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration

	mu   sync.Mutex
	last map[string]v1alpha1.ScreenEvent
}

// NewRedisStore creates a store; a non-positive ttl uses DefaultStatusTTL
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		last:   make(map[string]v1alpha1.ScreenEvent),
	}
}

func statusKey(centerID, screenID string) string {
	return fmt.Sprintf("screen:%s:%s:status", centerID, screenID)
}

func eventsKey(centerID, screenID string) string {
	return fmt.Sprintf("screen:%s:%s:events", centerID, screenID)
}

// Publish implements Store
func (s *RedisStore) Publish(ctx context.Context, st v1alpha1.ScreenStatus) error {
	const op = "RedisStore.Publish"

	body, err := json.Marshal(st)
	if err != nil {
		return errors.NewError("STATUS_ENCODE_FAILED", "failed to encode status", op, err)
	}

	event := v1alpha1.ScreenEvent{State: st.State, At: st.UpdatedAt}
	if st.LastError != nil {
		event.LastError = *st.LastError
	}
	key := statusKey(st.CenterID, st.ScreenID)
	changed := s.changed(key, event)

	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, body, s.ttl)
	if changed {
		eventBody, err := json.Marshal(event)
		if err != nil {
			return errors.NewError("STATUS_ENCODE_FAILED", "failed to encode event", op, err)
		}
		events := eventsKey(st.CenterID, st.ScreenID)
		pipe.LPush(ctx, events, eventBody)
		pipe.LTrim(ctx, events, 0, MaxEvents-1)
		pipe.Expire(ctx, events, eventsExpiry)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		s.forget(key)
		return fmt.Errorf("%w: %v", errors.ErrUnavailable, err)
	}
	return nil
}

// changed records event as the latest for key and reports whether it
// differs from the previous one
func (s *RedisStore) changed(key string, event v1alpha1.ScreenEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.last[key]
	s.last[key] = event
	return !ok || prev.State != event.State || prev.LastError != event.LastError
}

func (s *RedisStore) forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.last, key)
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, centerID, screenID string) (*v1alpha1.ScreenStatus, error) {
	val, err := s.client.Get(ctx, statusKey(centerID, screenID)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: no status for screen %s/%s", errors.ErrNotFound, centerID, screenID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrUnavailable, err)
	}

	var st v1alpha1.ScreenStatus
	if err := json.Unmarshal(val, &st); err != nil {
		return nil, fmt.Errorf("invalid stored status: %w", err)
	}
	return &st, nil
}

// Events implements Store
func (s *RedisStore) Events(ctx context.Context, centerID, screenID string, limit int) ([]v1alpha1.ScreenEvent, error) {
	if limit <= 0 || limit > MaxEvents {
		limit = MaxEvents
	}

	vals, err := s.client.LRange(ctx, eventsKey(centerID, screenID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrUnavailable, err)
	}

	events := make([]v1alpha1.ScreenEvent, 0, len(vals))
	for _, v := range vals {
		var e v1alpha1.ScreenEvent
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// Ping checks connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
