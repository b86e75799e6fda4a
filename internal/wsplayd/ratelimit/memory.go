package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepThreshold is the number of counters above which expired windows are dropped
const sweepThreshold = 1024

type window struct {
	expires time.Time
	count   int
}

// MemoryStore keeps fixed window counters in process. It is used when the
// daemon runs without Redis.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[LimitKey]*window
}

// NewMemoryStore creates an in-process store. now may be nil.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:     now,
		windows: make(map[LimitKey]*window),
	}
}

// Increment implements Store
func (s *MemoryStore) Increment(ctx context.Context, key LimitKey, limit Limit) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.expires) {
		if len(s.windows) >= sweepThreshold {
			s.sweep(now)
		}
		w = &window{expires: now.Add(limit.Period)}
		s.windows[key] = w
	}
	w.count++
	return w.count, nil
}

// Reset implements Store
func (s *MemoryStore) Reset(ctx context.Context, key LimitKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.windows, key)
	return nil
}

// Len returns the number of live counters
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func (s *MemoryStore) sweep(now time.Time) {
	for key, w := range s.windows {
		if !now.Before(w.expires) {
			delete(s.windows, key)
		}
	}
}
