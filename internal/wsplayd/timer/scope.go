package timer

import "time"

// Scope owns a group of timers and releases all of them at once. A component
// acquires its timers through a Scope on mount and calls Release on teardown,
// so nothing it scheduled can outlive it.
//
// A Scope is not safe for concurrent use; it belongs to the event loop.
type Scope struct {
	clock    Clock
	timers   []Timer
	released bool
}

// NewScope creates a scope acquiring timers from clock
func NewScope(clock Clock) *Scope {
	return &Scope{clock: clock}
}

// AfterFunc acquires a one-shot timer
func (s *Scope) AfterFunc(d time.Duration, fn func()) Timer {
	return s.track(s.clock.AfterFunc(d, fn))
}

// Every acquires a repeating timer
func (s *Scope) Every(d time.Duration, fn func()) Timer {
	return s.track(s.clock.Every(d, fn))
}

func (s *Scope) track(t Timer) Timer {
	if s.released {
		t.Stop()
		return t
	}

	live := s.timers[:0]
	for _, held := range s.timers {
		if held.Active() {
			live = append(live, held)
		}
	}
	s.timers = append(live, t)
	return t
}

// Reset stops every held timer; the scope stays usable
func (s *Scope) Reset() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

// Release stops every held timer; later acquisitions are stopped immediately
func (s *Scope) Release() {
	s.Reset()
	s.released = true
}

// Released reports whether Release was called
func (s *Scope) Released() bool {
	return s.released
}

// Len returns the number of held timers that can still fire
func (s *Scope) Len() int {
	n := 0
	for _, t := range s.timers {
		if t.Active() {
			n++
		}
	}
	return n
}
