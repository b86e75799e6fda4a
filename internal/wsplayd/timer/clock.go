// Package timer provides the clock abstraction and scoped, cancellable timers
// used by every zone and player bridge.
package timer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/wrale/wsplay/internal/wsplayd/loop"
)

// Timer is a cancellable handle to a scheduled callback
type Timer interface {
	// Stop cancels the timer. Stopping twice is a no-op. A stopped timer's
	// callback never runs, even if its fire was already queued.
	Stop()
	// Active reports whether the timer can still fire
	Active() bool
}

// Clock schedules callbacks. This allows us to inject a fake time during unit tests.
type Clock interface {
	Now() time.Time
	// AfterFunc runs fn once after d
	AfterFunc(d time.Duration, fn func()) Timer
	// Every runs fn every d until stopped
	Every(d time.Duration, fn func()) Timer
}

// RealClock fires callbacks on an executor, normally the screen's event loop
type RealClock struct {
	exec loop.Executor
}

// NewRealClock creates a clock whose callbacks are posted to exec
func NewRealClock(exec loop.Executor) *RealClock {
	return &RealClock{exec: exec}
}

// Now returns the wall clock time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

type realTimer struct {
	stopped atomic.Bool
	cancel  func()
}

func (t *realTimer) Stop() {
	if t.stopped.Swap(true) {
		return
	}
	t.cancel()
}

func (t *realTimer) Active() bool {
	return !t.stopped.Load()
}

// AfterFunc schedules fn to be posted to the executor after d
func (c *RealClock) AfterFunc(d time.Duration, fn func()) Timer {
	t := &realTimer{}
	tm := time.AfterFunc(d, func() {
		c.exec.Post(func() {
			// stale check runs on the loop, after any Stop issued before it
			if t.stopped.Swap(true) {
				return
			}
			fn()
		})
	})
	t.cancel = func() { tm.Stop() }
	return t
}

// Every posts fn to the executor every d
func (c *RealClock) Every(d time.Duration, fn func()) Timer {
	t := &realTimer{}
	tk := time.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once
	t.cancel = func() {
		once.Do(func() {
			tk.Stop()
			close(done)
		})
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case <-tk.C:
				c.exec.Post(func() {
					if t.stopped.Load() {
						return
					}
					fn()
				})
			}
		}
	}()
	return t
}
