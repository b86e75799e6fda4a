package timer

import (
	"sort"
	"sync"
	"time"
)

// FakeClock implements Clock for testing specific scenarios.
// Callbacks run synchronously inside Advance, in deadline order.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *FakeClock
	at      time.Time
	period  time.Duration
	fn      func()
	seq     int
	stopped bool
}

// NewFakeClock creates a fake clock starting at now
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

// Now returns the fake time
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules fn once after d
func (c *FakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	return c.add(d, 0, fn)
}

// Every schedules fn every d
func (c *FakeClock) Every(d time.Duration, fn func()) Timer {
	return c.add(d, d, fn)
}

func (c *FakeClock) add(d, period time.Duration, fn func()) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &fakeTimer{
		clock:  c,
		at:     c.now.Add(d),
		period: period,
		fn:     fn,
		seq:    c.seq,
	}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}

func (t *fakeTimer) Active() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return !t.stopped
}

// Advance moves time forward by d, firing every timer that comes due
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		t := c.nextDue(target)
		if t == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = t.at
		if t.period > 0 {
			t.at = t.at.Add(t.period)
		} else {
			t.stopped = true
		}
		fn := t.fn
		c.mu.Unlock()

		fn()
	}
}

// nextDue returns the earliest live timer due at or before target
func (c *FakeClock) nextDue(target time.Time) *fakeTimer {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	c.timers = live

	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].at.Equal(c.timers[j].at) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].at.Before(c.timers[j].at)
	})

	if len(c.timers) == 0 || c.timers[0].at.After(target) {
		return nil
	}
	return c.timers[0]
}

// Pending returns the number of timers that can still fire
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}
