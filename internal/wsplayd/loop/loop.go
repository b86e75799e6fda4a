// Package loop provides the single-threaded event loop every screen callback runs on.
//
// Timer fires, relayed player messages and results of background fetches are all
// posted onto one goroutine, so zone and bridge state is only ever touched from
// that goroutine and needs no locking.
package loop

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Executor runs work for the engine
type Executor interface {
	// Post queues fn to run on the loop goroutine
	Post(fn func())
	// Go runs blocking work off the loop; results must be posted back
	Go(fn func())
}

// Loop is an unbounded FIFO of callbacks drained by a single goroutine
type Loop struct {
	logger  *slog.Logger
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	running atomic.Bool
}

// New creates an idle loop; call Run to start draining it
func New(logger *slog.Logger) *Loop {
	return &Loop{
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// Post queues fn. It never blocks, so it is safe to call from the loop itself.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Go runs fn on a new goroutine, logging instead of crashing on panic
func (l *Loop) Go(fn func()) {
	go func() {
		defer l.recoverTask("background")
		fn()
	}()
}

// Running reports whether Run is draining the queue
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Run drains the queue until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	l.running.Store(true)
	defer l.running.Store(false)

	for {
		for {
			fn := l.next()
			if fn == nil {
				break
			}
			l.run(fn)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return nil
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn
}

func (l *Loop) run(fn func()) {
	defer l.recoverTask("loop")
	fn()
}

// recoverTask keeps one misbehaving callback from taking the whole screen down
func (l *Loop) recoverTask(where string) {
	if r := recover(); r != nil {
		l.logger.Error("recovered panic in task",
			"where", where,
			"panic", r,
			"stack", string(debug.Stack()),
		)
	}
}

// Inline executes posted and background work synchronously on the caller.
// Tests use it together with timer.FakeClock.
type Inline struct{}

// Post runs fn immediately
func (Inline) Post(fn func()) { fn() }

// Go runs fn immediately
func (Inline) Go(fn func()) { fn() }
