package loop

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoop() *Loop {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLoop_RunsInOrder(t *testing.T) {
	l := newTestLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan []int, 1)
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	l.Post(func() { done <- got })

	go l.Run(ctx)

	select {
	case order := <-done:
		assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	case <-time.After(time.Second):
		t.Fatal("loop did not drain queue")
	}
}

func TestLoop_PostFromLoopDoesNotBlock(t *testing.T) {
	l := newTestLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	l.Post(func() {
		l.Post(func() { close(done) })
	})
	go l.Run(ctx)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nested post never ran")
	}
}

func TestLoop_SurvivesPanic(t *testing.T) {
	l := newTestLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	l.Post(func() { panic("boom") })
	l.Post(func() { close(done) })
	go l.Run(ctx)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop stopped after panic")
	}
}

func TestLoop_StopsOnCancel(t *testing.T) {
	l := newTestLoop()
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	require.Eventually(t, l.Running, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	assert.False(t, l.Running())
}

func TestInline(t *testing.T) {
	var calls int
	var ex Executor = Inline{}
	ex.Post(func() { calls++ })
	ex.Go(func() { calls++ })
	assert.Equal(t, 2, calls)
}
