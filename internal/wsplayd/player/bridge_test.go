package player_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayd/player"
	"github.com/wrale/wsplay/internal/wsplayd/testutil"
	"github.com/wrale/wsplay/internal/wsplayd/timer"
)

type recorder struct {
	ready         int
	ended         int
	audioBlocked  int
	stallRecovery int
	errs          []error
}

func (r *recorder) callbacks() player.Callbacks {
	return player.Callbacks{
		OnReady:         func() { r.ready++ },
		OnEnded:         func() { r.ended++ },
		OnError:         func(err error) { r.errs = append(r.errs, err) },
		OnAudioBlocked:  func() { r.audioBlocked++ },
		OnStallRecovery: func() { r.stallRecovery++ },
	}
}

type harness struct {
	bridge  *player.Bridge
	channel *testutil.FakeChannel
	clock   *timer.FakeClock
	rec     *recorder
}

func (h *harness) id() uuid.UUID {
	return h.bridge.ID()
}

func (h *harness) event(event v1alpha1.PlayerEvent, data *v1alpha1.PlayerProgress) {
	h.channel.Event(h.id(), event, data)
}

func (h *harness) count(method v1alpha1.PlayerMethod) int {
	return h.channel.Count(h.id(), method)
}

func defaultOptions() player.Options {
	return player.Options{
		Zone: "main",
		Video: v1alpha1.DisplayVideo{
			ID:              "v1",
			Title:           "Bienvenida",
			ExternalVideoID: "76979871",
			DurationSeconds: 100,
		},
		Origin:    testutil.PlayerOrigin,
		EmbedBase: "https://player.vimeo.com/video",
		Autoplay:  true,
	}
}

func open(t *testing.T, mutate func(*player.Options)) *harness {
	t.Helper()
	opts := defaultOptions()
	if mutate != nil {
		mutate(&opts)
	}

	h := &harness{
		channel: testutil.NewFakeChannel(),
		clock:   timer.NewFakeClock(time.Date(2024, 1, 8, 8, 0, 0, 0, time.UTC)),
		rec:     &recorder{},
	}
	b, err := player.Open(h.channel, h.clock, opts, h.rec.callbacks(), testutil.Logger())
	require.NoError(t, err)
	h.bridge = b
	return h
}

func progress(seconds, duration float64) *v1alpha1.PlayerProgress {
	return &v1alpha1.PlayerProgress{Seconds: seconds, Duration: duration, Percent: seconds / duration}
}

func TestOpen_MountsFrame(t *testing.T) {
	h := open(t, nil)

	mounted := h.channel.Mounted()
	require.Len(t, mounted, 1)
	assert.Equal(t, h.id(), mounted[0].FrameID)
	assert.Equal(t, "main", mounted[0].Zone)
	assert.Contains(t, mounted[0].EmbedURL, "https://player.vimeo.com/video/76979871?")
	assert.Equal(t, 1, h.channel.Listeners())
}

func TestOpen_MountFailure(t *testing.T) {
	ch := testutil.NewFakeChannel()
	ch.MountErr = errors.New("no shell connected")
	clock := timer.NewFakeClock(time.Now())

	b, err := player.Open(ch, clock, defaultOptions(), player.Callbacks{}, testutil.Logger())
	require.Error(t, err)
	assert.Nil(t, b)
	assert.Equal(t, player.CategoryRemote, player.Classify(err))
	assert.Equal(t, 0, ch.Listeners())
	assert.Equal(t, 0, clock.Pending())
}

func TestBridge_SubscribesOnLoad(t *testing.T) {
	h := open(t, nil)
	h.channel.Load(h.id())

	cmds := h.channel.Commands(h.id())
	require.Len(t, cmds, len(v1alpha1.SubscribedEvents))
	for i, event := range v1alpha1.SubscribedEvents {
		assert.Equal(t, v1alpha1.PlayerMethodAddEventListener, cmds[i].Method)
		assert.Equal(t, string(event), cmds[i].Value)
	}
}

func TestBridge_ReadyStartsPolling(t *testing.T) {
	h := open(t, nil)
	h.event(v1alpha1.PlayerEventReady, nil)
	h.event(v1alpha1.PlayerEventPlay, nil)

	assert.Equal(t, 1, h.rec.ready)
	assert.True(t, h.bridge.Ready())
	assert.Equal(t, len(v1alpha1.SubscribedEvents), h.count(v1alpha1.PlayerMethodAddEventListener))

	h.clock.Advance(3 * time.Second)
	assert.Equal(t, 3, h.count(v1alpha1.PlayerMethodGetCurrentTime))
	assert.Equal(t, 3, h.count(v1alpha1.PlayerMethodGetDuration))

	// a second ready resubscribes but neither restarts polling nor re-notifies
	h.event(v1alpha1.PlayerEventReady, nil)
	h.clock.Advance(time.Second)
	assert.Equal(t, 4, h.count(v1alpha1.PlayerMethodGetCurrentTime))
	assert.Equal(t, 2*len(v1alpha1.SubscribedEvents), h.count(v1alpha1.PlayerMethodAddEventListener))
	assert.Equal(t, 1, h.rec.ready)
}

func TestBridge_AppliesVolume(t *testing.T) {
	h := open(t, func(o *player.Options) {
		o.Zone = "announcement"
		o.Muted = true
		o.Volume = 0.4
	})
	h.event(v1alpha1.PlayerEventReady, nil)

	assert.Equal(t, 1, h.count(v1alpha1.PlayerMethodSetVolume))
	assert.Equal(t, 1, h.count(v1alpha1.PlayerMethodSetMuted))

	// muted playback never arms autoplay-block detection
	h.clock.Advance(10 * time.Second)
	assert.Equal(t, 0, h.rec.audioBlocked)
	assert.Equal(t, 1, h.count(v1alpha1.PlayerMethodSetMuted))
	assert.Equal(t, 0, h.count(v1alpha1.PlayerMethodPlay))
}

func TestBridge_AutoplayBlocked(t *testing.T) {
	h := open(t, nil)
	h.channel.Load(h.id())
	h.event(v1alpha1.PlayerEventReady, nil)

	h.clock.Advance(1999 * time.Millisecond)
	assert.Equal(t, 0, h.count(v1alpha1.PlayerMethodSetMuted))
	assert.Equal(t, 0, h.rec.audioBlocked)

	h.clock.Advance(time.Millisecond)
	assert.Equal(t, 1, h.count(v1alpha1.PlayerMethodSetMuted))
	assert.Equal(t, 1, h.count(v1alpha1.PlayerMethodPlay))
	assert.Equal(t, 1, h.rec.audioBlocked)
	assert.True(t, h.bridge.AudioBlocked())

	// exactly once, even when ready repeats and time passes
	h.event(v1alpha1.PlayerEventReady, nil)
	h.clock.Advance(30 * time.Second)
	assert.Equal(t, 1, h.count(v1alpha1.PlayerMethodSetMuted))
	assert.Equal(t, 1, h.count(v1alpha1.PlayerMethodPlay))
	assert.Equal(t, 1, h.rec.audioBlocked)
	assert.Empty(t, h.rec.errs)
}

func TestBridge_AutoplayAllowed(t *testing.T) {
	h := open(t, nil)
	h.event(v1alpha1.PlayerEventReady, nil)
	h.clock.Advance(time.Second)
	h.event(v1alpha1.PlayerEventPlay, nil)
	h.clock.Advance(5 * time.Second)

	assert.Equal(t, 0, h.count(v1alpha1.PlayerMethodSetMuted))
	assert.Equal(t, 0, h.rec.audioBlocked)
	assert.False(t, h.bridge.AudioBlocked())
}

func TestBridge_StallEscalates(t *testing.T) {
	h := open(t, nil)
	h.channel.Load(h.id())

	h.clock.Advance(4999 * time.Millisecond)
	assert.Equal(t, 0, h.count(v1alpha1.PlayerMethodPlay))
	assert.Equal(t, 0, h.rec.stallRecovery)

	h.clock.Advance(time.Millisecond)
	assert.Equal(t, 1, h.count(v1alpha1.PlayerMethodSetMuted))
	assert.Equal(t, 1, h.count(v1alpha1.PlayerMethodPlay))
	assert.Equal(t, 1, h.rec.stallRecovery)
	assert.Empty(t, h.rec.errs)

	h.clock.Advance(4999 * time.Millisecond)
	assert.Empty(t, h.rec.errs)

	h.clock.Advance(time.Millisecond)
	require.Len(t, h.rec.errs, 1)
	assert.Equal(t, player.CategoryStall, player.Classify(h.rec.errs[0]))

	var stall *player.StallError
	require.ErrorAs(t, h.rec.errs[0], &stall)
	assert.Equal(t, "v1", stall.VideoID)
	assert.Equal(t, 10*time.Second, stall.Waited)

	h.clock.Advance(time.Minute)
	assert.Len(t, h.rec.errs, 1)
	assert.Equal(t, 1, h.rec.stallRecovery)
	assert.Equal(t, 0, h.clock.Pending())

	// a failed session ignores late events
	h.event(v1alpha1.PlayerEventEnded, progress(100, 100))
	assert.Equal(t, 0, h.rec.ended)
}

func TestBridge_StallRecovered(t *testing.T) {
	h := open(t, nil)
	h.channel.Load(h.id())

	h.clock.Advance(5 * time.Second)
	assert.Equal(t, 1, h.rec.stallRecovery)

	h.event(v1alpha1.PlayerEventPlay, nil)
	h.clock.Advance(time.Minute)
	assert.Empty(t, h.rec.errs)
}

func TestBridge_ReadyWithoutPlayDoesNotStall(t *testing.T) {
	h := open(t, func(o *player.Options) { o.Muted = true })
	h.channel.Load(h.id())
	h.clock.Advance(time.Second)
	h.event(v1alpha1.PlayerEventReady, nil)

	h.clock.Advance(time.Minute)
	assert.Equal(t, 0, h.rec.stallRecovery)
	assert.Empty(t, h.rec.errs)
}

func TestBridge_PrematureFinishDiscarded(t *testing.T) {
	h := open(t, nil)
	h.event(v1alpha1.PlayerEventReady, nil)
	h.event(v1alpha1.PlayerEventPlay, nil)

	h.event(v1alpha1.PlayerEventTimeUpdate, progress(10, 100))
	// buffering reports a transiently short duration
	h.event(v1alpha1.PlayerEventPlayProgress, progress(50, 51))
	h.event(v1alpha1.PlayerEventFinish, nil)
	assert.Equal(t, 0, h.rec.ended)

	seconds, duration := h.bridge.Progress()
	assert.Equal(t, 50.0, seconds)
	assert.Equal(t, 100.0, duration)

	h.event(v1alpha1.PlayerEventTimeUpdate, progress(99.5, 100))
	h.event(v1alpha1.PlayerEventEnded, nil)
	assert.Equal(t, 1, h.rec.ended)

	h.event(v1alpha1.PlayerEventFinish, nil)
	assert.Equal(t, 1, h.rec.ended)
}

func TestBridge_EndThresholds(t *testing.T) {
	tests := []struct {
		name     string
		seconds  float64
		duration float64
		want     int
	}{
		{name: "half way", seconds: 50, duration: 100, want: 0},
		{name: "exactly 95 percent", seconds: 95, duration: 100, want: 0},
		{name: "past 95 percent", seconds: 95.5, duration: 100, want: 1},
		{name: "under one second left", seconds: 19.2, duration: 20, want: 1},
		{name: "exactly one second left on short video", seconds: 9, duration: 10, want: 0},
		{name: "at the end", seconds: 300, duration: 300, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := open(t, nil)
			h.event(v1alpha1.PlayerEventPlay, nil)
			h.event(v1alpha1.PlayerEventTimeUpdate, progress(tt.seconds, tt.duration))
			h.event(v1alpha1.PlayerEventFinish, nil)
			assert.Equal(t, tt.want, h.rec.ended)
		})
	}
}

func TestBridge_PolledProgress(t *testing.T) {
	h := open(t, nil)
	h.event(v1alpha1.PlayerEventReady, nil)
	h.event(v1alpha1.PlayerEventPlay, nil)

	current := 99.2
	duration := 100.0
	h.channel.Message(h.id(), v1alpha1.PlayerMessage{Method: v1alpha1.PlayerMethodGetDuration, Value: &duration})
	h.channel.Message(h.id(), v1alpha1.PlayerMessage{Method: v1alpha1.PlayerMethodGetCurrentTime, Value: &current})

	seconds, d := h.bridge.Progress()
	assert.Equal(t, 99.2, seconds)
	assert.Equal(t, 100.0, d)

	h.event(v1alpha1.PlayerEventEnded, nil)
	assert.Equal(t, 1, h.rec.ended)
	assert.Equal(t, 0, h.clock.Pending())
}

func TestBridge_EndedWithoutProgress(t *testing.T) {
	h := open(t, nil)
	h.event(v1alpha1.PlayerEventPlay, nil)
	h.event(v1alpha1.PlayerEventEnded, nil)
	assert.Equal(t, 1, h.rec.ended)
}

func TestBridge_IgnoresForeignMessages(t *testing.T) {
	h := open(t, nil)

	// another player's window
	h.channel.Event(uuid.New(), v1alpha1.PlayerEventReady, nil)
	// wrong origin
	h.channel.Deliver(player.Inbound{
		Kind:    player.InboundMessage,
		FrameID: h.id(),
		Origin:  "https://evil.example",
		Data:    []byte(`"{\"event\":\"ready\"}"`),
	})
	// not JSON
	h.channel.Deliver(player.Inbound{
		Kind:    player.InboundMessage,
		FrameID: h.id(),
		Origin:  testutil.PlayerOrigin,
		Data:    []byte(`"hello"`),
	})
	assert.Equal(t, 0, h.rec.ready)
	assert.False(t, h.bridge.Ready())

	// a bare object from the right window and origin is accepted
	h.channel.Deliver(player.Inbound{
		Kind:    player.InboundMessage,
		FrameID: h.id(),
		Origin:  testutil.PlayerOrigin + "/",
		Data:    []byte(`{"event":"ready","player_id":"x"}`),
	})
	assert.Equal(t, 1, h.rec.ready)
}

func TestBridge_Close(t *testing.T) {
	h := open(t, nil)
	h.channel.Load(h.id())
	h.event(v1alpha1.PlayerEventReady, nil)
	h.event(v1alpha1.PlayerEventTimeUpdate, progress(10, 100))
	require.Positive(t, h.clock.Pending())

	h.bridge.Close()
	assert.True(t, h.bridge.Closed())
	assert.Equal(t, 0, h.clock.Pending())
	assert.Equal(t, 0, h.channel.Listeners())
	assert.Equal(t, []uuid.UUID{h.id()}, h.channel.Unmounted())

	sent := len(h.channel.Commands(h.id()))
	h.clock.Advance(time.Minute)
	h.event(v1alpha1.PlayerEventTimeUpdate, progress(99.9, 100))
	h.event(v1alpha1.PlayerEventEnded, nil)

	assert.Len(t, h.channel.Commands(h.id()), sent)
	assert.Equal(t, 0, h.rec.ended)
	assert.Equal(t, 0, h.rec.audioBlocked)
	assert.Equal(t, 0, h.rec.stallRecovery)
	assert.Empty(t, h.rec.errs)

	// closing twice is harmless
	h.bridge.Close()
	assert.Len(t, h.channel.Unmounted(), 1)
}

func TestBridge_SessionsAreIsolated(t *testing.T) {
	ch := testutil.NewFakeChannel()
	clock := timer.NewFakeClock(time.Now())
	first, second := &recorder{}, &recorder{}

	a, err := player.Open(ch, clock, defaultOptions(), first.callbacks(), testutil.Logger())
	require.NoError(t, err)
	b, err := player.Open(ch, clock, defaultOptions(), second.callbacks(), testutil.Logger())
	require.NoError(t, err)
	require.NotEqual(t, a.ID(), b.ID())

	ch.Event(a.ID(), v1alpha1.PlayerEventPlay, nil)
	ch.Event(a.ID(), v1alpha1.PlayerEventEnded, progress(100, 100))
	assert.Equal(t, 1, first.ended)
	assert.Equal(t, 0, second.ended)

	_, duration := b.Progress()
	assert.Zero(t, duration)
}
