// Package player drives one embedded video player through the shell channel
// and reduces its unreliable event stream to ready, ended and error signals.
package player

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayd/timer"
)

const (
	// DefaultReadyTimeout is how long a ready player may go without a play
	// signal before unmuted autoplay is assumed blocked
	DefaultReadyTimeout = 2 * time.Second
	// DefaultStallTimeout is the delay of each stall recovery stage
	DefaultStallTimeout = 5 * time.Second
	// DefaultPollInterval is the progress polling period
	DefaultPollInterval = time.Second

	// Near-end thresholds. An end event is trusted only past either one.
	nearEndFraction = 0.95
	nearEndSeconds  = 1.0
)

// Options configure one bridge session
type Options struct {
	Zone  string
	Video v1alpha1.DisplayVideo
	// Origin is the only origin player messages are accepted from
	Origin    string
	EmbedBase string
	Autoplay  bool
	Muted     bool
	// Loop makes the player repeat internally; used for single-item zones
	Loop bool
	// Volume in (0,1] is applied on ready; zero leaves the player default
	Volume float64

	ReadyTimeout time.Duration
	StallTimeout time.Duration
	PollInterval time.Duration
}

// Callbacks are the signals a bridge raises. They run on the event loop and
// never run after Close.
type Callbacks struct {
	OnReady func()
	// OnEnded fires at most once per session
	OnEnded func()
	// OnError fires at most once per session, never after OnEnded
	OnError func(err error)
	// OnAudioBlocked fires when unmuted autoplay was forced to muted
	OnAudioBlocked func()
	// OnStallRecovery fires when the first stall recovery attempt runs
	OnStallRecovery func()
}

// session is the mutable playback state of one bridge
type session struct {
	loaded          bool
	ready           bool
	playReceived    bool
	endedTriggered  bool
	failed          bool
	audioBlocked    bool
	autoplayArmed   bool
	seconds         float64
	duration        float64
	maxDurationSeen float64
}

// Bridge owns one player iframe for the lifetime of one video
type Bridge struct {
	id       uuid.UUID
	opts     Options
	cb       Callbacks
	channel  Channel
	scope    *timer.Scope
	logger   *slog.Logger
	embedURL string

	state    session
	polling  timer.Timer
	stall    *RetryRun
	unlisten func()
	closed   bool
}

// Open mounts a player iframe for opts.Video and starts listening to it
func Open(ch Channel, clock timer.Clock, opts Options, cb Callbacks, logger *slog.Logger) (*Bridge, error) {
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	if opts.StallTimeout <= 0 {
		opts.StallTimeout = DefaultStallTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	id := uuid.New()
	embedURL, err := EmbedURL(opts.EmbedBase, EmbedOptions{
		ExternalVideoID: opts.Video.ExternalVideoID,
		Hash:            opts.Video.ExternalVideoHash,
		Autoplay:        opts.Autoplay,
		Muted:           opts.Muted,
		Loop:            opts.Loop,
	})
	if err != nil {
		return nil, &RemoteError{FrameID: id, VideoID: opts.Video.ID, Op: "embed", Err: err}
	}

	b := &Bridge{
		id:       id,
		opts:     opts,
		cb:       cb,
		channel:  ch,
		scope:    timer.NewScope(clock),
		embedURL: embedURL,
		logger: logger.With(
			"zone", opts.Zone,
			"videoId", opts.Video.ID,
			"frameId", id.String(),
		),
	}

	b.unlisten = ch.Listen(b.handle)
	if err := ch.Mount(b.Frame()); err != nil {
		b.unlisten()
		b.scope.Release()
		b.closed = true
		return nil, &RemoteError{FrameID: id, VideoID: opts.Video.ID, Op: "mount", Err: err}
	}

	b.logger.Debug("player mounted", "embedUrl", embedURL)
	return b, nil
}

// ID returns the frame identity messages must carry
func (b *Bridge) ID() uuid.UUID {
	return b.id
}

// Frame describes the iframe this bridge owns
func (b *Bridge) Frame() v1alpha1.PlayerFrame {
	return v1alpha1.PlayerFrame{
		FrameID:  b.id,
		Zone:     b.opts.Zone,
		EmbedURL: b.embedURL,
	}
}

// Ready reports whether the player sent ready
func (b *Bridge) Ready() bool {
	return b.state.ready
}

// AudioBlocked reports whether unmuted autoplay had to be forced muted
func (b *Bridge) AudioBlocked() bool {
	return b.state.audioBlocked
}

// Progress returns the playback position and the longest duration observed
func (b *Bridge) Progress() (seconds, duration float64) {
	return b.state.seconds, b.trueDuration()
}

// Closed reports whether Close was called
func (b *Bridge) Closed() bool {
	return b.closed
}

// Close tears the session down: the listener, the polling interval and
// every detection timer are cleared before the iframe is unmounted.
func (b *Bridge) Close() {
	if b.closed {
		return
	}
	b.closed = true
	b.unlisten()
	b.scope.Release()
	b.polling = nil
	b.stall = nil

	if err := b.channel.Unmount(b.id); err != nil {
		b.logger.Warn("failed to unmount player", "error", err)
	}
}

func (b *Bridge) handle(in Inbound) {
	if b.closed || in.FrameID != b.id {
		return
	}
	if b.state.endedTriggered || b.state.failed {
		return
	}

	switch in.Kind {
	case InboundLoad:
		b.onLoad()
	case InboundMessage:
		if !b.originAllowed(in.Origin) {
			b.logger.Debug("ignoring player message from unexpected origin", "origin", in.Origin)
			return
		}
		msg, err := DecodeMessage(in.Data)
		if err != nil {
			b.logger.Debug("ignoring malformed player message", "error", err)
			return
		}
		b.dispatch(msg)
	}
}

func (b *Bridge) originAllowed(origin string) bool {
	want := strings.TrimSuffix(b.opts.Origin, "/")
	return want != "" && strings.EqualFold(strings.TrimSuffix(origin, "/"), want)
}

func (b *Bridge) dispatch(msg *v1alpha1.PlayerMessage) {
	switch msg.Method {
	case v1alpha1.PlayerMethodGetCurrentTime:
		if msg.Value != nil {
			b.updateProgress(*msg.Value, 0)
		}
		return
	case v1alpha1.PlayerMethodGetDuration:
		if msg.Value != nil {
			b.updateProgress(-1, *msg.Value)
		}
		return
	}

	if msg.Data != nil {
		b.updateProgress(msg.Data.Seconds, msg.Data.Duration)
	}

	switch msg.Event {
	case v1alpha1.PlayerEventReady:
		b.onReady()
	case v1alpha1.PlayerEventPlay:
		b.onPlay()
	case v1alpha1.PlayerEventEnded, v1alpha1.PlayerEventFinish:
		b.tryEnd(msg.Event)
	}
}

func (b *Bridge) onLoad() {
	b.subscribe()
	if b.state.loaded {
		return
	}
	b.state.loaded = true

	b.stall = RetryPolicy{
		Attempts: []Attempt{
			{
				Delay:  b.opts.StallTimeout,
				Needed: func() bool { return !b.state.ready && !b.state.playReceived },
				Action: func() {
					b.logger.Warn("player silent after load, forcing muted playback")
					b.forcePlay()
					if b.cb.OnStallRecovery != nil {
						b.cb.OnStallRecovery()
					}
				},
			},
			{
				Delay:  b.opts.StallTimeout,
				Needed: func() bool { return !b.state.playReceived },
			},
		},
		OnExhausted: func() {
			b.fail(&StallError{
				FrameID: b.id,
				VideoID: b.opts.Video.ID,
				Waited:  2 * b.opts.StallTimeout,
			})
		},
	}.Start(b.scope)
}

func (b *Bridge) onReady() {
	first := !b.state.ready
	b.state.ready = true
	b.subscribe()

	if b.polling == nil {
		b.polling = b.scope.Every(b.opts.PollInterval, b.poll)
	}

	if b.opts.Volume > 0 {
		b.send(v1alpha1.PlayerMethodSetVolume, b.opts.Volume)
	}
	if b.opts.Muted {
		b.send(v1alpha1.PlayerMethodSetMuted, true)
	}

	if b.opts.Autoplay && !b.opts.Muted && !b.state.autoplayArmed {
		b.state.autoplayArmed = true
		RetryPolicy{
			Attempts: []Attempt{{
				Delay:  b.opts.ReadyTimeout,
				Needed: func() bool { return !b.state.playReceived },
				Action: func() {
					b.logger.Info("autoplay blocked, forcing muted playback")
					b.state.audioBlocked = true
					b.forcePlay()
					if b.cb.OnAudioBlocked != nil {
						b.cb.OnAudioBlocked()
					}
				},
			}},
		}.Start(b.scope)
	}

	if first && b.cb.OnReady != nil {
		b.cb.OnReady()
	}
}

func (b *Bridge) onPlay() {
	b.state.playReceived = true
	if b.stall != nil {
		b.stall.Stop()
	}
}

func (b *Bridge) poll() {
	b.send(v1alpha1.PlayerMethodGetCurrentTime, nil)
	b.send(v1alpha1.PlayerMethodGetDuration, nil)
}

// updateProgress records a position (negative means unknown) and a duration
// (zero means unknown)
func (b *Bridge) updateProgress(seconds, duration float64) {
	if seconds >= 0 {
		b.state.seconds = seconds
	}
	if duration > 0 {
		b.state.duration = duration
		if duration > b.state.maxDurationSeen {
			b.state.maxDurationSeen = duration
		}
	}
}

func (b *Bridge) trueDuration() float64 {
	if b.state.duration > b.state.maxDurationSeen {
		return b.state.duration
	}
	return b.state.maxDurationSeen
}

func (b *Bridge) tryEnd(event v1alpha1.PlayerEvent) {
	if b.state.endedTriggered || b.state.failed {
		return
	}

	duration := b.trueDuration()
	if duration > 0 {
		seconds := b.state.seconds
		if seconds/duration <= nearEndFraction && duration-seconds >= nearEndSeconds {
			b.logger.Info("discarding premature end event",
				"event", string(event),
				"seconds", seconds,
				"duration", duration,
			)
			return
		}
	}

	b.state.endedTriggered = true
	b.scope.Reset()
	b.polling = nil
	b.stall = nil
	if b.cb.OnEnded != nil {
		b.cb.OnEnded()
	}
}

func (b *Bridge) fail(err error) {
	if b.state.failed || b.state.endedTriggered {
		return
	}
	b.state.failed = true
	b.scope.Reset()
	b.polling = nil
	b.stall = nil

	b.logger.Warn("player failed", "error", err)
	if b.cb.OnError != nil {
		b.cb.OnError(err)
	}
}

func (b *Bridge) subscribe() {
	for _, event := range v1alpha1.SubscribedEvents {
		b.send(v1alpha1.PlayerMethodAddEventListener, string(event))
	}
}

func (b *Bridge) forcePlay() {
	b.send(v1alpha1.PlayerMethodSetMuted, true)
	b.send(v1alpha1.PlayerMethodPlay, nil)
}

func (b *Bridge) send(method v1alpha1.PlayerMethod, value interface{}) {
	if b.closed {
		return
	}
	cmd := v1alpha1.PlayerCommand{Method: method, Value: value}
	if err := b.channel.Send(b.id, cmd); err != nil {
		b.logger.Warn("failed to send player command",
			"method", string(method),
			"error", err,
		)
	}
}
