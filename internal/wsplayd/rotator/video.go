package rotator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayd/player"
	"github.com/wrale/wsplay/internal/wsplayd/timer"
)

const (
	// DefaultFade is the transition window between two items
	DefaultFade = 250 * time.Millisecond
	// DefaultTitleDuration is how long the title card stays up
	DefaultTitleDuration = 5 * time.Second

	ZoneMain         = "main"
	ZoneAnnouncement = "announcement"
)

// PlayerSettings are the bridge settings shared by every video zone
type PlayerSettings struct {
	Origin       string
	EmbedBase    string
	ReadyTimeout time.Duration
	StallTimeout time.Duration
	PollInterval time.Duration
}

// VideoOptions configure a playback-driven zone
type VideoOptions struct {
	Zone   string
	Items  []v1alpha1.DisplayVideo
	Player PlayerSettings
	Muted  bool
	Volume float64
	// FadeDuration defaults to DefaultFade
	FadeDuration time.Duration
	// TitleDuration of zero disables the title card
	TitleDuration time.Duration
	// FailedRetry of zero keeps a failed zone failed until it is replaced
	FailedRetry time.Duration
}

// VideoEvents are raised on the event loop
type VideoEvents struct {
	// OnChange fires whenever the zone's frame changed
	OnChange func()
	// OnRestart fires when rotation wraps back to the first item
	OnRestart func()
	// OnFailed fires when every item failed in one pass
	OnFailed func(err error)
	// OnRecovered fires when a retried zone plays a video to its end
	OnRecovered func()
}

// VideoZone rotates videos on the end of playback rather than on a clock
type VideoZone struct {
	opts    VideoOptions
	events  VideoEvents
	channel player.Channel
	clock   timer.Clock
	scope   *timer.Scope
	logger  *slog.Logger

	cursor            Cursor
	bridge            *player.Bridge
	session           uint64
	title             timer.Timer
	consecutiveErrors int
	transitioning     bool
	showTitle         bool
	audioBlocked      bool
	failed            bool
	recovering        bool
	stopped           bool
}

// NewVideoZone creates a zone over opts.Items. Call Start to mount the first player.
func NewVideoZone(ch player.Channel, clock timer.Clock, opts VideoOptions, events VideoEvents, logger *slog.Logger) (*VideoZone, error) {
	if len(opts.Items) == 0 {
		return nil, fmt.Errorf("zone %s has no items", opts.Zone)
	}
	if opts.FadeDuration <= 0 {
		opts.FadeDuration = DefaultFade
	}

	return &VideoZone{
		opts:    opts,
		events:  events,
		channel: ch,
		clock:   clock,
		scope:   timer.NewScope(clock),
		logger:  logger.With("zone", opts.Zone),
		cursor:  NewCursor(len(opts.Items)),
	}, nil
}

// Start mounts the player of the current item
func (z *VideoZone) Start() {
	z.showTitleCard()
	z.open()
}

// Stop tears down the player and every timer of the zone
func (z *VideoZone) Stop() {
	if z.stopped {
		return
	}
	z.stopped = true
	z.closeBridge()
	z.scope.Release()
}

// Index returns the current item position
func (z *VideoZone) Index() int {
	return z.cursor.Index()
}

// Failed reports whether every item failed in the current pass
func (z *VideoZone) Failed() bool {
	return z.failed
}

// Transitioning reports whether the zone is inside a fade window
func (z *VideoZone) Transitioning() bool {
	return z.transitioning
}

// ConsecutiveErrors returns the number of item errors since the last success
func (z *VideoZone) ConsecutiveErrors() int {
	return z.consecutiveErrors
}

// Bridge returns the live player bridge, nil during transitions
func (z *VideoZone) Bridge() *player.Bridge {
	return z.bridge
}

// Frame renders the zone
func (z *VideoZone) Frame() *v1alpha1.VideoZoneFrame {
	f := &v1alpha1.VideoZoneFrame{
		Zone:          z.opts.Zone,
		Index:         z.cursor.Index(),
		Count:         z.cursor.Len(),
		Video:         z.opts.Items[z.cursor.Index()],
		Transitioning: z.transitioning,
		ShowTitle:     z.showTitle,
		AudioBlocked:  z.audioBlocked,
		Failed:        z.failed,
	}
	if z.bridge != nil {
		pf := z.bridge.Frame()
		f.Player = &pf
	}
	return f
}

// Status summarises the zone for monitoring
func (z *VideoZone) Status() v1alpha1.ZoneStatus {
	return v1alpha1.ZoneStatus{
		Zone:              z.opts.Zone,
		Index:             z.cursor.Index(),
		Count:             z.cursor.Len(),
		ItemID:            z.opts.Items[z.cursor.Index()].ID,
		ConsecutiveErrors: z.consecutiveErrors,
		Failed:            z.failed,
		AudioBlocked:      z.audioBlocked,
	}
}

func (z *VideoZone) open() {
	z.session++
	session := z.session
	z.audioBlocked = false
	video := z.opts.Items[z.cursor.Index()]

	b, err := player.Open(z.channel, z.clock, player.Options{
		Zone:         z.opts.Zone,
		Video:        video,
		Origin:       z.opts.Player.Origin,
		EmbedBase:    z.opts.Player.EmbedBase,
		Autoplay:     true,
		Muted:        z.opts.Muted,
		Loop:         len(z.opts.Items) == 1,
		Volume:       z.opts.Volume,
		ReadyTimeout: z.opts.Player.ReadyTimeout,
		StallTimeout: z.opts.Player.StallTimeout,
		PollInterval: z.opts.Player.PollInterval,
	}, player.Callbacks{
		OnEnded: func() {
			if z.current(session) {
				z.onEnded()
			}
		},
		OnError: func(err error) {
			if z.current(session) {
				z.onError(err)
			}
		},
		OnAudioBlocked: func() {
			if z.current(session) {
				z.audioBlocked = true
				z.changed()
			}
		},
	}, z.logger)
	if err != nil {
		z.onError(err)
		return
	}
	z.bridge = b
}

func (z *VideoZone) current(session uint64) bool {
	return !z.stopped && session == z.session
}

func (z *VideoZone) closeBridge() {
	if z.bridge != nil {
		z.bridge.Close()
		z.bridge = nil
	}
}

func (z *VideoZone) onEnded() {
	z.consecutiveErrors = 0
	if z.recovering {
		z.recovering = false
		z.logger.Info("failed zone recovered")
		if z.events.OnRecovered != nil {
			z.events.OnRecovered()
		}
	}
	z.advance()
}

func (z *VideoZone) onError(err error) {
	z.consecutiveErrors++
	if z.consecutiveErrors < len(z.opts.Items) {
		z.logger.Warn("skipping video after playback error",
			"videoId", z.opts.Items[z.cursor.Index()].ID,
			"consecutiveErrors", z.consecutiveErrors,
			"category", player.Classify(err).String(),
			"error", err,
		)
		z.advance()
		return
	}
	z.fail(err)
}

func (z *VideoZone) fail(cause error) {
	z.failed = true
	z.closeBridge()
	z.logger.Error("every video in the zone failed",
		"items", len(z.opts.Items),
		"error", cause,
	)

	if z.opts.FailedRetry > 0 {
		z.scope.AfterFunc(z.opts.FailedRetry, func() {
			if z.stopped {
				return
			}
			z.logger.Info("retrying failed zone")
			z.failed = false
			z.recovering = true
			z.consecutiveErrors = 0
			z.advance()
		})
	}

	z.changed()
	if z.events.OnFailed != nil {
		z.events.OnFailed(fmt.Errorf("zone %s: %w: %w", z.opts.Zone, player.ErrExhausted, cause))
	}
}

// advance fades out the current item and moves to the next one. The bridge
// is closed first so no playback signal is processed mid-transition.
func (z *VideoZone) advance() {
	z.closeBridge()
	z.session++
	z.transitioning = true
	z.changed()

	z.scope.AfterFunc(z.opts.FadeDuration, func() {
		if z.stopped {
			return
		}
		z.transitioning = false
		if z.cursor.Next() {
			if z.events.OnRestart != nil {
				z.events.OnRestart()
			}
		}
		z.showTitleCard()
		z.open()
		z.changed()
	})
}

func (z *VideoZone) showTitleCard() {
	if z.opts.TitleDuration <= 0 {
		return
	}
	if z.title != nil {
		z.title.Stop()
	}
	z.showTitle = true
	z.title = z.scope.AfterFunc(z.opts.TitleDuration, func() {
		z.showTitle = false
		z.changed()
	})
}

func (z *VideoZone) changed() {
	if !z.stopped && z.events.OnChange != nil {
		z.events.OnChange()
	}
}
