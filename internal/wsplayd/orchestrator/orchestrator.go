// Package orchestrator runs the top-level screen state machine: it loads the
// display configuration, decides between error, standby and active, and owns
// the zones of the active screen.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayd/errors"
	"github.com/wrale/wsplay/internal/wsplayd/loop"
	"github.com/wrale/wsplay/internal/wsplayd/player"
	"github.com/wrale/wsplay/internal/wsplayd/rotator"
	"github.com/wrale/wsplay/internal/wsplayd/timer"
)

// Options configure one screen
type Options struct {
	CenterID         string
	ScreenID         string
	PlaylistOverride string
	// ResolvePlaylists picks the weekday playlist with the resolver instead
	// of using the config's current playlist
	ResolvePlaylists bool
	Width            int
	Height           int
	Location         *time.Location

	Player        rotator.PlayerSettings
	FadeDuration  time.Duration
	TitleDuration time.Duration
	FailedRetry   time.Duration

	// ConfigRefresh re-fetches the configuration while Active
	ConfigRefresh  time.Duration
	TickerRefresh  time.Duration
	StandbyRefresh time.Duration
}

// Orchestrator is the screen state machine. Apart from Status and
// RequestReload, its methods must run on the event loop.
type Orchestrator struct {
	opts     Options
	source   Source
	resolver PlaylistResolver
	channel  player.Channel
	renderer Renderer
	status   StatusPublisher
	exec     loop.Executor
	clock    timer.Clock
	logger   *slog.Logger

	ctx        context.Context
	cancelLoad context.CancelFunc
	generation uint64
	state      v1alpha1.ScreenState
	snap       *snapshot
	lastErr    *v1alpha1.Error
	zoneErrs   map[string]error
	refresh    *timer.Scope
	version    uint64
	dirty      bool

	main         *rotator.VideoZone
	announcement *rotator.VideoZone
	rss          *rotator.RSSZone
	ticker       *rotator.Ticker

	mu         sync.RWMutex
	lastStatus v1alpha1.ScreenStatus
}

// New creates an orchestrator. resolver may be nil when
// opts.ResolvePlaylists is false; status may be nil.
func New(opts Options, source Source, resolver PlaylistResolver, ch player.Channel, renderer Renderer,
	status StatusPublisher, exec loop.Executor, clock timer.Clock, logger *slog.Logger,
) (*Orchestrator, error) {
	if opts.ResolvePlaylists && resolver == nil {
		return nil, fmt.Errorf("playlist resolution requires a resolver")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	o := &Orchestrator{
		opts:     opts,
		source:   source,
		resolver: resolver,
		channel:  ch,
		renderer: renderer,
		status:   status,
		exec:     exec,
		clock:    clock,
		logger:   logger.With("centerId", opts.CenterID, "screenId", opts.ScreenID),
		ctx:      context.Background(),
		state:    v1alpha1.ScreenStateLoading,
		zoneErrs: make(map[string]error),
		refresh:  timer.NewScope(clock),
	}
	o.lastStatus = o.buildStatus()
	return o, nil
}

// Start enters Loading for the first time. ctx bounds every fetch.
func (o *Orchestrator) Start(ctx context.Context) {
	o.ctx = ctx
	o.Reload()
}

// RequestReload schedules a reload on the event loop. It is safe to call
// from any goroutine and is the only way out of the Error state.
func (o *Orchestrator) RequestReload() {
	o.exec.Post(o.Reload)
}

// Reload tears the screen down and fetches a fresh configuration
func (o *Orchestrator) Reload() {
	o.teardown()
	o.generation++
	gen := o.generation

	if o.cancelLoad != nil {
		o.cancelLoad()
	}
	ctx, cancel := context.WithCancel(o.ctx)
	o.cancelLoad = cancel

	o.setState(v1alpha1.ScreenStateLoading)
	o.logger.Info("loading display configuration", "generation", gen)

	today := o.clock.Now().In(o.opts.Location)
	o.exec.Go(func() {
		snap, err := o.fetch(ctx, today)
		o.exec.Post(func() {
			o.apply(gen, snap, err)
		})
	})
}

// Stop tears every zone down and cancels pending fetches
func (o *Orchestrator) Stop() {
	o.generation++
	if o.cancelLoad != nil {
		o.cancelLoad()
		o.cancelLoad = nil
	}
	o.teardown()
}

// State returns the current top-level state
func (o *Orchestrator) State() v1alpha1.ScreenState {
	return o.state
}

// MainZone returns the main video zone while Active
func (o *Orchestrator) MainZone() *rotator.VideoZone {
	return o.main
}

// AnnouncementZone returns the announcement zone, if any
func (o *Orchestrator) AnnouncementZone() *rotator.VideoZone {
	return o.announcement
}

// RSSZone returns the news panel while Active
func (o *Orchestrator) RSSZone() *rotator.RSSZone {
	return o.rss
}

// TickerMeasured forwards the shell's ticker measurement
func (o *Orchestrator) TickerMeasured(m v1alpha1.TickerMeasurement) {
	if o.ticker == nil {
		return
	}
	if !o.ticker.Measured(m) {
		o.logger.Debug("ignoring measurement of an outdated ticker set", "fingerprint", m.Fingerprint)
	}
}

// Status returns the latest status snapshot. Safe for concurrent use.
func (o *Orchestrator) Status() v1alpha1.ScreenStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastStatus
}

func (o *Orchestrator) fetch(ctx context.Context, today time.Time) (*snapshot, error) {
	const op = "Orchestrator.fetch"

	cfg, err := o.source.DisplayConfig(ctx, o.opts.CenterID, o.opts.PlaylistOverride)
	if err != nil {
		return nil, errors.NewError(errors.CodeConfigFetch, "failed to fetch display configuration", op, err)
	}
	snap := &snapshot{config: *cfg}

	if o.opts.ResolvePlaylists {
		id, err := o.resolver.Resolve(ctx, o.opts.CenterID, today, o.opts.PlaylistOverride)
		if err != nil {
			return nil, errors.NewError(errors.CodeConfigFetch, "failed to resolve playlist", op, err)
		}
		snap.playlistID = id
	} else if cfg.CurrentPlaylist != nil {
		snap.playlistID = cfg.CurrentPlaylist.ID
	}

	if snap.playlistID == "" {
		return snap, nil
	}
	snap.videos, err = o.source.PlaylistVideos(ctx, snap.playlistID)
	if err != nil {
		return nil, errors.NewError(errors.CodePlaylistFetch,
			fmt.Sprintf("failed to fetch playlist %s", snap.playlistID), op, err)
	}
	if len(snap.videos) == 0 {
		return snap, nil
	}

	// the secondary zones degrade to absent rather than failing the screen
	if ref := cfg.AnnouncementsPlaylist; ref != nil && ref.Active {
		snap.announcements, err = o.source.PlaylistVideos(ctx, ref.ID)
		if err != nil {
			snap.announcementsFailed = true
			o.logger.Warn("failed to fetch announcements", "playlistId", ref.ID, "error", err)
		}
	}
	snap.feeds, err = o.source.RSSFeeds(ctx, o.opts.CenterID)
	if err != nil {
		snap.feedsFailed = true
		o.logger.Warn("failed to fetch rss feeds", "error", err)
	}
	if cfg.DisplaySettings.ShowTicker {
		snap.messages, err = o.source.TickerMessages(ctx, o.opts.CenterID)
		if err != nil {
			snap.messagesFailed = true
			o.logger.Warn("failed to fetch ticker messages", "error", err)
		}
	}
	return snap, nil
}

func (o *Orchestrator) apply(gen uint64, snap *snapshot, err error) {
	if gen != o.generation {
		o.logger.Debug("discarding stale load", "generation", gen)
		return
	}
	o.cancelLoad = nil

	if err != nil {
		o.logger.Error("screen failed to load", "error", err)
		o.lastErr = &v1alpha1.Error{Code: errors.Code(err), Message: err.Error()}
		o.setState(v1alpha1.ScreenStateError)
		return
	}

	o.snap = snap
	o.lastErr = nil
	clear(o.zoneErrs)

	if len(snap.videos) == 0 {
		o.logger.Info("nothing to play, entering standby", "playlistId", snap.playlistID)
		if o.opts.StandbyRefresh > 0 {
			o.refresh.AfterFunc(o.opts.StandbyRefresh, o.Reload)
		}
		o.watchDayChange()
		o.setState(v1alpha1.ScreenStateStandby)
		return
	}

	if err := o.activate(snap); err != nil {
		o.teardown()
		o.lastErr = &v1alpha1.Error{Code: errors.CodeZoneFailed, Message: err.Error()}
		o.setState(v1alpha1.ScreenStateError)
		return
	}
	o.logger.Info("screen active",
		"playlistId", snap.playlistID,
		"videos", len(snap.videos),
		"announcements", len(snap.announcements),
	)
	o.watchDayChange()
	o.setState(v1alpha1.ScreenStateActive)
}

func (o *Orchestrator) activate(snap *snapshot) error {
	settings := snap.config.DisplaySettings

	main, err := rotator.NewVideoZone(o.channel, o.clock, rotator.VideoOptions{
		Zone:          rotator.ZoneMain,
		Items:         snap.videos,
		Player:        o.opts.Player,
		FadeDuration:  o.opts.FadeDuration,
		TitleDuration: o.opts.TitleDuration,
		FailedRetry:   o.opts.FailedRetry,
	}, o.zoneEvents(rotator.ZoneMain), o.logger)
	if err != nil {
		return err
	}
	o.main = main

	if len(snap.announcements) > 0 {
		ann, err := rotator.NewVideoZone(o.channel, o.clock, rotator.VideoOptions{
			Zone:         rotator.ZoneAnnouncement,
			Items:        snap.announcements,
			Player:       o.opts.Player,
			Muted:        settings.AnnouncementVolume <= 0,
			Volume:       settings.AnnouncementVolume,
			FadeDuration: o.opts.FadeDuration,
			FailedRetry:  o.opts.FailedRetry,
		}, o.zoneEvents(rotator.ZoneAnnouncement), o.logger)
		if err != nil {
			return err
		}
		o.announcement = ann
	}

	o.rss = rotator.NewRSSZone(o.clock, snap.config.RSSSettings, o.invalidate, o.logger)
	o.rss.SetFeeds(snap.feeds)
	if o.opts.ConfigRefresh > 0 {
		o.refresh.Every(o.opts.ConfigRefresh, o.refreshConfig)
	}

	if settings.ShowTicker {
		o.ticker = rotator.NewTicker(settings.TickerSpeed, o.invalidate)
		o.ticker.SetMessages(snap.messages)
		if o.opts.TickerRefresh > 0 {
			o.refresh.Every(o.opts.TickerRefresh, o.refreshTicker)
		}
	}

	o.main.Start()
	if o.announcement != nil {
		o.announcement.Start()
	}
	return nil
}

func (o *Orchestrator) zoneEvents(zone string) rotator.VideoEvents {
	return rotator.VideoEvents{
		OnChange: o.invalidate,
		OnRestart: func() {
			o.logger.Debug("playlist restarted", "zone", zone)
			o.publish()
		},
		OnFailed: func(err error) {
			o.logger.Error("zone failed", "zone", zone, "error", err)
			o.zoneErrs[zone] = err
			o.invalidate()
			o.publish()
		},
		OnRecovered: func() {
			o.logger.Info("zone recovered", "zone", zone)
			delete(o.zoneErrs, zone)
			o.invalidate()
			o.publish()
		},
	}
}

// watchDayChange re-checks the configuration when the local date rolls
// over, since the weekday playlist depends on it. The timer re-arms itself
// until the screen is replaced.
func (o *Orchestrator) watchDayChange() {
	o.refresh.AfterFunc(o.untilMidnight(), func() {
		if o.state != v1alpha1.ScreenStateActive {
			o.Reload()
			return
		}
		o.watchDayChange()
		o.refreshConfig()
	})
}

func (o *Orchestrator) untilMidnight() time.Duration {
	now := o.clock.Now().In(o.opts.Location)
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, o.opts.Location).Sub(now)
}

// refreshConfig re-fetches the configuration of an active screen off the
// loop. A different playlist replaces the screen; anything else is applied
// to the running zones. A failed refresh keeps the screen playing.
func (o *Orchestrator) refreshConfig() {
	gen := o.generation
	ctx := o.ctx
	today := o.clock.Now().In(o.opts.Location)
	o.exec.Go(func() {
		snap, err := o.fetch(ctx, today)
		o.exec.Post(func() {
			if gen != o.generation || o.state != v1alpha1.ScreenStateActive {
				return
			}
			if err != nil {
				o.logger.Warn("configuration refresh failed, keeping current screen", "error", err)
				return
			}
			if o.snap.replacedBy(snap) {
				o.logger.Info("configuration changed, replacing screen", "playlistId", snap.playlistID)
				o.replace(snap)
				return
			}
			o.update(snap)
		})
	})
}

// replace swaps the screen for a freshly fetched one without another fetch
func (o *Orchestrator) replace(snap *snapshot) {
	o.teardown()
	o.generation++
	if o.cancelLoad != nil {
		o.cancelLoad()
		o.cancelLoad = nil
	}
	o.setState(v1alpha1.ScreenStateLoading)
	o.apply(o.generation, snap, nil)
}

// update applies a refreshed configuration to the running zones. Secondary
// data whose fetch failed keeps its current value.
func (o *Orchestrator) update(next *snapshot) {
	snap := *next
	if next.announcementsFailed {
		snap.announcements = o.snap.announcements
	}
	if next.feedsFailed {
		snap.feeds = o.snap.feeds
	} else {
		o.rss.SetFeeds(next.feeds)
	}
	o.rss.UpdateSettings(next.config.RSSSettings)

	if o.ticker != nil {
		if next.messagesFailed {
			snap.messages = o.snap.messages
		} else {
			o.setMessages(next.messages)
		}
		o.ticker.SetSpeed(next.config.DisplaySettings.TickerSpeed)
	}

	o.snap = &snap
	o.invalidate()
}

func (o *Orchestrator) refreshTicker() {
	gen := o.generation
	ctx := o.ctx
	o.exec.Go(func() {
		messages, err := o.source.TickerMessages(ctx, o.opts.CenterID)
		o.exec.Post(func() {
			if gen != o.generation || o.ticker == nil {
				return
			}
			if err != nil {
				o.logger.Warn("ticker refresh failed, keeping current messages", "error", err)
				return
			}
			o.setMessages(messages)
		})
	})
}

// setMessages leaves an unchanged message set alone so the shell keeps its
// measurement
func (o *Orchestrator) setMessages(messages []v1alpha1.TickerMessage) {
	if _, fp := rotator.MessageSet(messages); fp == o.ticker.Fingerprint() {
		return
	}
	o.ticker.SetMessages(messages)
}

func (o *Orchestrator) teardown() {
	o.refresh.Reset()
	if o.main != nil {
		o.main.Stop()
		o.main = nil
	}
	if o.announcement != nil {
		o.announcement.Stop()
		o.announcement = nil
	}
	if o.rss != nil {
		o.rss.Stop()
		o.rss = nil
	}
	o.ticker = nil
}

func (o *Orchestrator) setState(state v1alpha1.ScreenState) {
	if o.state != state {
		o.logger.Debug("screen state changed", "from", string(o.state), "to", string(state))
	}
	o.state = state
	o.flush()
	o.publish()
}

// invalidate schedules a render; several changes in one loop turn render once
func (o *Orchestrator) invalidate() {
	if o.dirty {
		return
	}
	o.dirty = true
	o.exec.Post(o.flush)
}

func (o *Orchestrator) flush() {
	o.dirty = false
	frame := o.frame()

	o.mu.Lock()
	o.lastStatus = o.buildStatus()
	o.mu.Unlock()

	o.renderer.Render(frame)
}

func (o *Orchestrator) publish() {
	if o.status == nil {
		return
	}
	st := o.buildStatus()
	ctx := o.ctx
	o.exec.Go(func() {
		if err := o.status.Publish(ctx, st); err != nil {
			o.logger.Warn("failed to publish screen status", "error", err)
		}
	})
}

func (o *Orchestrator) frame() v1alpha1.Frame {
	o.version++
	f := v1alpha1.Frame{Version: o.version, State: o.state}

	switch o.state {
	case v1alpha1.ScreenStateError:
		f.Error = o.lastErr
	case v1alpha1.ScreenStateStandby:
		cfg := o.snap.config
		f.Center = cfg.Center
		f.Settings = cfg.DisplaySettings
		f.Standby = &v1alpha1.StandbyFrame{
			CenterName: cfg.Center.Name,
			LogoURL:    cfg.Center.LogoURL,
			Message:    cfg.DisplaySettings.StandbyMessage,
			ShowClock:  cfg.DisplaySettings.ShowClock,
		}
	case v1alpha1.ScreenStateActive:
		cfg := o.snap.config
		f.Center = cfg.Center
		f.Settings = cfg.DisplaySettings
		if o.main != nil {
			f.Video = o.main.Frame()
		}
		if o.announcement != nil {
			f.Announcement = o.announcement.Frame()
		}
		if o.rss != nil {
			f.RSS = o.rss.Frame()
		}
		if o.ticker != nil && cfg.DisplaySettings.ShowTicker {
			f.Ticker = o.ticker.Frame()
		}
		layout := rotator.ComputeLayout(rotator.LayoutInput{
			Width:            o.opts.Width,
			Height:           o.opts.Height,
			Settings:         cfg.DisplaySettings,
			HasAnnouncements: f.Announcement != nil,
			HasRSS:           f.RSS != nil,
			HasTicker:        f.Ticker != nil,
		})
		f.Layout = &layout
	}
	return f
}

func (o *Orchestrator) buildStatus() v1alpha1.ScreenStatus {
	st := v1alpha1.ScreenStatus{
		TypeMeta:  v1alpha1.TypeMeta{APIVersion: v1alpha1.APIVersion, Kind: "ScreenStatus"},
		CenterID:  o.opts.CenterID,
		ScreenID:  o.opts.ScreenID,
		State:     o.state,
		UpdatedAt: o.clock.Now(),
	}
	if o.snap != nil && o.state != v1alpha1.ScreenStateError {
		st.PlaylistID = o.snap.playlistID
	}
	if o.main != nil {
		st.Zones = append(st.Zones, o.main.Status())
	}
	if o.announcement != nil {
		st.Zones = append(st.Zones, o.announcement.Status())
	}

	if o.lastErr != nil {
		msg := o.lastErr.Message
		st.LastError = &msg
		return st
	}
	for _, zone := range []string{rotator.ZoneMain, rotator.ZoneAnnouncement} {
		if err, ok := o.zoneErrs[zone]; ok {
			msg := err.Error()
			st.LastError = &msg
			break
		}
	}
	return st
}
