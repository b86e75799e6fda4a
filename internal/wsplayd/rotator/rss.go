package rotator

import (
	"log/slog"
	"time"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayd/timer"
)

// RSS rotation bounds, in seconds
const (
	DefaultSecondsPerFeed = 120
	MinSecondsPerFeed     = 60
	MaxSecondsPerFeed     = 300
	DefaultSecondsPerItem = 15
	MinSecondsPerItem     = 5
	MaxSecondsPerItem     = 30

	// RSSFade is the transition window of the news panel
	RSSFade = 300 * time.Millisecond
)

// RSSIntervals returns the feed and item rotation periods for settings,
// defaulted and clamped to their allowed ranges
func RSSIntervals(settings v1alpha1.RSSSettings) (perFeed, perItem time.Duration) {
	return clampSeconds(settings.SecondsPerFeed, DefaultSecondsPerFeed, MinSecondsPerFeed, MaxSecondsPerFeed),
		clampSeconds(settings.SecondsPerItem, DefaultSecondsPerItem, MinSecondsPerItem, MaxSecondsPerItem)
}

func clampSeconds(v, def, min, max int) time.Duration {
	switch {
	case v <= 0:
		v = def
	case v < min:
		v = min
	case v > max:
		v = max
	}
	return time.Duration(v) * time.Second
}

// FilterFeeds drops feeds without items and caps the rest to MaxFeedItems
func FilterFeeds(feeds []v1alpha1.RSSFeed) []v1alpha1.RSSFeed {
	out := make([]v1alpha1.RSSFeed, 0, len(feeds))
	for _, f := range feeds {
		if len(f.Items) == 0 {
			continue
		}
		if len(f.Items) > v1alpha1.MaxFeedItems {
			f.Items = f.Items[:v1alpha1.MaxFeedItems]
		}
		out = append(out, f)
	}
	return out
}

// RSSZone rotates feeds on an outer timer and items of the current feed on
// an inner one. The two timers are independent: the item timer never shifts
// the feed timer's phase, and a feed change restarts the item timer.
type RSSZone struct {
	clock    timer.Clock
	onChange func()
	logger   *slog.Logger

	perFeed time.Duration
	perItem time.Duration

	feedScope  *timer.Scope
	itemScope  *timer.Scope
	feedTicker timer.Timer
	itemTicker timer.Timer
	feedFade   timer.Timer
	itemFade   timer.Timer

	feeds         []v1alpha1.RSSFeed
	feed          Cursor
	item          Cursor
	transitioning bool
	stopped       bool
}

// NewRSSZone creates an empty panel; SetFeeds gives it content
func NewRSSZone(clock timer.Clock, settings v1alpha1.RSSSettings, onChange func(), logger *slog.Logger) *RSSZone {
	perFeed, perItem := RSSIntervals(settings)
	return &RSSZone{
		clock:     clock,
		onChange:  onChange,
		logger:    logger.With("zone", "rss"),
		perFeed:   perFeed,
		perItem:   perItem,
		feedScope: timer.NewScope(clock),
		itemScope: timer.NewScope(clock),
	}
}

// Empty reports whether there is nothing to show
func (z *RSSZone) Empty() bool {
	return len(z.feeds) == 0
}

// FeedIndex returns the current feed position
func (z *RSSZone) FeedIndex() int {
	return z.feed.Index()
}

// ItemIndex returns the current item position within the feed
func (z *RSSZone) ItemIndex() int {
	return z.item.Index()
}

// Intervals returns the active feed and item periods
func (z *RSSZone) Intervals() (perFeed, perItem time.Duration) {
	return z.perFeed, z.perItem
}

// SetFeeds replaces the feed list. The current feed and item are kept when
// the feed still exists, so a background refresh does not jump the panel.
func (z *RSSZone) SetFeeds(feeds []v1alpha1.RSSFeed) {
	if z.stopped {
		return
	}
	feeds = FilterFeeds(feeds)

	var currentID string
	if len(z.feeds) > 0 {
		currentID = z.feeds[z.feed.Index()].ID
	}
	itemIndex := z.item.Index()
	wasEmpty := len(z.feeds) == 0

	z.feeds = feeds
	if len(feeds) == 0 {
		z.feed.Reset(0)
		z.item.Reset(0)
		z.stopTimers()
		z.changed()
		return
	}

	kept := false
	z.feed.Reset(len(feeds))
	for i, f := range feeds {
		if f.ID == currentID {
			z.feed.Seek(i)
			kept = true
			break
		}
	}

	z.item.Reset(len(feeds[z.feed.Index()].Items))
	if kept {
		z.item.Seek(itemIndex)
	}

	switch {
	case wasEmpty || !kept:
		z.logger.Debug("rss feeds replaced", "feeds", len(feeds))
		z.restartFeedTimer()
		z.restartItemTimer()
	default:
		// same feed: keep both phases, but the timers may need to start
		// or stop if the counts crossed one
		z.syncTimers()
	}
	z.changed()
}

// UpdateSettings applies new rotation periods. Only the timer whose period
// changed is restarted.
func (z *RSSZone) UpdateSettings(settings v1alpha1.RSSSettings) {
	perFeed, perItem := RSSIntervals(settings)
	if perFeed != z.perFeed {
		z.perFeed = perFeed
		z.restartFeedTimer()
	}
	if perItem != z.perItem {
		z.perItem = perItem
		z.restartItemTimer()
	}
}

// Stop clears both timers
func (z *RSSZone) Stop() {
	z.stopped = true
	z.feedScope.Release()
	z.itemScope.Release()
}

// Frame renders the panel, nil when there are no feeds
func (z *RSSZone) Frame() *v1alpha1.RSSFrame {
	if len(z.feeds) == 0 {
		return nil
	}
	feed := z.feeds[z.feed.Index()]
	return &v1alpha1.RSSFrame{
		FeedIndex:     z.feed.Index(),
		FeedCount:     len(z.feeds),
		ItemIndex:     z.item.Index(),
		ItemCount:     len(feed.Items),
		FeedName:      feed.Name,
		Item:          feed.Items[z.item.Index()],
		Transitioning: z.transitioning,
	}
}

func (z *RSSZone) stopTimers() {
	z.feedScope.Reset()
	z.itemScope.Reset()
	z.feedTicker, z.itemTicker = nil, nil
	z.feedFade, z.itemFade = nil, nil
	z.transitioning = false
}

func (z *RSSZone) restartFeedTimer() {
	z.feedScope.Reset()
	z.feedTicker = nil
	if z.feedFade != nil {
		z.feedFade = nil
		z.transitioning = false
	}
	if z.stopped || len(z.feeds) < 2 {
		return
	}
	z.feedTicker = z.feedScope.Every(z.perFeed, z.onFeedTick)
}

func (z *RSSZone) restartItemTimer() {
	z.itemScope.Reset()
	z.itemTicker = nil
	if z.itemFade != nil {
		z.itemFade = nil
		z.transitioning = false
	}
	if z.stopped || z.item.Len() < 2 {
		return
	}
	z.itemTicker = z.itemScope.Every(z.perItem, z.onItemTick)
}

func (z *RSSZone) syncTimers() {
	if (z.feedTicker != nil) != (len(z.feeds) >= 2) {
		z.restartFeedTimer()
	}
	if (z.itemTicker != nil) != (z.item.Len() >= 2) {
		z.restartItemTimer()
	}
}

func (z *RSSZone) onFeedTick() {
	if z.feedFade != nil && z.feedFade.Active() {
		return
	}
	// a feed change supersedes a pending item change
	if z.itemFade != nil {
		z.itemFade.Stop()
		z.itemFade = nil
	}

	z.transitioning = true
	z.changed()
	z.feedFade = z.feedScope.AfterFunc(RSSFade, func() {
		z.feedFade = nil
		z.transitioning = false
		z.feed.Next()
		z.item.Reset(len(z.feeds[z.feed.Index()].Items))
		z.restartItemTimer()
		z.changed()
	})
}

func (z *RSSZone) onItemTick() {
	if z.transitioning {
		return
	}

	z.transitioning = true
	z.changed()
	z.itemFade = z.itemScope.AfterFunc(RSSFade, func() {
		z.itemFade = nil
		z.transitioning = false
		z.item.Next()
		z.changed()
	})
}

func (z *RSSZone) changed() {
	if !z.stopped && z.onChange != nil {
		z.onChange()
	}
}
