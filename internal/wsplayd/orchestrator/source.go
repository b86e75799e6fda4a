package orchestrator

import (
	"context"
	"slices"
	"time"

	"github.com/wrale/wsplay/api/types/v1alpha1"
)

// Source is the configuration API
type Source interface {
	DisplayConfig(ctx context.Context, centerID, override string) (*v1alpha1.DisplayConfig, error)
	PlaylistVideos(ctx context.Context, playlistID string) ([]v1alpha1.DisplayVideo, error)
	RSSFeeds(ctx context.Context, centerID string) ([]v1alpha1.RSSFeed, error)
	TickerMessages(ctx context.Context, centerID string) ([]v1alpha1.TickerMessage, error)
}

// PlaylistResolver picks the main playlist locally
type PlaylistResolver interface {
	Resolve(ctx context.Context, centerID string, today time.Time, override string) (string, error)
}

// Renderer displays frames
type Renderer interface {
	Render(frame v1alpha1.Frame)
}

// StatusPublisher records screen status for monitoring
type StatusPublisher interface {
	Publish(ctx context.Context, status v1alpha1.ScreenStatus) error
}

// snapshot is everything one Loading cycle fetched. It is never mutated
// after the cycle completes.
type snapshot struct {
	config        v1alpha1.DisplayConfig
	playlistID    string
	videos        []v1alpha1.DisplayVideo
	announcements []v1alpha1.DisplayVideo
	feeds         []v1alpha1.RSSFeed
	messages      []v1alpha1.TickerMessage

	// set when the secondary fetch failed and the field is empty for that reason
	announcementsFailed bool
	feedsFailed         bool
	messagesFailed      bool
}

// replacedBy reports whether next needs a new screen rather than an update
// of the running zones
func (s *snapshot) replacedBy(next *snapshot) bool {
	if s.playlistID != next.playlistID || !slices.Equal(s.videos, next.videos) {
		return true
	}
	if !next.announcementsFailed && !slices.Equal(s.announcements, next.announcements) {
		return true
	}
	cur, upd := s.config.DisplaySettings, next.config.DisplaySettings
	return cur.ShowTicker != upd.ShowTicker || cur.AnnouncementVolume != upd.AnnouncementVolume
}
