package rotator

import (
	"math"

	"github.com/wrale/wsplay/api/types/v1alpha1"
)

const (
	// HeaderFraction is the header height as a fraction of the screen
	HeaderFraction = 0.10
	// TickerHeight is the fixed ticker bar height in pixels
	TickerHeight = 64
	// ColumnFraction is the right column width as a fraction of the screen
	ColumnFraction = 0.30
	// AnnouncementMaxFraction caps the announcement height against the body
	AnnouncementMaxFraction = 0.45
)

// LayoutInput says which regions have something to show
type LayoutInput struct {
	Width            int
	Height           int
	Settings         v1alpha1.DisplaySettings
	HasAnnouncements bool
	HasRSS           bool
	HasTicker        bool
}

// ComputeLayout places the active screen regions in pixels. The right column
// exists only when announcements or RSS have data.
func ComputeLayout(in LayoutInput) v1alpha1.Layout {
	var l v1alpha1.Layout
	top := 0
	bottom := in.Height

	if in.Settings.ShowHeader {
		h := int(math.Round(float64(in.Height) * HeaderFraction))
		l.Header = &v1alpha1.Rect{Width: in.Width, Height: h}
		top = h
	}
	if in.Settings.ShowTicker && in.HasTicker {
		bottom -= TickerHeight
		l.Ticker = &v1alpha1.Rect{Y: bottom, Width: in.Width, Height: TickerHeight}
	}
	body := bottom - top

	if !in.HasAnnouncements && !in.HasRSS {
		l.Video = &v1alpha1.Rect{Y: top, Width: in.Width, Height: body}
		return l
	}

	col := int(math.Round(float64(in.Width) * ColumnFraction))
	left := in.Width - col
	l.Video = &v1alpha1.Rect{Y: top, Width: left, Height: body}

	used := 0
	if in.HasAnnouncements {
		h := col * 9 / 16
		if max := int(float64(body) * AnnouncementMaxFraction); h > max {
			h = max
		}
		l.Announcement = &v1alpha1.Rect{X: left, Y: top, Width: col, Height: h}
		used = h
	}
	if in.HasRSS {
		l.RSS = &v1alpha1.Rect{X: left, Y: top + used, Width: col, Height: body - used}
	}
	return l
}
