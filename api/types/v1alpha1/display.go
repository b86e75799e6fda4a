package v1alpha1

// Center identifies the school building a screen belongs to
type Center struct {
	// ID uniquely identifies the center
	ID string `json:"id"`
	// Name is shown in the header and standby screen
	Name string `json:"name"`
	// LogoURL points at the center's logo image
	LogoURL string `json:"logoUrl,omitempty"`
}

// RSSSettings controls the news panel rotation
type RSSSettings struct {
	// SecondsPerItem is how long one article stays on screen (5-30)
	SecondsPerItem int `json:"secondsPerItem"`
	// SecondsPerFeed is how long one feed stays on screen (60-300)
	SecondsPerFeed int `json:"secondsPerFeed"`
}

// DisplaySettings controls which screen regions are shown
type DisplaySettings struct {
	ShowHeader bool `json:"showHeader"`
	ShowClock  bool `json:"showClock"`
	ShowTicker bool `json:"showTicker"`
	// TickerSpeed is the ticker scroll speed in pixels per second
	TickerSpeed float64 `json:"tickerSpeed"`
	// StandbyMessage is shown when there is nothing to play
	StandbyMessage string `json:"standbyMessage,omitempty"`
	// AnnouncementVolume is the announcement player volume, 0.0-1.0
	AnnouncementVolume float64 `json:"announcementVolume"`
}

// DisplayConfig is the resolved configuration of one center's screens.
// It is fetched on every load and never mutated locally.
type DisplayConfig struct {
	Center                Center          `json:"center"`
	CurrentPlaylist       *PlaylistRef    `json:"currentPlaylist"`
	AnnouncementsPlaylist *PlaylistRef    `json:"announcementsPlaylist"`
	RSSSettings           RSSSettings     `json:"rssSettings"`
	DisplaySettings       DisplaySettings `json:"displaySettings"`
}
