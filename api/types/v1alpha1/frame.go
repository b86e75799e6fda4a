package v1alpha1

import "time"

// ScreenState represents the top-level state of a screen
type ScreenState string

const (
	// ScreenStateLoading indicates configuration is being fetched
	ScreenStateLoading ScreenState = "LOADING"
	// ScreenStateError indicates configuration could not be fetched
	ScreenStateError ScreenState = "ERROR"
	// ScreenStateStandby indicates there is nothing to play
	ScreenStateStandby ScreenState = "STANDBY"
	// ScreenStateActive indicates zones are rotating
	ScreenStateActive ScreenState = "ACTIVE"
)

// Rect is a screen region in pixels
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Layout places the screen regions. Absent regions are nil.
type Layout struct {
	Header       *Rect `json:"header,omitempty"`
	Video        *Rect `json:"video,omitempty"`
	Announcement *Rect `json:"announcement,omitempty"`
	RSS          *Rect `json:"rss,omitempty"`
	Ticker       *Rect `json:"ticker,omitempty"`
}

// VideoZoneFrame is the rendered state of a playback-driven zone
type VideoZoneFrame struct {
	Zone          string       `json:"zone"`
	Index         int          `json:"index"`
	Count         int          `json:"count"`
	Video         DisplayVideo `json:"video"`
	Player        *PlayerFrame `json:"player,omitempty"`
	Transitioning bool         `json:"transitioning"`
	ShowTitle     bool         `json:"showTitle"`
	AudioBlocked  bool         `json:"audioBlocked"`
	Failed        bool         `json:"failed"`
}

// RSSFrame is the rendered state of the news panel
type RSSFrame struct {
	FeedIndex     int     `json:"feedIndex"`
	FeedCount     int     `json:"feedCount"`
	ItemIndex     int     `json:"itemIndex"`
	ItemCount     int     `json:"itemCount"`
	FeedName      string  `json:"feedName"`
	Item          RSSItem `json:"item"`
	Transitioning bool    `json:"transitioning"`
}

// TickerFrame is the rendered state of the scrolling ticker
type TickerFrame struct {
	// Text is one copy of the concatenated message set
	Text string `json:"text"`
	// Fingerprint identifies the message set, echoed back on measurement
	Fingerprint string `json:"fingerprint"`
	// Measured is false until the shell reports widths for Fingerprint
	Measured bool `json:"measured"`
	// Copies is how many times Text is repeated in the scroll strip
	Copies int `json:"copies,omitempty"`
	// DurationSeconds is the scroll animation duration of one set
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
}

// StandbyFrame is rendered when the screen has nothing to play
type StandbyFrame struct {
	CenterName string `json:"centerName"`
	LogoURL    string `json:"logoUrl,omitempty"`
	Message    string `json:"message,omitempty"`
	ShowClock  bool   `json:"showClock"`
}

// Frame is a complete snapshot of what a screen should show
type Frame struct {
	// Version increases with every published frame
	Version      uint64          `json:"version"`
	State        ScreenState     `json:"state"`
	Center       Center          `json:"center"`
	Settings     DisplaySettings `json:"settings"`
	Layout       *Layout         `json:"layout,omitempty"`
	Video        *VideoZoneFrame `json:"video,omitempty"`
	Announcement *VideoZoneFrame `json:"announcement,omitempty"`
	RSS          *RSSFrame       `json:"rss,omitempty"`
	Ticker       *TickerFrame    `json:"ticker,omitempty"`
	Standby      *StandbyFrame   `json:"standby,omitempty"`
	Error        *Error          `json:"error,omitempty"`
}

// ZoneStatus summarises one zone for monitoring
type ZoneStatus struct {
	Zone              string `json:"zone"`
	Index             int    `json:"index"`
	Count             int    `json:"count"`
	ItemID            string `json:"itemId,omitempty"`
	ConsecutiveErrors int    `json:"consecutiveErrors"`
	Failed            bool   `json:"failed"`
	AudioBlocked      bool   `json:"audioBlocked"`
}

// ScreenStatus is the monitoring view of a screen
type ScreenStatus struct {
	// TypeMeta describes the versioning of this object
	TypeMeta `json:",inline"`

	CenterID   string       `json:"centerId"`
	ScreenID   string       `json:"screenId"`
	State      ScreenState  `json:"state"`
	PlaylistID string       `json:"playlistId,omitempty"`
	Zones      []ZoneStatus `json:"zones,omitempty"`
	LastError  *string      `json:"lastError,omitempty"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// ScreenEvent records one status transition of a screen
type ScreenEvent struct {
	State     ScreenState `json:"state"`
	LastError string      `json:"lastError,omitempty"`
	At        time.Time   `json:"at"`
}
