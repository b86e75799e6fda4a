package v1alpha1

// PlaylistKind classifies playlists
type PlaylistKind string

const (
	// PlaylistKindWeekday playlists are named after the weekday they play on
	PlaylistKindWeekday PlaylistKind = "weekday"
	// PlaylistKindAnnouncements playlists feed the announcement zone
	PlaylistKindAnnouncements PlaylistKind = "announcements"
	// PlaylistKindCustom playlists are only played through a manual override
	PlaylistKindCustom PlaylistKind = "custom"
)

// PlaylistRef references a playlist without its videos
type PlaylistRef struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Kind     PlaylistKind `json:"kind,omitempty"`
	CenterID string       `json:"centerId,omitempty"`
	Active   bool         `json:"active"`
}

// DisplayVideo identifies one playable unit of a playlist
type DisplayVideo struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	ExternalVideoID   string `json:"externalVideoId"`
	ExternalVideoHash string `json:"externalVideoHash,omitempty"`
	DurationSeconds   int    `json:"durationSeconds,omitempty"`
}

// PlaylistVideos is the body of GET /display/playlist/{id}
type PlaylistVideos struct {
	Videos []DisplayVideo `json:"videos"`
}

// PlaylistList is the body of GET /display/playlists
type PlaylistList struct {
	Playlists []PlaylistRef `json:"playlists"`
}
