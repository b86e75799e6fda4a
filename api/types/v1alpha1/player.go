package v1alpha1

// PlayerMethod names a command understood by the embedded player
type PlayerMethod string

const (
	PlayerMethodAddEventListener PlayerMethod = "addEventListener"
	PlayerMethodPlay             PlayerMethod = "play"
	PlayerMethodPause            PlayerMethod = "pause"
	PlayerMethodSetMuted         PlayerMethod = "setMuted"
	PlayerMethodSetVolume        PlayerMethod = "setVolume"
	PlayerMethodGetCurrentTime   PlayerMethod = "getCurrentTime"
	PlayerMethodGetDuration      PlayerMethod = "getDuration"
)

// PlayerEvent names an event emitted by the embedded player
type PlayerEvent string

const (
	PlayerEventReady        PlayerEvent = "ready"
	PlayerEventPlay         PlayerEvent = "play"
	PlayerEventPause        PlayerEvent = "pause"
	PlayerEventTimeUpdate   PlayerEvent = "timeupdate"
	PlayerEventPlayProgress PlayerEvent = "playProgress"
	PlayerEventEnded        PlayerEvent = "ended"
	PlayerEventFinish       PlayerEvent = "finish"
)

// SubscribedEvents are registered with the player on every load and ready
var SubscribedEvents = []PlayerEvent{
	PlayerEventEnded,
	PlayerEventPlay,
	PlayerEventPause,
	PlayerEventTimeUpdate,
	PlayerEventPlayProgress,
	PlayerEventFinish,
}

// PlayerCommand is an outbound postMessage body
type PlayerCommand struct {
	Method PlayerMethod `json:"method"`
	Value  interface{}  `json:"value,omitempty"`
}

// PlayerProgress carries playback position reported by the player
type PlayerProgress struct {
	Seconds  float64 `json:"seconds"`
	Duration float64 `json:"duration"`
	Percent  float64 `json:"percent"`
}

// PlayerMessage is an inbound postMessage body. Events set Event,
// method responses set Method and Value.
type PlayerMessage struct {
	Event  PlayerEvent     `json:"event,omitempty"`
	Data   *PlayerProgress `json:"data,omitempty"`
	Method PlayerMethod    `json:"method,omitempty"`
	Value  *float64        `json:"value,omitempty"`
}
