package v1alpha1

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ControlMessageType defines types of messages sent to the browser shell
type ControlMessageType string

const (
	// ControlMessageFrame carries a full screen frame to render
	ControlMessageFrame ControlMessageType = "FRAME"
	// ControlMessageMountPlayer asks the shell to create a player iframe
	ControlMessageMountPlayer ControlMessageType = "MOUNT_PLAYER"
	// ControlMessageUnmountPlayer asks the shell to destroy a player iframe
	ControlMessageUnmountPlayer ControlMessageType = "UNMOUNT_PLAYER"
	// ControlMessagePlayerCommand relays a postMessage command to a player iframe
	ControlMessagePlayerCommand ControlMessageType = "PLAYER_COMMAND"
	// ControlMessageReload indicates the shell should reload the page
	ControlMessageReload ControlMessageType = "RELOAD"
)

// ControlMessage represents a message sent over the shell websocket
type ControlMessage struct {
	// TypeMeta describes API version details
	TypeMeta `json:",inline"`
	// Type indicates the kind of control message
	Type ControlMessageType `json:"type"`
	// Timestamp indicates when message was created
	Timestamp time.Time `json:"timestamp"`
	// Frame contains the screen frame for FRAME messages
	Frame *Frame `json:"frame,omitempty"`
	// Player identifies the player iframe for player messages
	Player *PlayerFrame `json:"player,omitempty"`
	// Command is the player command for PLAYER_COMMAND messages
	Command *PlayerCommand `json:"command,omitempty"`
}

// PlayerFrame identifies one embedded player iframe owned by a bridge
type PlayerFrame struct {
	// FrameID is the identity the shell tags every relayed message with
	FrameID uuid.UUID `json:"frameId"`
	// Zone names the screen region hosting the iframe
	Zone string `json:"zone,omitempty"`
	// EmbedURL is the iframe source
	EmbedURL string `json:"embedUrl,omitempty"`
}

// ShellMessageType defines types of messages received from the browser shell
type ShellMessageType string

const (
	// ShellMessagePlayer relays a raw postMessage received from a player iframe
	ShellMessagePlayer ShellMessageType = "PLAYER_MESSAGE"
	// ShellMessageFrameLoaded reports the native load event of a player iframe
	ShellMessageFrameLoaded ShellMessageType = "FRAME_LOADED"
	// ShellMessageTickerMeasured reports the rendered width of the ticker message set
	ShellMessageTickerMeasured ShellMessageType = "TICKER_MEASURED"
	// ShellMessageStatus is a shell heartbeat
	ShellMessageStatus ShellMessageType = "STATUS"
)

// ShellMessage represents a message received over the shell websocket
type ShellMessage struct {
	// TypeMeta describes API version details
	TypeMeta `json:",inline"`
	// Type indicates the kind of shell message
	Type ShellMessageType `json:"type"`
	// FrameID identifies the iframe a player message or load event came from
	FrameID uuid.UUID `json:"frameId,omitempty"`
	// Origin is the postMessage origin as observed by the shell
	Origin string `json:"origin,omitempty"`
	// Data is the raw postMessage payload, usually a JSON string
	Data json.RawMessage `json:"data,omitempty"`
	// Measurement carries ticker widths for TICKER_MEASURED messages
	Measurement *TickerMeasurement `json:"measurement,omitempty"`
}

// TickerMeasurement is the shell's layout measurement of the ticker
type TickerMeasurement struct {
	// Fingerprint identifies the message set that was measured
	Fingerprint string `json:"fingerprint"`
	// SetWidth is the pixel width of one copy of the message set
	SetWidth float64 `json:"setWidth"`
	// ContainerWidth is the visible pixel width of the ticker bar
	ContainerWidth float64 `json:"containerWidth"`
}
