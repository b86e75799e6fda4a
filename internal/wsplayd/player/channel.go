package player

import (
	"github.com/google/uuid"

	"github.com/wrale/wsplay/api/types/v1alpha1"
)

// InboundKind distinguishes what the shell relayed about a player iframe
type InboundKind int

const (
	// InboundLoad is the iframe's native load event
	InboundLoad InboundKind = iota
	// InboundMessage is a postMessage received from the iframe's window
	InboundMessage
)

// Inbound is one event relayed by the shell. FrameID is the identity of the
// window the message came from and Origin is the origin the shell observed.
type Inbound struct {
	Kind    InboundKind
	FrameID uuid.UUID
	Origin  string
	Data    []byte
}

// Channel is the message bus between bridges and the player iframes they own.
// Listen callbacks are delivered on the event loop.
type Channel interface {
	// Mount creates the iframe for frame
	Mount(frame v1alpha1.PlayerFrame) error
	// Unmount destroys the iframe
	Unmount(frameID uuid.UUID) error
	// Send posts a command to the iframe's window
	Send(frameID uuid.UUID, cmd v1alpha1.PlayerCommand) error
	// Listen registers fn for every inbound event until cancel is called
	Listen(fn func(Inbound)) (cancel func())
}
