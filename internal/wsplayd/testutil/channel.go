// Package testutil holds fakes shared by the engine's tests
package testutil

import (
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayd/player"
)

// PlayerOrigin is the origin fake player messages are sent from by default
const PlayerOrigin = "https://player.vimeo.com"

// Logger returns a logger that discards everything
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SentCommand is a command recorded by FakeChannel
type SentCommand struct {
	FrameID uuid.UUID
	Command v1alpha1.PlayerCommand
}

// FakeChannel is an in-memory player.Channel. Inbound events are delivered
// synchronously to the registered listeners.
type FakeChannel struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(player.Inbound)
	mounted   []v1alpha1.PlayerFrame
	live      map[uuid.UUID]bool
	unmounted []uuid.UUID
	sent      []SentCommand

	// MountErr is returned by Mount when set
	MountErr error
}

// NewFakeChannel creates an empty channel
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{
		listeners: make(map[int]func(player.Inbound)),
		live:      make(map[uuid.UUID]bool),
	}
}

// Mount records frame as mounted
func (c *FakeChannel) Mount(frame v1alpha1.PlayerFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.MountErr != nil {
		return c.MountErr
	}
	c.mounted = append(c.mounted, frame)
	c.live[frame.FrameID] = true
	return nil
}

// Unmount records frameID as destroyed
func (c *FakeChannel) Unmount(frameID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.live, frameID)
	c.unmounted = append(c.unmounted, frameID)
	return nil
}

// Send records cmd
func (c *FakeChannel) Send(frameID uuid.UUID, cmd v1alpha1.PlayerCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, SentCommand{FrameID: frameID, Command: cmd})
	return nil
}

// Listen registers fn
func (c *FakeChannel) Listen(fn func(player.Inbound)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Listeners returns the number of registered listeners
func (c *FakeChannel) Listeners() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

// Deliver sends in to every listener registered at the time of the call
// that is still registered when its turn comes
func (c *FakeChannel) Deliver(in player.Inbound) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	c.mu.Unlock()
	sort.Ints(ids)

	for _, id := range ids {
		c.mu.Lock()
		fn, ok := c.listeners[id]
		c.mu.Unlock()
		if ok {
			fn(in)
		}
	}
}

// Load delivers the iframe load event for frameID
func (c *FakeChannel) Load(frameID uuid.UUID) {
	c.Deliver(player.Inbound{Kind: player.InboundLoad, FrameID: frameID})
}

// Message delivers body as a JSON-stringified postMessage from PlayerOrigin
func (c *FakeChannel) Message(frameID uuid.UUID, body interface{}) {
	raw, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	quoted, err := json.Marshal(string(raw))
	if err != nil {
		panic(err)
	}
	c.Deliver(player.Inbound{
		Kind:    player.InboundMessage,
		FrameID: frameID,
		Origin:  PlayerOrigin,
		Data:    quoted,
	})
}

// Event delivers a player event with optional progress data
func (c *FakeChannel) Event(frameID uuid.UUID, event v1alpha1.PlayerEvent, data *v1alpha1.PlayerProgress) {
	c.Message(frameID, v1alpha1.PlayerMessage{Event: event, Data: data})
}

// Mounted returns every frame mounted so far, in order
func (c *FakeChannel) Mounted() []v1alpha1.PlayerFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]v1alpha1.PlayerFrame(nil), c.mounted...)
}

// Live returns the frames mounted and not yet unmounted, in mount order
func (c *FakeChannel) Live() []v1alpha1.PlayerFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	var frames []v1alpha1.PlayerFrame
	for _, f := range c.mounted {
		if c.live[f.FrameID] {
			frames = append(frames, f)
		}
	}
	return frames
}

// LiveInZone returns the live frame of zone, if any
func (c *FakeChannel) LiveInZone(zone string) (v1alpha1.PlayerFrame, bool) {
	for _, f := range c.Live() {
		if f.Zone == zone {
			return f, true
		}
	}
	return v1alpha1.PlayerFrame{}, false
}

// Unmounted returns the frames unmounted so far, in order
func (c *FakeChannel) Unmounted() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uuid.UUID(nil), c.unmounted...)
}

// Commands returns the commands sent to frameID
func (c *FakeChannel) Commands(frameID uuid.UUID) []v1alpha1.PlayerCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	var cmds []v1alpha1.PlayerCommand
	for _, s := range c.sent {
		if s.FrameID == frameID {
			cmds = append(cmds, s.Command)
		}
	}
	return cmds
}

// Count returns how many commands with method were sent to frameID
func (c *FakeChannel) Count(frameID uuid.UUID, method v1alpha1.PlayerMethod) int {
	n := 0
	for _, cmd := range c.Commands(frameID) {
		if cmd.Method == method {
			n++
		}
	}
	return n
}
