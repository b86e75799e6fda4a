// Package shell connects the engine to the browser shell of a screen. The
// shell owns the DOM and the player iframes; the hub relays their traffic
// onto the event loop and pushes frames and player commands back.
package shell

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayd/loop"
	"github.com/wrale/wsplay/internal/wsplayd/player"
)

var (
	// ErrNoShell is returned when a command needs a connected shell
	ErrNoShell = errors.New("shell not connected")
	// ErrNotMounted is returned for commands addressed to an unknown iframe
	ErrNotMounted = errors.New("player not mounted")
)

// Hub tracks the shell connection of this screen plus any read-only
// observers. Only the newest shell connection is served.
type Hub struct {
	exec   loop.Executor
	logger zerolog.Logger

	mu           sync.Mutex
	shell        *connection
	observers    map[*connection]struct{}
	players      []v1alpha1.PlayerFrame
	lastFrame    []byte
	listeners    map[uint64]func(player.Inbound)
	nextListener uint64
	onMeasured   func(v1alpha1.TickerMeasurement)
	lastSeen     time.Time
}

// NewHub creates a hub delivering inbound events through exec
func NewHub(exec loop.Executor, logger zerolog.Logger) *Hub {
	return &Hub{
		exec:      exec,
		logger:    logger.With().Str("component", "shell-hub").Logger(),
		observers: make(map[*connection]struct{}),
		listeners: make(map[uint64]func(player.Inbound)),
	}
}

// OnTickerMeasured sets the callback for ticker measurements. It runs on
// the event loop.
func (h *Hub) OnTickerMeasured(fn func(v1alpha1.TickerMeasurement)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onMeasured = fn
}

// Connected reports whether a shell is attached
func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.shell != nil
}

// LastSeen returns when the shell last sent anything
func (h *Hub) LastSeen() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastSeen
}

// Mount implements player.Channel. The iframe is created immediately when a
// shell is attached and replayed to every shell that attaches later.
func (h *Hub) Mount(frame v1alpha1.PlayerFrame) error {
	data, err := encodeControl(v1alpha1.ControlMessageMountPlayer, func(m *v1alpha1.ControlMessage) {
		m.Player = &frame
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.removePlayerLocked(frame.FrameID)
	h.players = append(h.players, frame)
	if h.shell != nil {
		h.sendLocked(h.shell, data)
	}
	return nil
}

// Unmount implements player.Channel
func (h *Hub) Unmount(frameID uuid.UUID) error {
	data, err := encodeControl(v1alpha1.ControlMessageUnmountPlayer, func(m *v1alpha1.ControlMessage) {
		m.Player = &v1alpha1.PlayerFrame{FrameID: frameID}
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.removePlayerLocked(frameID) {
		return nil
	}
	if h.shell != nil {
		h.sendLocked(h.shell, data)
	}
	return nil
}

// Send implements player.Channel
func (h *Hub) Send(frameID uuid.UUID, cmd v1alpha1.PlayerCommand) error {
	data, err := encodeControl(v1alpha1.ControlMessagePlayerCommand, func(m *v1alpha1.ControlMessage) {
		m.Player = &v1alpha1.PlayerFrame{FrameID: frameID}
		m.Command = &cmd
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.mountedLocked(frameID) {
		return fmt.Errorf("%w: %s", ErrNotMounted, frameID)
	}
	if h.shell == nil {
		return ErrNoShell
	}
	h.sendLocked(h.shell, data)
	return nil
}

// Listen implements player.Channel
func (h *Hub) Listen(fn func(player.Inbound)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextListener
	h.nextListener++
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

// Render sends frame to the shell and to every observer. The latest frame
// is replayed to connections that attach later.
func (h *Hub) Render(frame v1alpha1.Frame) {
	data, err := encodeControl(v1alpha1.ControlMessageFrame, func(m *v1alpha1.ControlMessage) {
		m.Frame = &frame
	})
	if err != nil {
		h.logger.Error().Err(err).Uint64("version", frame.Version).Msg("failed to encode frame")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastFrame = data
	if h.shell != nil {
		h.sendLocked(h.shell, data)
	}
	for c := range h.observers {
		h.sendLocked(c, data)
	}
}

// ReloadShell asks the shell to reload its page
func (h *Hub) ReloadShell() error {
	data, err := encodeControl(v1alpha1.ControlMessageReload, nil)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.shell == nil {
		return ErrNoShell
	}
	h.sendLocked(h.shell, data)
	return nil
}

// Close disconnects the shell and every observer
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.shell != nil {
		h.dropLocked(h.shell)
	}
	for c := range h.observers {
		h.dropLocked(c)
	}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.role == RoleObserver {
		h.observers[c] = struct{}{}
		if h.lastFrame != nil {
			h.sendLocked(c, h.lastFrame)
		}
		h.logger.Info().
			Str("connectionId", c.id.String()).
			Int("observers", len(h.observers)).
			Msg("observer connected")
		return
	}

	if h.shell != nil {
		h.logger.Info().
			Str("connectionId", h.shell.id.String()).
			Msg("replacing shell connection")
		h.dropLocked(h.shell)
	}
	h.shell = c
	h.lastSeen = time.Now()

	if h.lastFrame != nil {
		h.sendLocked(c, h.lastFrame)
	}
	for _, p := range h.players {
		p := p
		data, err := encodeControl(v1alpha1.ControlMessageMountPlayer, func(m *v1alpha1.ControlMessage) {
			m.Player = &p
		})
		if err != nil {
			continue
		}
		h.sendLocked(c, data)
	}

	h.logger.Info().
		Str("connectionId", c.id.String()).
		Int("players", len(h.players)).
		Msg("shell connected")
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.shell == c {
		h.shell = nil
		close(c.send)
		h.logger.Info().Str("connectionId", c.id.String()).Msg("shell disconnected")
		return
	}
	if _, ok := h.observers[c]; ok {
		delete(h.observers, c)
		close(c.send)
		h.logger.Info().
			Str("connectionId", c.id.String()).
			Int("observers", len(h.observers)).
			Msg("observer disconnected")
	}
}

// dropLocked forgets c and closes its send channel so its writePump closes
// the socket
func (h *Hub) dropLocked(c *connection) {
	if h.shell == c {
		h.shell = nil
	} else if _, ok := h.observers[c]; ok {
		delete(h.observers, c)
	} else {
		return
	}
	close(c.send)
}

func (h *Hub) sendLocked(c *connection, data []byte) {
	select {
	case c.send <- data:
	default:
		h.logger.Warn().Str("connectionId", c.id.String()).Msg("connection buffer full, dropping connection")
		h.dropLocked(c)
	}
}

func (h *Hub) mountedLocked(frameID uuid.UUID) bool {
	for _, p := range h.players {
		if p.FrameID == frameID {
			return true
		}
	}
	return false
}

func (h *Hub) removePlayerLocked(frameID uuid.UUID) bool {
	for i, p := range h.players {
		if p.FrameID == frameID {
			h.players = append(h.players[:i], h.players[i+1:]...)
			return true
		}
	}
	return false
}

// dispatch handles one message read from c. Only the current shell is
// listened to.
func (h *Hub) dispatch(c *connection, msg v1alpha1.ShellMessage) {
	h.mu.Lock()
	if h.shell != c {
		h.mu.Unlock()
		return
	}
	h.lastSeen = time.Now()
	onMeasured := h.onMeasured
	h.mu.Unlock()

	switch msg.Type {
	case v1alpha1.ShellMessagePlayer:
		in := player.Inbound{
			Kind:    player.InboundMessage,
			FrameID: msg.FrameID,
			Origin:  msg.Origin,
			Data:    []byte(msg.Data),
		}
		h.exec.Post(func() { h.deliver(in) })
	case v1alpha1.ShellMessageFrameLoaded:
		in := player.Inbound{Kind: player.InboundLoad, FrameID: msg.FrameID}
		h.exec.Post(func() { h.deliver(in) })
	case v1alpha1.ShellMessageTickerMeasured:
		if msg.Measurement == nil || onMeasured == nil {
			return
		}
		m := *msg.Measurement
		h.exec.Post(func() { onMeasured(m) })
	case v1alpha1.ShellMessageStatus:
	default:
		h.logger.Debug().Str("type", string(msg.Type)).Msg("ignoring unknown shell message")
	}
}

// deliver runs on the loop. Listeners removed by an earlier listener in the
// same delivery are skipped.
func (h *Hub) deliver(in player.Inbound) {
	h.mu.Lock()
	ids := make([]uint64, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		h.mu.Lock()
		fn, ok := h.listeners[id]
		h.mu.Unlock()
		if ok {
			fn(in)
		}
	}
}

func encodeControl(t v1alpha1.ControlMessageType, fill func(*v1alpha1.ControlMessage)) ([]byte, error) {
	msg := v1alpha1.ControlMessage{
		TypeMeta: v1alpha1.TypeMeta{
			Kind:       "ControlMessage",
			APIVersion: v1alpha1.APIVersion,
		},
		Type:      t,
		Timestamp: time.Now().UTC(),
	}
	if fill != nil {
		fill(&msg)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal control message: %w", err)
	}
	return data, nil
}
