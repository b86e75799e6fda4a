package shell

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wrale/wsplay/api/types/v1alpha1"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Player messages carry the
	// iframe's postMessage payload verbatim.
	maxMessageSize = 64 << 10

	// Outbound messages buffered per connection
	sendBuffer = 256
)

// Role is what a websocket client attaches as
type Role string

const (
	// RoleShell is the browser shell hosting the screen
	RoleShell Role = "shell"
	// RoleObserver only receives frames
	RoleObserver Role = "observer"
)

func parseRole(s string) (Role, bool) {
	switch Role(s) {
	case "", RoleShell:
		return RoleShell, true
	case RoleObserver:
		return RoleObserver, true
	}
	return "", false
}

// newUpgrader checks the Origin header against allowed. With no allowed
// origins gorilla's same-origin check applies.
func newUpgrader(allowed []string) websocket.Upgrader {
	u := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowed) > 0 {
		u.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return originAllowed(origin, allowed)
		}
	}
	return u
}

func originAllowed(origin string, allowed []string) bool {
	origin = strings.TrimRight(origin, "/")
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(origin, strings.TrimRight(a, "/")) {
			return true
		}
	}
	return false
}

// connection is a middleman between the websocket connection and the hub
type connection struct {
	id     uuid.UUID
	role   Role
	ws     *websocket.Conn
	send   chan []byte
	hub    *Hub
	logger zerolog.Logger
}

func newConnection(ws *websocket.Conn, role Role, hub *Hub, logger zerolog.Logger) *connection {
	id := uuid.New()
	return &connection{
		id:     id,
		role:   role,
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		hub:    hub,
		logger: logger.With().Str("connectionId", id.String()).Str("role", string(role)).Logger(),
	}
}

// cleanup handles proper connection closure and cleanup
func (c *connection) cleanup() {
	c.hub.unregister(c)

	if err := c.ws.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("error closing websocket connection")
	}
}

func (c *connection) readPump() {
	defer c.cleanup()

	c.ws.SetReadLimit(maxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.ws.SetPongHandler(func(string) error {
		if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error().Err(err).Msg("failed to set read deadline in pong handler")
			return err
		}
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket read error")
			}
			break
		}

		if c.role == RoleObserver {
			continue
		}

		var msg v1alpha1.ShellMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.logger.Debug().Err(err).Msg("invalid shell message")
			continue
		}
		c.hub.dispatch(c, msg)
	}
}

func (c *connection) write(mt int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("failed to set write deadline")
		return err
	}
	return c.ws.WriteMessage(mt, payload)
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.ws.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("error closing websocket connection in writePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				if err := c.write(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug().Err(err).Msg("failed to write close message")
				}
				return
			}
			if err := c.write(websocket.TextMessage, message); err != nil {
				c.logger.Warn().Err(err).Msg("failed to write message")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, []byte{}); err != nil {
				c.logger.Warn().Err(err).Msg("failed to write ping")
				return
			}
		}
	}
}

// ServeWs attaches a shell (or, with ?role=observer, an observer) to the hub
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	role, ok := parseRole(r.URL.Query().Get("role"))
	if !ok {
		h.respondError(w, ErrInvalidRequest("unknown role"))
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("origin", r.Header.Get("Origin")).Msg("websocket upgrade failed")
		return
	}

	c := newConnection(ws, role, h.hub, h.logger)
	h.hub.register(c)

	go c.writePump()
	c.readPump()
}
