package shell

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayd/ratelimit"
	"github.com/wrale/wsplay/internal/wsplayd/status"
)

const (
	// DefaultEventLimit is how many status events are returned without ?limit
	DefaultEventLimit = 20
)

// Engine is the part of the orchestrator the HTTP API drives
type Engine interface {
	Status() v1alpha1.ScreenStatus
	RequestReload()
}

// Handler serves the daemon's HTTP API and the shell websocket
type Handler struct {
	hub      *Hub
	engine   Engine
	store    status.Store
	ready    func() bool
	limiter  *ratelimit.Service
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithAllowedOrigins restricts which pages may attach to /ws
func WithAllowedOrigins(origins []string) HandlerOption {
	return func(h *Handler) {
		h.upgrader = newUpgrader(origins)
	}
}

// WithReadiness sets the /readyz check
func WithReadiness(ready func() bool) HandlerOption {
	return func(h *Handler) {
		h.ready = ready
	}
}

// WithRateLimiter throttles /ws upgrades and POST /reload per caller
func WithRateLimiter(limiter *ratelimit.Service) HandlerOption {
	return func(h *Handler) {
		h.limiter = limiter
	}
}

// NewHandler creates the API handler. store may be nil.
func NewHandler(hub *Hub, engine Engine, store status.Store, logger zerolog.Logger, options ...HandlerOption) *Handler {
	if store == nil {
		store = status.Noop{}
	}
	h := &Handler{
		hub:      hub,
		engine:   engine,
		store:    store,
		ready:    func() bool { return true },
		upgrader: newUpgrader(nil),
		logger:   logger.With().Str("component", "shell-http").Logger(),
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if !h.ready() {
		h.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.engine.Status())
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := DefaultEventLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			h.respondError(w, ErrInvalidRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}

	st := h.engine.Status()
	events, err := h.store.Events(r.Context(), st.CenterID, st.ScreenID, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read status events")
		h.respondError(w, ErrUnavailable("status store unavailable"))
		return
	}
	if events == nil {
		events = []v1alpha1.ScreenEvent{}
	}
	h.respondJSON(w, http.StatusOK, events)
}

// ReloadResponse is the body of POST /reload
type ReloadResponse struct {
	Status string `json:"status"`
	Shell  bool   `json:"shell"`
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	h.engine.RequestReload()

	resp := ReloadResponse{Status: "reloading"}
	if reloadShell, _ := strconv.ParseBool(r.URL.Query().Get("shell")); reloadShell {
		if err := h.hub.ReloadShell(); err != nil {
			h.logger.Warn().Err(err).Msg("shell reload not sent")
		} else {
			resp.Shell = true
		}
	}

	h.logger.Info().Bool("shell", resp.Shell).Msg("reload requested")
	h.respondJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	body := v1alpha1.Error{Code: "INTERNAL", Message: "internal server error"}

	if he, ok := err.(HTTPError); ok {
		code = he.StatusCode()
		body.Code = he.Code()
		body.Message = he.Error()
	}

	h.respondJSON(w, code, body)
}
