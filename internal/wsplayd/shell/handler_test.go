package shell_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayd/ratelimit"
	"github.com/wrale/wsplay/internal/wsplayd/shell"
)

func decode(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func TestHealthEndpoints(t *testing.T) {
	var ready atomic.Bool
	h := newHarness(t, shell.WithReadiness(ready.Load))

	resp, err := http.Get(h.srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(h.srv.URL + "/readyz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "starting", body["status"])

	ready.Store(true)
	resp, err = http.Get(h.srv.URL + "/readyz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestGetStatus(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.srv.URL + "/status")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var st v1alpha1.ScreenStatus
	decode(t, resp, &st)
	assert.Equal(t, "c1", st.CenterID)
	assert.Equal(t, "lobby", st.ScreenID)
	assert.Equal(t, v1alpha1.ScreenStateActive, st.State)
}

func TestGetStatusEvents(t *testing.T) {
	at := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		query      string
		events     []v1alpha1.ScreenEvent
		storeErr   error
		wantStatus int
		wantLimit  int
		wantCode   string
		wantEvents int
	}{
		{
			name:       "default limit",
			events:     []v1alpha1.ScreenEvent{{State: v1alpha1.ScreenStateActive, At: at}},
			wantStatus: http.StatusOK,
			wantLimit:  shell.DefaultEventLimit,
			wantEvents: 1,
		},
		{
			name:       "explicit limit",
			query:      "?limit=5",
			wantStatus: http.StatusOK,
			wantLimit:  5,
		},
		{
			name:       "invalid limit",
			query:      "?limit=abc",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "store unavailable",
			storeErr:   errors.New("connection refused"),
			wantStatus: http.StatusServiceUnavailable,
			wantLimit:  shell.DefaultEventLimit,
			wantCode:   "UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.store.events = tt.events
			h.store.err = tt.storeErr

			resp, err := http.Get(h.srv.URL + "/status/events" + tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantLimit, h.store.Limit())

			if tt.wantCode != "" {
				var apiErr v1alpha1.Error
				decode(t, resp, &apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}

			var events []v1alpha1.ScreenEvent
			decode(t, resp, &events)
			assert.Len(t, events, tt.wantEvents)
		})
	}
}

func TestReload(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Post(h.srv.URL+"/reload", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body shell.ReloadResponse
	decode(t, resp, &body)
	assert.Equal(t, "reloading", body.Status)
	assert.False(t, body.Shell)
	assert.Equal(t, 1, h.engine.Reloads())
}

func TestReload_RateLimited(t *testing.T) {
	limiter := ratelimit.NewService(ratelimit.NewMemoryStore(nil), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, limiter.RegisterLimit(ratelimit.TypeReload, ratelimit.Limit{Rate: 1, Period: time.Minute}))
	h := newHarness(t, shell.WithRateLimiter(limiter))

	resp, err := http.Post(h.srv.URL+"/reload", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = http.Post(h.srv.URL+"/reload", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	var body v1alpha1.Error
	decode(t, resp, &body)
	assert.Equal(t, "RATE_LIMITED", body.Code)
	assert.Equal(t, 1, h.engine.Reloads())

	// status reads are not limited
	resp, err = http.Get(h.srv.URL + "/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReload_WithShell(t *testing.T) {
	h := newHarness(t)
	h.hub.Render(v1alpha1.Frame{Version: 1})

	c := h.dial(t, shell.RoleShell)
	next(t, c)

	resp, err := http.Post(h.srv.URL+"/reload?shell=true", "application/json", nil)
	require.NoError(t, err)

	var body shell.ReloadResponse
	decode(t, resp, &body)
	assert.True(t, body.Shell)
	assert.Equal(t, 1, h.engine.Reloads())

	msg := next(t, c)
	assert.Equal(t, v1alpha1.ControlMessageReload, msg.Type)
}

func TestNotFound(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.srv.URL + "/nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var apiErr v1alpha1.Error
	decode(t, resp, &apiErr)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}
