package shell_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayd/loop"
	"github.com/wrale/wsplay/internal/wsplayd/player"
	"github.com/wrale/wsplay/internal/wsplayd/shell"
	"github.com/wrale/wsplay/internal/wsplayd/status"
)

const waitTimeout = 2 * time.Second

type fakeEngine struct {
	mu      sync.Mutex
	reloads int
	status  v1alpha1.ScreenStatus
}

func (e *fakeEngine) Status() v1alpha1.ScreenStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *fakeEngine) RequestReload() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reloads++
}

func (e *fakeEngine) Reloads() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reloads
}

type fakeStore struct {
	status.Noop
	mu       sync.Mutex
	events   []v1alpha1.ScreenEvent
	err      error
	gotLimit int
}

func (s *fakeStore) Events(_ context.Context, _, _ string, limit int) ([]v1alpha1.ScreenEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gotLimit = limit
	return s.events, s.err
}

func (s *fakeStore) Limit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gotLimit
}

type harness struct {
	hub    *shell.Hub
	engine *fakeEngine
	store  *fakeStore
	srv    *httptest.Server
}

func newHarness(t *testing.T, options ...shell.HandlerOption) *harness {
	t.Helper()

	hub := shell.NewHub(loop.Inline{}, zerolog.Nop())
	engine := &fakeEngine{status: v1alpha1.ScreenStatus{
		CenterID: "c1",
		ScreenID: "lobby",
		State:    v1alpha1.ScreenStateActive,
	}}
	store := &fakeStore{}
	h := shell.NewHandler(hub, engine, store, zerolog.Nop(), options...)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	return &harness{hub: hub, engine: engine, store: store, srv: srv}
}

func (h *harness) dial(t *testing.T, role shell.Role) *shell.Client {
	t.Helper()

	u, err := shell.WebsocketURL(h.srv.URL, role)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	c, err := shell.Dial(ctx, u)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func next(t *testing.T, c *shell.Client) v1alpha1.ControlMessage {
	t.Helper()

	select {
	case msg, ok := <-c.Messages():
		require.True(t, ok, "connection closed")
		return msg
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for control message")
	}
	return v1alpha1.ControlMessage{}
}

func waitClosed(t *testing.T, c *shell.Client) {
	t.Helper()

	deadline := time.After(waitTimeout)
	for {
		select {
		case _, ok := <-c.Messages():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("connection was not closed")
		}
	}
}

func TestHub_ReplaysFrameAndPlayersToNewShell(t *testing.T) {
	h := newHarness(t)

	a := v1alpha1.PlayerFrame{FrameID: uuid.New(), Zone: "main", EmbedURL: "https://player.vimeo.com/video/1"}
	b := v1alpha1.PlayerFrame{FrameID: uuid.New(), Zone: "announcement", EmbedURL: "https://player.vimeo.com/video/2"}

	h.hub.Render(v1alpha1.Frame{Version: 3, State: v1alpha1.ScreenStateActive})
	require.NoError(t, h.hub.Mount(a))
	require.NoError(t, h.hub.Mount(b))
	require.NoError(t, h.hub.Unmount(b.FrameID))

	c := h.dial(t, shell.RoleShell)

	msg := next(t, c)
	assert.Equal(t, v1alpha1.ControlMessageFrame, msg.Type)
	assert.Equal(t, "ControlMessage", msg.Kind)
	assert.Equal(t, v1alpha1.APIVersion, msg.APIVersion)
	require.NotNil(t, msg.Frame)
	assert.Equal(t, uint64(3), msg.Frame.Version)

	msg = next(t, c)
	assert.Equal(t, v1alpha1.ControlMessageMountPlayer, msg.Type)
	require.NotNil(t, msg.Player)
	assert.Equal(t, a, *msg.Player)

	require.True(t, h.hub.Connected())
	require.NoError(t, h.hub.Send(a.FrameID, v1alpha1.PlayerCommand{Method: v1alpha1.PlayerMethodPlay}))

	msg = next(t, c)
	assert.Equal(t, v1alpha1.ControlMessagePlayerCommand, msg.Type)
	require.NotNil(t, msg.Command)
	assert.Equal(t, v1alpha1.PlayerMethodPlay, msg.Command.Method)
	assert.Equal(t, a.FrameID, msg.Player.FrameID)

	require.NoError(t, h.hub.Unmount(a.FrameID))
	msg = next(t, c)
	assert.Equal(t, v1alpha1.ControlMessageUnmountPlayer, msg.Type)
	assert.Equal(t, a.FrameID, msg.Player.FrameID)
}

func TestHub_SendErrors(t *testing.T) {
	h := newHarness(t)

	err := h.hub.Send(uuid.New(), v1alpha1.PlayerCommand{Method: v1alpha1.PlayerMethodPlay})
	assert.ErrorIs(t, err, shell.ErrNotMounted)

	frame := v1alpha1.PlayerFrame{FrameID: uuid.New(), Zone: "main"}
	require.NoError(t, h.hub.Mount(frame))
	err = h.hub.Send(frame.FrameID, v1alpha1.PlayerCommand{Method: v1alpha1.PlayerMethodPlay})
	assert.ErrorIs(t, err, shell.ErrNoShell)

	assert.ErrorIs(t, h.hub.ReloadShell(), shell.ErrNoShell)
}

func TestHub_RelaysShellMessagesToListeners(t *testing.T) {
	h := newHarness(t)

	frame := v1alpha1.PlayerFrame{FrameID: uuid.New(), Zone: "main"}
	require.NoError(t, h.hub.Mount(frame))

	inbound := make(chan player.Inbound, 4)
	cancel := h.hub.Listen(func(in player.Inbound) { inbound <- in })
	defer cancel()

	measured := make(chan v1alpha1.TickerMeasurement, 1)
	h.hub.OnTickerMeasured(func(m v1alpha1.TickerMeasurement) { measured <- m })

	c := h.dial(t, shell.RoleShell)
	next(t, c) // mount replay

	require.NoError(t, c.Send(v1alpha1.ShellMessage{
		Type:    v1alpha1.ShellMessageFrameLoaded,
		FrameID: frame.FrameID,
	}))
	require.NoError(t, c.Send(v1alpha1.ShellMessage{
		Type:    v1alpha1.ShellMessagePlayer,
		FrameID: frame.FrameID,
		Origin:  "https://player.vimeo.com",
		Data:    json.RawMessage(`"{\"event\":\"play\"}"`),
	}))
	require.NoError(t, c.Send(v1alpha1.ShellMessage{
		Type:        v1alpha1.ShellMessageTickerMeasured,
		Measurement: &v1alpha1.TickerMeasurement{Fingerprint: "abc", SetWidth: 4000, ContainerWidth: 2000},
	}))

	select {
	case in := <-inbound:
		assert.Equal(t, player.InboundLoad, in.Kind)
		assert.Equal(t, frame.FrameID, in.FrameID)
	case <-time.After(waitTimeout):
		t.Fatal("load event not relayed")
	}

	select {
	case in := <-inbound:
		assert.Equal(t, player.InboundMessage, in.Kind)
		assert.Equal(t, "https://player.vimeo.com", in.Origin)
		msg, err := player.DecodeMessage(in.Data)
		require.NoError(t, err)
		assert.Equal(t, v1alpha1.PlayerEventPlay, msg.Event)
	case <-time.After(waitTimeout):
		t.Fatal("player message not relayed")
	}

	select {
	case m := <-measured:
		assert.Equal(t, "abc", m.Fingerprint)
		assert.Equal(t, 4000.0, m.SetWidth)
	case <-time.After(waitTimeout):
		t.Fatal("ticker measurement not relayed")
	}
}

func TestHub_NewestShellWins(t *testing.T) {
	h := newHarness(t)
	h.hub.Render(v1alpha1.Frame{Version: 1})

	first := h.dial(t, shell.RoleShell)
	next(t, first)

	second := h.dial(t, shell.RoleShell)
	next(t, second)

	waitClosed(t, first)
	assert.True(t, h.hub.Connected())

	h.hub.Render(v1alpha1.Frame{Version: 2})
	msg := next(t, second)
	require.NotNil(t, msg.Frame)
	assert.Equal(t, uint64(2), msg.Frame.Version)
}

func TestHub_ObserverOnlyReceivesFrames(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.hub.Mount(v1alpha1.PlayerFrame{FrameID: uuid.New(), Zone: "main"}))
	h.hub.Render(v1alpha1.Frame{Version: 1})

	obs := h.dial(t, shell.RoleObserver)
	msg := next(t, obs)
	assert.Equal(t, v1alpha1.ControlMessageFrame, msg.Type)
	assert.False(t, h.hub.Connected())

	require.NoError(t, h.hub.Mount(v1alpha1.PlayerFrame{FrameID: uuid.New(), Zone: "main"}))
	h.hub.Render(v1alpha1.Frame{Version: 2})

	msg = next(t, obs)
	assert.Equal(t, v1alpha1.ControlMessageFrame, msg.Type)
	assert.Equal(t, uint64(2), msg.Frame.Version)
}

func TestHub_ShellReload(t *testing.T) {
	h := newHarness(t)
	h.hub.Render(v1alpha1.Frame{Version: 1})

	c := h.dial(t, shell.RoleShell)
	next(t, c)

	require.NoError(t, h.hub.ReloadShell())
	msg := next(t, c)
	assert.Equal(t, v1alpha1.ControlMessageReload, msg.Type)
}

func TestServeWs_OriginCheck(t *testing.T) {
	h := newHarness(t, shell.WithAllowedOrigins([]string{"https://shell.local/"}))

	u, err := shell.WebsocketURL(h.srv.URL, shell.RoleShell)
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(u, header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://SHELL.local")
	conn, _, err := websocket.DefaultDialer.Dial(u, header)
	require.NoError(t, err)
	conn.Close()
}

func TestServeWs_UnknownRole(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.srv.URL + "/ws?role=admin")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		role    shell.Role
		want    string
		wantErr bool
	}{
		{name: "http", base: "http://127.0.0.1:8090", role: shell.RoleShell, want: "ws://127.0.0.1:8090/ws?role=shell"},
		{name: "https observer", base: "https://screen.local/", role: shell.RoleObserver, want: "wss://screen.local/ws?role=observer"},
		{name: "no role", base: "ws://screen.local", want: "ws://screen.local/ws"},
		{name: "bad scheme", base: "ftp://screen.local", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := shell.WebsocketURL(tt.base, tt.role)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
