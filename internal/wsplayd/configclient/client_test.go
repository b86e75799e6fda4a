package configclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayd/errors"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/api", WithToken("secret"))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_DisplayConfig(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/display/config", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("centerId"))
		assert.Equal(t, "99", r.URL.Query().Get("playlist"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Write([]byte(`{
			"center": {"id": "7", "name": "IES Norte", "logoUrl": "https://cdn.example/logo.png"},
			"currentPlaylist": {"id": "99", "name": "Lunes", "active": true},
			"announcementsPlaylist": null,
			"rssSettings": {"secondsPerItem": 15, "secondsPerFeed": 120},
			"displaySettings": {"showHeader": true, "showClock": true, "showTicker": true, "tickerSpeed": 50, "announcementVolume": 0.4}
		}`))
	})

	cfg, err := c.DisplayConfig(context.Background(), "7", "99")
	require.NoError(t, err)
	assert.Equal(t, "IES Norte", cfg.Center.Name)
	require.NotNil(t, cfg.CurrentPlaylist)
	assert.Equal(t, "99", cfg.CurrentPlaylist.ID)
	assert.Nil(t, cfg.AnnouncementsPlaylist)
	assert.Equal(t, 120, cfg.RSSSettings.SecondsPerFeed)
	assert.Equal(t, 50.0, cfg.DisplaySettings.TickerSpeed)
	assert.Equal(t, 0.4, cfg.DisplaySettings.AnnouncementVolume)
}

func TestClient_DisplayConfigWithoutOverride(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["playlist"]
		assert.False(t, present)
		writeJSON(w, v1alpha1.DisplayConfig{Center: v1alpha1.Center{ID: "7"}})
	})

	_, err := c.DisplayConfig(context.Background(), "7", "")
	require.NoError(t, err)
}

func TestClient_PlaylistVideos(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/display/playlist/42", r.URL.Path)
		writeJSON(w, v1alpha1.PlaylistVideos{Videos: []v1alpha1.DisplayVideo{
			{ID: "1", Title: "Bienvenida", ExternalVideoID: "76979871", ExternalVideoHash: "abc"},
			{ID: "2", Title: "Comedor", ExternalVideoID: "76979872", DurationSeconds: 30},
		}})
	})

	videos, err := c.PlaylistVideos(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "abc", videos[0].ExternalVideoHash)
	assert.Equal(t, 30, videos[1].DurationSeconds)
}

func TestClient_EscapesPlaylistIDs(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"plain", "42", "42"},
		{"slash", "2024/lunes", "2024%2Flunes"},
		{"space", "semana 1", "semana%201"},
		{"query characters", "p?x=1#y", "p%3Fx=1%23y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var paths []string
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				paths = append(paths, r.URL.EscapedPath())
				assert.Empty(t, r.URL.RawQuery)
				if r.URL.Path == "/api/display/playlists/"+tt.id {
					writeJSON(w, v1alpha1.PlaylistRef{ID: tt.id})
					return
				}
				writeJSON(w, v1alpha1.PlaylistVideos{})
			})

			_, err := c.PlaylistVideos(context.Background(), tt.id)
			require.NoError(t, err)
			ref, err := c.Playlist(context.Background(), tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.id, ref.ID)

			assert.Equal(t, []string{
				"/api/display/playlist/" + tt.want,
				"/api/display/playlists/" + tt.want,
			}, paths)
		})
	}
}

func TestClient_RSSAndTicker(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/rss":
			q := r.URL.Query()
			assert.Equal(t, "true", q.Get("onlyInRotation"))
			assert.Equal(t, "true", q.Get("includeItems"))
			writeJSON(w, v1alpha1.RSSFeedList{Feeds: []v1alpha1.RSSFeed{
				{ID: "f1", Name: "Educación", Items: []v1alpha1.RSSItem{{ID: "i1", Title: "Becas"}}},
			}})
		case "/api/display/ticker":
			writeJSON(w, v1alpha1.TickerMessageList{Messages: []v1alpha1.TickerMessage{
				{ID: "m1", Text: "Reunión de padres el jueves", Position: 1},
			}})
		default:
			http.NotFound(w, r)
		}
	})

	feeds, err := c.RSSFeeds(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "Becas", feeds[0].Items[0].Title)

	msgs, err := c.TickerMessages(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, 1, msgs[0].Position)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"code":"NOT_FOUND","message":"playlist not found"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsNotFound(err))
				assert.Contains(t, err.Error(), "playlist not found")
			},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   `garbage`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsUnavailable(err))
				assert.Contains(t, err.Error(), "Bad Gateway")
			},
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			body:   `{"message":"token expired"}`,
			check: func(t *testing.T, err error) {
				assert.False(t, errors.IsNotFound(err))
				assert.False(t, errors.IsUnavailable(err))
				assert.Contains(t, err.Error(), "token expired")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.PlaylistVideos(context.Background(), "1")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	require.NoError(t, err)
	_, err = c.DisplayConfig(context.Background(), "1", "")
	assert.True(t, errors.IsUnavailable(err))
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("not a url")
	assert.Error(t, err)
}
