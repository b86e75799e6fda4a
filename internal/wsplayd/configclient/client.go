// Package configclient provides the HTTP client for the display configuration API
package configclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayd/errors"
)

// Client fetches display configuration, playlists, feeds and ticker messages.
// It has no logic beyond transport.
type Client struct {
	// baseURL is the root URL for all API requests
	baseURL *url.URL
	// httpClient is the underlying HTTP client
	httpClient *http.Client
	// token is the authentication token
	token string
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithToken sets the authentication token
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a new API client
func New(baseURL string, options ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", baseURL)
	}

	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// DisplayConfig fetches the resolved configuration of a center. override is
// the manual playlist override id and may be empty.
func (c *Client) DisplayConfig(ctx context.Context, centerID, override string) (*v1alpha1.DisplayConfig, error) {
	q := url.Values{"centerId": {centerID}}
	if override != "" {
		q.Set("playlist", override)
	}

	var cfg v1alpha1.DisplayConfig
	if err := c.get(ctx, "/display/config", q, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PlaylistVideos fetches the video list of a playlist
func (c *Client) PlaylistVideos(ctx context.Context, playlistID string) ([]v1alpha1.DisplayVideo, error) {
	var body v1alpha1.PlaylistVideos
	if err := c.get(ctx, "/display/playlist/"+url.PathEscape(playlistID), nil, &body); err != nil {
		return nil, err
	}
	return body.Videos, nil
}

// Playlists lists the playlists of a center
func (c *Client) Playlists(ctx context.Context, centerID string) ([]v1alpha1.PlaylistRef, error) {
	var body v1alpha1.PlaylistList
	if err := c.get(ctx, "/display/playlists", url.Values{"centerId": {centerID}}, &body); err != nil {
		return nil, err
	}
	return body.Playlists, nil
}

// Playlist fetches one playlist reference by id
func (c *Client) Playlist(ctx context.Context, playlistID string) (*v1alpha1.PlaylistRef, error) {
	var ref v1alpha1.PlaylistRef
	if err := c.get(ctx, "/display/playlists/"+url.PathEscape(playlistID), nil, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// RSSFeeds fetches the feeds in rotation for a center, items included
func (c *Client) RSSFeeds(ctx context.Context, centerID string) ([]v1alpha1.RSSFeed, error) {
	q := url.Values{
		"centerId":       {centerID},
		"onlyInRotation": {"true"},
		"includeItems":   {"true"},
	}
	var body v1alpha1.RSSFeedList
	if err := c.get(ctx, "/rss", q, &body); err != nil {
		return nil, err
	}
	return body.Feeds, nil
}

// TickerMessages fetches the ticker messages of a center
func (c *Client) TickerMessages(ctx context.Context, centerID string) ([]v1alpha1.TickerMessage, error) {
	var body v1alpha1.TickerMessageList
	if err := c.get(ctx, "/display/ticker", url.Values{"centerId": {centerID}}, &body); err != nil {
		return nil, err
	}
	return body.Messages, nil
}

// get requests endpoint, an already escaped path below the base URL, and
// decodes the JSON response into target
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, target interface{}) error {
	u := c.baseURL.JoinPath(endpoint)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", errors.ErrUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, target)
}

// decodeResponse decodes a JSON response into the provided target
func decodeResponse(resp *http.Response, target interface{}) error {
	if err := handleResponse(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

// handleResponse returns an error if the status code indicates failure
func handleResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr v1alpha1.Error
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d: %s", errors.ErrNotFound, resp.StatusCode, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", errors.ErrUnavailable, resp.StatusCode, msg)
	default:
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, msg)
	}
}
