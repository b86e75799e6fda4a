// Package client provides an HTTP client for the wsplayd daemon API
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/wrale/wsplay/api/types/v1alpha1"
	"github.com/wrale/wsplay/internal/wsplayd/shell"
)

// Client talks to one screen daemon
type Client struct {
	// baseURL is the root URL for all daemon requests
	baseURL *url.URL
	// httpClient is the underlying HTTP client
	httpClient *http.Client
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new daemon client
func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid daemon URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid daemon URL %q: scheme and host required", baseURL)
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

// BaseURL returns the daemon URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Status fetches the current screen status
func (c *Client) Status(ctx context.Context) (*v1alpha1.ScreenStatus, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var st v1alpha1.ScreenStatus
	if err := decodeResponse(resp, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Events fetches up to limit recorded state transitions, newest first
func (c *Client) Events(ctx context.Context, limit int) ([]v1alpha1.ScreenEvent, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/status/events", q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var events []v1alpha1.ScreenEvent
	if err := decodeResponse(resp, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Reload asks the daemon to refetch its configuration. With reloadShell the
// browser shell also reloads its page.
func (c *Client) Reload(ctx context.Context, reloadShell bool) (*shell.ReloadResponse, error) {
	q := url.Values{}
	if reloadShell {
		q.Set("shell", "true")
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/reload", q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body shell.ReloadResponse
	if err := decodeResponse(resp, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Watch attaches to the daemon's websocket as an observer
func (c *Client) Watch(ctx context.Context) (*shell.Client, error) {
	wsURL, err := shell.WebsocketURL(c.baseURL.String(), shell.RoleObserver)
	if err != nil {
		return nil, err
	}
	return shell.Dial(ctx, wsURL)
}

// doRequest performs an HTTP request against the daemon
func (c *Client) doRequest(ctx context.Context, method, pathStr string, query url.Values) (*http.Response, error) {
	u := *c.baseURL
	u.Path = path.Join(u.Path, pathStr)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	return resp, nil
}
