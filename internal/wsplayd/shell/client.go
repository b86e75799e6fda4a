package shell

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wrale/wsplay/api/types/v1alpha1"
)

// Client is a Go implementation of the shell side of /ws. Tests attach it as
// the shell; wsplayctl watch attaches it as an observer.
type Client struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	messages chan v1alpha1.ControlMessage
	errors   chan error
	done     chan struct{}
	once     sync.Once
}

// WebsocketURL converts a daemon base URL to its /ws endpoint
func WebsocketURL(baseURL string, role Role) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid daemon URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	q := url.Values{}
	if role != "" {
		q.Set("role", string(role))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial connects to wsURL
func Dial(ctx context.Context, wsURL string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:     conn,
		messages: make(chan v1alpha1.ControlMessage, 64),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
	go c.readMessages()
	return c, nil
}

// Messages returns control messages pushed by the daemon. The channel is
// closed when the connection ends.
func (c *Client) Messages() <-chan v1alpha1.ControlMessage {
	return c.messages
}

// Errors returns the error that ended the connection, if any
func (c *Client) Errors() <-chan error {
	return c.errors
}

// Send writes msg, filling in its type metadata
func (c *Client) Send(msg v1alpha1.ShellMessage) error {
	msg.TypeMeta = v1alpha1.TypeMeta{
		Kind:       "ShellMessage",
		APIVersion: v1alpha1.APIVersion,
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

// Close terminates the connection
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readMessages() {
	defer close(c.messages)
	defer c.conn.Close()

	for {
		var msg v1alpha1.ControlMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					c.errors <- err
				}
			}
			return
		}

		select {
		case c.messages <- msg:
		case <-c.done:
			return
		}
	}
}
