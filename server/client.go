package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Client plays one connection against a Server.
type Client struct {
	conn        *websocket.Conn
	readTimeout time.Duration
}

// Dial connects to a /play endpoint, e.g. "ws://localhost:8080/play", and
// reads the opening frame.
func Dial(ctx context.Context, url string, timeout time.Duration) (*Client, Frame, error) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, Frame{}, fmt.Errorf("failed to connect: %w", err)
	}
	c := &Client{conn: conn, readTimeout: timeout}
	first, err := c.Next()
	if err != nil {
		conn.Close()
		return nil, Frame{}, err
	}
	return c, first, nil
}

// Send writes one token: a direction, "new", or a quit word.
func (c *Client) Send(token string) error {
	return c.conn.WriteMessage(websocket.TextMessage, []byte(token))
}

// Next reads the next frame.
func (c *Client) Next() (Frame, error) {
	if c.readTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	var f Frame
	if err := c.conn.ReadJSON(&f); err != nil {
		return Frame{}, fmt.Errorf("read frame: %w", err)
	}
	return f, nil
}

// Play sends a token and waits for the resulting frame.
func (c *Client) Play(token string) (Frame, error) {
	if err := c.Send(token); err != nil {
		return Frame{}, fmt.Errorf("send %q: %w", token, err)
	}
	return c.Next()
}

// Close sends a normal close and drops the connection.
func (c *Client) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
