package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the hub writes through.
type Conn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one open realtime connection of a user. A user may hold
// several clients at once (web and mobile, for example).
type Client struct {
	UserID      uuid.UUID
	ConnectedAt time.Time

	conn     Conn
	writeMu  sync.Mutex
	lastSeen atomic.Int64
	closed   atomic.Bool
}

func newClient(userID uuid.UUID, conn Conn) *Client {
	c := &Client{UserID: userID, ConnectedAt: time.Now(), conn: conn}
	c.Touch()
	return c
}

// Touch records activity from the peer.
func (c *Client) Touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

func (c *Client) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// WriteJSON serializes writes on this connection; gorilla connections
// allow only one concurrent writer.
func (c *Client) WriteJSON(ctx context.Context, v interface{}, timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(writeDeadline(ctx, timeout))
	return c.conn.WriteJSON(v)
}

func (c *Client) WriteText(ctx context.Context, text string, timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(writeDeadline(ctx, timeout))
	return c.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (c *Client) ping(timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout))
}

func (c *Client) close() {
	if c.closed.CompareAndSwap(false, true) {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	}
}

func writeDeadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}
