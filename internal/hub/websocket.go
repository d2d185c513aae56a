package hub

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer when the caller's
	// context carries no deadline.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait).
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size accepted from the peer. Viewers only listen;
	// anything beyond a control frame is unexpected.
	maxMessageSize = 512
)

// WSConn adapts a gorilla websocket connection to the hub Transport. Writes
// are serialized with a mutex because broadcasts run concurrently.
type WSConn struct {
	conn *websocket.Conn
	mu   sync.Mutex

	closeOnce sync.Once
}

// NewWSConn wraps an upgraded websocket connection.
func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

// Send writes the notification as a JSON text message, bounded by the
// context deadline.
func (c *WSConn) Send(ctx context.Context, n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}
	c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteJSON(n)
}

// Close closes the underlying connection. Safe to call more than once.
func (c *WSConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// ReadLoop consumes and discards inbound frames until the peer goes away,
// keeping pong handling alive. It returns when the connection errors or
// closes; the caller unregisters the connection afterwards.
func (c *WSConn) ReadLoop() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// PingLoop sends periodic pings until the context is canceled, so half-dead
// connections fail their next broadcast instead of lingering.
func (c *WSConn) PingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
