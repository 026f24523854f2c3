package relay

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is the transport surface the relay needs from a connection. The
// production implementation wraps a gorilla WebSocket; tests substitute
// in-memory fakes.
type Conn interface {
	// WriteJSON sends one frame. Implementations must be safe for
	// concurrent use; a failed write only affects this connection.
	WriteJSON(v any) error

	// Open reports whether the connection can still accept writes.
	Open() bool

	// RemoteAddr identifies the peer for logging.
	RemoteAddr() string
}

// wsConn adapts *websocket.Conn to Conn. gorilla allows only one
// concurrent writer, so writes serialize on a mutex.
type wsConn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	closed bool
}

// NewConn wraps a gorilla WebSocket connection.
func NewConn(ws *websocket.Conn) Conn {
	return &wsConn{ws: ws}
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	if err := c.ws.WriteJSON(v); err != nil {
		c.closed = true
		return err
	}
	return nil
}

func (c *wsConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *wsConn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}
