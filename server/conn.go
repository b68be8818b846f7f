package server

import (
	"net"
	"sync"
	"time"

	"chatrelay/protocol"
)

// Conn is one live client connection. The supervisor owns it for its whole
// lifetime; after a successful login it carries the authenticated identity.
// Writes from the handler goroutine and from fan-out on behalf of other
// connections are serialized by the write mutex.
type Conn struct {
	netConn      net.Conn
	writeTimeout time.Duration

	mu       sync.Mutex
	userID   int64
	username string
}

func newConn(nc net.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{netConn: nc, writeTimeout: writeTimeout}
}

func (c *Conn) bindIdentity(userID int64, username string) {
	c.mu.Lock()
	c.userID = userID
	c.username = username
	c.mu.Unlock()
}

// identity returns the authenticated user, or ok=false before login.
func (c *Conn) identity() (userID int64, username string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.username, c.userID != 0
}

// Send encodes and writes one frame. Errors are returned for logging only;
// a failed write to a notification recipient never fails the originating
// handler.
func (c *Conn) Send(command, status int32, body any) error {
	buf, err := protocol.Encode(command, status, body)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		c.netConn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err = c.netConn.Write(buf)
	return err
}

func (c *Conn) Close() error {
	return c.netConn.Close()
}

func (c *Conn) RemoteAddr() string {
	return c.netConn.RemoteAddr().String()
}
