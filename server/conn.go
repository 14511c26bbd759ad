// File: server/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"fmt"
	"net"
	"sync"

	"github.com/momentics/hioload-tcp/api"
)

// Conn is one accepted client socket. Its identity is the socket descriptor.
//
// The multiplexer owns the socket: only it reads from and closes it. The
// send dispatcher writes through it and the facade may shut it down. The
// RW mutex keeps the descriptor from being closed, and reused by a later
// accept, while another goroutine is using it.
type Conn struct {
	sock api.Socket
	fd   int
	peer net.Addr

	mu     sync.RWMutex
	closed bool
}

func newConn(sock api.Socket, peer net.Addr) *Conn {
	return &Conn{sock: sock, fd: sock.Fd(), peer: peer}
}

// Fd returns the socket descriptor the connection was accepted on.
func (c *Conn) Fd() int { return c.fd }

// RemoteAddr returns the decoded peer address, or nil if unknown.
func (c *Conn) RemoteAddr() net.Addr { return c.peer }

// IsClosed reports whether the connection has been retired.
func (c *Conn) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Conn) String() string {
	if c.peer == nil {
		return fmt.Sprintf("conn(fd=%d)", c.fd)
	}
	return fmt.Sprintf("conn(fd=%d, %s)", c.fd, c.peer)
}

func (c *Conn) read(p []byte) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0, api.ErrConnClosed
	}
	return c.sock.Read(p)
}

func (c *Conn) write(p []byte) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0, api.ErrConnClosed
	}
	return c.sock.Write(p)
}

// shutdown is benign on a retired connection.
func (c *Conn) shutdown() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	return c.sock.Shutdown()
}

// close releases the descriptor exactly once.
func (c *Conn) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.sock.Close()
}
