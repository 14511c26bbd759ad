// File: server/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"fmt"
	"iter"
	"maps"
	"sync/atomic"

	"github.com/momentics/hioload-tcp/api"
)

// ConnectionPool is the registry of live connections keyed by descriptor.
// It belongs to the multiplexer goroutine and takes no locks; only Len is
// safe to call from elsewhere.
type ConnectionPool struct {
	conns map[int]*Conn
	size  atomic.Int64
}

// NewConnectionPool returns an empty pool.
func NewConnectionPool() *ConnectionPool {
	return &ConnectionPool{conns: make(map[int]*Conn)}
}

// Add registers c, replacing a stale entry for a reused descriptor.
func (p *ConnectionPool) Add(c *Conn) {
	if _, ok := p.conns[c.Fd()]; !ok {
		p.size.Add(1)
	}
	p.conns[c.Fd()] = c
}

// Remove drops c. An entry now held by another connection is left alone.
func (p *ConnectionPool) Remove(c *Conn) {
	if cur, ok := p.conns[c.Fd()]; ok && cur == c {
		delete(p.conns, c.Fd())
		p.size.Add(-1)
	}
}

// Lookup returns the connection for fd, or api.ErrNotFound once retired.
func (p *ConnectionPool) Lookup(fd int) (*Conn, error) {
	c, ok := p.conns[fd]
	if !ok {
		return nil, fmt.Errorf("fd %d: %w", fd, api.ErrNotFound)
	}
	return c, nil
}

// All iterates the live connections. Removing during iteration is allowed.
func (p *ConnectionPool) All() iter.Seq[*Conn] {
	return maps.Values(p.conns)
}

// Len returns the number of live connections.
func (p *ConnectionPool) Len() int {
	return int(p.size.Load())
}
