package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/reactor"
)

// Config holds all server-side configuration parameters.
type Config struct {
	InboundCapacity    int           // inbound packet queue size
	OutboundCapacity   int           // outbound packet queue size
	ReadChunkSize      int           // bytes read per readiness event
	WriteRetryInterval time.Duration // pause between partial writes
	MaxEvents          int           // readiness events per wait
	MultiplexerCPU     int           // cpu the multiplexer thread is pinned to, -1 for none
	Logger             *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		InboundCapacity:    128,
		OutboundCapacity:   128,
		ReadChunkSize:      1024,
		WriteRetryInterval: 10 * time.Millisecond,
		MaxEvents:          reactor.DefaultMaxEvents,
		MultiplexerCPU:     -1,
		Logger:             slog.Default(),
	}
}

// Validate rejects values the pipelines cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.InboundCapacity < 1:
		return fmt.Errorf("inbound capacity %d: %w", c.InboundCapacity, api.ErrInvalidArgument)
	case c.OutboundCapacity < 1:
		return fmt.Errorf("outbound capacity %d: %w", c.OutboundCapacity, api.ErrInvalidArgument)
	case c.ReadChunkSize < 1:
		return fmt.Errorf("read chunk size %d: %w", c.ReadChunkSize, api.ErrInvalidArgument)
	case c.WriteRetryInterval <= 0:
		return fmt.Errorf("write retry interval %s: %w", c.WriteRetryInterval, api.ErrInvalidArgument)
	case c.MaxEvents < 1:
		return fmt.Errorf("max events %d: %w", c.MaxEvents, api.ErrInvalidArgument)
	case c.MultiplexerCPU < -1:
		return fmt.Errorf("multiplexer cpu %d: %w", c.MultiplexerCPU, api.ErrInvalidArgument)
	}
	return nil
}

// Listener receives connection events. The receive dispatcher invokes it
// from a single goroutine, one event at a time, so implementations need no
// locking of their own; a slow callback stalls the whole inbound pipeline.
//
// Callbacks may call Send and CloseConnection but must not call Stop.
type Listener interface {
	OnAccept(s *Server, c *Conn)
	OnClosed(s *Server, c *Conn)
	// OnReceive gets exactly the bytes of one socket read. No framing is
	// applied; data is owned by the callee.
	OnReceive(s *Server, c *Conn, data []byte)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Accept  func(s *Server, c *Conn)
	Closed  func(s *Server, c *Conn)
	Receive func(s *Server, c *Conn, data []byte)
}

var _ Listener = ListenerFuncs{}

func (f ListenerFuncs) OnAccept(s *Server, c *Conn) {
	if f.Accept != nil {
		f.Accept(s, c)
	}
}

func (f ListenerFuncs) OnClosed(s *Server, c *Conn) {
	if f.Closed != nil {
		f.Closed(s, c)
	}
}

func (f ListenerFuncs) OnReceive(s *Server, c *Conn, data []byte) {
	if f.Receive != nil {
		f.Receive(s, c, data)
	}
}
