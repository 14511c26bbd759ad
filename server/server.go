// File: server/server.go
// Package server provides the readiness-based TCP server facade: one
// multiplexer goroutine producing connection events, a receive dispatcher
// delivering them to a Listener and a send dispatcher writing payloads.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/control"
	"github.com/momentics/hioload-tcp/internal/concurrency"
	"github.com/momentics/hioload-tcp/reactor"
	"github.com/momentics/hioload-tcp/transport"
)

const (
	stateIdle int32 = iota
	stateRunning
	stateStopped
)

// Server is the facade owning both packet queues and the three workers.
type Server struct {
	cfg     *Config
	log     *slog.Logger
	control *control.Controller

	inbound  *packetQueue
	outbound *packetQueue

	mux  *Multiplexer
	recv *ReceiveDispatcher
	send *SendDispatcher

	mu    sync.Mutex // serializes Start, Stop and Close
	state atomic.Int32
}

// Open binds the listening socket on port (0 picks an ephemeral port) and
// wires the pipelines without starting them. A bind failure is returned as
// *api.BindError.
func Open(port int, l Listener, opts ...Option) (*Server, error) {
	if l == nil {
		return nil, fmt.Errorf("nil listener: %w", api.ErrInvalidArgument)
	}
	cfg := DefaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ls, err := transport.Listen(port)
	if err != nil {
		return nil, err
	}
	r, err := reactor.New(cfg.MaxEvents)
	if err != nil {
		_ = ls.Close()
		return nil, fmt.Errorf("reactor init: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		log:      cfg.Logger.With("component", "server"),
		control:  control.NewController(),
		inbound:  concurrency.NewBlockingQueue[Packet](cfg.InboundCapacity),
		outbound: concurrency.NewBlockingQueue[Packet](cfg.OutboundCapacity),
	}
	metrics := s.control.Metrics()
	s.mux = newMultiplexer(ls, r, s.inbound, cfg, metrics, s.onReactorFailure)
	s.recv = newReceiveDispatcher(s.inbound, l, s, cfg.Logger)
	s.send = newSendDispatcher(s.outbound, cfg.WriteRetryInterval, metrics, cfg.Logger)
	s.registerProbes()

	s.log.Info("server opened", "port", ls.Port())
	return s, nil
}

// Start launches the receive dispatcher, the send dispatcher and the
// multiplexer. Calling it on a running server is a no-op; a stopped
// server cannot be restarted.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state.Load() {
	case stateRunning:
		return nil
	case stateStopped:
		return api.ErrServerClosed
	}
	// running before the first event can reach a callback that sends
	s.state.Store(stateRunning)
	s.recv.start()
	s.send.start()
	s.mux.start()
	s.log.Info("server started", "port", s.ListenPort())
	return nil
}

// Stop tears down the multiplexer, the receive dispatcher and the send
// dispatcher in that order and waits for all three. It releases the port.
// It is a no-op unless the server is running and must not be called from a
// Listener callback.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CompareAndSwap(stateRunning, stateStopped) {
		return nil
	}
	s.shutdown()
	s.log.Info("server stopped", "port", s.ListenPort())
	return nil
}

// Close stops a running server, or releases the port of one that was
// opened but never started.
func (s *Server) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CompareAndSwap(stateIdle, stateStopped) {
		s.shutdown()
		s.log.Info("server closed", "port", s.ListenPort())
	}
	return nil
}

// shutdown first releases every goroutine that may be blocked on a peer
// or a full queue, then joins the multiplexer, the receive dispatcher and
// the send dispatcher in that order.
func (s *Server) shutdown() {
	s.send.interrupt()
	s.mux.close()
	s.recv.close()
	s.send.close()
}

// ListenPort returns the resolved listening port.
func (s *Server) ListenPort() int {
	return s.mux.ListenPort()
}

// IsRunning reports whether Start has been called and Stop has not.
func (s *Server) IsRunning() bool {
	return s.state.Load() == stateRunning
}

// Send queues a copy of data for c. It blocks while the outbound queue is
// full and is a no-op unless the server is running. Write failures are
// not reported.
func (s *Server) Send(c *Conn, data []byte) error {
	if !s.IsRunning() {
		return nil
	}
	if err := s.send.enqueue(c, data); err != nil {
		if errors.Is(err, concurrency.ErrQueueClosed) {
			// raced with Stop
			return nil
		}
		return err
	}
	return nil
}

// CloseConnection shuts c down. The multiplexer then observes end of
// stream, closes the socket and reports OnClosed exactly once. Closing a
// connection that is already closed is a no-op.
func (s *Server) CloseConnection(c *Conn) error {
	if !s.IsRunning() || c == nil {
		return nil
	}
	return c.shutdown()
}

// GetControl exposes metrics, debug probes and the configuration snapshot.
func (s *Server) GetControl() api.Control {
	return s.control
}

func (s *Server) registerProbes() {
	pool := s.mux.pool
	s.control.RegisterDebugProbe("pool.size", func() any { return pool.Len() })
	s.control.RegisterDebugProbe("queue.inbound.len", func() any { return s.inbound.Len() })
	s.control.RegisterDebugProbe("queue.outbound.len", func() any { return s.outbound.Len() })

	m := s.control.Metrics()
	m.Gauge("hioload_tcp_connections", func() float64 { return float64(pool.Len()) })
	m.Gauge("hioload_tcp_inbound_queue_length", func() float64 { return float64(s.inbound.Len()) })
	m.Gauge("hioload_tcp_outbound_queue_length", func() float64 { return float64(s.outbound.Len()) })

	s.control.SetConfig(map[string]any{
		"listen_port":          s.ListenPort(),
		"inbound_capacity":     s.cfg.InboundCapacity,
		"outbound_capacity":    s.cfg.OutboundCapacity,
		"read_chunk_size":      s.cfg.ReadChunkSize,
		"write_retry_interval": s.cfg.WriteRetryInterval.String(),
		"max_events":           s.cfg.MaxEvents,
		"multiplexer_cpu":      s.cfg.MultiplexerCPU,
	})
}

func (s *Server) onReactorFailure(err error) {
	s.log.Error("stopping server after reactor failure", "err", err)
	if err := s.Stop(); err != nil {
		s.log.Error("stop failed", "err", err)
	}
}
