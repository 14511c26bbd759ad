// File: server/multiplexer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Multiplexer is the selector loop: it owns the listening socket, the
// connection pool and the reactor, and is the only producer of inbound
// packets.

package server

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/control"
	"github.com/momentics/hioload-tcp/internal/concurrency"
)

// Accept failures such as EMFILE leave the listening socket readable, so
// accepting pauses for a growing interval instead of spinning.
const (
	minAcceptBackoff = 50 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Multiplexer accepts connections and reads from every pooled connection
// on a single goroutine.
type Multiplexer struct {
	ls      api.ListenSocket
	reactor api.Reactor
	pool    *ConnectionPool
	inbound *packetQueue
	metrics *control.Metrics
	log     *slog.Logger

	buf    []byte
	events []api.Event
	cpu    int

	acceptBackoff time.Duration
	acceptResume  time.Time // zero while the listener is registered

	// onFailure runs on its own goroutine after an unrecoverable reactor error.
	onFailure func(error)

	started   bool
	closeOnce sync.Once
	done      chan struct{}
}

func newMultiplexer(ls api.ListenSocket, r api.Reactor, inbound *packetQueue, cfg *Config,
	m *control.Metrics, onFailure func(error)) *Multiplexer {
	return &Multiplexer{
		ls:        ls,
		reactor:   r,
		pool:      NewConnectionPool(),
		inbound:   inbound,
		metrics:   m,
		log:       cfg.Logger.With("component", "multiplexer"),
		buf:       make([]byte, cfg.ReadChunkSize),
		events:    make([]api.Event, cfg.MaxEvents),
		cpu:       cfg.MultiplexerCPU,
		onFailure: onFailure,
		done:      make(chan struct{}),
	}
}

// ListenPort returns the resolved listening port.
func (m *Multiplexer) ListenPort() int {
	return m.ls.Port()
}

func (m *Multiplexer) start() {
	m.started = true
	go m.run()
}

// close tears the reactor down and waits for the loop to exit. Sealing the
// inbound queue first releases a loop blocked on a full queue. No packet
// is produced once close returns.
func (m *Multiplexer) close() {
	m.closeOnce.Do(func() {
		m.inbound.Seal()
		if !m.started {
			m.release()
			close(m.done)
			return
		}
		if err := m.reactor.Wake(); err != nil {
			m.log.Error("reactor wake failed", "err", err)
		}
		<-m.done
	})
}

func (m *Multiplexer) run() {
	defer close(m.done)
	defer m.release()

	if m.cpu >= 0 {
		unpin, err := concurrency.PinCurrentThread(m.cpu)
		if err != nil {
			m.log.Warn("cpu pinning failed, running unpinned", "cpu", m.cpu, "err", err)
		} else {
			defer unpin()
		}
	}
	m.log.Info("multiplexer started", "port", m.ls.Port(), "cpu", m.cpu)
	for {
		if err := m.register(); err != nil {
			if !errors.Is(err, concurrency.ErrQueueClosed) {
				m.fail(err)
			}
			return
		}
		n, err := m.reactor.Wait(m.events, m.waitTimeout())
		if err != nil {
			if errors.Is(err, api.ErrReactorClosed) {
				m.log.Info("multiplexer stopped", "port", m.ls.Port())
				return
			}
			m.fail(err)
			return
		}
		for _, ev := range m.events[:n] {
			if err := m.handle(ev); err != nil {
				// the inbound queue only closes during shutdown
				m.log.Debug("inbound queue closed", "err", err)
				return
			}
		}
	}
}

// register (re-)registers the listening socket, unless accepting is
// paused, and every pooled connection. Repeated registrations are no-ops
// in the reactor.
func (m *Multiplexer) register() error {
	if m.acceptResume.IsZero() || !time.Now().Before(m.acceptResume) {
		if err := m.reactor.Register(m.ls.Fd(), api.InterestAccept); err != nil {
			return err
		}
		m.acceptResume = time.Time{}
	}
	var broken []*Conn
	for c := range m.pool.All() {
		if err := m.reactor.Register(c.Fd(), api.InterestRead); err != nil {
			m.log.Debug("register failed", "conn", c, "err", err)
			broken = append(broken, c)
		}
	}
	for _, c := range broken {
		if err := m.retire(c); err != nil {
			return err
		}
	}
	return nil
}

// waitTimeout bounds the wait while accepting is paused.
func (m *Multiplexer) waitTimeout() time.Duration {
	if m.acceptResume.IsZero() {
		return -1
	}
	return max(time.Until(m.acceptResume), time.Millisecond)
}

func (m *Multiplexer) handle(ev api.Event) error {
	switch ev.Interest {
	case api.InterestAccept:
		return m.accept()
	case api.InterestRead:
		c, err := m.pool.Lookup(ev.Fd)
		if err != nil {
			// retired earlier in this iteration
			m.metrics.PoolMisses.Inc()
			m.log.Debug("pool miss", "err", err)
			_ = m.reactor.Unregister(ev.Fd)
			return nil
		}
		if ev.Hangup {
			// drain what the peer sent before hanging up; read retires at EOF
			m.log.Debug("peer hung up", "conn", c)
		}
		return m.read(c)
	default:
		m.log.Warn("unexpected readiness interest", "fd", ev.Fd, "interest", ev.Interest)
		return nil
	}
}

func (m *Multiplexer) accept() error {
	if !m.acceptResume.IsZero() {
		// listener unregistered earlier in this batch
		return nil
	}
	sock, peer, err := m.ls.Accept()
	if err != nil {
		if !errors.Is(err, api.ErrWouldBlock) {
			m.pauseAccept(err)
		}
		return nil
	}
	m.acceptBackoff = 0
	c := newConn(sock, peer)
	if err := m.reactor.Register(c.Fd(), api.InterestRead); err != nil {
		m.log.Warn("register accepted socket failed", "conn", c, "err", err)
		_ = c.close()
		return nil
	}
	m.pool.Add(c)
	m.metrics.Accepted.Inc()
	m.log.Debug("accepted", "conn", c)
	return m.inbound.Put(newPacket(PacketAccept, c, nil))
}

// pauseAccept unregisters the listening socket for the next backoff step.
func (m *Multiplexer) pauseAccept(err error) {
	m.acceptBackoff = min(max(2*m.acceptBackoff, minAcceptBackoff), maxAcceptBackoff)
	m.acceptResume = time.Now().Add(m.acceptBackoff)
	_ = m.reactor.Unregister(m.ls.Fd())
	m.log.Warn("accept failed, pausing accepts", "err", err, "backoff", m.acceptBackoff)
}

func (m *Multiplexer) read(c *Conn) error {
	n, err := c.read(m.buf)
	if n > 0 {
		m.metrics.ReceivedBytes.Add(n)
		return m.inbound.Put(newPacket(PacketReceive, c, m.buf[:n]))
	}
	if errors.Is(err, api.ErrWouldBlock) {
		return nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		m.log.Debug("read failed", "conn", c, "err", err)
	}
	return m.retire(c)
}

// retire closes c, drops it from the pool and reports it closed.
func (m *Multiplexer) retire(c *Conn) error {
	_ = m.reactor.Unregister(c.Fd())
	m.pool.Remove(c)
	if err := c.close(); err != nil {
		m.log.Debug("close failed", "conn", c, "err", err)
	}
	m.metrics.Closed.Inc()
	m.log.Debug("closed", "conn", c)
	return m.inbound.Put(newPacket(PacketClosed, c, nil))
}

// release closes every pooled connection without reporting it, then the
// listening socket and the reactor.
func (m *Multiplexer) release() {
	for c := range m.pool.All() {
		_ = m.reactor.Unregister(c.Fd())
		m.pool.Remove(c)
		_ = c.close()
	}
	if err := m.ls.Close(); err != nil {
		m.log.Debug("listen socket close failed", "err", err)
	}
	if err := m.reactor.Close(); err != nil {
		m.log.Debug("reactor close failed", "err", err)
	}
}

func (m *Multiplexer) fail(err error) {
	m.log.Error("reactor failure, multiplexer exiting", "err", err)
	if m.onFailure != nil {
		go m.onFailure(err)
	}
}
