// File: server/send_dispatcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/control"
)

// SendDispatcher is the single consumer of the outbound queue. Payloads
// are written whole, one after another; packets to different connections
// never interleave mid-payload.
type SendDispatcher struct {
	queue   *packetQueue
	retry   time.Duration
	metrics *control.Metrics
	log     *slog.Logger

	started   bool
	quitOnce  sync.Once
	closeOnce sync.Once
	quit      chan struct{}
	done      chan struct{}
}

func newSendDispatcher(q *packetQueue, retry time.Duration, m *control.Metrics, log *slog.Logger) *SendDispatcher {
	return &SendDispatcher{
		queue:   q,
		retry:   retry,
		metrics: m,
		log:     log.With("component", "send-dispatcher"),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// enqueue copies data into a send packet for c, blocking while the
// outbound queue is full.
func (d *SendDispatcher) enqueue(c *Conn, data []byte) error {
	if c == nil {
		return api.ErrInvalidArgument
	}
	return d.queue.Put(newPacket(PacketSend, c, data))
}

func (d *SendDispatcher) start() {
	d.started = true
	go d.run()
}

// interrupt rejects new payloads and abandons an in-progress retry without
// waiting. A Send blocked on a full queue returns.
func (d *SendDispatcher) interrupt() {
	d.quitOnce.Do(func() {
		d.queue.Seal()
		close(d.quit)
	})
}

// close interrupts the loop, discards queued payloads and waits for it.
func (d *SendDispatcher) close() {
	d.closeOnce.Do(func() {
		d.interrupt()
		if dropped := d.queue.Reset(exitPacket); dropped > 0 {
			d.log.Debug("dropped unsent packets", "count", dropped)
		}
		if d.started {
			<-d.done
		}
		d.queue.Close()
	})
}

func (d *SendDispatcher) run() {
	defer close(d.done)
	for {
		p, err := d.queue.Take()
		if err != nil || p.Type == PacketExit {
			return
		}
		select {
		case <-d.quit:
			return
		default:
		}
		if p.Type != PacketSend {
			d.log.Warn("unexpected packet on outbound queue", "packet", p.Type)
			continue
		}
		d.write(p)
	}
}

// write loops until the payload is fully written. A hard error drops the
// remainder silently.
func (d *SendDispatcher) write(p Packet) {
	written := 0
	for written < len(p.Data) {
		n, err := p.Conn.write(p.Data[written:])
		written += n
		if err != nil && !errors.Is(err, api.ErrWouldBlock) {
			d.metrics.WriteFailures.Inc()
			d.log.Debug("write failed, dropping remainder",
				"conn", p.Conn, "written", written, "size", len(p.Data), "err", err)
			break
		}
		if written < len(p.Data) && !d.pause() {
			break
		}
	}
	d.metrics.SentBytes.Add(written)
}

func (d *SendDispatcher) pause() bool {
	t := time.NewTimer(d.retry)
	defer t.Stop()
	select {
	case <-d.quit:
		return false
	case <-t.C:
		return true
	}
}
