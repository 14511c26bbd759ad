// File: server/recv_dispatcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"
	"sync"
)

// ReceiveDispatcher is the single consumer of the inbound queue. It hands
// each packet to the Listener in arrival order, never concurrently.
type ReceiveDispatcher struct {
	queue    *packetQueue
	listener Listener
	srv      *Server
	log      *slog.Logger

	started   bool
	closeOnce sync.Once
	done      chan struct{}
}

func newReceiveDispatcher(q *packetQueue, l Listener, srv *Server, log *slog.Logger) *ReceiveDispatcher {
	return &ReceiveDispatcher{
		queue:    q,
		listener: l,
		srv:      srv,
		log:      log.With("component", "recv-dispatcher"),
		done:     make(chan struct{}),
	}
}

func (d *ReceiveDispatcher) start() {
	d.started = true
	go d.run()
}

// close discards undelivered packets, injects the exit sentinel and waits
// for the loop. It must run after the multiplexer has stopped producing.
func (d *ReceiveDispatcher) close() {
	d.closeOnce.Do(func() {
		if dropped := d.queue.Reset(exitPacket); dropped > 0 {
			d.log.Debug("dropped undelivered packets", "count", dropped)
		}
		if d.started {
			<-d.done
		}
		d.queue.Close()
	})
}

func (d *ReceiveDispatcher) run() {
	defer close(d.done)
	for {
		p, err := d.queue.Take()
		if err != nil || p.Type == PacketExit {
			return
		}
		d.deliver(p)
	}
}

func (d *ReceiveDispatcher) deliver(p Packet) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("listener panic", "packet", p.Type, "conn", p.Conn, "panic", r)
		}
	}()
	switch p.Type {
	case PacketAccept:
		d.listener.OnAccept(d.srv, p.Conn)
	case PacketClosed:
		d.listener.OnClosed(d.srv, p.Conn)
	case PacketReceive:
		d.listener.OnReceive(d.srv, p.Conn, p.Data)
	default:
		d.log.Warn("unexpected packet on inbound queue", "packet", p.Type)
	}
}
