// File: server/packet.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Packet is the event envelope carried by the inbound and outbound queues.

package server

import "github.com/momentics/hioload-tcp/internal/concurrency"

// PacketType tags a Packet.
type PacketType uint8

const (
	PacketAccept PacketType = iota + 1
	PacketClosed
	PacketReceive
	PacketSend
	PacketExit
)

func (t PacketType) String() string {
	switch t {
	case PacketAccept:
		return "accept"
	case PacketClosed:
		return "closed"
	case PacketReceive:
		return "receive"
	case PacketSend:
		return "send"
	case PacketExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Packet describes one occurrence in a pipeline. Conn is nil only for
// PacketExit; Data is set only for PacketReceive and PacketSend.
type Packet struct {
	Type PacketType
	Conn *Conn
	Data []byte
}

// packetQueue is the bounded FIFO between a producer and a dispatcher.
type packetQueue = concurrency.BlockingQueue[Packet]

var exitPacket = Packet{Type: PacketExit}

// newPacket copies data so the producer may reuse its buffer.
func newPacket(t PacketType, c *Conn, data []byte) Packet {
	p := Packet{Type: t, Conn: c}
	if data != nil {
		p.Data = append(make([]byte, 0, len(data)), data...)
	}
	return p
}
