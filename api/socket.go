// File: api/socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "net"

// Socket is a non-blocking stream socket.
//
// Read returns ErrWouldBlock when no data is available and io.EOF when the
// peer has closed its side. Write may accept fewer bytes than given; it
// returns ErrWouldBlock when the send buffer is full.
type Socket interface {
	Fd() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Shutdown() error
	Close() error
}

// ListenSocket is a non-blocking listening socket.
type ListenSocket interface {
	Fd() int
	Port() int
	// Accept returns ErrWouldBlock when no connection is pending.
	Accept() (Socket, net.Addr, error)
	Close() error
}
