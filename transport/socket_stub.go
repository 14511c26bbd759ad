//go:build !linux
// +build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"net"

	"github.com/momentics/hioload-tcp/api"
)

// ListenSocket is unavailable on this platform.
type ListenSocket struct{}

// Listen always fails on unsupported platforms.
func Listen(port int) (*ListenSocket, error) {
	return nil, &api.BindError{Port: port, Err: api.ErrNotSupported}
}

func (l *ListenSocket) Fd() int                               { return -1 }
func (l *ListenSocket) Port() int                             { return 0 }
func (l *ListenSocket) Accept() (api.Socket, net.Addr, error) { return nil, nil, api.ErrNotSupported }
func (l *ListenSocket) Close() error                          { return nil }
