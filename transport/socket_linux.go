// transport/socket_linux.go
//go:build linux
// +build linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux non-blocking TCP sockets on golang.org/x/sys/unix.

package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/momentics/hioload-tcp/api"
	"golang.org/x/sys/unix"
)

// ListenSocket is a non-blocking IPv4 listening socket.
type ListenSocket struct {
	fd   int
	port int

	closeOnce sync.Once
	closeErr  error
}

var _ api.ListenSocket = (*ListenSocket)(nil)

// Listen binds a non-blocking listening socket on every IPv4 address.
// Port 0 picks an ephemeral port; Port reports the resolved one.
// Failures are returned as *api.BindError.
func Listen(port int) (*ListenSocket, error) {
	if port < 0 || port > 0xffff {
		return nil, &api.BindError{Port: port, Err: api.ErrInvalidArgument}
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, &api.BindError{Port: port, Err: fmt.Errorf("socket create: %w", err)}
	}
	fail := func(op string, err error) (*ListenSocket, error) {
		_ = unix.Close(fd)
		return nil, &api.BindError{Port: port, Err: fmt.Errorf("%s: %w", op, err)}
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("setsockopt", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		return fail("bind", err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		return fail("listen", err)
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return fail("getsockname", err)
	}
	resolved := port
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		resolved = in4.Port
	}
	return &ListenSocket{fd: fd, port: resolved}, nil
}

// Fd returns the listening descriptor.
func (l *ListenSocket) Fd() int { return l.fd }

// Port returns the bound port.
func (l *ListenSocket) Port() int { return l.port }

// Accept takes one pending connection.
func (l *ListenSocket) Accept() (api.Socket, net.Addr, error) {
	nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) || errors.Is(err, unix.ECONNABORTED) {
			return nil, nil, api.ErrWouldBlock
		}
		return nil, nil, fmt.Errorf("accept4: %w", err)
	}
	_ = unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	return &fdSocket{fd: nfd}, peerAddr(sa), nil
}

// Close releases the port. Repeated calls return the first result.
func (l *ListenSocket) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = unix.Close(l.fd)
	})
	return l.closeErr
}

// fdSocket is an accepted non-blocking stream socket.
type fdSocket struct {
	fd int
}

func (s *fdSocket) Fd() int { return s.fd }

func (s *fdSocket) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := unix.Read(s.fd, p)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return 0, api.ErrWouldBlock
		}
		return 0, fmt.Errorf("read fd=%d: %w", s.fd, err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write never raises SIGPIPE; a reset peer surfaces as EPIPE/ECONNRESET.
func (s *fdSocket) Write(p []byte) (int, error) {
	n, err := unix.SendmsgN(s.fd, p, nil, nil, unix.MSG_NOSIGNAL)
	if n < 0 {
		n = 0
	}
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return n, api.ErrWouldBlock
		}
		return n, fmt.Errorf("write fd=%d: %w", s.fd, err)
	}
	return n, nil
}

func (s *fdSocket) Shutdown() error {
	err := unix.Shutdown(s.fd, unix.SHUT_RDWR)
	if err != nil && !errors.Is(err, unix.ENOTCONN) {
		return fmt.Errorf("shutdown fd=%d: %w", s.fd, err)
	}
	return nil
}

func (s *fdSocket) Close() error {
	return unix.Close(s.fd)
}

func peerAddr(sa unix.Sockaddr) net.Addr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IPv4(a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3]), Port: a.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	default:
		return nil
	}
}
