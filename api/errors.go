// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-tcp.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotSupported    = errors.New("operation not supported")
	ErrNotFound        = errors.New("resource not found")

	// ErrWouldBlock is returned by non-blocking sockets that have no data
	// to read or no room to write right now.
	ErrWouldBlock = errors.New("operation would block")

	// ErrConnClosed is returned by any operation on a retired connection.
	ErrConnClosed = errors.New("connection is closed")

	// ErrReactorClosed is returned by Reactor.Wait once the reactor has
	// been woken for teardown.
	ErrReactorClosed = errors.New("reactor is closed")

	// ErrServerClosed is returned when starting or using a stopped server.
	ErrServerClosed = errors.New("server is closed")
)

// BindError reports that the listening socket could not be bound.
type BindError struct {
	Port int
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind port %d: %v", e.Port, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// IsBindError reports whether err carries a *BindError.
func IsBindError(err error) bool {
	var be *BindError
	return errors.As(err, &be)
}
