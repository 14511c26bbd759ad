// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for readiness reactors used to multiplex
// the listening socket and client sockets on a single goroutine.

package api

import "time"

// Interest is the readiness a descriptor is registered for.
type Interest uint8

const (
	// InterestAccept waits for connection arrival on a listening socket.
	InterestAccept Interest = iota + 1
	// InterestRead waits for data arrival on a connected socket.
	InterestRead
)

func (i Interest) String() string {
	switch i {
	case InterestAccept:
		return "accept"
	case InterestRead:
		return "read"
	default:
		return "unknown"
	}
}

// Event encapsulates one readiness notification.
type Event struct {
	Fd       int
	Interest Interest // interest the fd was registered with
	Hangup   bool     // peer hung up or the descriptor is in error
}

// Reactor blocks until at least one registered descriptor is ready.
//
// Register, Unregister, Wait and Close belong to the owning goroutine.
// Wake is the only method safe to call from elsewhere.
type Reactor interface {
	// Register is idempotent: repeating a registration with the same
	// interest is a no-op.
	Register(fd int, interest Interest) error

	// Unregister removes fd; unknown descriptors are ignored.
	Unregister(fd int) error

	// Wait fills events and returns how many were written, blocking for
	// at most timeout (forever if negative). Zero events with a nil error
	// means "wait again". After Wake it returns ErrReactorClosed.
	Wait(events []Event, timeout time.Duration) (int, error)

	// Wake tears the reactor down from any goroutine, releasing Wait.
	Wake() error

	// Close releases the backend descriptors.
	Close() error
}
