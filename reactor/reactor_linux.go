//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-tcp/api"
	"golang.org/x/sys/unix"
)

// linuxReactor is a level-triggered epoll reactor.
type linuxReactor struct {
	epfd      int
	wakefd    int
	raw       []unix.EpollEvent
	interests map[int]api.Interest // owned by the waiting goroutine

	closing  atomic.Bool
	mu       sync.Mutex // guards wakefd against Close
	released bool
}

// New constructs a new epoll reactor collecting up to maxEvents per Wait.
func New(maxEvents int) (api.Reactor, error) {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add eventfd: %w", err)
	}
	return &linuxReactor{
		epfd:      epfd,
		wakefd:    wakefd,
		raw:       make([]unix.EpollEvent, maxEvents),
		interests: make(map[int]api.Interest),
	}, nil
}

// Register adds fd to the interest list, or updates its interest.
func (r *linuxReactor) Register(fd int, interest api.Interest) error {
	cur, known := r.interests[fd]
	if known && cur == interest {
		return nil
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if interest == api.InterestRead {
		ev.Events |= unix.EPOLLRDHUP
	}
	op := unix.EPOLL_CTL_ADD
	if known {
		op = unix.EPOLL_CTL_MOD
	}
	if err := unix.EpollCtl(r.epfd, op, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl %s fd=%d: %w", interest, fd, err)
	}
	r.interests[fd] = interest
	return nil
}

// Unregister removes fd from the interest list.
func (r *linuxReactor) Unregister(fd int) error {
	if _, ok := r.interests[fd]; !ok {
		return nil
	}
	delete(r.interests, fd)
	err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err != nil && !errors.Is(err, unix.ENOENT) && !errors.Is(err, unix.EBADF) {
		return fmt.Errorf("epoll ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// Wait blocks until a registered descriptor is ready, the timeout expires
// or Wake is called.
func (r *linuxReactor) Wait(events []api.Event, timeout time.Duration) (int, error) {
	if r.closing.Load() {
		return 0, api.ErrReactorClosed
	}
	if len(events) == 0 {
		return 0, api.ErrInvalidArgument
	}
	raw := r.raw
	if len(events) < len(raw) {
		raw = raw[:len(events)]
	}

	msec := -1
	if timeout >= 0 {
		// round up so a short timeout does not become a busy poll
		msec = int((timeout + time.Millisecond - 1) / time.Millisecond)
	}
	n, err := unix.EpollWait(r.epfd, raw, msec)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	out := 0
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		if fd == r.wakefd {
			r.drainWake()
			continue
		}
		interest, ok := r.interests[fd]
		if !ok {
			continue
		}
		events[out] = api.Event{
			Fd:       fd,
			Interest: interest,
			Hangup:   raw[i].Events&(unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0,
		}
		out++
	}
	if r.closing.Load() {
		return 0, api.ErrReactorClosed
	}
	return out, nil
}

// Wake marks the reactor as closing and releases a blocked Wait.
func (r *linuxReactor) Wake() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closing.Store(true)
	if r.released {
		return nil
	}
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(r.wakefd, buf[:]); err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

// Close releases the epoll instance and the eventfd.
func (r *linuxReactor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closing.Store(true)
	if r.released {
		return nil
	}
	r.released = true
	return errors.Join(unix.Close(r.wakefd), unix.Close(r.epfd))
}

func (r *linuxReactor) drainWake() {
	var buf [8]byte
	_, _ = unix.Read(r.wakefd, buf[:])
}
