package server

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-tcp/api"
)

var errBrokenPipe = errors.New("broken pipe")

// fakeSocket accepts at most chunk bytes per Write and reports
// ErrWouldBlock on every other call, like a congested socket.
type fakeSocket struct {
	fd    int
	chunk int
	// failAt makes Write fail once this many bytes are written; <0 disables.
	failAt int
	// stall makes every Write report ErrWouldBlock.
	stall bool
	// eof makes Read report end of stream.
	eof bool

	mu       sync.Mutex
	written  bytes.Buffer
	calls    int
	closed   int
	shutdown int
}

func newFakeSocket(fd, chunk int) *fakeSocket {
	return &fakeSocket{fd: fd, chunk: chunk, failAt: -1}
}

func (f *fakeSocket) Fd() int { return f.fd }

func (f *fakeSocket) Read(p []byte) (int, error) {
	if f.eof {
		return 0, io.EOF
	}
	return 0, api.ErrWouldBlock
}

func (f *fakeSocket) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAt >= 0 && f.written.Len() >= f.failAt {
		return 0, errBrokenPipe
	}
	if f.stall || f.calls%2 == 0 {
		return 0, api.ErrWouldBlock
	}
	n := min(f.chunk, len(p))
	f.written.Write(p[:n])
	if n < len(p) {
		return n, api.ErrWouldBlock
	}
	return n, nil
}

func (f *fakeSocket) Shutdown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown++
	return nil
}

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeSocket) bytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return bytes.Clone(f.written.Bytes())
}

func (f *fakeSocket) writeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeListenSocket fails every Accept with err.
type fakeListenSocket struct {
	fd      int
	err     error
	accepts atomic.Int32
}

func (l *fakeListenSocket) Fd() int   { return l.fd }
func (l *fakeListenSocket) Port() int { return 0 }
func (l *fakeListenSocket) Close() error {
	return nil
}

func (l *fakeListenSocket) Accept() (api.Socket, net.Addr, error) {
	l.accepts.Add(1)
	return nil, nil, l.err
}

// fakeReactor replays scripted events once, then reports the listening
// socket readable for as long as it is registered and acceptReady is set.
type fakeReactor struct {
	listenFd    int
	acceptReady bool

	mu         sync.Mutex
	script     []api.Event
	registered map[int]api.Interest
	wake       chan struct{}
	wakeOnce   sync.Once
}

func newFakeReactor(listenFd int) *fakeReactor {
	return &fakeReactor{
		listenFd:   listenFd,
		registered: make(map[int]api.Interest),
		wake:       make(chan struct{}),
	}
}

func (r *fakeReactor) Register(fd int, interest api.Interest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered[fd] = interest
	return nil
}

func (r *fakeReactor) Unregister(fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.registered, fd)
	return nil
}

func (r *fakeReactor) Wait(events []api.Event, timeout time.Duration) (int, error) {
	select {
	case <-r.wake:
		return 0, api.ErrReactorClosed
	default:
	}
	r.mu.Lock()
	if len(r.script) > 0 {
		n := copy(events, r.script)
		r.script = r.script[n:]
		r.mu.Unlock()
		return n, nil
	}
	if _, ok := r.registered[r.listenFd]; ok && r.acceptReady {
		r.mu.Unlock()
		events[0] = api.Event{Fd: r.listenFd, Interest: api.InterestAccept}
		return 1, nil
	}
	r.mu.Unlock()

	var expired <-chan time.Time
	if timeout >= 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-r.wake:
		return 0, api.ErrReactorClosed
	case <-expired:
		return 0, nil
	}
}

func (r *fakeReactor) Wake() error {
	r.wakeOnce.Do(func() { close(r.wake) })
	return nil
}

func (r *fakeReactor) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
