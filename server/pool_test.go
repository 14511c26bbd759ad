package server

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-tcp/api"
)

func TestConnectionPool(t *testing.T) {
	p := NewConnectionPool()
	a := newConn(newFakeSocket(5, 1), nil)
	b := newConn(newFakeSocket(6, 1), nil)
	p.Add(a)
	p.Add(b)

	if p.Len() != 2 {
		t.Fatalf("Len = %d, want 2", p.Len())
	}
	if got, err := p.Lookup(5); err != nil || got != a {
		t.Fatalf("Lookup(5) = %v, %v", got, err)
	}

	seen := map[int]bool{}
	for c := range p.All() {
		seen[c.Fd()] = true
	}
	if !seen[5] || !seen[6] || len(seen) != 2 {
		t.Fatalf("All yielded %v", seen)
	}

	p.Remove(a)
	if _, err := p.Lookup(5); !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("Lookup after Remove = %v, want ErrNotFound", err)
	}
	p.Remove(a)
	if p.Len() != 1 {
		t.Fatalf("Len = %d, want 1", p.Len())
	}
}

func TestConnectionPoolReusedDescriptor(t *testing.T) {
	p := NewConnectionPool()
	stale := newConn(newFakeSocket(8, 1), nil)
	fresh := newConn(newFakeSocket(8, 1), nil)
	p.Add(stale)
	p.Add(fresh)
	if p.Len() != 1 {
		t.Fatalf("Len = %d, want 1", p.Len())
	}

	// retiring the stale conn must not evict the one that reused its fd
	p.Remove(stale)
	if got, err := p.Lookup(8); err != nil || got != fresh {
		t.Fatalf("Lookup(8) = %v, %v; want fresh conn", got, err)
	}
}

func TestConnectionPoolRemoveDuringIteration(t *testing.T) {
	p := NewConnectionPool()
	for fd := 10; fd < 20; fd++ {
		p.Add(newConn(newFakeSocket(fd, 1), nil))
	}
	for c := range p.All() {
		p.Remove(c)
	}
	if p.Len() != 0 {
		t.Fatalf("Len = %d after removing all", p.Len())
	}
}
