//go:build linux

package transport_test

import (
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/transport"
)

// eventually retries fn until it stops returning api.ErrWouldBlock.
func eventually(t *testing.T, fn func() error) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := fn()
		if !errors.Is(err, api.ErrWouldBlock) {
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("operation kept blocking")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func listen(t *testing.T) *transport.ListenSocket {
	t.Helper()
	ls, err := transport.Listen(0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { _ = ls.Close() })
	return ls
}

func TestListenResolvesEphemeralPort(t *testing.T) {
	ls := listen(t)
	if ls.Port() <= 0 {
		t.Fatalf("Port = %d, want ephemeral port", ls.Port())
	}
	if ls.Fd() < 0 {
		t.Fatalf("Fd = %d", ls.Fd())
	}
}

func TestListenBindConflict(t *testing.T) {
	ls := listen(t)
	_, err := transport.Listen(ls.Port())
	if !api.IsBindError(err) {
		t.Fatalf("second Listen = %v, want BindError", err)
	}
	if _, err := transport.Listen(70000); !api.IsBindError(err) {
		t.Fatalf("Listen(70000) = %v, want BindError", err)
	}
}

func TestListenCloseReleasesPort(t *testing.T) {
	ls, err := transport.Listen(0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	port := ls.Port()
	if err := ls.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	_ = ls.Close()

	ln, err := net.Listen("tcp4", "0.0.0.0:"+strconv.Itoa(port))
	if err != nil {
		t.Fatalf("port %d not released: %v", port, err)
	}
	_ = ln.Close()
}

func TestAcceptReadWrite(t *testing.T) {
	ls := listen(t)

	if _, _, err := ls.Accept(); !errors.Is(err, api.ErrWouldBlock) {
		t.Fatalf("Accept with no client = %v, want ErrWouldBlock", err)
	}

	client, err := net.Dial("tcp4", "127.0.0.1:"+strconv.Itoa(ls.Port()))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	var sock api.Socket
	var peer net.Addr
	eventually(t, func() (err error) {
		sock, peer, err = ls.Accept()
		return err
	})
	defer sock.Close()
	if peer == nil || peer.String() != client.LocalAddr().String() {
		t.Fatalf("peer = %v, want %v", peer, client.LocalAddr())
	}

	if _, err := client.Write([]byte("hello")); err != nil {
		t.Fatalf("client write: %v", err)
	}
	buf := make([]byte, 16)
	var n int
	eventually(t, func() (err error) {
		n, err = sock.Read(buf)
		return err
	})
	if string(buf[:n]) != "hello" {
		t.Fatalf("Read = %q, want hello", buf[:n])
	}

	if w, err := sock.Write([]byte("world")); err != nil || w != 5 {
		t.Fatalf("Write = %d, %v", w, err)
	}
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	got := make([]byte, 5)
	if _, err := io.ReadFull(client, got); err != nil || string(got) != "world" {
		t.Fatalf("client read = %q, %v", got, err)
	}

	_ = client.Close()
	eventually(t, func() error {
		_, err := sock.Read(buf)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err == nil {
			return api.ErrWouldBlock
		}
		return err
	})
}

func TestShutdownSignalsPeer(t *testing.T) {
	ls := listen(t)
	client, err := net.Dial("tcp4", "127.0.0.1:"+strconv.Itoa(ls.Port()))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	var sock api.Socket
	eventually(t, func() (err error) {
		sock, _, err = ls.Accept()
		return err
	})
	defer sock.Close()

	if err := sock.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := sock.Shutdown(); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := client.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		t.Fatalf("client read after Shutdown = %v, want EOF", err)
	}
}
