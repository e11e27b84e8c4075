package server

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"squill/internal/transport"
)

// echoHandler copies every byte back until the client stops writing.
type echoHandler struct{}

func (echoHandler) Serve(_ context.Context, conn *net.UnixConn) {
	_, _ = io.Copy(conn, conn)
}

func newTestRuntime(t *testing.T, opts Options, handler SessionHandler) (*Runtime, *Canceller) {
	t.Helper()
	canceller := NewCanceller()
	rt, err := NewRuntime(opts, handler, nil, canceller)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	return rt, canceller
}

func TestCancellerFiresOnceForAllObservers(t *testing.T) {
	c := NewCanceller()
	if c.Cancelled() {
		t.Fatal("fresh canceller reports cancelled")
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-c.Done()
		}()
	}

	c.Cancel()
	c.Cancel() // idempotent
	wg.Wait()

	if !c.Cancelled() {
		t.Fatal("canceller does not report cancelled after Cancel")
	}
}

func TestServeReturnsNilOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.sock")
	rt, canceller := newTestRuntime(t, Options{SocketPath: path}, echoHandler{})

	done := make(chan error, 1)
	go func() { done <- rt.Serve(context.Background()) }()

	// Wait for the socket to be bound before cancelling.
	waitForSocket(t, path)
	canceller.Cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestServeEchoesSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.sock")
	rt, canceller := newTestRuntime(t, Options{SocketPath: path}, echoHandler{})

	done := make(chan error, 1)
	go func() { done <- rt.Serve(context.Background()) }()
	waitForSocket(t, path)

	conn, err := transport.Connect(path)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	payload := []byte("explain analyze")
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, len(payload))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != string(payload) {
		t.Fatalf("echo = %q, want %q", buf, payload)
	}
	conn.Close()

	canceller.Cancel()
	if err := <-done; err != nil {
		t.Fatalf("Serve = %v, want nil", err)
	}
}

func TestServeDrainsInFlightSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.sock")

	finished := make(chan struct{})
	handler := handlerFunc(func(_ context.Context, conn *net.UnixConn) {
		_, _ = io.Copy(io.Discard, conn)
		close(finished)
	})
	rt, canceller := newTestRuntime(t, Options{SocketPath: path}, handler)

	done := make(chan error, 1)
	go func() { done <- rt.Serve(context.Background()) }()
	waitForSocket(t, path)

	conn, err := transport.Connect(path)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	canceller.Cancel()
	time.Sleep(20 * time.Millisecond)
	conn.Close()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight session was not drained")
	}
	if err := <-done; err != nil {
		t.Fatalf("Serve = %v, want nil", err)
	}
}

func TestServeRefusesOccupiedAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.sock")
	rt1, canceller1 := newTestRuntime(t, Options{SocketPath: path}, echoHandler{})

	done := make(chan error, 1)
	go func() { done <- rt1.Serve(context.Background()) }()
	waitForSocket(t, path)

	rt2, _ := newTestRuntime(t, Options{
		SocketPath: path,
		LockPath:   filepath.Join(t.TempDir(), "other.lock"),
	}, echoHandler{})
	if err := rt2.Serve(context.Background()); !errors.Is(err, transport.ErrAddressInUse) {
		t.Fatalf("second Serve = %v, want ErrAddressInUse", err)
	}

	canceller1.Cancel()
	if err := <-done; err != nil {
		t.Fatalf("first Serve = %v, want nil", err)
	}
}

func TestServeRefusesHeldLock(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "d.lock")
	rt1, canceller1 := newTestRuntime(t, Options{
		SocketPath: filepath.Join(dir, "a.sock"),
		LockPath:   lockPath,
	}, echoHandler{})

	done := make(chan error, 1)
	go func() { done <- rt1.Serve(context.Background()) }()
	waitForSocket(t, filepath.Join(dir, "a.sock"))

	rt2, _ := newTestRuntime(t, Options{
		SocketPath: filepath.Join(dir, "b.sock"),
		LockPath:   lockPath,
	}, echoHandler{})
	if err := rt2.Serve(context.Background()); !errors.Is(err, transport.ErrAddressInUse) {
		t.Fatalf("Serve with held lock = %v, want ErrAddressInUse", err)
	}

	canceller1.Cancel()
	if err := <-done; err != nil {
		t.Fatalf("first Serve = %v, want nil", err)
	}
}

func TestServeStopsOnLastDisconnect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.sock")
	rt, _ := newTestRuntime(t, Options{SocketPath: path, StopOnDisconnect: true}, echoHandler{})

	done := make(chan error, 1)
	go func() { done <- rt.Serve(context.Background()) }()
	// A probe connection would itself count as the last client, so wait on
	// the socket file instead.
	waitForSocketFile(t, path)

	conn, err := transport.Connect(path)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	conn.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop after the last client disconnected")
	}
}

// handlerFunc adapts a function to the SessionHandler interface.
type handlerFunc func(ctx context.Context, conn *net.UnixConn)

func (f handlerFunc) Serve(ctx context.Context, conn *net.UnixConn) { f(ctx, conn) }

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := transport.Connect(path)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("socket %s never became connectable", path)
}

func waitForSocketFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Lstat(path); err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("socket %s never appeared", path)
}
