package daemonctl

import (
	"context"
	"errors"
	"io"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"squill/internal/server"
	"squill/internal/transport"
)

// acceptAll keeps a listener draining connections until it is closed.
func acceptAll(listener *net.UnixListener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}
}

func TestEnsureDaemonAlreadyRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.sock")
	listener, err := transport.Listen(path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer listener.Close()
	go acceptAll(listener)

	conn, started, err := EnsureDaemon(Options{
		SocketPath: path,
		Launch: func() error {
			t.Error("launch invoked although a daemon was reachable")
			return nil
		},
	})
	if err != nil {
		t.Fatalf("EnsureDaemon: %v", err)
	}
	defer conn.Close()
	if started {
		t.Fatal("started = true, want false for a reachable daemon")
	}
}

func TestEnsureDaemonSpawnsAndWaits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.sock")

	conn, started, err := EnsureDaemon(Options{
		SocketPath:   path,
		StartTimeout: 5 * time.Second,
		PollInterval: 10 * time.Millisecond,
		Launch: func() error {
			go func() {
				// A freshly spawned daemon takes a moment to bind.
				time.Sleep(50 * time.Millisecond)
				listener, err := transport.Listen(path)
				if err != nil {
					return
				}
				acceptAll(listener)
			}()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("EnsureDaemon: %v", err)
	}
	if !started {
		t.Fatal("started = false, want true after spawning")
	}
	conn.Close()

	probe, err := transport.Connect(path)
	if err != nil {
		t.Fatalf("Connect after EnsureDaemon: %v", err)
	}
	probe.Close()
}

func TestEnsureDaemonTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.sock")

	_, _, err := EnsureDaemon(Options{
		SocketPath:   path,
		StartTimeout: 100 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		Launch:       func() error { return nil },
	})
	if !errors.Is(err, ErrStartTimeout) {
		t.Fatalf("EnsureDaemon error = %v, want ErrStartTimeout", err)
	}
}

func TestEnsureDaemonConcurrentCallers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.sock")

	// The launcher mirrors a spawned daemon: it tries to bind and exits
	// cleanly when another instance already owns the address.
	launch := func() error {
		go func() {
			listener, err := transport.Listen(path)
			if err != nil {
				return
			}
			acceptAll(listener)
		}()
		return nil
	}

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	conns := make([]*net.UnixConn, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conns[i], _, errs[i] = EnsureDaemon(Options{
				SocketPath:   path,
				StartTimeout: 5 * time.Second,
				PollInterval: 10 * time.Millisecond,
				Launch:       launch,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
		conns[i].Close()
	}
	conn, err := transport.Connect(path)
	if err != nil {
		t.Fatalf("Connect after concurrent EnsureDaemon: %v", err)
	}
	conn.Close()
}

// echoSession copies bytes back until the client closes.
type echoSession struct{}

func (echoSession) Serve(_ context.Context, conn *net.UnixConn) {
	_, _ = io.Copy(conn, conn)
}

// A stop-on-disconnect daemon counts every connection as a client. The
// supervisor's liveness poll must therefore stay open and be reused by the
// caller, or the daemon stops the moment the poll closes and the proxy has
// nothing left to tunnel to.
func TestEnsureDaemonKeepsStopOnDisconnectDaemonAlive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.sock")

	serveDone := make(chan error, 1)
	launch := func() error {
		go func() {
			canceller := server.NewCanceller()
			rt, err := server.NewRuntime(server.Options{
				SocketPath:       path,
				StopOnDisconnect: true,
			}, echoSession{}, nil, canceller)
			if err != nil {
				serveDone <- err
				return
			}
			serveDone <- rt.Serve(context.Background())
		}()
		return nil
	}

	conn, started, err := EnsureDaemon(Options{
		SocketPath:   path,
		ProxyMode:    true,
		StartTimeout: 5 * time.Second,
		PollInterval: 10 * time.Millisecond,
		Launch:       launch,
	})
	if err != nil {
		t.Fatalf("EnsureDaemon: %v", err)
	}
	if !started {
		t.Fatal("started = false, want true after spawning")
	}

	// The daemon must still be serving while the supervisor's connection
	// is the only client.
	select {
	case err := <-serveDone:
		t.Fatalf("daemon exited after the supervisor poll alone (Serve = %v)", err)
	case <-time.After(200 * time.Millisecond):
	}

	// The returned connection carries real traffic, as the tunnel would.
	payload := []byte("initialize")
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("write over supervisor connection: %v", err)
	}
	buf := make([]byte, len(payload))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read over supervisor connection: %v", err)
	}
	if string(buf) != string(payload) {
		t.Fatalf("echo = %q, want %q", buf, payload)
	}

	// Closing the last client stops the daemon.
	conn.Close()
	select {
	case err := <-serveDone:
		if err != nil {
			t.Fatalf("Serve = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop after its last client disconnected")
	}
}
