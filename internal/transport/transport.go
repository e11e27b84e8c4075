package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"golang.org/x/sys/unix"

	"squill/internal/version"
)

// ErrUnavailable indicates that no daemon is listening on the socket. It is
// the signal the supervisor uses to decide a daemon must be spawned.
var ErrUnavailable = errors.New("no daemon is listening on the socket")

// ErrAddressInUse indicates that a live daemon already owns the socket
// address. It is fatal to a Listen attempt and tells a would-be daemon that
// another instance won the bind race.
var ErrAddressInUse = errors.New("socket address is already in use")

// dialTimeout bounds every connection attempt so CLI commands fail fast
// when the daemon is offline.
const dialTimeout = 2 * time.Second

// SocketDirEnv overrides the directory the socket is created in.
const SocketDirEnv = "SQUILL_SOCKET_DIR"

// SocketDir returns the directory holding the daemon socket: the
// SQUILL_SOCKET_DIR override when set, otherwise the user runtime
// directory, falling back to the system temp directory.
func SocketDir() string {
	if dir := os.Getenv(SocketDirEnv); dir != "" {
		return dir
	}
	if xdg.RuntimeDir != "" {
		return xdg.RuntimeDir
	}
	return os.TempDir()
}

// SocketPath resolves the version-scoped socket address. Pure computation,
// no I/O: the same tool version always resolves the same path.
func SocketPath() string {
	return filepath.Join(SocketDir(), fmt.Sprintf("%s-v%s.sock", version.Tool, version.Version))
}

// Connect opens a duplex channel to the daemon at path. It fails with
// ErrUnavailable when nothing is listening and never retries.
func Connect(path string) (*net.UnixConn, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.Dial("unix", path)
	if err != nil {
		if isUnavailable(err) {
			return nil, fmt.Errorf("connect %s: %w", path, ErrUnavailable)
		}
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}
	return conn.(*net.UnixConn), nil
}

// Listen binds a new listening endpoint at path. A socket file that still
// answers connections means another daemon owns the address and the caller
// must stand down; a socket file nothing answers on is removed before
// binding.
//
// The probe-then-remove sequence is not atomic: a socket bound by another
// process between the probe and the remove would be unlinked. Daemons rule
// this out by holding the advisory file lock before calling Listen; callers
// without the lock only get best-effort stale-file cleanup.
func Listen(path string) (*net.UnixListener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create socket directory: %w", err)
	}

	if _, err := os.Lstat(path); err == nil {
		probe, probeErr := Connect(path)
		if probeErr == nil {
			_ = probe.Close()
			return nil, fmt.Errorf("listen %s: %w", path, ErrAddressInUse)
		}
		if !errors.Is(probeErr, ErrUnavailable) {
			return nil, fmt.Errorf("probe existing socket %s: %w", path, probeErr)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		if errors.Is(err, unix.EADDRINUSE) {
			return nil, fmt.Errorf("listen %s: %w", path, ErrAddressInUse)
		}
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	return listener.(*net.UnixListener), nil
}

func isUnavailable(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, unix.ENOENT) ||
		errors.Is(err, unix.ECONNREFUSED) ||
		errors.Is(err, unix.ENOTSOCK)
}
