package daemonctl

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"

	"squill/internal/transport"
)

// ErrStartTimeout reports that a spawned daemon never became connectable
// within the configured deadline.
var ErrStartTimeout = errors.New("timed out waiting for the daemon to accept connections")

const (
	defaultStartTimeout = 10 * time.Second
	defaultPollInterval = 50 * time.Millisecond
)

// Options controls how EnsureDaemon probes and spawns.
type Options struct {
	// SocketPath is the transport endpoint to probe. Defaults to the
	// version-scoped path.
	SocketPath string
	// ConfigPath, when set, is forwarded to the spawned daemon.
	ConfigPath string
	// LogDir and LogPrefix, when set, are forwarded to the spawned daemon.
	LogDir    string
	LogPrefix string
	// ProxyMode asks the spawned daemon to stop once its last client
	// disconnects.
	ProxyMode bool

	// StartTimeout bounds the post-spawn poll loop; PollInterval is the
	// delay between connection attempts.
	StartTimeout time.Duration
	PollInterval time.Duration

	// Executable overrides the binary to spawn. Defaults to the running
	// executable.
	Executable string
	// Launch overrides process creation entirely. Tests use it to start an
	// in-process listener instead of exec'ing a binary.
	Launch func() error
}

func (o *Options) fill() error {
	if o.SocketPath == "" {
		o.SocketPath = transport.SocketPath()
	}
	if o.StartTimeout <= 0 {
		o.StartTimeout = defaultStartTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.Launch == nil {
		if o.Executable == "" {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			o.Executable = exe
		}
		o.Launch = func() error { return launchDetached(*o) }
	}
	return nil
}

// EnsureDaemon guarantees a connectable daemon behind the socket and hands
// the caller the connection that proved it. It probes first; if something
// already answers it spawns nothing and reports started=false. Otherwise it
// launches a detached daemon and polls until a connection succeeds
// (started=true) or the deadline passes (ErrStartTimeout).
//
// The successful probe or poll connection is returned open rather than
// closed: a daemon spawned with stop-on-disconnect counts every connection
// as a client, so closing the liveness probe before the caller connects for
// real would stop the daemon it just started. Callers that only need the
// side effect close the connection themselves.
//
// Concurrent callers may each spawn a process; bind-time exclusivity on the
// daemon side guarantees at most one survives, and every caller still
// observes a connectable socket.
func EnsureDaemon(opts Options) (*net.UnixConn, bool, error) {
	if err := opts.fill(); err != nil {
		return nil, false, err
	}

	if conn, err := transport.Connect(opts.SocketPath); err == nil {
		return conn, false, nil
	} else if !errors.Is(err, transport.ErrUnavailable) {
		return nil, false, err
	}

	if err := opts.Launch(); err != nil {
		return nil, false, fmt.Errorf("launch daemon: %w", err)
	}

	deadline := time.Now().Add(opts.StartTimeout)
	for {
		conn, err := transport.Connect(opts.SocketPath)
		if err == nil {
			return conn, true, nil
		}
		if !errors.Is(err, transport.ErrUnavailable) {
			return nil, false, err
		}
		if time.Now().After(deadline) {
			return nil, false, ErrStartTimeout
		}
		time.Sleep(opts.PollInterval)
	}
}

// launchDetached starts `<executable> run-server ...` in its own session
// with all stdio detached, then releases the handle so the daemon outlives
// the CLI.
func launchDetached(opts Options) error {
	args := []string{"run-server", "--socket", opts.SocketPath}
	if opts.ConfigPath != "" {
		args = append(args, "--config", opts.ConfigPath)
	}
	if opts.LogDir != "" {
		args = append(args, "--log-path", opts.LogDir)
	}
	if opts.LogPrefix != "" {
		args = append(args, "--log-prefix", opts.LogPrefix)
	}
	if opts.ProxyMode {
		args = append(args, "--stop-on-disconnect")
	}

	cmd := exec.Command(opts.Executable, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = sysProcAttr()
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
