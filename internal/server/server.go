package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"squill/internal/logging"
	"squill/internal/transport"
)

// SessionHandler is the opaque workspace capability the runtime dispatches
// accepted connections to. Serve owns the connection for its lifetime; the
// context is cancelled when the runtime begins shutting down.
type SessionHandler interface {
	Serve(ctx context.Context, conn *net.UnixConn)
}

// Options configures the runtime.
type Options struct {
	SocketPath string
	// LockPath locates the single-instance advisory lock. Defaults to
	// SocketPath + ".lock".
	LockPath string
	// StopOnDisconnect cancels the runtime once the last client
	// disconnects, after at least one client has connected.
	StopOnDisconnect bool
}

// Runtime accepts connections on the daemon socket and serves each one on
// its own goroutine until cancelled.
type Runtime struct {
	opts      Options
	handler   SessionHandler
	logger    *slog.Logger
	canceller *Canceller
	lock      *flock.Flock

	wg       sync.WaitGroup
	sessions atomic.Int64
}

// NewRuntime wires the accept loop to its handler and cancellation signal.
func NewRuntime(opts Options, handler SessionHandler, logger *slog.Logger, canceller *Canceller) (*Runtime, error) {
	if handler == nil {
		return nil, errors.New("runtime requires a session handler")
	}
	if canceller == nil {
		return nil, errors.New("runtime requires a canceller")
	}
	if opts.SocketPath == "" {
		return nil, errors.New("runtime requires a socket path")
	}
	if opts.LockPath == "" {
		opts.LockPath = opts.SocketPath + ".lock"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runtime{
		opts:      opts,
		handler:   handler,
		logger:    logger,
		canceller: canceller,
		lock:      flock.New(opts.LockPath),
	}, nil
}

// Serve binds the transport and accepts connections until the canceller
// fires or the context ends, then drains in-flight connections and returns
// nil. Every other return is an error; in particular a bind failure
// (transport.ErrAddressInUse) is fatal and never retried.
func (r *Runtime) Serve(ctx context.Context) error {
	ok, err := r.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("daemon lock %s is held: %w", r.opts.LockPath, transport.ErrAddressInUse)
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn("release daemon lock", logging.Error(err))
		}
	}()

	listener, err := transport.Listen(r.opts.SocketPath)
	if err != nil {
		return err
	}
	defer listener.Close()

	connCtx, cancelConns := context.WithCancel(ctx)
	defer cancelConns()

	// Closing the listener is what unblocks Accept, bounding cancellation
	// latency to one accept iteration.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-r.canceller.Done():
		case <-ctx.Done():
		case <-stop:
			return
		}
		_ = listener.Close()
	}()

	r.logger.Info("daemon listening", logging.String("socket", r.opts.SocketPath))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if r.canceller.Cancelled() || ctx.Err() != nil {
				r.logger.Info("shutdown signal received; draining connections",
					logging.Int64("active_sessions", r.sessions.Load()))
				cancelConns()
				r.wg.Wait()
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("listener closed unexpectedly: %w", err)
			}
			r.logger.Warn("accept failed", logging.Error(err))
			continue
		}

		connID := uuid.NewString()
		r.sessions.Add(1)
		r.wg.Add(1)
		go func(c *net.UnixConn) {
			defer r.wg.Done()
			defer c.Close()
			r.logger.Debug("client connected", logging.String("conn_id", connID))
			r.handler.Serve(connCtx, c)
			r.logger.Debug("client disconnected", logging.String("conn_id", connID))
			if r.sessions.Add(-1) == 0 && r.opts.StopOnDisconnect {
				r.canceller.Cancel()
			}
		}(conn.(*net.UnixConn))
	}
}

// ActiveSessions reports how many connections are currently being served.
func (r *Runtime) ActiveSessions() int {
	return int(r.sessions.Load())
}
