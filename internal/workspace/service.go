package workspace

import (
	"context"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"time"

	"squill/internal/logging"
	"squill/internal/server"
	"squill/internal/version"
)

// ServiceName is the JSON-RPC service the daemon registers.
const ServiceName = "Squill"

// Service implements the daemon-side control protocol.
type Service struct {
	logger    *slog.Logger
	canceller *server.Canceller
	socket    string
	started   time.Time
	sessions  func() int
}

// NewService builds the control service. The canceller is fired when a
// client requests shutdown.
func NewService(logger *slog.Logger, canceller *server.Canceller, socketPath string) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		logger:    logger,
		canceller: canceller,
		socket:    socketPath,
		started:   time.Now(),
		sessions:  func() int { return 0 },
	}
}

// SetSessionCounter wires the active-session gauge once the runtime exists.
func (s *Service) SetSessionCounter(fn func() int) {
	if fn != nil {
		s.sessions = fn
	}
}

// Ping answers a liveness probe.
func (s *Service) Ping(_ PingRequest, resp *PingResponse) error {
	resp.Tool = version.Tool
	resp.Version = version.Version
	return nil
}

// Status reports a snapshot of the running daemon.
func (s *Service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.PID = os.Getpid()
	resp.Version = version.Version
	resp.UptimeSeconds = int64(time.Since(s.started).Seconds())
	resp.SocketPath = s.socket
	resp.ActiveSessions = s.sessions()
	return nil
}

// Shutdown acknowledges the request and fires the cancellation signal. The
// acknowledgement races the socket teardown; clients tolerate losing it.
func (s *Service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	s.logger.Info("shutdown requested over control socket")
	resp.Stopping = true
	s.canceller.Cancel()
	return nil
}

// Handler serves the control protocol on accepted connections. It
// satisfies the runtime's session handler contract.
type Handler struct {
	service *Service
}

// NewHandler wraps the control service for the accept loop.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Serve runs one JSON-RPC session over the connection. It returns when the
// client disconnects or the context is cancelled, whichever comes first.
func (h *Handler) Serve(ctx context.Context, conn *net.UnixConn) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(ServiceName, h.service); err != nil {
		h.service.logger.Error("register control service", logging.Error(err))
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ServeCodec(jsonrpc.NewServerCodec(conn))
	}()

	select {
	case <-ctx.Done():
		_ = conn.Close()
		<-done
	case <-done:
	}
}
