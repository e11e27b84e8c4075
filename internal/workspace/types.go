package workspace

// PingRequest is an empty liveness probe.
type PingRequest struct{}

// PingResponse echoes the daemon identity.
type PingResponse struct {
	Tool    string `json:"tool"`
	Version string `json:"version"`
}

// StatusRequest asks for a daemon snapshot.
type StatusRequest struct{}

// StatusResponse describes the running daemon.
type StatusResponse struct {
	PID            int    `json:"pid"`
	Version        string `json:"version"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	SocketPath     string `json:"socket_path"`
	ActiveSessions int    `json:"active_sessions"`
}

// ShutdownRequest asks the daemon to stop.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request. The daemon may close
// the connection before this reaches the client.
type ShutdownResponse struct {
	Stopping bool `json:"stopping"`
}
