// Package workspace carries the control protocol spoken over the daemon
// socket: a JSON-RPC service exposed by the daemon (ping, status, shutdown)
// and the matching client used by the CLI.
//
// Shutdown is special: the daemon fires its cancellation signal while the
// acknowledgement may still be in flight, so the client treats a connection
// closed mid-call as a successful stop rather than a failure.
package workspace
