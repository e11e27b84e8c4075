// Package server hosts the daemon-side accept loop and the cancellation
// primitive that stops it.
//
// The runtime binds the transport, dispatches each accepted connection to
// an independent goroutine backed by the workspace session handler, and
// enforces single-instance execution with an advisory file lock. Serve only
// returns nil through cancellation; every other exit is an error. The
// Canceller is single-shot and multi-observer so a signal handler, the
// control service's shutdown request, and a last-client disconnect can all
// trigger the same graceful stop.
package server
