// Package logging assembles the structured slog loggers used by the squill
// daemon and the helpers shared with tests and wiring code.
//
// It owns level and output plumbing, the source-prefix filter that keeps
// third-party library chatter at INFO while squill's own components log at
// DEBUG or TRACE, and the hourly-rotated file sink the daemon writes to.
// Loggers are constructed once at daemon start and passed by reference into
// the server runtime and its connection handlers; nothing here installs
// process-global state.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape and filtering guarantees.
package logging
