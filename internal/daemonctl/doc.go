// Package daemonctl supervises the daemon lifecycle from the CLI side: it
// probes the socket, spawns a detached daemon process when nothing answers,
// and polls until the new daemon is connectable or a deadline passes.
package daemonctl
