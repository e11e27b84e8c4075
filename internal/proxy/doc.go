// Package proxy tunnels bytes between an external stream pair (typically
// the process's own stdin/stdout, carrying LSP traffic) and a daemon
// connection. The two directions are pumped independently so a half-close
// in one direction never stalls the other.
package proxy
