// Package version carries the tool identity used for the version-scoped
// socket address and status reporting.
package version

const (
	// Tool is the binary and module prefix used in log source names.
	Tool = "squill"

	// Version is the release identifier. Daemons of different versions
	// never share a socket address, so a stale daemon from a previous
	// install cannot answer a newer client.
	Version = "0.4.2"
)
