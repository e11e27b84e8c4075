// Package transport resolves the daemon's Unix socket address and opens
// duplex channels to it.
//
// The socket path is deterministic and version-scoped so daemons built from
// incompatible releases never answer each other's clients. Connect fails
// fast when nothing is listening; Listen is the single source of
// exclusivity between competing daemons and reports ErrAddressInUse when a
// live daemon already owns the address. A socket file that nothing answers
// on is treated as leftover from a crashed daemon and reclaimed.
package transport
