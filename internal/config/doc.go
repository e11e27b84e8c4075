// Package config loads, normalizes, and validates squill configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from an explicit --config path or the
// user config directory. The Config type centralizes every knob the daemon
// and CLI need so downstream code receives sanitized paths, canonical log
// formats, and clear validation errors.
package config
