//go:build dev

package logging

// Development reports the build flavor: true when built with -tags dev.
const Development = true
