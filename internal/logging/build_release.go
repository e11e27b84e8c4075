//go:build !dev

package logging

// Development reports the build flavor: false in release builds, true when
// built with -tags dev. It selects the default SourceFilter verbosity for
// squill's own components.
const Development = false
