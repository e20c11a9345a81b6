// Package version carries the build identity shown in the About dialog
// and the startup log.
package version

// Overridden at build time via
// -ldflags "-X refboard/internal/version.Version=... ".
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
