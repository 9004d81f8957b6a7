package version

import "fmt"

// Build metadata, overridden with -ldflags "-X".
//
//nolint:gochecknoglobals // Set by the linker.
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// Short returns the semantic version.
func Short() string {
	return Version
}

// Full renders every build field on one line.
func Full() string {
	return fmt.Sprintf("alarm-dispatch %s (commit %s, built %s)", Version, Commit, BuildTime)
}

// KV returns the build metadata as logger key-value pairs.
func KV() []any {
	return []any{"version", Version, "commit", Commit, "build_time", BuildTime}
}
