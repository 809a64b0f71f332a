package version

import "fmt"

var (
	// Version is the firmware release. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the release version.
func Short() string {
	return Version
}

// Full returns "version: <v>, commit: <sha>, built at: <time>".
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}
