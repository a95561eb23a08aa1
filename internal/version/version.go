// Package version carries build metadata stamped via -ldflags, surfaced by
// the version command.
package version

var (
	// Version is the release tag of the flipcheck binary.
	Version = "dev"
	// Commit is the git revision the binary was built from.
	Commit = "unknown"
	// BuildDate is the UTC build timestamp.
	BuildDate = "unknown"
)
