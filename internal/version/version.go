// Package version holds build metadata stamped in at link time via
// -ldflags "-X ...". Binaries report it through their -version flag.
package version

import "fmt"

var (
	// Version is the release tag, or "dev" for local builds
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns a one-line summary suitable for -version output.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitSHA, BuildTime)
}
