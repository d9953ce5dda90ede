// Package version reports build metadata injected through -ldflags.
package version

import "fmt"

// Set at build time, e.g.
//
//	-ldflags "-X github.com/example/citysync/internal/version.Commit=$(git rev-parse HEAD)"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns the version line shown by citysync --version.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, shortCommit(), BuildTime)
}

func shortCommit() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}
	return Commit
}
