// Package version holds build metadata injected at link time.
package version

import "runtime"

// Set via -ldflags "-X github.com/jackzampolin/pdfsplit/version.GitRelease=..."
var (
	// GitRelease is the release tag or "dev" for local builds.
	GitRelease = "dev"

	// GitCommit is the short commit hash.
	GitCommit = "unknown"

	// GitCommitDate is the commit date.
	GitCommitDate = "unknown"

	// GoInfo is the Go toolchain used for the build.
	GoInfo = runtime.Version()
)
