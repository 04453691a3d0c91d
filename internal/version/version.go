// Package version exposes build metadata set via ldflags:
//
//	go build -ldflags "-X git.home.luguber.info/inful/langdocs/internal/version.Version=v1.0.0" ./cmd/langdocs
package version

// Version contains the application version information.
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version with its commit and build time.
func String() string {
	return Version + " (" + GitCommit + ", " + BuildTime + ")"
}
