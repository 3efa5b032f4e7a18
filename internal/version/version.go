// Package version carries build information and derives the default
// User-Agent string required by the Wikimedia User-Agent policy.
package version

import (
	"fmt"
	"runtime"
)

// Build information. These variables are set at build time via ldflags.
var (
	// CommitHash is the git commit hash when the binary was built
	CommitHash = "dev"

	// Version is the semantic version (if tagged)
	Version = "0.1.0"
)

// Info contains version and build information
type Info struct {
	CommitHash string `json:"commit_hash"`
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns the current version information
func Get() Info {
	return Info{
		CommitHash: CommitHash,
		Version:    Version,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a human-readable version string
func (i Info) String() string {
	return fmt.Sprintf("wikibase-go %s (commit %s)", i.Version, i.CommitHash)
}

// DefaultUserAgent returns the library's default User-Agent. Per the
// Wikimedia policy it names the tool, its version, and a contact URL; the
// transport appends the logged-in username once a login succeeds.
func DefaultUserAgent() string {
	return fmt.Sprintf("wikibase-go/%s (https://github.com/teranos/wikibase) %s", Version, runtime.Version())
}
