package app

import "fmt"

// Build information populated via -ldflags.
var (
	BuildVersion = "0.0.0-dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

func defaultUserAgent() string {
	return fmt.Sprintf("pageassist/%s (+https://github.com/hyperifyio/pageassist)", BuildVersion)
}

// DefaultUserAgent is the User-Agent sent with page requests.
func DefaultUserAgent() string { return defaultUserAgent() }

// VersionString describes the build for -version.
func VersionString() string {
	return fmt.Sprintf("pageassist %s (commit %s, built %s)", BuildVersion, BuildCommit, BuildDate)
}
