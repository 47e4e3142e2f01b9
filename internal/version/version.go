// Package version provides build and version information.
package version

import (
	"fmt"
	"runtime"
)

// Version is the current application version. Release builds override it
// with -ldflags "-X github.com/litescript/ls-globe/internal/version.Version=...".
var Version = "0.3.0"

// Milestones:
// 0.3.0 - HTTP status API, Prometheus metrics, YAML/env configuration
// 0.2.0 - Natural Earth land outlines, visitor pin, headless snapshot export
// 0.1.0 - Initial release: braille globe, drag/inertia, animated routes

// String returns a one-line version banner.
func String() string {
	return fmt.Sprintf("ls-globe v%s (%s, %s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
