// Package buildinfo holds version metadata stamped at compile time via
// ldflags, plus process uptime tracking.
package buildinfo

import (
	"fmt"
	"runtime"
	"time"
)

// These variables are set at build time via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// startTime records when the process started.
var startTime = time.Now()

// Uptime returns the duration since process start.
func Uptime() time.Duration {
	return time.Since(startTime).Truncate(time.Second)
}

// String returns a one-line summary for startup logging.
func String() string {
	return fmt.Sprintf("Mira %s (%s) built %s", Version, GitCommit, BuildTime)
}

// UserAgent returns the User-Agent header value for outbound HTTP
// requests made by the assistant's collaborator clients.
func UserAgent() string {
	return fmt.Sprintf("mira-agent/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH)
}

// Info returns build and runtime details as a map, for the version
// subcommand and diagnostic logging.
func Info() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_commit": GitCommit,
		"build_time": BuildTime,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     Uptime().String(),
	}
}
