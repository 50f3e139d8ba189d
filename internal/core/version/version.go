// Package version provides build information for the tally binaries
package version

import "runtime/debug"

// BuildInfo holds version information about a binary build
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information for service.
// version, commit and date are set at build time:
// -ldflags "-X 'tally/internal/core/version.version=v0.1.0' -X 'tally/internal/core/version.commit=abcd'"
// When commit was not stamped, the VCS revision recorded by the go toolchain is used
func Info(service string) BuildInfo {
	c := commit
	if c == "none" {
		if rev := vcsRevision(); rev != "" {
			c = rev
		}
	}
	return BuildInfo{
		Service: service,
		Version: version,
		Commit:  c,
		Date:    date,
	}
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var readBuildInfo = debug.ReadBuildInfo

func vcsRevision() string {
	bi, ok := readBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}
