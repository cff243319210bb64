// Package version holds schemagate's build information.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Overridden at build time:
// go build -ldflags "-X schemagate/internal/version.Version=0.2.0 -X schemagate/internal/version.Commit=abc123"
var (
	Version   = "0.1.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// BuildInfo is the machine-readable form printed by `schemagate version --format json`
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Get returns the build info. When no commit was stamped by ldflags, the VCS
// revision recorded by the Go toolchain is used if present.
func Get() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info.Commit != "unknown" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.Commit = s.Value
			case "vcs.time":
				if info.BuildDate == "unknown" {
					info.BuildDate = s.Value
				}
			}
		}
	}
	return info
}

// Info returns "VERSION" or "VERSION (short commit)".
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns the multi-line human form.
func Full() string {
	b := Get()
	return fmt.Sprintf("schemagate version %s\nCommit: %s\nBuilt: %s\nGo: %s (%s)",
		b.Version, b.Commit, b.BuildDate, b.GoVersion, b.Platform)
}
