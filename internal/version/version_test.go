package version

import (
	"runtime"
	"strings"
	"testing"

	"golang.org/x/mod/semver"
)

func TestInfo(t *testing.T) {
	origVersion, origCommit := Version, Commit
	defer func() {
		Version, Commit = origVersion, origCommit
	}()

	tests := []struct {
		name    string
		version string
		commit  string
		want    string
	}{
		{"unknown commit", "1.0.0", "unknown", "1.0.0"},
		{"short commit", "1.0.0", "abc", "1.0.0"},
		{"exactly 7 char commit", "2.0.0", "1234567", "2.0.0"},
		{"full commit hash", "1.0.0", "abc1234567890", "1.0.0 (abc1234)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, Commit = tt.version, tt.commit
			if got := Info(); got != tt.want {
				t.Errorf("Info() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetAndFull(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, BuildDate
	defer func() {
		Version, Commit, BuildDate = origVersion, origCommit, origDate
	}()

	Version, Commit, BuildDate = "1.2.3", "abcdef123456", "2026-01-15"

	b := Get()
	if b.Commit != "abcdef123456" || b.BuildDate != "2026-01-15" {
		t.Errorf("Get() = %+v, stamped values must win", b)
	}
	if b.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %s", b.GoVersion)
	}

	got := Full()
	for _, part := range []string{"schemagate version 1.2.3", "Commit: abcdef123456", "Built: 2026-01-15"} {
		if !strings.Contains(got, part) {
			t.Errorf("Full() = %q, want to contain %q", got, part)
		}
	}
}

func TestDefaultVersionIsSemver(t *testing.T) {
	if !semver.IsValid("v" + Version) {
		t.Errorf("Version %q is not semver", Version)
	}
}
