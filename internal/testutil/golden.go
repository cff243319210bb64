package testutil

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// updateGolden rewrites golden files instead of comparing.
// Use: go test ./... -run TestGolden -update
var updateGolden = flag.Bool("update", false, "update golden files")

// ShouldUpdate returns true if golden files should be updated.
func ShouldUpdate() bool {
	return *updateGolden
}

// GoldenPath returns the path of testdata/golden/<name>.json.
func GoldenPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testdataRoot(t), "golden", name+".json")
}

// CompareGolden normalizes got and compares it with the golden file. The
// comparison is on decoded JSON values, so key order and whitespace in the
// file do not matter. With -update the file is rewritten instead.
func CompareGolden(t *testing.T, name string, got any) {
	t.Helper()

	normalized := MarshalNormalized(t, got)
	path := GoldenPath(t, name)

	if *updateGolden {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(path, normalized, 0o644); err != nil {
			t.Fatalf("Failed to write golden file: %v", err)
		}
		t.Logf("Updated golden: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Golden file missing: %s\n\nGot:\n%s\n\nRun with -update to create:\n  go test ./... -run %s -update",
				path, normalized, t.Name())
		}
		t.Fatalf("Failed to read golden file: %v", err)
	}

	var want, have any
	if err := json.Unmarshal(expected, &want); err != nil {
		t.Fatalf("Golden file %s is not valid JSON: %v", path, err)
	}
	if err := json.Unmarshal(normalized, &have); err != nil {
		t.Fatalf("Failed to decode normalized output: %v", err)
	}
	if diff := cmp.Diff(want, have); diff != "" {
		t.Fatalf("Golden mismatch for %s (-want +got):\n%s\nRun with -update to refresh:\n  go test ./... -run %s -update",
			name, diff, t.Name())
	}
}
