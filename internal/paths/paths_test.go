package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureDataDir(t *testing.T) {
	root := t.TempDir()

	dir, err := EnsureDataDir(root)
	if err != nil {
		t.Fatalf("EnsureDataDir() error = %v", err)
	}
	if dir != filepath.Join(root, ".schemagate") {
		t.Errorf("dir = %q", dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("data dir not created: %v", err)
	}

	// Idempotent
	if _, err := EnsureDataDir(root); err != nil {
		t.Errorf("second EnsureDataDir() error = %v", err)
	}
}

func TestResolveStorageDir(t *testing.T) {
	root := filepath.FromSlash("/work/project")
	abs := filepath.FromSlash("/var/lib/schemagate")

	tests := []struct {
		name       string
		configured string
		want       string
	}{
		{"empty", "", filepath.Join(root, ".schemagate")},
		{"relative", "state", filepath.Join(root, "state")},
		{"absolute", abs, abs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveStorageDir(root, tt.configured); got != tt.want {
				t.Errorf("ResolveStorageDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "schemas", "order")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(nested, "v1.json")
	if err := os.WriteFile(file, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(file, root)
	if err != nil {
		t.Fatalf("CanonicalizePath() error = %v", err)
	}
	if got != "schemas/order/v1.json" {
		t.Errorf("CanonicalizePath() = %q", got)
	}

	missing, err := CanonicalizePath(filepath.Join(root, "schemas", "v2.json"), root)
	if err != nil {
		t.Fatalf("CanonicalizePath() on missing file error = %v", err)
	}
	if missing != "schemas/v2.json" {
		t.Errorf("CanonicalizePath() = %q", missing)
	}
}

func TestIsWithinRoot(t *testing.T) {
	root := t.TempDir()

	if !IsWithinRoot(filepath.Join(root, "a.json"), root) {
		t.Error("file under root should be within root")
	}
	if IsWithinRoot(filepath.Dir(root), root) {
		t.Error("parent of root should not be within root")
	}
}

func TestJoinRoot(t *testing.T) {
	root := filepath.FromSlash("/work")
	if got := JoinRoot(root, "schemas/order/v1.json"); got != filepath.Join(root, "schemas", "order", "v1.json") {
		t.Errorf("JoinRoot() = %q", got)
	}
	abs := filepath.Join(root, "x.json")
	if got := JoinRoot(root, abs); got != abs {
		t.Errorf("JoinRoot() with absolute = %q", got)
	}
}
