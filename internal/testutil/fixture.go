// Package testutil provides schema fixtures and golden-file helpers for tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"schemagate/internal/schema"
)

// SchemaPath returns the absolute path of a fixture under testdata/schemas.
func SchemaPath(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(testdataRoot(t), "schemas", name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Schema fixture not found: %s", path)
	}
	return path
}

// LoadSchema parses a fixture under testdata/schemas, failing the test on error.
func LoadSchema(t *testing.T, name string) *schema.Document {
	t.Helper()
	doc, err := schema.ParseFile(SchemaPath(t, name))
	if err != nil {
		t.Fatalf("Failed to parse fixture %s: %v", name, err)
	}
	return doc
}

// testdataRoot returns the absolute path to the project's testdata directory.
func testdataRoot(t *testing.T) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// internal/testutil -> project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	root := filepath.Join(projectRoot, "testdata")
	if _, err := os.Stat(root); os.IsNotExist(err) {
		t.Fatalf("testdata root not found: %s", root)
	}
	return root
}
