package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DataDirName is the per-project directory holding config and history.
const DataDirName = ".schemagate"

// ManifestFileName is the default subject manifest name.
const ManifestFileName = "schemagate.toml"

// GetDataDir returns <root>/.schemagate without creating it.
func GetDataDir(root string) string {
	return filepath.Join(root, DataDirName)
}

// EnsureDataDir creates <root>/.schemagate if needed and returns it.
func EnsureDataDir(root string) (string, error) {
	dir := GetDataDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", DataDirName, err)
	}
	return dir, nil
}

// ResolveStorageDir resolves the configured storage path against root.
// Absolute paths are returned unchanged.
func ResolveStorageDir(root, configured string) string {
	if configured == "" {
		return GetDataDir(root)
	}
	if filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(root, configured)
}

// CanonicalizePath converts an absolute path to a root-relative path with
// forward slashes, resolving symlinks where the target exists.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = root
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithinRoot checks if a path is within root
func IsWithinRoot(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// JoinRoot joins root with a slash-separated manifest path.
func JoinRoot(root string, canonicalPath string) string {
	if filepath.IsAbs(canonicalPath) {
		return canonicalPath
	}
	normalized := strings.ReplaceAll(canonicalPath, "\\", "/")
	parts := strings.Split(normalized, "/")
	return filepath.Join(append([]string{root}, parts...)...)
}
