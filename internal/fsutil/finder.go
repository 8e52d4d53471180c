// Package fsutil provides file system utility functions.
package fsutil

import (
	"os"
	"path/filepath"
	"strings"
)

// HasGlob reports whether path contains glob metacharacters.
func HasGlob(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

// Exists reports whether path exists. A path with glob metacharacters exists
// if it matches at least one file.
func Exists(path string) bool {
	if path == "" {
		return false
	}

	if HasGlob(path) {
		matches, err := filepath.Glob(path)

		return err == nil && len(matches) > 0
	}

	_, err := os.Stat(path)

	return err == nil
}

// IsDir reports whether path is an existing directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

// Abs joins a relative path to base. Absolute paths are returned cleaned.
func Abs(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(base, path)
}
