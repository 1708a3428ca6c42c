// Package fileutil provides the file capability used by the rendering
// pipeline: staging-file reads and writes, directory creation, and
// best-effort deletion.
package fileutil

import (
	"errors"
	"fmt"
	"os"
)

// Sentinel errors for file operations.
var (
	ErrNoDirs = errors.New("no directories provided")
)

// ReadFile reads the file at path. The caller maps os.ErrNotExist to its
// own not-found error.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- paths come from service configuration
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// WriteFile writes data to path with 0644 permissions.
func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- staged HTML is world-readable by design
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// EnsureDirs creates every directory in dirs, including parents.
// Empty entries are skipped.
func EnsureDirs(dirs ...string) error {
	if len(dirs) == 0 {
		return ErrNoDirs
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}

// Remove deletes the file at path. A missing file is a no-op.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing file: %w", err)
	}
	return nil
}

// Exists returns true if the path exists and is a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
