// Package fsutil provides the filesystem helpers gdown needs around its cache:
// tolerant directory creation, cross-device safe moves and well-known paths.
package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// EnsureDir creates a directory and all necessary parent directories with
// DirModeDefault permissions if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, DirModeDefault)
}

// EnsureParentDir creates the parent directory of filePath. A concurrent
// creator winning the race ("already exists") is not an error; every other
// failure is returned.
func EnsureParentDir(filePath string) error {
	err := EnsureDir(filepath.Dir(filePath))
	if err != nil && errors.Is(err, fs.ErrExist) {
		return nil
	}
	return err
}

// Exists reports whether path exists. Stat errors other than "not exist"
// are returned so callers can tell a missing entry from an unreadable one.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
