package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
)

// Move moves the regular file src to dst, replacing dst if it exists.
// It tries an atomic os.Rename first and falls back to copy + delete when
// src and dst live on different filesystems.
func Move(src, dst string) error {
	if src == "" || dst == "" {
		return fmt.Errorf("source and destination paths cannot be empty")
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source %s: %w", src, err)
	}
	if srcInfo.IsDir() {
		return fmt.Errorf("source %s is a directory", src)
	}

	err = os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossFilesystemError(err) {
		return fmt.Errorf("failed to rename %s to %s: %w", src, dst, err)
	}
	return moveFile(src, dst, srcInfo)
}

// isCrossFilesystemError reports whether a rename failed with EXDEV.
func isCrossFilesystemError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.EXDEV)
}

// moveFile copies src next to dst and renames it into place so dst is never
// observed half-written, then removes src.
func moveFile(src, dst string, srcInfo os.FileInfo) error {
	tmp := dst + ".moving"
	if err := Copy(src, tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to copy file %s to %s: %w", src, dst, err)
	}
	if err := os.Chmod(tmp, srcInfo.Mode()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to set permissions on %s: %w", dst, err)
	}
	if err := os.Chtimes(tmp, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to set modification time on %s: %w", dst, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to place %s: %w", dst, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove source file %s after copy: %w", src, err)
	}
	return nil
}

// Copy copies the contents of srcFile to dstFile.
func Copy(srcFile, dstFile string) error {
	src, err := os.Open(srcFile)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", srcFile, err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(dstFile)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dstFile, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to copy from %s to %s: %w", srcFile, dstFile, err)
	}
	return dst.Close()
}

// CreateFilePerm creates a new file with the specified permissions.
func CreateFilePerm(name string, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
}
