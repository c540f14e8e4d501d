// Package archive extracts downloaded archives (zip, tar and compressed tar
// variants) and creates tar.gz archives.
package archive

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"github.com/glorpus-work/gdown/pkg/fsutil"
)

// ErrNotArchive is returned when a file is not a recognised archive.
var ErrNotArchive = fmt.Errorf("not a supported archive")

// ErrUnsafePath is returned for archive entries escaping the destination.
var ErrUnsafePath = fmt.Errorf("archive entry escapes destination")

// Manager handles archive extraction and creation operations.
type Manager struct{}

// NewManager creates a new Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// ExtractAll extracts every entry of archivePath into destDir and returns
// the paths of the extracted files, in archive order.
func (am *Manager) ExtractAll(ctx context.Context, archivePath, destDir string) ([]string, error) {
	if err := identify(ctx, archivePath); err != nil {
		return nil, err
	}

	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive file: %w", err)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := os.MkdirAll(destDir, fsutil.DirModeDefault); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	var extracted []string
	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := am.extractEntry(fsys, path, destDir, d)
		if err != nil {
			return err
		}
		if target != "" {
			extracted = append(extracted, target)
		}
		return nil
	}

	if err := fs.WalkDir(fsys, ".", walkFn); err != nil {
		return extracted, err
	}
	return extracted, nil
}

// IsArchive reports whether path is an archive ExtractAll can handle.
func IsArchive(ctx context.Context, path string) bool {
	return identify(ctx, path) == nil
}

// Create creates a tar.gz archive from the specified source directory.
func (am *Manager) Create(ctx context.Context, sourceDir, archivePath string) error {
	absolutePath, err := filepath.Abs(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for source directory: %w", err)
	}

	archiveFiles, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		absolutePath + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("failed to read files from disk: %w", err)
	}

	file, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", archivePath, err)
	}
	defer func() {
		_ = file.Sync()
		_ = file.Close()
	}()

	format := archives.CompressedArchive{
		Compression: archives.Gz{},
		Archival:    archives.Tar{},
	}
	if err := format.Archive(ctx, file, archiveFiles); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	return nil
}

// identify fails with ErrNotArchive unless path holds an extractable archive.
func identify(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive file: %w", err)
	}
	defer func() { _ = f.Close() }()

	format, _, err := archives.Identify(ctx, filepath.Base(path), f)
	if err != nil {
		if stderrors.Is(err, archives.NoMatch) {
			return fmt.Errorf("%w: %s", ErrNotArchive, path)
		}
		return fmt.Errorf("failed to identify archive %s: %w", path, err)
	}
	if _, ok := format.(archives.Extractor); !ok {
		return fmt.Errorf("%w: %s", ErrNotArchive, path)
	}
	return nil
}

// extractEntry writes one archive entry below destDir. It returns the
// written file path, or "" for directories.
func (am *Manager) extractEntry(fsys fs.FS, path, destDir string, d fs.DirEntry) (string, error) {
	if path == "." {
		return "", nil
	}

	targetPath := filepath.Join(destDir, filepath.FromSlash(path))
	if !within(destDir, targetPath) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, path)
	}

	if d.IsDir() {
		return "", os.MkdirAll(targetPath, fsutil.DirModeDefault)
	}

	info, err := d.Info()
	if err != nil {
		return "", fmt.Errorf("failed to get file info for %s: %w", path, err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return targetPath, am.writeSymlink(fsys, path, targetPath)
	}
	return targetPath, am.writeRegularFile(fsys, path, targetPath, info)
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

func (am *Manager) writeSymlink(fsys fs.FS, path, targetPath string) error {
	linkTarget, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read symlink %s: %w", path, err)
	}
	defer func() { _ = linkTarget.Close() }()

	targetBytes, err := io.ReadAll(linkTarget)
	if err != nil {
		return fmt.Errorf("failed to read symlink target %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("failed to create parent directory for symlink %s: %w", path, err)
	}

	_ = os.Remove(targetPath)
	return os.Symlink(string(targetBytes), targetPath)
}

func (am *Manager) writeRegularFile(fsys fs.FS, path, targetPath string, info fs.FileInfo) error {
	srcFile, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", path, err)
	}
	defer func() { _ = srcFile.Close() }()

	if err := os.MkdirAll(filepath.Dir(targetPath), fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}

	dstFile, err := fsutil.CreateFilePerm(targetPath, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", targetPath, err)
	}
	defer func() { _ = dstFile.Close() }()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file %s: %w", path, err)
	}

	if err := os.Chmod(targetPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set permissions for %s: %w", targetPath, err)
	}
	if err := os.Chtimes(targetPath, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to set modification time for %s: %w", targetPath, err)
	}
	return nil
}
