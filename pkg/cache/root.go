// Package cache owns the on-disk layout of the gdown cache: the root
// directory, URL-derived entry names, per-download staging directories and
// the lock file.
package cache

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/glorpus-work/gdown/internal/logger"
	"github.com/glorpus-work/gdown/pkg/errors"
	"github.com/glorpus-work/gdown/pkg/fsutil"
)

// Root is a cache root directory. The directory is created lazily, once,
// the first time something needs it.
type Root struct {
	dir  string
	once sync.Once
}

// NewRoot returns a Root for dir. Nothing is created on disk.
func NewRoot(dir string) *Root {
	return &Root{dir: dir}
}

// Dir returns the root directory path.
func (r *Root) Dir() string {
	return r.dir
}

// Ensure creates the root directory on first use. Failures are logged and
// otherwise ignored: the directory may be created by someone else, and any
// real problem resurfaces at the first write.
func (r *Root) Ensure() string {
	r.once.Do(func() {
		if err := os.MkdirAll(r.dir, fsutil.DirModeDefault); err != nil {
			logger.Debug("Could not create cache root", logger.Fields{"dir": r.dir, "error": err})
		}
	})
	return r.dir
}

// EncodeURL turns a URL into a single filesystem-safe path element by
// replacing reserved characters with textual tokens. Distinct URLs that
// encode identically share a cache entry.
func EncodeURL(url string) string {
	name := url
	for _, r := range urlReplacements {
		name = strings.ReplaceAll(name, r.old, r.new)
	}
	return name
}

// EntryPath returns the cache entry path for url.
func (r *Root) EntryPath(url string) string {
	return filepath.Join(r.dir, EncodeURL(url))
}

// LockPath returns the path of the lock file guarding moves into the cache.
func (r *Root) LockPath() string {
	return filepath.Join(r.dir, LockFileName)
}

// NewStagingDir creates a fresh, uniquely named staging directory under the root.
func (r *Root) NewStagingDir() (string, error) {
	r.Ensure()
	dir := filepath.Join(r.dir, StagingPrefix+uuid.NewString())
	if err := os.Mkdir(dir, fsutil.DirModePrivate); err != nil {
		return "", errors.Wrapf(ErrStaging, "%s: %v", dir, err)
	}
	return dir, nil
}

// StagedFile returns the path of the in-progress download inside stagingDir.
func StagedFile(stagingDir string) string {
	return filepath.Join(stagingDir, StagedFileName)
}

// IsStagingDir reports whether name looks like a staging directory name.
func IsStagingDir(name string) bool {
	return strings.HasPrefix(name, StagingPrefix)
}
