package cache

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/glorpus-work/gdown/pkg/errors"
	"github.com/glorpus-work/gdown/pkg/lock"
)

// DefaultManager implements the Manager interface over a Root.
type DefaultManager struct {
	root  *Root
	guard lock.Guard
	now   func() time.Time
}

// NewManager creates a new cache manager. Cleaning holds a FileGuard on the
// root's lock file, the same lock downloads hold while moving into place.
func NewManager(root *Root) *DefaultManager {
	return NewManagerWithGuard(root, lock.NewFileGuard(root.LockPath()))
}

// NewManagerWithGuard creates a cache manager cleaning under guard.
func NewManagerWithGuard(root *Root, guard lock.Guard) *DefaultManager {
	return &DefaultManager{root: root, guard: guard, now: time.Now}
}

// GetDirectory returns the cache directory path.
func (cm *DefaultManager) GetDirectory() string {
	return cm.root.Dir()
}

// Clean removes cache entries and/or staging directories according to options.
// The lock file is never removed. Removal happens under the guard so it
// cannot interleave with a download moving a file into place.
func (cm *DefaultManager) Clean(ctx context.Context, options CleanOptions) (*CleanResult, error) {
	if !options.Entries && !options.Staging {
		options.All = true
	}

	dirEntries, err := cm.list()
	if err != nil {
		return nil, errors.Wrap(ErrCacheClean, err.Error())
	}
	if len(dirEntries) == 0 {
		return &CleanResult{}, nil
	}

	var result *CleanResult
	err = cm.guard.Do(ctx, func() error {
		var cleanErr error
		result, cleanErr = cm.clean(options)
		return cleanErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (cm *DefaultManager) clean(options CleanOptions) (*CleanResult, error) {
	result := &CleanResult{}
	dirEntries, err := cm.list()
	if err != nil {
		return nil, errors.Wrap(ErrCacheClean, err.Error())
	}

	for _, d := range dirEntries {
		path := filepath.Join(cm.root.Dir(), d.Name())
		switch {
		case d.Name() == LockFileName:
			continue
		case d.IsDir() && IsStagingDir(d.Name()):
			if !(options.All || options.Staging) || !cm.oldEnough(d, options.StagingOlderThan) {
				continue
			}
			size, _, err := dirSizeAndFiles(path)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to size staging directory %s", path)
			}
			if err := os.RemoveAll(path); err != nil {
				return nil, errors.Wrapf(err, "failed to remove staging directory %s", path)
			}
			result.StagingFreed += size
			result.StagingDirs++
		case d.Type().IsRegular():
			if !(options.All || options.Entries) {
				continue
			}
			info, err := d.Info()
			if err != nil {
				return nil, errors.Wrapf(err, "failed to stat entry %s", path)
			}
			if err := os.Remove(path); err != nil {
				return nil, errors.Wrapf(err, "failed to remove entry %s", path)
			}
			result.EntryFreed += info.Size()
			result.EntryFiles++
		}
	}

	result.TotalFreed = result.EntryFreed + result.StagingFreed
	return result, nil
}

// GetInfo returns information about the cache.
func (cm *DefaultManager) GetInfo() (*Info, error) {
	info := &Info{Directory: cm.root.Dir()}

	dirEntries, err := cm.list()
	if err != nil {
		return nil, errors.Wrap(ErrCacheInfo, err.Error())
	}

	for _, d := range dirEntries {
		path := filepath.Join(cm.root.Dir(), d.Name())
		switch {
		case d.Name() == LockFileName:
			continue
		case d.IsDir() && IsStagingDir(d.Name()):
			size, _, err := dirSizeAndFiles(path)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to size staging directory %s", path)
			}
			info.StagingSize += size
			info.StagingDirs++
		case d.Type().IsRegular():
			fi, err := d.Info()
			if err != nil {
				return nil, errors.Wrapf(err, "failed to stat entry %s", path)
			}
			info.EntrySize += fi.Size()
			info.EntryFiles++
		}
	}

	info.TotalSize = info.EntrySize + info.StagingSize
	return info, nil
}

// list returns the top-level cache directory entries; a missing root is empty.
func (cm *DefaultManager) list() ([]os.DirEntry, error) {
	entries, err := os.ReadDir(cm.root.Dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}

func (cm *DefaultManager) oldEnough(d os.DirEntry, minAge time.Duration) bool {
	if minAge <= 0 {
		return true
	}
	info, err := d.Info()
	if err != nil {
		return false
	}
	return cm.now().Sub(info.ModTime()) >= minAge
}

// dirSizeAndFiles calculates directory size and file count.
func dirSizeAndFiles(dir string) (size int64, count int, err error) {
	err = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		count++
		return nil
	})
	if err != nil {
		err = errors.Wrapf(err, "error walking directory %s", dir)
	}
	return size, count, err
}
