// Package lock provides the mutual-exclusion guard used while moving
// finished downloads into the cache.
package lock

//go:generate mockgen -destination=./mocks/guard.go -package=mocks . Guard

import (
	"context"
	"time"

	"github.com/gofrs/flock"

	"github.com/glorpus-work/gdown/pkg/errors"
)

// DefaultRetryDelay is how long FileGuard waits between lock attempts.
const DefaultRetryDelay = 50 * time.Millisecond

// Guard is a named mutual-exclusion scope.
type Guard interface {
	// Do runs fn while holding the guard. It blocks until the guard is
	// acquired or ctx is done.
	Do(ctx context.Context, fn func() error) error
}

// FileGuard is a Guard backed by an advisory lock on a file, so it excludes
// other processes as well as other goroutines.
type FileGuard struct {
	path       string
	retryDelay time.Duration
}

// NewFileGuard returns a FileGuard on the lock file at path. The file is
// created on first acquisition; its parent directory must exist.
func NewFileGuard(path string) *FileGuard {
	return &FileGuard{path: path, retryDelay: DefaultRetryDelay}
}

// Path returns the lock file path.
func (g *FileGuard) Path() string {
	return g.path
}

// Do implements Guard.
func (g *FileGuard) Do(ctx context.Context, fn func() error) error {
	// A fresh handle per call: flock handles are not reentrant across goroutines.
	fl := flock.New(g.path)

	locked, err := fl.TryLockContext(ctx, g.retryDelay)
	if err != nil {
		return errors.Wrapf(errors.ErrLockFailed, "%s: %v", g.path, err)
	}
	if !locked {
		return errors.Wrapf(errors.ErrLockFailed, "%s", g.path)
	}
	defer func() { _ = fl.Unlock() }()

	return fn()
}

// Nop is a Guard that provides no exclusion. It suits single-process tools
// and tests.
type Nop struct{}

// Do implements Guard.
func (Nop) Do(_ context.Context, fn func() error) error {
	return fn()
}
