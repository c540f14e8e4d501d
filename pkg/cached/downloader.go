// Package cached downloads files into a local cache, skipping the transfer
// when a usable copy is already present and verifying integrity when a
// digest is given.
package cached

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/glorpus-work/gdown/internal/logger"
	"github.com/glorpus-work/gdown/pkg/cache"
	"github.com/glorpus-work/gdown/pkg/checksum"
	"github.com/glorpus-work/gdown/pkg/download"
	"github.com/glorpus-work/gdown/pkg/errors"
	"github.com/glorpus-work/gdown/pkg/fsutil"
	"github.com/glorpus-work/gdown/pkg/lock"
)

// Downloader coordinates cached downloads under one cache root.
type Downloader struct {
	root      *cache.Root
	transport download.Transport
	guard     lock.Guard
	stdout    io.Writer
	stderr    io.Writer
	log       *logrus.Entry
	validate  *validator.Validate
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithGuard replaces the lock guarding moves into the cache. The default is
// a FileGuard on the root's lock file.
func WithGuard(g lock.Guard) Option {
	return func(d *Downloader) { d.guard = g }
}

// WithOutput sets the streams for informational messages and warnings.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(d *Downloader) {
		d.stdout = stdout
		d.stderr = stderr
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *logrus.Entry) Option {
	return func(d *Downloader) { d.log = l }
}

// New creates a Downloader storing entries under root and fetching through
// transport.
func New(root *cache.Root, transport download.Transport, opts ...Option) *Downloader {
	d := &Downloader{
		root:      root,
		transport: transport,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.guard == nil {
		d.guard = lock.NewFileGuard(root.LockPath())
	}
	if d.log == nil {
		d.log = logger.WithFields(logger.Fields{"component": "cached"})
	}
	return d
}

// Root returns the cache root.
func (d *Downloader) Root() *cache.Root {
	return d.root
}

// Download makes req.URL available locally and returns its path.
//
// An existing file is reused as is when no digest is requested, or after it
// verifies against req.MD5, unless req.Force is set. A mismatching file is
// reported and replaced.
// New content is staged in a private directory under the cache root and
// moved into place while holding the guard, so concurrent callers never
// observe a partial file. The final file is verified again and handed to
// req.Postprocess.
func (d *Downloader) Download(ctx context.Context, req Request) (string, error) {
	if err := validate(d.validate, req); err != nil {
		return "", err
	}

	path := req.Path
	if path == "" {
		path = d.root.EntryPath(req.URL)
	}
	log := d.log.WithFields(logrus.Fields{"url": req.URL, "path": path})

	verifier := &checksum.Verifier{Out: d.stdout, Quiet: req.Quiet}

	state := EntryMissing
	var err error
	if req.Force {
		log.Debug("Forced download, ignoring existing file")
	} else {
		state, err = d.inspect(verifier, path, req.MD5)
	}
	switch state {
	case EntryTrusted:
		log.Debug("Cache hit")
		d.printf(d.stdout, req.Quiet, "File exists: %s\n", path)
		return path, nil
	case EntryValid:
		log.Debug("Cache hit, digest verified")
		return path, nil
	case EntryMismatched:
		log.WithError(err).Info("Cached file is corrupt, downloading again")
		d.printf(d.stderr, req.Quiet, "%v\n", err)
	case EntryMissing:
		if err != nil {
			return "", err
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := fsutil.EnsureParentDir(path); err != nil {
		return "", errors.Wrapf(errors.ErrIO, "create parent directory of %s: %v", path, err)
	}

	if err := d.fetch(ctx, req, path, log); err != nil {
		return "", err
	}

	if req.MD5 != "" {
		if err := verifier.Verify(path, req.MD5); err != nil {
			return "", err
		}
	}

	if req.Postprocess != nil {
		log.Debug("Running postprocess")
		if err := req.Postprocess(ctx, path); err != nil {
			return "", err
		}
	}

	return path, nil
}

// inspect classifies the destination. For EntryMismatched the returned
// error is the integrity error to report; for EntryMissing a non-nil error
// is fatal.
func (d *Downloader) inspect(verifier *checksum.Verifier, path, md5 string) (EntryState, error) {
	if md5 == "" {
		exists, err := fsutil.Exists(path)
		if err != nil {
			return EntryMissing, errors.Wrapf(errors.ErrIO, "stat %s: %v", path, err)
		}
		if exists {
			return EntryTrusted, nil
		}
		return EntryMissing, nil
	}

	state, err := verifier.Check(path, md5)
	switch state {
	case checksum.Valid:
		return EntryValid, nil
	case checksum.Mismatched:
		return EntryMismatched, err
	default:
		return EntryMissing, err
	}
}

// fetch downloads into a fresh staging directory and moves the result to
// path under the guard. The staging directory is removed on every exit.
func (d *Downloader) fetch(ctx context.Context, req Request, path string, log *logrus.Entry) error {
	staging, err := d.root.NewStagingDir()
	if err != nil {
		return err
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			log.WithError(err).WithField("staging", staging).Warn("Failed to remove staging directory")
		}
	}()

	d.printf(d.stderr, req.Quiet, "Cached Downloading: %s\n", path)

	opts := req.Transport
	opts.Quiet = opts.Quiet || req.Quiet
	staged := cache.StagedFile(staging)

	log.WithField("staging", staging).Debug("Downloading")
	if err := d.transport.Download(ctx, req.URL, staged, opts); err != nil {
		return err
	}

	return d.guard.Do(ctx, func() error {
		if err := fsutil.Move(staged, path); err != nil {
			return errors.Wrapf(errors.ErrIO, "move %s to %s: %v", staged, filepath.Clean(path), err)
		}
		log.Debug("Moved into place")
		return nil
	})
}

func (d *Downloader) printf(w io.Writer, quiet bool, format string, args ...interface{}) {
	if quiet || w == nil {
		return
	}
	_, _ = fmt.Fprintf(w, format, args...)
}
