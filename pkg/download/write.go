package download

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/glorpus-work/gdown/pkg/errors"
)

// writeFile streams body into a temp file next to dest and renames it into
// place once the whole body has arrived. The temp file is removed on any
// error. contentLength < 0 means unknown.
func writeFile(ctx context.Context, body io.Reader, contentLength int64, dest string, opts Options, log *logrus.Entry) error {
	body = &contextReader{ctx: ctx, r: body}
	if opts.SpeedLimit > 0 {
		body = newThrottledReader(ctx, body, opts.SpeedLimit)
	}

	file, err := os.CreateTemp(filepath.Dir(dest), ".gdown-*")
	if err != nil {
		return errors.Wrapf(errors.ErrIO, "create temp file: %v", err)
	}

	var successful bool
	defer func() {
		if err := file.Close(); err != nil && !stderrors.Is(err, os.ErrClosed) {
			log.WithError(err).Debug("closing temp file")
		}
		if !successful {
			if err := os.Remove(file.Name()); err != nil && !os.IsNotExist(err) {
				log.WithError(err).Warn("failed to remove temp file")
			}
		}
	}()

	var writer io.Writer = file
	if !opts.Quiet {
		writer = newProgressWriter(file, contentLength, log)
	}

	n, err := io.Copy(writer, body)
	if err != nil {
		return err
	}
	if contentLength >= 0 && n != contentLength {
		return errors.Wrapf(errors.ErrDownloadFailed, "expected %d bytes, got %d", contentLength, n)
	}

	if err := file.Sync(); err != nil {
		return errors.Wrapf(errors.ErrIO, "sync temp file: %v", err)
	}
	if err := file.Close(); err != nil {
		return errors.Wrapf(errors.ErrIO, "close temp file: %v", err)
	}
	if err := os.Rename(file.Name(), dest); err != nil {
		return errors.Wrapf(errors.ErrIO, "rename temp file: %v", err)
	}

	successful = true
	return nil
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
