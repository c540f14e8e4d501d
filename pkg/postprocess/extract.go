package postprocess

import (
	"context"
	"path/filepath"

	"github.com/glorpus-work/gdown/internal/logger"
	"github.com/glorpus-work/gdown/pkg/archive"
	"github.com/glorpus-work/gdown/pkg/errors"
)

// Extract returns an action that unpacks the downloaded archive into to, or
// next to the archive when to is empty. report, when set, receives the
// extracted file paths.
func Extract(to string, report func(files []string)) Action {
	am := archive.NewManager()
	return func(ctx context.Context, path string) error {
		dest := to
		if dest == "" {
			dest = filepath.Dir(path)
		}

		files, err := am.ExtractAll(ctx, path, dest)
		if err != nil {
			return errors.Wrapf(errors.ErrPostprocess, "extract %s: %v", path, err)
		}

		logger.Debug("Extracted archive", logger.Fields{"archive": path, "dest": dest, "files": len(files)})
		if report != nil {
			report(files)
		}
		return nil
	}
}
