package cached

import (
	stderrors "errors"

	"github.com/go-playground/validator/v10"

	"github.com/glorpus-work/gdown/pkg/checksum"
	"github.com/glorpus-work/gdown/pkg/download"
	"github.com/glorpus-work/gdown/pkg/errors"
	"github.com/glorpus-work/gdown/pkg/postprocess"
)

// Request describes one cached download.
type Request struct {
	// URL is the source and, unless Path is set, the cache key.
	URL string `validate:"required"`
	// Path is an explicit destination. Empty means the cache entry for URL.
	Path string
	// MD5 is the expected lowercase hex digest. Empty disables verification.
	MD5 string `validate:"omitempty,len=32"`
	// Quiet suppresses informational output and warnings.
	Quiet bool
	// Force downloads even when a usable file already exists. The existing
	// file is only replaced once the new one is complete.
	Force bool
	// Postprocess runs on the final path after verification.
	Postprocess postprocess.Action
	// Transport tunes the underlying transfer.
	Transport download.Options
}

// validate checks the request shape before anything touches the disk.
func validate(v *validator.Validate, req Request) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.ErrInvalidArgument, err.Error())
	}
	for _, fe := range verrs {
		if fe.Field() == "MD5" {
			return &checksum.InvalidArgumentError{Value: req.MD5}
		}
	}
	if req.URL == "" {
		return errors.ErrEmptySource
	}
	return errors.Wrap(errors.ErrInvalidArgument, verrs.Error())
}
