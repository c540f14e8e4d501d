package checksum

import (
	"fmt"

	"github.com/glorpus-work/gdown/pkg/errors"
)

// InvalidArgumentError is returned when an expected digest is malformed.
type InvalidArgumentError struct {
	Value string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("MD5 must be %d chars: %q", DigestLength, e.Value)
}

func (e *InvalidArgumentError) Unwrap() error {
	return errors.ErrInvalidArgument
}

// IntegrityError reports a digest mismatch for a file.
type IntegrityError struct {
	Path     string
	Actual   string
	Expected string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("MD5 doesn't match:\nactual: %s\nexpected: %s", e.Actual, e.Expected)
}

func (e *IntegrityError) Unwrap() error {
	return errors.ErrFileHashMismatch
}
