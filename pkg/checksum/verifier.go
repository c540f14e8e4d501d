package checksum

import (
	"fmt"
	"io"

	"github.com/glorpus-work/gdown/pkg/errors"
	"github.com/glorpus-work/gdown/pkg/fsutil"
)

// State is the outcome of checking a path against an expected digest.
type State int

const (
	// Missing means nothing exists at the path.
	Missing State = iota
	// Valid means the file exists and its digest matches.
	Valid
	// Mismatched means the file exists but its digest differs.
	Mismatched
)

func (s State) String() string {
	switch s {
	case Valid:
		return "valid"
	case Mismatched:
		return "mismatched"
	default:
		return "missing"
	}
}

// Verifier compares files against expected MD5 digests. Progress notices go
// to Out unless Quiet is set.
type Verifier struct {
	Out       io.Writer
	Quiet     bool
	BlockSize int
}

// ValidateDigest checks that expected has the shape of an MD5 hex digest.
func ValidateDigest(expected string) error {
	if len(expected) != DigestLength {
		return &InvalidArgumentError{Value: expected}
	}
	return nil
}

// Verify hashes path and compares the result with expected. It returns an
// *InvalidArgumentError before touching the disk when expected is malformed
// and an *IntegrityError on mismatch.
func (v *Verifier) Verify(path, expected string) error {
	if err := ValidateDigest(expected); err != nil {
		return err
	}

	v.printf("Computing MD5: %s\n", path)
	actual, err := Sum(path, v.BlockSize)
	if err != nil {
		return err
	}

	if actual != expected {
		return &IntegrityError{Path: path, Actual: actual, Expected: expected}
	}

	v.printf("MD5 matches: %s\n", path)
	return nil
}

// Check classifies path as Missing, Valid or Mismatched. Only a mismatch is
// reported through the State; I/O and argument failures are returned as errors.
func (v *Verifier) Check(path, expected string) (State, error) {
	if err := ValidateDigest(expected); err != nil {
		return Missing, err
	}

	exists, err := fsutil.Exists(path)
	if err != nil {
		return Missing, errors.Wrapf(fmt.Errorf("%w: %w", errors.ErrIO, err), "stat %s", path)
	}
	if !exists {
		return Missing, nil
	}

	err = v.Verify(path, expected)
	switch {
	case err == nil:
		return Valid, nil
	case isIntegrityError(err):
		return Mismatched, err
	default:
		return Missing, err
	}
}

func (v *Verifier) printf(format string, args ...interface{}) {
	if v.Quiet || v.Out == nil {
		return
	}
	_, _ = fmt.Fprintf(v.Out, format, args...)
}

func isIntegrityError(err error) bool {
	_, ok := err.(*IntegrityError)
	return ok
}
