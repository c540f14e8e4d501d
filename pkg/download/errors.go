package download

import (
	"fmt"

	"github.com/glorpus-work/gdown/pkg/errors"
)

// TransportError describes a failed transfer. It unwraps to
// errors.ErrDownloadFailed and to the underlying cause, if any.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: unexpected status code %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{errors.ErrDownloadFailed}
	}
	return []error{errors.ErrDownloadFailed, e.Err}
}
