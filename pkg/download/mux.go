package download

import (
	"context"
	"net/url"
	"strings"

	"github.com/glorpus-work/gdown/pkg/errors"
)

// Mux dispatches downloads to a transport by URL scheme.
type Mux struct {
	transports map[string]Transport
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{transports: make(map[string]Transport)}
}

// NewDefaultMux returns a Mux serving http(s) with an HTTPTransport and the
// blob schemes with a BlobTransport.
func NewDefaultMux(httpTransport *HTTPTransport) *Mux {
	m := NewMux()
	m.Handle(httpTransport, "http", "https")
	m.Handle(NewBlobTransport(), "file", "gs", "s3")
	return m
}

// Handle registers t for the given schemes.
func (m *Mux) Handle(t Transport, schemes ...string) {
	for _, s := range schemes {
		m.transports[strings.ToLower(s)] = t
	}
}

// Download implements Transport.
func (m *Mux) Download(ctx context.Context, source, dest string, opts Options) error {
	u, err := url.Parse(source)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidArgument, "source %q: %v", source, err)
	}
	t, ok := m.transports[strings.ToLower(u.Scheme)]
	if !ok {
		return errors.ErrUnsupportedSchemeWithName(u.Scheme)
	}
	return t.Download(ctx, source, dest, opts)
}
