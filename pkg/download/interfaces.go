// Package download fetches a source URL into a local file. A transport
// either writes the complete file at the destination or leaves nothing
// behind.
package download

//go:generate mockgen -destination=./mocks/transport.go -package=mocks . Transport

import (
	"context"
	"time"
)

// Transport fetches source into dest.
type Transport interface {
	// Download writes the content of source to dest. On error dest is not
	// created. The error is a *TransportError for transfer failures.
	Download(ctx context.Context, source, dest string, opts Options) error
}

// Options tune a single transfer.
type Options struct {
	// Quiet disables progress logging.
	Quiet bool
	// Proxy is an HTTP proxy URL; empty uses the environment.
	Proxy string
	// SpeedLimit caps the transfer rate in bytes per second; 0 is unlimited.
	SpeedLimit int64
	// UserAgent overrides the transport's default user agent.
	UserAgent string
}

const (
	// DefaultTimeout bounds connection setup and response headers.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent when no other user agent is configured.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) gdown"

	// maxConfirmations bounds how many Drive confirmation pages are followed.
	maxConfirmations = 5
)
