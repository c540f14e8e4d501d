package download

import (
	"context"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	"github.com/glorpus-work/gdown/internal/logger"
	"github.com/glorpus-work/gdown/pkg/errors"
)

// BucketOpener opens a bucket from a gocloud bucket URL.
type BucketOpener func(ctx context.Context, bucketURL string) (*blob.Bucket, error)

// BlobTransport downloads objects from gocloud blob stores: file://, gs://
// and s3://. The source names a single object.
type BlobTransport struct {
	open BucketOpener
}

// NewBlobTransport creates a blob transport using blob.OpenBucket.
func NewBlobTransport() *BlobTransport {
	return &BlobTransport{open: blob.OpenBucket}
}

// NewBlobTransportWithOpener creates a blob transport with a custom opener.
func NewBlobTransportWithOpener(open BucketOpener) *BlobTransport {
	return &BlobTransport{open: open}
}

// Download implements Transport.
func (t *BlobTransport) Download(ctx context.Context, source, dest string, opts Options) error {
	bucketURL, key, err := SplitObjectURL(source)
	if err != nil {
		return &TransportError{URL: source, Err: err}
	}

	bucket, err := t.open(ctx, bucketURL)
	if err != nil {
		return &TransportError{URL: source, Err: err}
	}
	defer func() { _ = bucket.Close() }()

	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return &TransportError{URL: source, StatusCode: http.StatusNotFound, Err: err}
		}
		return &TransportError{URL: source, Err: err}
	}
	defer func() { _ = r.Close() }()

	log := logger.WithFields(logger.Fields{"url": source, "dest": dest})
	if err := writeFile(ctx, r, r.Size(), dest, opts, log); err != nil {
		return &TransportError{URL: source, Err: err}
	}
	return nil
}

// SplitObjectURL splits an object URL into its bucket URL and object key.
// For file:// the bucket is the parent directory; otherwise it is the host,
// keeping any query parameters.
func SplitObjectURL(source string) (bucketURL, key string, err error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", "", errors.Wrapf(errors.ErrInvalidArgument, "object url %q: %v", source, err)
	}

	if u.Scheme == "file" {
		dir, base := filepath.Split(filepath.FromSlash(u.Path))
		if base == "" {
			return "", "", errors.Wrapf(errors.ErrInvalidArgument, "object url %q has no file name", source)
		}
		return "file://" + filepath.ToSlash(filepath.Clean(dir)), base, nil
	}

	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", errors.Wrapf(errors.ErrInvalidArgument, "object url %q needs a bucket and a key", source)
	}
	bucket := url.URL{Scheme: u.Scheme, Host: u.Host, RawQuery: u.RawQuery}
	return bucket.String(), key, nil
}
