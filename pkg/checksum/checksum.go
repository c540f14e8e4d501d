// Package checksum computes and verifies MD5 digests of cached files.
//
// Files are hashed block by block so arbitrarily large downloads never have
// to fit in memory.
package checksum

import (
	"crypto/md5" //nolint:gosec // MD5 is the fingerprint Drive and gdown users publish.
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/glorpus-work/gdown/pkg/errors"
)

const (
	// DefaultBlockSize is the read size used when hashing.
	DefaultBlockSize = 64 * 1024

	// DigestLength is the length of a hex encoded MD5 digest.
	DigestLength = 32
)

// Sum returns the lowercase hex MD5 digest of the file at path, reading it
// blockSize bytes at a time. A non-positive blockSize selects DefaultBlockSize.
func Sum(path string, blockSize int) (string, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open for checksum: %w", errors.ErrIO, err)
	}
	defer func() { _ = f.Close() }()

	h := md5.New() //nolint:gosec
	buf := make([]byte, blockSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			_, _ = h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: reading %s: %w", errors.ErrIO, path, err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
