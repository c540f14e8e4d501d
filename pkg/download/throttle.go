package download

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

const maxThrottleBurst = 64 * 1024

// throttledReader caps read throughput with a token bucket.
type throttledReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
	burst   int
}

func newThrottledReader(ctx context.Context, r io.Reader, bytesPerSecond int64) *throttledReader {
	burst := maxThrottleBurst
	if bytesPerSecond < int64(burst) {
		burst = int(max(bytesPerSecond, 1))
	}
	return &throttledReader{
		ctx:     ctx,
		r:       r,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burst),
		burst:   burst,
	}
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if len(p) > t.burst {
		p = p[:t.burst]
	}
	n, err := t.r.Read(p)
	if n > 0 {
		if werr := t.limiter.WaitN(t.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
