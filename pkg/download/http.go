package download

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/glorpus-work/gdown/internal/logger"
	"github.com/glorpus-work/gdown/pkg/errors"
	"github.com/glorpus-work/gdown/pkg/gdrive"
)

// HTTPTransport downloads http and https sources. Drive download links that
// answer with a confirmation page are followed to the real file.
type HTTPTransport struct {
	timeout   time.Duration
	userAgent string
}

// NewHTTPTransport creates an HTTP transport. timeout bounds connection setup
// and response headers, not the body transfer.
func NewHTTPTransport(timeout time.Duration, userAgent string) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPTransport{timeout: timeout, userAgent: userAgent}
}

// Download implements Transport.
func (t *HTTPTransport) Download(ctx context.Context, source, dest string, opts Options) error {
	client, err := t.client(opts)
	if err != nil {
		return &TransportError{URL: source, Err: err}
	}

	link, err := gdrive.ParseURL(source)
	if err != nil {
		return &TransportError{URL: source, Err: errors.Wrap(errors.ErrInvalidArgument, err.Error())}
	}
	confirmable := link.IsDownloadLink && link.ID != ""

	log := logger.WithFields(logger.Fields{"url": source, "dest": dest})
	current := source
	for hop := 0; ; hop++ {
		resp, err := t.get(ctx, client, current, opts)
		if err != nil {
			return &TransportError{URL: current, Err: err}
		}

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return &TransportError{URL: current, StatusCode: resp.StatusCode}
		}

		if confirmable && isConfirmationPage(resp) {
			next, err := gdrive.ResolveConfirmation(resp.Request.URL, resp.Body)
			_ = resp.Body.Close()
			if err != nil {
				return &TransportError{URL: current, Err: err}
			}
			if hop+1 >= maxConfirmations {
				return &TransportError{URL: current, Err: errors.Wrapf(errors.ErrConfirmationFailed, "gave up after %d confirmation pages", maxConfirmations)}
			}
			log.WithField("next", next).Debug("Following download confirmation")
			current = next
			continue
		}

		err = writeFile(ctx, resp.Body, resp.ContentLength, dest, opts, log)
		_ = resp.Body.Close()
		if err != nil {
			return &TransportError{URL: current, Err: err}
		}
		return nil
	}
}

func (t *HTTPTransport) get(ctx context.Context, client *http.Client, rawURL string, opts Options) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = t.userAgent
	}
	req.Header.Set("User-Agent", ua)

	logger.Debug("HTTP GET", logger.Fields{"url": rawURL})
	return client.Do(req)
}

// client builds a per-download client. Drive ties confirmation tokens to
// cookies, so each download gets its own jar.
func (t *HTTPTransport) client(opts Options) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = t.timeout
	transport.TLSHandshakeTimeout = t.timeout
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidArgument, "proxy %q: %v", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		logger.Debug("Using proxy", logger.Fields{"proxy": opts.Proxy})
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: transport, Jar: jar}, nil
}

// isConfirmationPage reports whether resp is an HTML interstitial rather
// than the file itself.
func isConfirmationPage(resp *http.Response) bool {
	if resp.Header.Get("Content-Disposition") != "" {
		return false
	}
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html")
}
