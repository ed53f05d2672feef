package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"htmlsearch/internal/rag/interfaces"
	"htmlsearch/pkg/logger"
)

// FetchError wraps any failure to retrieve a URL after all fetch strategies
// have been exhausted.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.StatusCode)
}

// retryableStatus lists the statuses worth retrying on an idempotent GET.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

const (
	defaultTimeout = 12 * time.Second
	backoffBase    = 500 * time.Millisecond

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptLanguage = "en-US,en;q=0.9"
)

// HTTPFetcher retrieves raw HTML over plain HTTP with retry and exponential
// backoff, falling back to a headless-browser render when a page answers 403
// and a renderer is configured.
type HTTPFetcher struct {
	client     *http.Client
	maxRetries int
	renderer   interfaces.Renderer // nil disables the fallback
	log        *logger.Logger
}

// NewHTTPFetcher creates a fetcher. A zero timeout selects the 12s default;
// renderer may be nil.
func NewHTTPFetcher(timeout time.Duration, maxRetries int, renderer interfaces.Renderer, log *logger.Logger) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPFetcher{
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		renderer:   renderer,
		log:        log,
	}
}

// Fetch returns the raw HTML for url or a *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		body, retryable, err := f.get(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retryable {
			break
		}
		if attempt >= f.maxRetries {
			break
		}

		// Exponential backoff: 0.5s, 1s, 2s, ...
		delay := backoffBase * (1 << attempt)
		f.log.Debug(fmt.Sprintf("retrying %s in %s after: %v", url, delay, err))
		select {
		case <-ctx.Done():
			return "", &FetchError{URL: url, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}

	// A 403 usually means the site blocks plain HTTP clients; a full browser
	// render often still works. If it does not, report the original error.
	var statusErr *StatusError
	if f.renderer != nil && errors.As(lastErr, &statusErr) && statusErr.StatusCode == http.StatusForbidden {
		f.log.Info(fmt.Sprintf("got 403 for %s, retrying with headless render", url))
		if html, renderErr := f.renderer.Render(ctx, url); renderErr == nil {
			return html, nil
		} else {
			f.log.Warn(fmt.Sprintf("headless render of %s failed: %v", url, renderErr))
		}
	}

	return "", &FetchError{URL: url, Err: lastErr}
}

// get performs a single GET attempt. The second return reports whether the
// failure is worth retrying.
func (f *HTTPFetcher) get(ctx context.Context, url string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Referer", url)

	resp, err := f.client.Do(req)
	if err != nil {
		// Transport-level failures (connection refused, timeouts) are
		// transient more often than not.
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return "", retryableStatus[resp.StatusCode], &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, err
	}
	return string(body), false, nil
}
