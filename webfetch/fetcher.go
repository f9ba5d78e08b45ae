// Package webfetch provides the direct HTTP fetch fallback for web
// sources: a plain GET with a custom user-agent plus HTML text
// extraction.
package webfetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/maharaniweddings/knowledgebuild/retry"
)

// maxErrorBodySize caps how much of an error response body is read for
// the diagnostic message.
const maxErrorBodySize = 1024

// Fetcher fetches web content directly. Like the managed-service
// clients, fetches are retried on transient failures.
type Fetcher struct {
	client         *http.Client
	userAgent      string
	maxContentSize int64
	retryConfig    retry.Config
	logger         *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg retry.Config) Option {
	return func(f *Fetcher) {
		f.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a new web fetcher.
func NewFetcher(timeout time.Duration, userAgent string, maxContentSize int64, opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return nil
			},
		},
		userAgent:      userAgent,
		maxContentSize: maxContentSize,
		retryConfig:    retry.DefaultConfig(),
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch retrieves the raw body from the given URL, retrying transient
// failures (network errors, 5xx, rate limiting) on the shared policy.
// Other non-200 responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) ([]byte, error) {
	return retry.Do(ctx, f.retryConfig, f.logger, "webfetch.get", func(ctx context.Context) ([]byte, error) {
		return f.doFetch(ctx, urlStr)
	})
}

// doFetch executes a single GET attempt.
func (f *Fetcher) doFetch(ctx context.Context, urlStr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, retry.NewFatalError(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		// Network errors, timeouts, and redirect failures are transient.
		return nil, retry.NewTransientError(fmt.Errorf("fetch: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, retry.ClassifyResponse("direct fetch", resp.StatusCode, resp.Header, errBody)
	}

	limitReader := io.LimitReader(resp.Body, f.maxContentSize+1)
	body, err := io.ReadAll(limitReader)
	if err != nil {
		return nil, retry.NewTransientError(fmt.Errorf("read body: %w", err))
	}

	if int64(len(body)) > f.maxContentSize {
		return nil, retry.NewFatalError(fmt.Errorf("content too large (exceeds %d bytes)", f.maxContentSize))
	}

	return body, nil
}
