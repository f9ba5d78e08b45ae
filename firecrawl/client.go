// Package firecrawl provides a client for the managed scrape service.
// It implements the two strategies the pipeline tries for a web source
// before falling back to a direct fetch: a structured scrape and a
// one-shot (depth 0) crawl.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maharaniweddings/knowledgebuild/retry"
)

// maxResponseSize limits response bodies to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// ErrNoContent is returned when the service answered but yielded no text
// in any recognized field. It is not retryable; callers fall through to
// the next fetch strategy.
var ErrNoContent = errors.New("scrape service returned no content")

// Client calls the managed scrape service.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	retryConfig retry.Config
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg retry.Config) Option {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// New creates a scrape service client. An empty apiKey produces a
// disabled client: Enabled reports false and calls fail fast.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		retryConfig: retry.DefaultConfig(),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Enabled reports whether the service is configured with a credential.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// scrapeResponse covers the recognized scrape result fields.
type scrapeResponse struct {
	Text     string `json:"text"`
	Markdown string `json:"markdown"`
	Content  string `json:"content"`
}

// crawlItem is one page of a crawl result.
type crawlItem struct {
	Text     string `json:"text"`
	Markdown string `json:"markdown"`
	Content  string `json:"content"`
	RawText  string `json:"rawText"`
}

// crawlResponse covers the recognized crawl result shapes.
type crawlResponse struct {
	Items []crawlItem `json:"items"`
	Pages []crawlItem `json:"pages"`
}

// Scrape requests structured text for a URL via POST {base}/v1/scrape.
// It returns ErrNoContent when the service responds without usable text.
func (c *Client) Scrape(ctx context.Context, url string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("scrape service is not configured")
	}

	return retry.Do(ctx, c.retryConfig, c.logger, "firecrawl.scrape", func(ctx context.Context) (string, error) {
		body, err := c.post(ctx, "/v1/scrape", map[string]any{
			"url":     url,
			"formats": []string{"text", "markdown"},
		})
		if err != nil {
			return "", err
		}

		var resp scrapeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", retry.NewFatalError(fmt.Errorf("%w: malformed scrape response", ErrNoContent))
		}

		for _, text := range []string{resp.Text, resp.Markdown, resp.Content} {
			if strings.TrimSpace(text) != "" {
				return text, nil
			}
		}
		return "", retry.NewFatalError(ErrNoContent)
	})
}

// CrawlOnce requests a depth-0 crawl of a URL via POST {base}/v1/crawl.
// Per-item text fields are joined with blank lines; a non-JSON 2xx body
// is accepted as raw text.
func (c *Client) CrawlOnce(ctx context.Context, url string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("scrape service is not configured")
	}

	return retry.Do(ctx, c.retryConfig, c.logger, "firecrawl.crawl", func(ctx context.Context) (string, error) {
		body, err := c.post(ctx, "/v1/crawl", map[string]any{
			"url":          url,
			"maxDepth":     0,
			"returnFormat": "text",
		})
		if err != nil {
			return "", err
		}

		var resp crawlResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			// Not JSON: treat the raw body as text.
			if text := strings.TrimSpace(string(body)); text != "" {
				return string(body), nil
			}
			return "", retry.NewFatalError(ErrNoContent)
		}

		items := resp.Items
		if len(items) == 0 {
			items = resp.Pages
		}

		var parts []string
		for _, item := range items {
			for _, text := range []string{item.Text, item.Markdown, item.Content, item.RawText} {
				if strings.TrimSpace(text) != "" {
					parts = append(parts, text)
					break
				}
			}
		}
		if len(parts) == 0 {
			return "", retry.NewFatalError(ErrNoContent)
		}
		return strings.Join(parts, "\n\n"), nil
	})
}

// post executes a single authenticated JSON POST and returns the body.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, retry.NewFatalError(fmt.Errorf("marshal request: %w", err))
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, retry.NewFatalError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("scrape service request", "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors and timeouts are transient.
		return nil, retry.NewTransientError(fmt.Errorf("scrape service request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, retry.NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, retry.ClassifyResponse("scrape service", resp.StatusCode, resp.Header, respBody)
	}

	return respBody, nil
}
