// Package apify provides a client for the actor platform: it runs an
// actor synchronously and collects its output dataset, and extracts
// knowledge text from the returned records.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maharaniweddings/knowledgebuild/retry"
)

// maxResponseSize limits response bodies to prevent memory exhaustion.
const maxResponseSize = 50 * 1024 * 1024 // 50MB; datasets can be large

// Client calls the actor platform.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
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

// WithTimeout sets the per-request timeout. Synchronous actor runs can
// take minutes.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// New creates an actor platform client. An empty token produces a
// disabled client: Enabled reports false and calls fail fast.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		retryConfig: retry.DefaultConfig(),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Enabled reports whether the platform is configured with a credential.
func (c *Client) Enabled() bool {
	return c.token != ""
}

// RunActorSync runs an actor and fetches its output dataset in one call:
// POST {base}/v2/acts/{actor}/run-sync-get-dataset-items. The response is
// either a JSON array or newline-delimited JSON; malformed NDJSON lines
// are skipped silently.
func (c *Client) RunActorSync(ctx context.Context, actor string, input map[string]any) ([]map[string]any, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("actor platform is not configured")
	}
	if actor == "" {
		return nil, fmt.Errorf("actor identifier is required")
	}

	return retry.Do(ctx, c.retryConfig, c.logger, "apify.run-sync", func(ctx context.Context) ([]map[string]any, error) {
		return c.doRun(ctx, actor, input)
	})
}

// doRun executes a single synchronous actor run.
func (c *Client) doRun(ctx context.Context, actor string, input map[string]any) ([]map[string]any, error) {
	if input == nil {
		input = map[string]any{}
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, retry.NewFatalError(fmt.Errorf("marshal actor input: %w", err))
	}

	params := url.Values{}
	params.Set("token", c.token)
	params.Set("clean", "true")
	params.Set("format", "json")
	runURL := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items?%s", c.baseURL, actor, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, runURL, bytes.NewReader(body))
	if err != nil {
		return nil, retry.NewFatalError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("actor platform request", "actor", actor)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, retry.NewTransientError(fmt.Errorf("actor run failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, retry.NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	c.logger.Debug("actor platform response", "actor", actor, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, retry.ClassifyResponse("actor platform", resp.StatusCode, resp.Header, respBody)
	}

	return parseDatasetItems(respBody), nil
}

// parseDatasetItems accepts a JSON array or falls back to NDJSON,
// dropping lines that do not parse.
func parseDatasetItems(body []byte) []map[string]any {
	var items []map[string]any
	if err := json.Unmarshal(body, &items); err == nil {
		return items
	}

	items = nil
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var item map[string]any
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}
