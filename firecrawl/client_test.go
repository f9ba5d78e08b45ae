package firecrawl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maharaniweddings/knowledgebuild/retry"
)

// fastRetry keeps test backoffs negligible.
func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts:       3,
		BackoffBase:       time.Microsecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        8 * time.Microsecond,
	}
}

func TestScrape_TextField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/scrape", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://example.test/", req["url"])
		assert.Equal(t, []any{"text", "markdown"}, req["formats"])

		json.NewEncoder(w).Encode(map[string]string{"text": "scraped content"})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", WithRetryConfig(fastRetry()))
	text, err := c.Scrape(context.Background(), "https://example.test/")

	require.NoError(t, err)
	assert.Equal(t, "scraped content", text)
}

func TestScrape_MarkdownFallbackField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": "", "markdown": "# Heading"})
	}))
	defer srv.Close()

	c := New(srv.URL, "k", WithRetryConfig(fastRetry()))
	text, err := c.Scrape(context.Background(), "https://example.test/")

	require.NoError(t, err)
	assert.Equal(t, "# Heading", text)
}

func TestScrape_EmptyResponseIsNoContent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL, "k", WithRetryConfig(fastRetry()))
	_, err := c.Scrape(context.Background(), "https://example.test/")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoContent)
	// No-content responses must not burn the retry budget.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestScrape_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "recovered"})
	}))
	defer srv.Close()

	c := New(srv.URL, "k", WithRetryConfig(fastRetry()))
	text, err := c.Scrape(context.Background(), "https://example.test/")

	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestScrape_ExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "k", WithRetryConfig(fastRetry()))
	_, err := c.Scrape(context.Background(), "https://example.test/")

	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCrawlOnce_Items(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/crawl", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(0), req["maxDepth"])
		assert.Equal(t, "text", req["returnFormat"])

		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]string{
				{"text": "page one"},
				{"markdown": "page two"},
				{"rawText": "page three"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "k", WithRetryConfig(fastRetry()))
	text, err := c.CrawlOnce(context.Background(), "https://example.test/")

	require.NoError(t, err)
	assert.Equal(t, "page one\n\npage two\n\npage three", text)
}

func TestCrawlOnce_PagesAlias(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"pages": []map[string]string{{"content": "from pages"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "k", WithRetryConfig(fastRetry()))
	text, err := c.CrawlOnce(context.Background(), "https://example.test/")

	require.NoError(t, err)
	assert.Equal(t, "from pages", text)
}

func TestCrawlOnce_RawTextBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain body text"))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", WithRetryConfig(fastRetry()))
	text, err := c.CrawlOnce(context.Background(), "https://example.test/")

	require.NoError(t, err)
	assert.Equal(t, "plain body text", text)
}

func TestCrawlOnce_EmptyItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"items": []map[string]string{}})
	}))
	defer srv.Close()

	c := New(srv.URL, "k", WithRetryConfig(fastRetry()))
	_, err := c.CrawlOnce(context.Background(), "https://example.test/")

	assert.ErrorIs(t, err, ErrNoContent)
}

func TestClient_Disabled(t *testing.T) {
	c := New("https://api.firecrawl.dev", "")

	assert.False(t, c.Enabled())

	_, err := c.Scrape(context.Background(), "https://example.test/")
	assert.Error(t, err)

	_, err = c.CrawlOnce(context.Background(), "https://example.test/")
	assert.Error(t, err)
}

func TestScrape_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "bad-key", WithRetryConfig(fastRetry()))
	_, err := c.Scrape(context.Background(), "https://example.test/")

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
