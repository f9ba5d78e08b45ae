package webfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maharaniweddings/knowledgebuild/retry"
)

// fastRetry keeps test backoffs in the microsecond range.
func fastRetry() Option {
	return WithRetryConfig(retry.Config{
		MaxAttempts:       3,
		BackoffBase:       time.Microsecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        8 * time.Microsecond,
	})
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "MaharaniBot/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte("<html><body>page</body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, "MaharaniBot/1.0", 1024*1024)
	body, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "<html><body>page</body></html>", string(body))
}

func TestFetch_RetriesTransientThenSucceeds(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<html><body>recovered</body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, "ua", 1024, fastRetry())
	body, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
	assert.Contains(t, string(body), "recovered")
}

func TestFetch_ExhaustsRetries(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, "ua", 1024, fastRetry())
	_, err := f.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Equal(t, int64(3), hits.Load())
	assert.Contains(t, err.Error(), "502")
}

func TestFetch_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, "ua", 1024, fastRetry())
	_, err := f.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Equal(t, int64(1), hits.Load())
	assert.Contains(t, err.Error(), "404")
}

func TestFetch_ContentTooLarge(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, "ua", 10, fastRetry())
	_, err := f.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	// Oversized content will not shrink; retrying is pointless.
	assert.Equal(t, int64(1), hits.Load())
	assert.Contains(t, err.Error(), "content too large")
}

func TestFetch_FollowsRedirects(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("final"))
	}))
	defer target.Close()

	redirector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer redirector.Close()

	f := NewFetcher(5*time.Second, "ua", 1024)
	body, err := f.Fetch(context.Background(), redirector.URL)

	require.NoError(t, err)
	assert.Equal(t, "final", string(body))
}

func TestFetch_RedirectLoop(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL, http.StatusFound)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, "ua", 1024, fastRetry())
	_, err := f.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirects")
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	f := NewFetcher(5*time.Second, "ua", 1024, fastRetry())
	_, err := f.Fetch(ctx, srv.URL)
	assert.Error(t, err)
}
