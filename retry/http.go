package retry

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ClassifyResponse turns a non-2xx response into a transient or fatal
// error. Rate limiting, request timeouts, and server errors are worth
// retrying; other client errors are not. A Retry-After header on a
// retryable response becomes the pacing hint on the transient error.
func ClassifyResponse(op string, statusCode int, header http.Header, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}

	err := fmt.Errorf("%s: HTTP %d: %s", op, statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests,
		statusCode == http.StatusRequestTimeout,
		statusCode >= 500:
		if after, ok := parseRetryAfter(header.Get("Retry-After")); ok {
			return NewTransientErrorAfter(err, after)
		}
		return NewTransientError(err)
	default:
		return NewFatalError(err)
	}
}

// parseRetryAfter handles both Retry-After forms: delay seconds and an
// HTTP date.
func parseRetryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second, true
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d, true
		}
	}

	return 0, false
}
