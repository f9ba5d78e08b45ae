// Package retry provides bounded retry with exponential backoff for the
// external HTTP integrations. Both the scrape-service and actor-platform
// clients share the same retry policy through Do.
package retry

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// Config holds retry configuration.
type Config struct {
	// MaxAttempts is the maximum number of attempts.
	MaxAttempts int

	// BackoffBase is the initial backoff duration.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to backoff on each retry.
	BackoffMultiplier float64

	// MaxBackoff caps the maximum backoff duration.
	MaxBackoff time.Duration
}

// DefaultConfig returns the retry policy used for all remote calls:
// 3 attempts, exponential backoff from 1s capped at 8s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		BackoffBase:       time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        8 * time.Second,
	}
}

// Do runs fn up to cfg.MaxAttempts times, backing off between attempts.
// Fatal errors and context cancellation stop retrying immediately;
// everything else is treated as transient.
func Do[T any](ctx context.Context, cfg Config, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if IsFatal(err) {
			return zero, err
		}

		if attempt < cfg.MaxAttempts {
			backoff := calculateBackoff(cfg, attempt)
			// A server pacing hint overrides the schedule, still capped.
			if after, ok := retryAfterHint(err); ok {
				backoff = after
				if backoff > cfg.MaxBackoff {
					backoff = cfg.MaxBackoff
				}
			}
			logger.Debug("request failed, retrying",
				"op", op,
				"attempt", attempt,
				"max_attempts", cfg.MaxAttempts,
				"backoff", backoff,
				"error", err)

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return zero, lastErr
}

// calculateBackoff computes exponential backoff duration with jitter.
// Jitter prevents synchronized retries against the same endpoint.
func calculateBackoff(cfg Config, attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= cfg.BackoffMultiplier
	}

	backoff := time.Duration(float64(cfg.BackoffBase) * multiplier)
	if backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}

	// +/- 25%
	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}
