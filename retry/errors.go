package retry

import (
	"errors"
	"time"
)

// TransientError marks a failure worth retrying: network faults, server
// errors, rate limiting. RetryAfter carries the server's pacing hint
// when one was given; zero means use the backoff schedule.
type TransientError struct {
	err        error
	RetryAfter time.Duration
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// NewTransientErrorAfter wraps an error as transient with a server-given
// pacing hint. Do waits at least the hint (capped at MaxBackoff) before
// the next attempt.
func NewTransientErrorAfter(err error, retryAfter time.Duration) error {
	return &TransientError{err: err, RetryAfter: retryAfter}
}

// FatalError marks a failure that retrying cannot repair: bad
// credentials, malformed requests, content the endpoint will never have.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// retryAfterHint extracts the pacing hint from a transient error chain.
func retryAfterHint(err error) (time.Duration, bool) {
	var transient *TransientError
	if errors.As(err, &transient) && transient.RetryAfter > 0 {
		return transient.RetryAfter, true
	}
	return 0, false
}
