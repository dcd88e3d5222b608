package rest

import (
	"errors"
	"fmt"
	"time"
)

// TransientError represents a retryable fetch failure: HTTP 5xx, a
// connection error, or a timeout. It is retried with backoff up to the
// configured attempt budget, then escalated to a PermanentError.
type TransientError struct {
	Status int
	URL    string
	Err    error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rest: transient error for %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("rest: transient error %d for %s", e.Status, e.URL)
}

func (e *TransientError) Unwrap() error { return e.Err }

// RateLimitError represents an HTTP 429. Retryable; the limiter honours
// the vendor-supplied delay before the next attempt.
type RateLimitError struct {
	RetryAfter time.Duration
	URL        string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rest: rate limited for %s (retry after %s)", e.URL, e.RetryAfter)
}

// PermanentError represents a non-retryable failure: a non-429 4xx
// response, or a transient failure that exhausted its retry budget.
// It aborts the current domain's run; no partial upsert is attempted.
type PermanentError struct {
	Status  int
	Message string
	URL     string
	Err     error
}

func (e *PermanentError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("rest: permanent error %d for %s: %s", e.Status, e.URL, e.Message)
	}
	return fmt.Sprintf("rest: permanent error for %s: %s", e.URL, e.Message)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsTransient checks whether err is a retryable fetch error.
func IsTransient(err error) bool {
	var te *TransientError
	var rl *RateLimitError
	return errors.As(err, &te) || errors.As(err, &rl)
}

// IsPermanent checks whether err is a non-retryable fetch error.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
