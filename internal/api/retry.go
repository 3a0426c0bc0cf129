package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// RetryConfig configures the backoff applied to idempotent requests.
type RetryConfig struct {
	MaxRetries      int           // attempts after the first try
	InitialInterval time.Duration // first backoff interval
	MaxInterval     time.Duration // backoff cap
}

// DefaultRetryConfig returns the defaults used when Config.Retry is left
// zero.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups transport error substrings by category.
// Matched case-insensitively against err.Error().
//
// NOTE: string matching is a fallback for the net/http error chain, which
// does not expose typed errors for most transient conditions. Status-coded
// failures are matched on the typed StatusError first.
var retryablePatterns = [][]string{
	{"connection refused", "connection reset", "broken pipe"}, // dead peer
	{"timeout", "deadline exceeded", "temporary"},             // slow peer
	{"no such host", "eof"},                                   // flaky resolution / dropped stream
}

// retryableError reports whether err is transient: a 429 or 5xx response,
// or a transport failure matching a known transient pattern. Cancellation
// is never retried.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	errStr := err.Error()
	for _, group := range retryablePatterns {
		if containsAny(errStr, group...) {
			return true
		}
	}
	return false
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
