package http

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError indicates the server answered 429 Too Many Requests.
type RateLimitError struct {
	// StatusCode is the HTTP status code (always 429 today)
	StatusCode int
	// RetryAfter is the server-provided Retry-After hint, if any
	RetryAfter time.Duration
}

// Error returns a string representation of the rate limit error.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (status %d): retry after %v", e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited (status %d)", e.StatusCode)
}

// HTTPError indicates a non-2xx response other than a rate limit.
type HTTPError struct {
	// StatusCode is the HTTP status code
	StatusCode int
	// Body is the response body
	Body []byte
}

// Error returns a string representation of the HTTP error.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: status %d", e.StatusCode)
}

// Sentinel errors for HTTP operations.
var (
	// ErrNoResponse indicates no response was received from the server.
	ErrNoResponse = errors.New("no response received")

	// ErrRequestFailed indicates the request itself failed (network error).
	ErrRequestFailed = errors.New("http request failed")

	// ErrRateLimitWait indicates the context ended while waiting for a
	// rate limiter token.
	ErrRateLimitWait = errors.New("rate limit wait")
)

// IsRateLimited reports whether err carries a *RateLimitError.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// NotSent reports whether err stopped a request before it was sent: an open
// circuit or an abandoned rate limiter wait.
func NotSent(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimitWait)
}
