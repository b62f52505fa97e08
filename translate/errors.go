package translate

import (
	"errors"
	"fmt"

	ythttp "ytlocalize/http"
)

// Sentinel errors for translation responses.
var (
	// ErrMalformedResponse indicates the body could not be decoded or lacked
	// the translated text.
	ErrMalformedResponse = errors.New("translate: malformed response")

	// ErrQuotaExhausted indicates the provider reported its daily quota as used up.
	ErrQuotaExhausted = errors.New("translate: quota exhausted")

	// ErrProviderStatus indicates a 2xx response whose body reported a failure.
	ErrProviderStatus = errors.New("translate: provider reported failure")
)

// Kind classifies a failed chunk translation.
type Kind int

const (
	// RequestFailed covers network errors, non-429 HTTP errors and bad bodies.
	// It is never retried.
	RequestFailed Kind = iota
	// RateLimited means the endpoint kept answering 429 until retries ran out.
	RateLimited
)

// String returns a readable name for the kind.
func (k Kind) String() string {
	switch k {
	case RateLimited:
		return "rate_limited"
	case RequestFailed:
		return "request_failed"
	default:
		return "unknown"
	}
}

// Failure is the typed error behind a passthrough.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("translate: %s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Classify returns the failure kind of err. Errors that are not a *Failure
// are classified from the HTTP layer's error types.
func Classify(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	if ythttp.IsRateLimited(err) {
		return RateLimited
	}
	return RequestFailed
}

// newFailure wraps err with its classification.
func newFailure(err error) *Failure {
	return &Failure{Kind: Classify(err), Err: err}
}
