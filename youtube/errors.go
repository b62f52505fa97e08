package youtube

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"ytlocalize/internal/retry"
)

// Sentinel errors for YouTube Data API conditions.
var (
	ErrNotFound      = errors.New("youtube: not found")
	ErrNoChannel     = errors.New("youtube: no channel for the authorized account")
	ErrQuotaExceeded = errors.New("youtube: quota exceeded")
	ErrRateLimited   = errors.New("youtube: rate limited")
	ErrForbidden     = errors.New("youtube: forbidden")
)

// APIError wraps a failed Data API call with the operation and, when the
// API answered, its status code and first error reason.
//
//	var apiErr *youtube.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Printf("%s failed with %d (%s)\n", apiErr.Op, apiErr.Code, apiErr.Reason)
//	}
type APIError struct {
	// Op is the API method ("channels.list", "videos.update", ...).
	Op string
	// Code is the HTTP status code, or 0 for transport errors.
	Code int
	// Reason is the first googleapi error reason, e.g. "quotaExceeded".
	Reason string
	// Err is the underlying error.
	Err error
}

func newAPIError(op string, err error) *APIError {
	e := &APIError{Op: op, Err: err}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		e.Code = gerr.Code
		if len(gerr.Errors) > 0 {
			e.Reason = gerr.Errors[0].Reason
		}
	}
	return e
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("youtube: %s: %d %s: %v", e.Op, e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("youtube: %s: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Is maps API reasons onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrQuotaExceeded:
		return isQuotaReason(e.Reason)
	case ErrRateLimited:
		return e.Code == http.StatusTooManyRequests || isRateLimitReason(e.Reason)
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrForbidden:
		return e.Code == http.StatusForbidden && !isQuotaReason(e.Reason) && !isRateLimitReason(e.Reason)
	}
	return false
}

func isQuotaReason(reason string) bool {
	return reason == "quotaExceeded" || reason == "dailyLimitExceeded"
}

func isRateLimitReason(reason string) bool {
	return reason == "rateLimitExceeded" || reason == "userRateLimitExceeded"
}

// apiErrorClassifier determines if an API error is retryable. Rate limits,
// backend errors and transport failures are retried; exhausted quota and
// other client errors are not.
func apiErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	if !retry.IsRetryable(err) {
		return false
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		// Transport errors
		return true
	}
	for _, item := range gerr.Errors {
		switch {
		case isQuotaReason(item.Reason):
			return false
		case isRateLimitReason(item.Reason), item.Reason == "backendError":
			return true
		}
	}
	return gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
}
