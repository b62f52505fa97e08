package ytlocalize

import (
	"ytlocalize/auth"
	"ytlocalize/config"
	ythttp "ytlocalize/http"
	"ytlocalize/internal/retry"
	"ytlocalize/storage"
	"ytlocalize/translate"
	"ytlocalize/youtube"
)

// Error handling types exported for library users.
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, ytlocalize.ErrNoCredentials) {
//		fmt.Println("Run ytlocalize auth first")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var storageErr *ytlocalize.StorageError
//	if errors.As(err, &storageErr) {
//		fmt.Printf("%s %s failed: %v\n", storageErr.Op, storageErr.Entity, storageErr.Err)
//	}

// Type aliases for convenient error handling.
type (
	// APIError is a YouTube Data API failure.
	APIError = youtube.APIError
	// TranslationFailure is a classified MyMemory failure.
	TranslationFailure = translate.Failure
	// HTTPError is a non-2xx HTTP response.
	HTTPError = ythttp.HTTPError
	// RateLimitError is a 429 response.
	RateLimitError = ythttp.RateLimitError
	// RetryableError wraps errors that occurred after retries were exhausted.
	RetryableError = retry.RetryableError
	// StorageError wraps errors during storage operations.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	// Translation errors
	// ErrQuotaExhausted indicates MyMemory reported its daily quota as used.
	ErrQuotaExhausted = translate.ErrQuotaExhausted
	// ErrMalformedResponse indicates MyMemory returned an unreadable body.
	ErrMalformedResponse = translate.ErrMalformedResponse

	// YouTube errors
	// ErrVideoNotFound indicates the video does not exist or is not visible.
	ErrVideoNotFound = youtube.ErrNotFound
	// ErrNoChannel indicates the authorized account has no channel.
	ErrNoChannel = youtube.ErrNoChannel
	// ErrQuotaExceeded indicates the YouTube Data API quota is exhausted.
	ErrQuotaExceeded = youtube.ErrQuotaExceeded

	// Auth errors
	// ErrNoCredentials indicates no token is available without logging in.
	ErrNoCredentials = auth.ErrNoCredentials
	// ErrNoClientSecrets indicates no OAuth client secrets were found.
	ErrNoClientSecrets = auth.ErrNoClientSecrets
	// ErrInvalidToken indicates a stored token could not be parsed.
	ErrInvalidToken = auth.ErrInvalidToken

	// ErrInvalidConfig indicates a configuration value is out of range.
	ErrInvalidConfig = config.ErrInvalidConfig

	// Storage errors
	// ErrNotFound indicates an entity was not found in storage.
	ErrNotFound = storage.ErrNotFound
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = storage.ErrStorageCorrupt
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = storage.ErrLockTimeout
)

// IsRetryable determines if an error should be retried.
func IsRetryable(err error) bool {
	return retry.IsRetryable(err)
}
