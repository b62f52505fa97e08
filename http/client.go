// Package http provides the HTTP client used to reach the translation
// endpoint: rate limit pacing, 429-only retry with exponential backoff, and a
// per-host circuit breaker.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ytlocalize/internal/retry"
)

// Client wraps an HTTP client with retry logic and rate limit handling.
type Client struct {
	base           *http.Client
	config         *Config
	rateLimiter    *RateLimiter
	circuitBreaker *CircuitBreaker
	log            *slog.Logger
}

// Config holds HTTP client configuration including retry and rate limit settings.
type Config struct {
	// Timeout for individual HTTP requests
	Timeout time.Duration

	// Retry configuration. Only 429 responses are retried.
	Retry retry.Config

	// User agent for HTTP requests
	UserAgent string

	// Rate limiter configuration
	RateLimiter RateLimiterConfig

	// Circuit breaker configuration
	CircuitBreaker CircuitBreakerConfig

	// Connection pool configuration
	Transport TransportConfig

	// Logger receives retry notices. Nil uses slog.Default().
	Logger *slog.Logger
}

// TransportConfig configures the HTTP transport (connection pooling).
type TransportConfig struct {
	// MaxIdleConns is the maximum number of idle connections across all hosts.
	MaxIdleConns int
	// MaxIdleConnsPerHost is the maximum idle connections per host.
	MaxIdleConnsPerHost int
	// IdleConnTimeout is the maximum amount of time an idle connection can remain open.
	IdleConnTimeout time.Duration
}

// DefaultConfig returns defaults for talking to a rate-limited translation
// endpoint: 15s timeout, 3 attempts, 5s initial backoff doubling. The
// circuit breaker is off; set CircuitBreaker.FailureThreshold to enable it.
func DefaultConfig() *Config {
	cb := DefaultCircuitBreakerConfig()
	cb.FailureThreshold = 0

	return &Config{
		Timeout: 15 * time.Second,
		Retry: retry.Config{
			MaxRetries:     2,
			InitialBackoff: 5 * time.Second,
			Multiplier:     2.0,
		},
		UserAgent:      "ytlocalize/1.0",
		RateLimiter:    DefaultRateLimiterConfig(),
		CircuitBreaker: cb,
		Transport:      DefaultTransportConfig(),
	}
}

// DefaultTransportConfig returns sensible defaults for HTTP transport configuration.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
}

// New creates a new HTTP client with the given configuration.
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Transport.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Transport.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.Transport.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		config:         cfg,
		rateLimiter:    NewRateLimiter(cfg.RateLimiter),
		circuitBreaker: NewCircuitBreaker(cfg.CircuitBreaker),
		log:            logger,
	}
}

// Response represents an HTTP response with status code and body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Get performs a GET request with retry logic.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, nil)
}

// Do performs an HTTP request. A 429 response is retried with exponential
// backoff up to the configured attempt cap; every other failure (transport
// error, non-2xx status) is returned immediately without retry.
func (c *Client) Do(ctx context.Context, method, urlStr string, body []byte, headers map[string]string) (*Response, error) {
	host := extractHost(urlStr)

	if err := c.circuitBreaker.Allow(host); err != nil {
		return nil, err
	}

	var result *Response

	err := retry.Do(ctx, c.retryConfig(urlStr), isRetryableHTTPError, func(ctx context.Context) error {
		if err := c.rateLimiter.Wait(ctx, urlStr); err != nil {
			return retry.Permanent(err)
		}

		resp, err := c.roundTrip(ctx, method, urlStr, body, headers)
		if err != nil {
			return err
		}
		result = resp
		return nil
	})

	if err != nil {
		c.circuitBreaker.RecordFailure(host, err)
		return nil, err
	}
	if result == nil {
		c.circuitBreaker.RecordFailure(host, ErrNoResponse)
		return nil, ErrNoResponse
	}

	c.circuitBreaker.RecordSuccess(host)

	return result, nil
}

// roundTrip issues a single request and maps the outcome onto the package's
// error types.
func (c *Client) roundTrip(ctx context.Context, method, urlStr string, body []byte, headers map[string]string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, reader)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("build request: %w", err))
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("%w: %w", ErrRequestFailed, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header),
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, retry.Permanent(&HTTPError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
		})
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// retryConfig returns the configured retry policy with retry logging attached.
func (c *Client) retryConfig(urlStr string) retry.Config {
	cfg := c.config.Retry
	userHook := cfg.OnRetry
	host := extractHost(urlStr)
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		attrs := []any{
			"host", host,
			"attempt", attempt,
			"max_attempts", c.config.Retry.MaxRetries + 1,
			"delay", delay,
		}
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			attrs = append(attrs, "retry_after", rl.RetryAfter)
		}
		c.log.Warn("rate limited, retrying", attrs...)
		if userHook != nil {
			userHook(attempt, delay, err)
		}
	}
	return cfg
}

// isRetryableHTTPError retries rate limits only.
func isRetryableHTTPError(err error) bool {
	if !retry.IsRetryable(err) {
		return false
	}
	return IsRateLimited(err)
}

// parseRetryAfter extracts the Retry-After header value.
// Returns 0 if the header is absent or unparseable.
func parseRetryAfter(header http.Header) time.Duration {
	retryAfter := header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		return time.Until(t)
	}

	return 0
}

// CircuitState reports the breaker state for the host of urlStr.
func (c *Client) CircuitState(urlStr string) CircuitState {
	return c.circuitBreaker.State(extractHost(urlStr))
}

// Close closes idle connections.
func (c *Client) Close() error {
	c.base.CloseIdleConnections()
	return nil
}
