package http

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter paces requests with one token bucket per host.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	config   RateLimiterConfig
}

// RateLimiterConfig defines rate limiting behavior.
type RateLimiterConfig struct {
	// DefaultRPS applies to every host without a custom rate. 0 means unlimited.
	DefaultRPS float64
	// CustomRates maps host names to RPS values
	CustomRates map[string]float64
}

// DefaultRateLimiterConfig returns an unlimited limiter.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		CustomRates: make(map[string]float64),
	}
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		config:   cfg,
	}
}

// Wait blocks until the limiter for the URL's host grants a token. Errors
// wrap ErrRateLimitWait.
func (rl *RateLimiter) Wait(ctx context.Context, urlStr string) error {
	if rl == nil {
		return nil
	}

	limiter := rl.limiter(extractHost(urlStr))
	if limiter == nil {
		return nil
	}

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRateLimitWait, err)
	}
	return nil
}

// limiter returns the host's bucket, or nil when the host is unlimited.
func (rl *RateLimiter) limiter(host string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters[host]; ok {
		return l
	}

	rps := rl.config.DefaultRPS
	if custom, ok := rl.config.CustomRates[host]; ok {
		rps = custom
	}
	if rps <= 0 {
		return nil
	}

	l := rate.NewLimiter(rate.Limit(rps), 1)
	rl.limiters[host] = l
	return l
}

// extractHost extracts the host name (without port) from a URL string.
func extractHost(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Hostname()
}
