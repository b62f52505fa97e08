package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ytlocalize/internal/retry"
)

// testConfig returns DefaultConfig with backoff sleeps recorded instead of slept.
func testConfig(sleeps *[]time.Duration) *Config {
	cfg := DefaultConfig()
	cfg.Retry.Sleep = func(ctx context.Context, d time.Duration) error {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
		return nil
	}
	return cfg
}

func TestNewClient(t *testing.T) {
	client := New(DefaultConfig())
	if client == nil {
		t.Fatal("expected client to be created")
	}
	client.Close()
}

func TestNewClientNilConfig(t *testing.T) {
	client := New(nil)
	if client == nil {
		t.Fatal("expected client to be created with default config")
	}
	if client.config.Timeout != 15*time.Second {
		t.Errorf("default timeout = %v, want 15s", client.config.Timeout)
	}
	client.Close()
}

func TestClientGetSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if ua := r.Header.Get("User-Agent"); ua != "ytlocalize/1.0" {
			t.Errorf("User-Agent = %q, want ytlocalize/1.0", ua)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("test response"))
	}))
	defer server.Close()

	client := New(testConfig(nil))
	defer client.Close()

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if string(resp.Body) != "test response" {
		t.Errorf("expected 'test response', got %q", string(resp.Body))
	}
}

func TestClientDoWithHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept header = %q, want application/json", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(testConfig(nil))
	defer client.Close()

	headers := map[string]string{"Accept": "application/json"}
	if _, err := client.Do(context.Background(), http.MethodGet, server.URL, nil, headers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientRateLimitRetry(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := New(testConfig(&sleeps))
	defer client.Close()

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Body) != "success" {
		t.Errorf("body = %q, want success", resp.Body)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}

	want := []time.Duration{5 * time.Second, 10 * time.Second}
	if len(sleeps) != len(want) || sleeps[0] != want[0] || sleeps[1] != want[1] {
		t.Errorf("sleeps = %v, want %v", sleeps, want)
	}
}

func TestClientRateLimitExhausted(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(testConfig(nil))
	defer client.Close()

	_, err := client.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !IsRateLimited(err) {
		t.Errorf("expected rate limit error, got %v", err)
	}
	var retryErr *retry.RetryableError
	if !errors.As(err, &retryErr) {
		t.Errorf("expected *retry.RetryableError, got %T", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestClientServerErrorNotRetried(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("server error"))
	}))
	defer server.Close()

	client := New(testConfig(nil))
	defer client.Close()

	_, err := client.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error for server error")
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %T", err)
	}
	if httpErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", httpErr.StatusCode)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
}

func TestClientNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not found"))
	}))
	defer server.Close()

	client := New(testConfig(nil))
	defer client.Close()

	_, err := client.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %T", err)
	}
	if string(httpErr.Body) != "not found" {
		t.Errorf("body = %q, want %q", httpErr.Body, "not found")
	}
}

func TestClientNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(testConfig(nil))
	defer client.Close()

	_, err := client.Get(context.Background(), url)
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("expected ErrRequestFailed, got %v", err)
	}
}

func TestClientCircuitOpensAfterFailures(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testConfig(nil)
	cfg.CircuitBreaker.FailureThreshold = 2
	client := New(cfg)
	defer client.Close()

	for i := 0; i < 2; i++ {
		if _, err := client.Get(context.Background(), server.URL); err == nil {
			t.Fatal("expected error")
		}
	}
	if state := client.CircuitState(server.URL); state != CircuitOpen {
		t.Fatalf("circuit state = %v, want open", state)
	}

	_, err := client.Get(context.Background(), server.URL)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if !NotSent(err) {
		t.Errorf("NotSent(%v) = false, want true", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Errorf("server saw %d requests, want 2", got)
	}
}

func TestClientCircuitIgnoresClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := testConfig(nil)
	cfg.CircuitBreaker.FailureThreshold = 1
	client := New(cfg)
	defer client.Close()

	for i := 0; i < 3; i++ {
		client.Get(context.Background(), server.URL)
	}
	if state := client.CircuitState(server.URL); state != CircuitClosed {
		t.Errorf("circuit state = %v, want closed", state)
	}
}

func TestClientCircuitIgnoresRateLimits(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := testConfig(nil)
	cfg.CircuitBreaker.FailureThreshold = 2
	client := New(cfg)
	defer client.Close()

	const calls = 4
	for i := 0; i < calls; i++ {
		_, err := client.Get(context.Background(), server.URL)
		var rl *RateLimitError
		if !errors.As(err, &rl) {
			t.Fatalf("call %d: error = %v, want *RateLimitError", i+1, err)
		}
		if rl.RetryAfter != 7*time.Second {
			t.Errorf("call %d: RetryAfter = %v, want 7s", i+1, rl.RetryAfter)
		}
		if NotSent(err) {
			t.Errorf("call %d: NotSent() = true, want false", i+1)
		}
	}

	if state := client.CircuitState(server.URL); state != CircuitClosed {
		t.Errorf("circuit state = %v, want closed", state)
	}
	if got := atomic.LoadInt32(&attempts); got != calls*3 {
		t.Errorf("server saw %d requests, want %d", got, calls*3)
	}
}

func TestDefaultConfigCircuitDisabled(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.CircuitBreaker.FailureThreshold != 0 {
		t.Errorf("FailureThreshold = %d, want 0", cfg.CircuitBreaker.FailureThreshold)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(testConfig(nil))
	defer client.Close()

	for i := 0; i < DefaultFailureThreshold+2; i++ {
		_, err := client.Get(context.Background(), server.URL)
		if errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("call %d: circuit opened with the default config", i+1)
		}
	}
}

func TestNotSent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"circuit open", ErrCircuitOpen, true},
		{"rate limit wait", retry.Permanent(fmt.Errorf("%w: %w", ErrRateLimitWait, context.Canceled)), true},
		{"rate limited", &retry.RetryableError{Err: &RateLimitError{StatusCode: 429}}, false},
		{"network", fmt.Errorf("%w: dial tcp", ErrRequestFailed), false},
		{"server error", &HTTPError{StatusCode: 500}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NotSent(tt.err); got != tt.want {
				t.Errorf("NotSent(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "60", 60 * time.Second},
		{"seconds_zero", "0", 0},
		{"garbage", "soon", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			header := make(http.Header)
			if tc.header != "" {
				header.Set("Retry-After", tc.header)
			}
			if got := parseRetryAfter(header); got != tc.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tc.header, got, tc.want)
			}
		})
	}
}

func TestClientContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(testConfig(nil))
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Get(ctx, server.URL)
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if !strings.Contains(err.Error(), "context") {
		t.Errorf("expected context error, got: %v", err)
	}
}

func TestRateLimitError(t *testing.T) {
	err := &RateLimitError{
		StatusCode: http.StatusTooManyRequests,
		RetryAfter: 5 * time.Second,
	}

	msg := err.Error()
	if !strings.Contains(msg, "rate limited") {
		t.Errorf("expected 'rate limited' in message, got: %s", msg)
	}
	if !strings.Contains(msg, "429") {
		t.Errorf("expected '429' in message, got: %s", msg)
	}
	if !strings.Contains(msg, "5s") {
		t.Errorf("expected '5s' in message, got: %s", msg)
	}
}

func TestHTTPError(t *testing.T) {
	err := &HTTPError{
		StatusCode: http.StatusNotFound,
		Body:       []byte("not found"),
	}

	if msg := err.Error(); !strings.Contains(msg, "404") {
		t.Errorf("expected '404' in message, got: %s", msg)
	}
}
