package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	ythttp "ytlocalize/http"
)

// DefaultEndpoint is the MyMemory translation API.
const DefaultEndpoint = "https://api.mymemory.translated.net/get"

// MyMemoryOptions configures a MyMemory client.
type MyMemoryOptions struct {
	// Endpoint overrides DefaultEndpoint.
	Endpoint string

	// ContactEmail is sent as the "de" parameter, which raises the free quota.
	ContactEmail string

	// Client is the HTTP client used for requests. Nil builds one from HTTP.
	Client *ythttp.Client

	// HTTP configures the client built when Client is nil. Nil uses
	// ythttp.DefaultConfig().
	HTTP *ythttp.Config

	Logger *slog.Logger
}

// MyMemory translates chunks through the MyMemory GET endpoint.
type MyMemory struct {
	client   *ythttp.Client
	endpoint string
	email    string
	log      *slog.Logger
}

// NewMyMemory creates a MyMemory client.
func NewMyMemory(opts MyMemoryOptions) *MyMemory {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := opts.Client
	if client == nil {
		cfg := opts.HTTP
		if cfg == nil {
			cfg = ythttp.DefaultConfig()
		}
		if cfg.Logger == nil {
			c := *cfg
			c.Logger = logger
			cfg = &c
		}
		client = ythttp.New(cfg)
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &MyMemory{
		client:   client,
		endpoint: endpoint,
		email:    opts.ContactEmail,
		log:      logger,
	}
}

// response is the subset of the MyMemory reply we read.
type response struct {
	ResponseData struct {
		TranslatedText *string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  json.RawMessage `json:"responseStatus"`
	ResponseDetails string          `json:"responseDetails"`
	QuotaFinished   *bool           `json:"quotaFinished"`
}

// status returns responseStatus as an int. MyMemory sends it either as a
// number or as a quoted number; anything else reads as 0.
func (r *response) status() int {
	raw := strings.Trim(string(r.ResponseStatus), `"`)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// Translate sends one chunk to the endpoint. Rate limits are retried by the
// HTTP client; every error returned is a *Failure.
func (m *MyMemory) Translate(ctx context.Context, text, source, target string) (string, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", source+"|"+target)
	if m.email != "" {
		q.Set("de", m.email)
	}

	resp, err := m.client.Get(ctx, m.endpoint+"?"+q.Encode())
	if err != nil {
		return "", newFailure(err)
	}

	var body response
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", &Failure{Kind: RequestFailed, Err: fmt.Errorf("%w: %w", ErrMalformedResponse, err)}
	}
	if body.QuotaFinished != nil && *body.QuotaFinished {
		return "", &Failure{Kind: RequestFailed, Err: ErrQuotaExhausted}
	}
	if status := body.status(); status != 0 && status != 200 {
		return "", &Failure{Kind: RequestFailed, Err: fmt.Errorf("%w: status %d: %s", ErrProviderStatus, status, body.ResponseDetails)}
	}
	if body.ResponseData.TranslatedText == nil {
		return "", &Failure{Kind: RequestFailed, Err: fmt.Errorf("%w: missing translatedText", ErrMalformedResponse)}
	}

	return *body.ResponseData.TranslatedText, nil
}

// TranslateChunk translates one chunk and never fails: empty or
// whitespace-only input is returned without a request, and any failure
// returns text unchanged.
func (m *MyMemory) TranslateChunk(ctx context.Context, text, source, target string) string {
	out, err := translateChunk(ctx, m, text, source, target)
	if err != nil {
		m.log.Debug("chunk passthrough", "kind", Classify(err), "error", err)
		return text
	}
	return out
}

// Close releases idle connections.
func (m *MyMemory) Close() error {
	return m.client.Close()
}

// translateChunk skips blank input and otherwise asks p for a translation.
func translateChunk(ctx context.Context, p Provider, text, source, target string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	return p.Translate(ctx, text, source, target)
}
