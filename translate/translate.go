// Package translate translates free text through a rate-limited provider
// without mangling emoji or ALL-CAPS words.
//
// The pipeline protects tokens with placeholders, splits the result into
// lines and provider-sized chunks, translates each chunk, translates every
// ALL-CAPS word on its own, then reassembles and restores the tokens. A chunk
// that cannot be translated is kept as is; callers never see an error.
package translate

import (
	"context"
	"log/slog"
	"strings"

	ythttp "ytlocalize/http"
)

// Provider translates a single chunk of text. Failures should be classifiable
// with Classify.
type Provider interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Options configures a Translator.
type Options struct {
	// MaxCharsPerChunk is the per-request character budget.
	// Zero uses DefaultMaxCharsPerChunk.
	MaxCharsPerChunk int

	// ContactEmail identifies the caller to MyMemory.
	ContactEmail string

	// Endpoint overrides the MyMemory endpoint.
	Endpoint string

	// Provider replaces the MyMemory client. ContactEmail, Endpoint and HTTP
	// are ignored when it is set.
	Provider Provider

	// HTTP configures the MyMemory HTTP client.
	HTTP *ythttp.Config

	Logger *slog.Logger
}

// Result is the outcome of a translation with passthrough accounting.
type Result struct {
	// Text is the translated text.
	Text string
	// Requests is the number of chunks sent to the provider. Chunks stopped by
	// an open circuit or an abandoned rate limiter wait are not counted.
	Requests int
	// Fallbacks is the number of chunks returned untranslated after a failure.
	Fallbacks int
	// RateLimited is the subset of Fallbacks caused by exhausted 429 retries.
	RateLimited int
}

// Translator runs the protect, split, translate and restore pipeline.
// It holds no per-call state and is safe for concurrent use when its
// provider is.
type Translator struct {
	provider Provider
	maxChars int
	log      *slog.Logger
}

// New creates a Translator.
func New(opts Options) *Translator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	provider := opts.Provider
	if provider == nil {
		provider = NewMyMemory(MyMemoryOptions{
			Endpoint:     opts.Endpoint,
			ContactEmail: opts.ContactEmail,
			HTTP:         opts.HTTP,
			Logger:       logger,
		})
	}

	maxChars := opts.MaxCharsPerChunk
	if maxChars <= 0 {
		maxChars = DefaultMaxCharsPerChunk
	}

	return &Translator{
		provider: provider,
		maxChars: maxChars,
		log:      logger,
	}
}

// Translate returns text translated from source to target. Chunks that fail
// are left untranslated.
func (t *Translator) Translate(ctx context.Context, text, source, target string) string {
	return t.TranslateDetailed(ctx, text, source, target).Text
}

// TranslateDetailed is Translate with request and fallback counts.
func (t *Translator) TranslateDetailed(ctx context.Context, text, source, target string) Result {
	var res Result
	if text == "" {
		return res
	}

	pt := Protect(text)

	lines := Split(pt.Text, t.maxChars)
	translated := make([]string, len(lines))
	for i, chunks := range lines {
		parts := make([]string, len(chunks))
		for j, chunk := range chunks {
			parts[j] = t.chunk(ctx, &res, chunk, source, target)
		}
		translated[i] = strings.Join(parts, " ")
	}

	caps := make([]string, len(pt.Caps))
	for i, word := range pt.Caps {
		caps[i] = t.chunk(ctx, &res, word, source, target)
	}

	res.Text = Restore(pt, strings.Join(translated, "\n"), caps)
	return res
}

// chunk translates one chunk, falling back to the input on failure.
func (t *Translator) chunk(ctx context.Context, res *Result, text, source, target string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	out, err := translateChunk(ctx, t.provider, text, source, target)
	if !ythttp.NotSent(err) {
		res.Requests++
	}
	if err == nil {
		return out
	}

	kind := Classify(err)
	res.Fallbacks++
	if kind == RateLimited {
		res.RateLimited++
	}
	t.log.Debug("chunk passthrough",
		"source", source,
		"target", target,
		"kind", kind,
		"chars", len([]rune(text)),
		"error", err)
	return text
}
