// Package config manages application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// DefaultTargetLanguages are the fifteen most spoken languages on YouTube,
// in the order they are attempted.
var DefaultTargetLanguages = []string{
	"en", "es", "hi", "ar", "pt", "bn", "ru", "ja", "de", "fr", "ko", "tr", "it", "vi", "id",
}

// Default values.
const (
	DefaultLanguage          = "fr"
	DefaultMaxCharsPerChunk  = 480
	DefaultEndpoint          = "https://api.mymemory.translated.net/get"
	DefaultClientSecretsFile = "client_secrets.json"
	DefaultTokenFile         = "token.json"
	DefaultOverridePrefix    = "Video created by FL Studio"
)

// DefaultOverrideReplacement replaces descriptions starting with DefaultOverridePrefix.
const DefaultOverrideReplacement = "Découvrez cette compilation de moments forts sur BeamNG.drive ! Crashs, défis et physique réaliste au rendez-vous.\n" +
	"N'oubliez pas de liker et de vous abonner pour plus d'aventures !\n" +
	"#BeamNG #CrashCompilation #Gaming"

// Config holds all application configuration for localizing video metadata.
type Config struct {
	// ContactEmail is sent to MyMemory to raise the anonymous quota
	ContactEmail string `yaml:"contact_email"`

	// TargetLanguages are the language codes to translate into, in order
	TargetLanguages []string `yaml:"target_languages"`
	// DefaultLanguage is assumed when a video has no defaultLanguage, and
	// written back to its snippet
	DefaultLanguage string `yaml:"default_language"`

	// MaxCharsPerChunk is the per-request character budget
	MaxCharsPerChunk int `yaml:"max_chars_per_chunk"`
	// TranslateEndpoint is the MyMemory GET endpoint
	TranslateEndpoint string `yaml:"translate_endpoint"`
	// RequestTimeout bounds each translation request
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// MaxAttempts caps requests per chunk when rate limited
	MaxAttempts int `yaml:"max_attempts"`
	// InitialBackoff is the first backoff after a 429; it doubles per retry
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	// RequestsPerSecond paces translation requests (0 = unlimited)
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// CircuitBreakerThreshold is the number of consecutive network or 5xx
	// failures after which requests fail fast for a minute (0 = disabled).
	// Rate limits never count.
	CircuitBreakerThreshold int `yaml:"circuit_breaker_threshold"`

	// ClientSecretsFile is the OAuth client secrets downloaded from Google Cloud
	ClientSecretsFile string `yaml:"client_secrets_file"`
	// TokenFile stores the authorized user token
	TokenFile string `yaml:"token_file"`
	// TokenJSON and ClientSecretJSON come from the environment only (CI secrets)
	TokenJSON        string `yaml:"-"`
	ClientSecretJSON string `yaml:"-"`

	// HistoryFile is where run history is stored
	HistoryFile string `yaml:"history_file"`

	// DescriptionOverride swaps boilerplate descriptions before translating
	DescriptionOverride DescriptionOverride `yaml:"description_override"`
}

// DescriptionOverride replaces any description whose trimmed text starts with
// Prefix by Replacement. An empty Prefix disables it.
type DescriptionOverride struct {
	Prefix      string `yaml:"prefix"`
	Replacement string `yaml:"replacement"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		TargetLanguages:         append([]string(nil), DefaultTargetLanguages...),
		DefaultLanguage:         DefaultLanguage,
		MaxCharsPerChunk:        DefaultMaxCharsPerChunk,
		TranslateEndpoint:       DefaultEndpoint,
		RequestTimeout:          15 * time.Second,
		MaxAttempts:             3,
		InitialBackoff:          5 * time.Second,
		RequestsPerSecond:       0,
		CircuitBreakerThreshold: 0,
		ClientSecretsFile:       DefaultClientSecretsFile,
		TokenFile:               DefaultTokenFile,
		HistoryFile:             filepath.Join(configDir(), "history.json"),
		DescriptionOverride: DescriptionOverride{
			Prefix:      DefaultOverridePrefix,
			Replacement: DefaultOverrideReplacement,
		},
	}
}

// Load loads configuration from the config file and environment variables on
// top of the defaults. Priority: env vars > config file > defaults.
// An empty path searches the default locations.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else if err := cfg.loadFromFile(); err != nil {
		// Config file is optional
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configDir is ~/.config/ytlocalize.
func configDir() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "ytlocalize")
}

// searchPaths lists config file candidates in priority order.
func searchPaths() []string {
	var paths []string
	for _, dir := range []string{".", configDir()} {
		for _, name := range []string{"ytlocalize.yaml", "ytlocalize.yml", "ytlocalize.json"} {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths
}

// loadFromFile loads the first config file found in the search paths.
func (c *Config) loadFromFile() error {
	for _, path := range searchPaths() {
		err := c.loadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return err
	}
	return os.ErrNotExist
}

// loadFile decodes a YAML or JSON file into c. JSON is read with the YAML
// decoder, so durations are written as strings ("15s") in both formats.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() error {
	if v := os.Getenv("USER_EMAIL"); v != "" {
		c.ContactEmail = v
	}
	if v := os.Getenv("YTLOCALIZE_CONTACT_EMAIL"); v != "" {
		c.ContactEmail = v
	}
	c.TokenJSON = os.Getenv("TOKEN_JSON")
	c.ClientSecretJSON = os.Getenv("CLIENT_SECRET_JSON")

	if v := os.Getenv("YTLOCALIZE_CLIENT_SECRETS_FILE"); v != "" {
		c.ClientSecretsFile = v
	}
	if v := os.Getenv("YTLOCALIZE_TOKEN_FILE"); v != "" {
		c.TokenFile = v
	}
	if v := os.Getenv("YTLOCALIZE_TARGET_LANGUAGES"); v != "" {
		c.TargetLanguages = ParseLanguages(v)
	}
	if v := os.Getenv("YTLOCALIZE_DEFAULT_LANGUAGE"); v != "" {
		c.DefaultLanguage = v
	}
	if v := os.Getenv("YTLOCALIZE_ENDPOINT"); v != "" {
		c.TranslateEndpoint = v
	}
	if v := os.Getenv("YTLOCALIZE_HISTORY_FILE"); v != "" {
		c.HistoryFile = v
	}

	var errs []error
	envInt(&errs, "YTLOCALIZE_MAX_CHARS", &c.MaxCharsPerChunk)
	envInt(&errs, "YTLOCALIZE_MAX_ATTEMPTS", &c.MaxAttempts)
	envInt(&errs, "YTLOCALIZE_CIRCUIT_THRESHOLD", &c.CircuitBreakerThreshold)
	envDuration(&errs, "YTLOCALIZE_REQUEST_TIMEOUT", &c.RequestTimeout)
	envDuration(&errs, "YTLOCALIZE_INITIAL_BACKOFF", &c.InitialBackoff)
	if v := os.Getenv("YTLOCALIZE_REQUESTS_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("YTLOCALIZE_REQUESTS_PER_SECOND: %w", err))
		} else {
			c.RequestsPerSecond = f
		}
	}

	return errors.Join(errs...)
}

func envInt(errs *[]error, key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func envDuration(errs *[]error, key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}

// ParseLanguages splits a comma or space separated list of language codes.
func ParseLanguages(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.TrimSpace(f))
	}
	return out
}

// Validate checks that configuration values are valid and consistent.
func (c *Config) Validate() error {
	if len(c.TargetLanguages) == 0 {
		return fmt.Errorf("%w: target_languages must not be empty", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.TargetLanguages))
	for _, code := range c.TargetLanguages {
		if _, err := language.Parse(code); err != nil {
			return fmt.Errorf("%w: target language %q: %v", ErrInvalidConfig, code, err)
		}
		if seen[code] {
			return fmt.Errorf("%w: target language %q listed twice", ErrInvalidConfig, code)
		}
		seen[code] = true
	}
	if _, err := language.Parse(c.DefaultLanguage); err != nil {
		return fmt.Errorf("%w: default_language %q: %v", ErrInvalidConfig, c.DefaultLanguage, err)
	}
	if c.MaxCharsPerChunk <= 0 {
		return fmt.Errorf("%w: max_chars_per_chunk must be positive", ErrInvalidConfig)
	}
	if c.TranslateEndpoint == "" {
		return fmt.Errorf("%w: translate_endpoint must not be empty", ErrInvalidConfig)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("%w: initial_backoff must be positive", ErrInvalidConfig)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second must be non-negative", ErrInvalidConfig)
	}
	if c.CircuitBreakerThreshold < 0 {
		return fmt.Errorf("%w: circuit_breaker_threshold must be non-negative", ErrInvalidConfig)
	}
	return nil
}
