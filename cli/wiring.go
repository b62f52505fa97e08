package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ytlocalize/auth"
	"ytlocalize/config"
	ythttp "ytlocalize/http"
	"ytlocalize/localize"
	"ytlocalize/storage"
	"ytlocalize/translate"
	"ytlocalize/youtube"
)

// httpConfig maps translation settings onto the HTTP client.
func httpConfig(cfg *config.Config) *ythttp.Config {
	hc := ythttp.DefaultConfig()
	hc.Timeout = cfg.RequestTimeout
	hc.Retry.MaxRetries = cfg.MaxAttempts - 1
	hc.Retry.InitialBackoff = cfg.InitialBackoff
	hc.RateLimiter.DefaultRPS = cfg.RequestsPerSecond
	hc.CircuitBreaker.FailureThreshold = cfg.CircuitBreakerThreshold
	return hc
}

func (a *app) newTranslator() *translate.Translator {
	hc := httpConfig(a.cfg)
	hc.Logger = a.log
	return translate.New(translate.Options{
		MaxCharsPerChunk: a.cfg.MaxCharsPerChunk,
		ContactEmail:     a.cfg.ContactEmail,
		Endpoint:         a.cfg.TranslateEndpoint,
		HTTP:             hc,
		Logger:           a.log,
	})
}

func (a *app) newAuthenticator(cmd *cobra.Command) *auth.Authenticator {
	return auth.New(auth.Options{
		TokenJSON:         a.cfg.TokenJSON,
		ClientSecretJSON:  a.cfg.ClientSecretJSON,
		ClientSecretsFile: a.cfg.ClientSecretsFile,
		TokenFile:         a.cfg.TokenFile,
		Prompt: func(url string) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL in your browser to authorize ytlocalize:\n\n  %s\n\n", url)
		},
		Logger: a.log,
	})
}

// openHistory opens the run history. History is optional: a store that
// cannot be opened is logged and skipped.
func (a *app) openHistory() (storage.RunStore, func()) {
	store, err := storage.NewJSONStore(a.cfg.HistoryFile)
	if err != nil {
		a.log.Warn("run history disabled", "file", a.cfg.HistoryFile, "error", err)
		return nil, func() {}
	}
	return store, func() { store.Close() }
}

type localizeFlags struct {
	interactive bool
	force       bool
	dryRun      bool
}

// newLocalizer authorizes, connects to YouTube and opens the history.
// The returned func releases the history store.
func (a *app) newLocalizer(ctx context.Context, cmd *cobra.Command, f localizeFlags) (*localize.Localizer, func(), error) {
	client, err := a.newAuthenticator(cmd).Client(ctx, f.interactive)
	if err != nil {
		return nil, nil, fmt.Errorf("authenticate: %w", err)
	}

	svc, err := youtube.NewService(ctx, youtube.Options{
		HTTPClient: client,
		Logger:     a.log,
	})
	if err != nil {
		return nil, nil, err
	}

	store, closeStore := a.openHistory()
	l, err := localize.New(localize.Options{
		Videos:          svc,
		Translator:      a.newTranslator(),
		Store:           store,
		TargetLanguages: a.cfg.TargetLanguages,
		DefaultLanguage: a.cfg.DefaultLanguage,
		Override: localize.Override{
			Prefix:      a.cfg.DescriptionOverride.Prefix,
			Replacement: a.cfg.DescriptionOverride.Replacement,
		},
		Force:  f.force,
		DryRun: f.dryRun,
		Logger: a.log,
	})
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return l, closeStore, nil
}
