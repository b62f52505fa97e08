// Package auth obtains OAuth 2.0 credentials for the YouTube Data API.
//
// Credentials come from one of two places:
//  1. TOKEN_JSON (and optionally CLIENT_SECRET_JSON) for unattended runs.
//     The token is refreshed in memory and never written back.
//  2. A token file next to a client secrets file. When the token is missing
//     or cannot be refreshed, an interactive loopback flow is started:
//     a local server listens on 127.0.0.1, the browser is sent to Google,
//     and the authorization code is exchanged (with PKCE) for a token that
//     is then saved atomically.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scope grants read and write access to the channel's videos.
const Scope = "https://www.googleapis.com/auth/youtube.force-ssl"

var (
	// ErrNoCredentials indicates that no token is available and the
	// interactive flow was not allowed.
	ErrNoCredentials = errors.New("auth: no credentials")
	// ErrNoClientSecrets indicates that no OAuth client configuration was found.
	ErrNoClientSecrets = errors.New("auth: no client secrets")
	// ErrInvalidToken indicates a token document that cannot be used.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrStateMismatch indicates a callback whose state does not match the request.
	ErrStateMismatch = errors.New("auth: state mismatch")
	// ErrAuthorizationDenied indicates the user or Google rejected the request.
	ErrAuthorizationDenied = errors.New("auth: authorization denied")
)

// Options configures an Authenticator.
type Options struct {
	// TokenJSON and ClientSecretJSON hold inline credentials. When TokenJSON
	// is set the files below are ignored.
	TokenJSON        string
	ClientSecretJSON string

	// ClientSecretsFile is the OAuth client file downloaded from the Google
	// Cloud console.
	ClientSecretsFile string

	// TokenFile is where the token is read from and saved to.
	TokenFile string

	// Endpoint overrides the Google OAuth endpoint.
	Endpoint *oauth2.Endpoint

	// OpenBrowser is called with the authorization URL. Nil uses the
	// platform opener.
	OpenBrowser func(url string) error

	// Prompt is called with the authorization URL before the browser opens.
	Prompt func(url string)

	Logger *slog.Logger
}

// Authenticator produces authorized HTTP clients.
type Authenticator struct {
	opts Options
	log  *slog.Logger
}

// New creates an Authenticator.
func New(opts Options) *Authenticator {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = openBrowser
	}
	return &Authenticator{opts: opts, log: log}
}

// Client returns an HTTP client that authorizes requests with the stored
// token, refreshing it as needed. When interactive is true and no usable
// token exists, the loopback flow is run.
func (a *Authenticator) Client(ctx context.Context, interactive bool) (*http.Client, error) {
	ts, err := a.TokenSource(ctx, interactive)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

// TokenSource returns a refreshing token source. See Client.
func (a *Authenticator) TokenSource(ctx context.Context, interactive bool) (oauth2.TokenSource, error) {
	if a.opts.TokenJSON != "" {
		return a.inlineTokenSource(ctx)
	}

	cfg, cfgErr := a.clientConfig()

	stored, err := readTokenFile(a.opts.TokenFile)
	switch {
	case err == nil:
		if cfgErr != nil {
			cfg = a.withEndpoint(stored.config())
		}
		tok := stored.oauthToken()
		fresh, err := cfg.TokenSource(ctx, tok).Token()
		if err == nil {
			if fresh.AccessToken != tok.AccessToken {
				a.log.Debug("token refreshed", "file", a.opts.TokenFile)
				if err := writeTokenFile(a.opts.TokenFile, newStoredToken(fresh, cfg)); err != nil {
					a.log.Warn("could not save refreshed token", "file", a.opts.TokenFile, "error", err)
				}
			}
			return cfg.TokenSource(ctx, fresh), nil
		}
		if !interactive {
			return nil, fmt.Errorf("refresh token: %w", err)
		}
		a.log.Warn("stored token is unusable, starting authorization", "error", err)
	case errors.Is(err, os.ErrNotExist):
		if !interactive {
			return nil, fmt.Errorf("%w: %s not found", ErrNoCredentials, a.opts.TokenFile)
		}
	default:
		if !interactive {
			return nil, err
		}
		a.log.Warn("stored token is unreadable, starting authorization", "error", err)
	}

	if cfgErr != nil {
		return nil, cfgErr
	}

	tok, err := a.Login(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := writeTokenFile(a.opts.TokenFile, newStoredToken(tok, cfg)); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	a.log.Info("token saved", "file", a.opts.TokenFile)
	return cfg.TokenSource(ctx, tok), nil
}

func (a *Authenticator) inlineTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	stored, err := parseToken([]byte(a.opts.TokenJSON))
	if err != nil {
		return nil, fmt.Errorf("TOKEN_JSON: %w", err)
	}

	cfg := a.withEndpoint(stored.config())
	if stored.ClientID == "" {
		if cfg, err = a.clientConfig(); err != nil {
			return nil, err
		}
	}

	tok := stored.oauthToken()
	ts := cfg.TokenSource(ctx, tok)
	if !tok.Valid() {
		a.log.Info("refreshing token")
		fresh, err := ts.Token()
		if err != nil {
			return nil, fmt.Errorf("refresh token: %w", err)
		}
		return cfg.TokenSource(ctx, fresh), nil
	}
	return ts, nil
}

// clientConfig loads the OAuth client configuration from ClientSecretJSON or
// ClientSecretsFile.
func (a *Authenticator) clientConfig() (*oauth2.Config, error) {
	data := []byte(a.opts.ClientSecretJSON)
	if len(data) == 0 {
		if a.opts.ClientSecretsFile == "" {
			return nil, ErrNoClientSecrets
		}
		var err error
		data, err = os.ReadFile(a.opts.ClientSecretsFile)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s not found", ErrNoClientSecrets, a.opts.ClientSecretsFile)
			}
			return nil, fmt.Errorf("read client secrets: %w", err)
		}
	}

	cfg, err := google.ConfigFromJSON(data, Scope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoClientSecrets, err)
	}
	return a.withEndpoint(cfg), nil
}

func (a *Authenticator) withEndpoint(cfg *oauth2.Config) *oauth2.Config {
	if a.opts.Endpoint != nil {
		cfg.Endpoint = *a.opts.Endpoint
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{Scope}
	}
	return cfg
}

// Login runs the installed-app authorization code flow with a loopback
// redirect and returns the exchanged token.
func (a *Authenticator) Login(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("start callback server: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	flow := *cfg
	flow.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/", port)

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := flow.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	codes := make(chan callbackResult, 1)
	server := &http.Server{
		Handler:           callbackRouter(state, codes),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			codes <- callbackResult{err: fmt.Errorf("callback server: %w", err)}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if a.opts.Prompt != nil {
		a.opts.Prompt(authURL)
	}
	a.log.Info("waiting for authorization", "redirect", flow.RedirectURL)
	if err := a.opts.OpenBrowser(authURL); err != nil {
		a.log.Debug("could not open browser", "error", err)
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-codes:
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := flow.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}

type callbackResult struct {
	code string
	err  error
}

// callbackRouter handles the single redirect from Google. Only the first
// callback is delivered.
func callbackRouter(state string, results chan<- callbackResult) http.Handler {
	deliver := func(r callbackResult) {
		select {
		case results <- r:
		default:
		}
	}

	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if e := q.Get("error"); e != "" {
			http.Error(w, "Authorization failed. You can close this window.", http.StatusBadRequest)
			deliver(callbackResult{err: fmt.Errorf("%w: %s", ErrAuthorizationDenied, e)})
			return
		}
		if q.Get("state") != state {
			http.Error(w, "Invalid state. You can close this window.", http.StatusBadRequest)
			deliver(callbackResult{err: ErrStateMismatch})
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "Missing code. You can close this window.", http.StatusBadRequest)
			deliver(callbackResult{err: fmt.Errorf("%w: no authorization code", ErrAuthorizationDenied)})
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "Authorization complete. You can close this window.")
		deliver(callbackResult{code: code})
	})
	return r
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
