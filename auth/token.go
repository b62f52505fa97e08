package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"ytlocalize/storage"
)

// storedToken is the on-disk token. It reads both the Google authorized-user
// format ("token", "client_id", ...) and plain oauth2.Token JSON
// ("access_token", ...). It always writes the authorized-user format so the
// file can be pasted into TOKEN_JSON.
type storedToken struct {
	Token        string   `json:"token,omitempty"`
	AccessToken  string   `json:"access_token,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	TokenType    string   `json:"token_type,omitempty"`
	TokenURI     string   `json:"token_uri,omitempty"`
	ClientID     string   `json:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	Expiry       string   `json:"expiry,omitempty"`
}

func parseToken(data []byte) (*storedToken, error) {
	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if st.Token == "" {
		st.Token = st.AccessToken
	}
	st.AccessToken = ""
	if st.Token == "" && st.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no access or refresh token", ErrInvalidToken)
	}
	if st.Expiry != "" {
		if _, err := time.Parse(time.RFC3339, st.Expiry); err != nil {
			return nil, fmt.Errorf("%w: expiry: %v", ErrInvalidToken, err)
		}
	}
	return &st, nil
}

// oauthToken converts to an oauth2.Token. Expiry was validated by parseToken.
func (st *storedToken) oauthToken() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  st.Token,
		RefreshToken: st.RefreshToken,
		TokenType:    st.TokenType,
	}
	if st.Expiry != "" {
		tok.Expiry, _ = time.Parse(time.RFC3339, st.Expiry)
	}
	return tok
}

// config builds an OAuth config from the client fields embedded in the token.
func (st *storedToken) config() *oauth2.Config {
	endpoint := google.Endpoint
	if st.TokenURI != "" {
		endpoint.TokenURL = st.TokenURI
	}
	return &oauth2.Config{
		ClientID:     st.ClientID,
		ClientSecret: st.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       st.Scopes,
	}
}

func newStoredToken(tok *oauth2.Token, cfg *oauth2.Config) *storedToken {
	st := &storedToken{
		Token:        tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		TokenURI:     cfg.Endpoint.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
	}
	if !tok.Expiry.IsZero() {
		st.Expiry = tok.Expiry.UTC().Format(time.RFC3339)
	}
	return st
}

func readTokenFile(path string) (*storedToken, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseToken(data)
}

func writeTokenFile(path string, st *storedToken) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return storage.WriteFileAtomic(path, data, 0o600)
}
