package kick

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultOAuthHost = "https://id.kick.com"

	// ScopeEventsSubscribe is required to register event subscriptions.
	ScopeEventsSubscribe = "events:subscribe"

	httpCallTimeout = 20 * time.Second
)

// TokenExchangeError carries the upstream detail of a failed code
// exchange. StatusCode and Body are zero when the failure happened
// before a response arrived (timeout, connection refused).
type TokenExchangeError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TokenExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token exchange failed with status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

// OAuthClient builds authorize URLs and exchanges authorization codes
// for access tokens against the Kick OAuth endpoints.
type OAuthClient struct {
	clientID     string
	clientSecret string
	redirectURI  string
	oauthHost    string // configurable for testing
	httpClient   *http.Client
}

func NewOAuthClient(clientID, clientSecret, redirectURI string) *OAuthClient {
	return &OAuthClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		oauthHost:    defaultOAuthHost,
		httpClient:   &http.Client{Timeout: httpCallTimeout},
	}
}

// AuthorizeURL assembles the upstream authorize URL for a login
// attempt. Pure construction: no network I/O, and the verifier itself
// never appears in the URL.
func (c *OAuthClient) AuthorizeURL(state, challenge string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("scope", ScopeEventsSubscribe)
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "S256")
	q.Set("state", state)
	return c.oauthHost + "/oauth/authorize?" + q.Encode()
}

// ExchangeCode redeems an authorization code plus its PKCE verifier for
// a token response. The response body is returned verbatim as a map;
// callers must check for the access_token key themselves. Any non-2xx
// status or transport failure yields a *TokenExchangeError.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code, verifier string) (map[string]any, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("redirect_uri", c.redirectURI)
	data.Set("code_verifier", verifier)
	data.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauthHost+"/oauth/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &TokenExchangeError{Err: fmt.Errorf("failed to create token request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TokenExchangeError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TokenExchangeError{Err: fmt.Errorf("failed to read token response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TokenExchangeError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var token map[string]any
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, &TokenExchangeError{Err: fmt.Errorf("failed to decode token response: %w", err)}
	}

	return token, nil
}
