package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// safetyMargin keeps a cached token from expiring mid-request: a token is
// only served while now < expiry - safetyMargin.
const safetyMargin = 5 * time.Minute

// ClientCredentialsProvider implements TokenProvider using the provider's
// OAuth2 client credentials flow. It caches exactly one token process-wide
// and replaces (never mutates) it when expired or invalidated. Thread-safe
// via mutex.
type ClientCredentialsProvider struct {
	clientID     string
	clientSecret string
	scope        string
	tokenURL     string
	client       *http.Client

	mu      sync.Mutex
	token   string
	expiry  time.Time
	nowFunc func() time.Time // for testing
}

// AuthOption configures the ClientCredentialsProvider.
type AuthOption func(*ClientCredentialsProvider)

// WithAuthHTTPClient overrides the default HTTP client.
func WithAuthHTTPClient(c *http.Client) AuthOption {
	return func(p *ClientCredentialsProvider) {
		p.client = c
	}
}

// WithAuthNowFunc overrides the time function for testing.
func WithAuthNowFunc(f func() time.Time) AuthOption {
	return func(p *ClientCredentialsProvider) {
		p.nowFunc = f
	}
}

// NewClientCredentialsProvider creates a token provider for the given
// credentials. Returns ErrMissingCredentials if any required part is empty,
// before any network call is made.
func NewClientCredentialsProvider(
	tokenURL, clientID, clientSecret, scope string,
	opts ...AuthOption,
) (*ClientCredentialsProvider, error) {
	if tokenURL == "" || clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}

	p := &ClientCredentialsProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        scope,
		tokenURL:     tokenURL,
		client:       &http.Client{Timeout: 10 * time.Second},
		nowFunc:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Token returns a valid access token, performing a fresh exchange when the
// cached token is absent or within the safety margin of its expiry.
func (p *ClientCredentialsProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.nowFunc().Before(p.expiry.Add(-safetyMargin)) {
		return p.token, nil
	}

	return p.exchangeLocked(ctx)
}

// Invalidate drops the cached token. The next Token call re-exchanges.
// Used when a downstream call comes back 401 despite a cached token.
func (p *ClientCredentialsProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
	p.expiry = time.Time{}
}

func (p *ClientCredentialsProvider) exchangeLocked(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {p.clientID},
		"client_secret": {p.clientSecret},
		"scope":         {p.scope},
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.tokenURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &AuthError{StatusCode: 0, Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp tokenErrorResponse
		_ = json.Unmarshal(body, &errResp) //nolint:errcheck // best-effort error parsing
		detail := errResp.Error
		if errResp.ErrorDescription != "" {
			detail += " - " + errResp.ErrorDescription
		}
		return "", &AuthError{StatusCode: resp.StatusCode, Detail: detail}
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("parsing token response: %w", err)
	}

	p.token = tokenResp.AccessToken
	p.expiry = p.nowFunc().Add(
		time.Duration(tokenResp.ExpiresIn) * time.Second,
	)

	return p.token, nil
}
