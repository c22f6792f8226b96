package llm

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource fetches a fresh access token.
type TokenSource func(ctx context.Context) (*oauth2.Token, error)

// tokenLeeway refreshes a token this long before it expires.
const tokenLeeway = 30 * time.Second

// TokenCache holds one provider's bearer token and refreshes it on demand.
// Each Apollo client owns one; there is no process-wide cache.
type TokenCache struct {
	mu     sync.Mutex
	source TokenSource
	token  string
	expiry time.Time
}

// NewTokenCache creates a cache over source.
func NewTokenCache(source TokenSource) *TokenCache {
	return &TokenCache{source: source}
}

// NewClientCredentialsCache creates a cache that uses the OAuth2 client credentials grant.
func NewClientCredentialsCache(clientID, clientSecret, tokenURL string) *TokenCache {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	return NewTokenCache(cfg.Token)
}

// GetOrRefresh returns the cached token while it is valid at now, fetching a new one otherwise.
// A token without an expiry is kept until Invalidate.
func (c *TokenCache) GetOrRefresh(ctx context.Context, now time.Time) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && (c.expiry.IsZero() || now.Add(tokenLeeway).Before(c.expiry)) {
		return c.token, nil
	}

	tok, err := c.source(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to obtain access token: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}
	c.token = tok.AccessToken
	c.expiry = tok.Expiry
	return c.token, nil
}

// Invalidate drops the cached token so the next call fetches a new one.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiry = time.Time{}
	c.mu.Unlock()
}

// bearerTransport authorizes each request with a token from the cache.
type bearerTransport struct {
	base  http.RoundTripper
	cache *TokenCache
	now   func() time.Time
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.cache.GetOrRefresh(req.Context(), t.now())
	if err != nil {
		return nil, err
	}

	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+token)

	resp, err := t.base.RoundTrip(r)
	if err == nil && resp.StatusCode == http.StatusUnauthorized {
		t.cache.Invalidate()
	}
	return resp, err
}

// NewApolloClient creates a client for the Apollo gateway, an OpenAI-compatible
// endpoint authorized with client-credential tokens from cache.
func NewApolloClient(baseURL, model string, cache *TokenCache, timeout time.Duration) (Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: apollo base URL is missing", ErrNotConfigured)
	}
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &bearerTransport{
			base:  http.DefaultTransport,
			cache: cache,
			now:   time.Now,
		},
	}
	return NewOpenAICompatibleClient(ProviderApollo, baseURL, "", model, httpClient)
}
