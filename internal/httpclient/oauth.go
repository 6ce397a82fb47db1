package httpclient

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Credential is a named OAuth2 client-credentials configuration
// referenced by a request's `# @auth <name>` directive.
type Credential struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// TokenProvider resolves Credentials to bearer tokens, caching each
// token source for the lifetime of the run (oauth2's TokenSource already
// handles refresh-before-expiry internally).
type TokenProvider struct {
	mu      sync.Mutex
	sources map[string]oauth2.TokenSource
	creds   map[string]Credential
}

// NewTokenProvider builds a TokenProvider over the run's configured
// credentials (the `credentials` config section).
func NewTokenProvider(creds map[string]Credential) *TokenProvider {
	return &TokenProvider{
		sources: make(map[string]oauth2.TokenSource),
		creds:   creds,
	}
}

// BearerToken returns the current access token for the named credential,
// acquiring and caching a TokenSource on first use.
func (p *TokenProvider) BearerToken(ctx context.Context, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	src, ok := p.sources[name]
	if !ok {
		cred, ok := p.creds[name]
		if !ok {
			return "", fmt.Errorf("no credential configured for auth directive %q", name)
		}
		cfg := clientcredentials.Config{
			ClientID:     cred.ClientID,
			ClientSecret: cred.ClientSecret,
			TokenURL:     cred.TokenURL,
			Scopes:       cred.Scopes,
		}
		src = cfg.TokenSource(ctx)
		p.sources[name] = src
	}

	token, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("acquiring token for %q: %w", name, err)
	}
	return token.Type() + " " + token.AccessToken, nil
}
