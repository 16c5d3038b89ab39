// Package cognito obtains OAuth2 bearer tokens from a Cognito-style identity
// provider using the client-credentials grant. Tokens are short-lived (on
// the order of an hour); the source caches the current token and refetches
// transparently once it expires, so callers never manage refresh themselves.
package cognito

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Config holds the client-credentials parameters for the token endpoint.
type Config struct {
	// TokenURL is the provider's token endpoint, e.g.
	// https://<domain>.auth.<region>.amazoncognito.com/oauth2/token.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// TokenSource fetches and caches bearer tokens. It satisfies
// mcpclient.TokenSource.
type TokenSource struct {
	source oauth2.TokenSource
	logger *slog.Logger
}

// NewTokenSource creates a token source. The context carries the HTTP client
// used for token fetches over the lifetime of the source.
func NewTokenSource(ctx context.Context, cfg Config, logger *slog.Logger) (*TokenSource, error) {
	if cfg.TokenURL == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("token URL and client ID are required")
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	return &TokenSource{
		source: cc.TokenSource(ctx),
		logger: logger.With("component", "cognito_tokens"),
	}, nil
}

// Token returns a currently valid access token, fetching a new one when the
// cached token has expired.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	tok, err := t.source.Token()
	if err != nil {
		t.logger.Warn("Failed to obtain access token", slog.Any("error", err))
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	return tok.AccessToken, nil
}

// TokenURLForDomain builds the Cognito token endpoint for a user pool domain
// in the given region.
func TokenURLForDomain(domain, region string) string {
	domain = strings.TrimSuffix(domain, "/")
	return fmt.Sprintf("https://%s.auth.%s.amazoncognito.com/oauth2/token", domain, region)
}
