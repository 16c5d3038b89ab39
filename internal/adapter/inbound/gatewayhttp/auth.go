package gatewayhttp

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/agentcore-tools/agentgate/configs"
	"github.com/agentcore-tools/agentgate/internal/usecase"
)

// TokenVerifier validates an inbound bearer token. Implementations return an
// error wrapping usecase.ErrUnauthorized for missing, invalid, or expired
// credentials; a rejected request never reaches the target.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) error
}

// VerifierFunc adapts a function to the TokenVerifier interface.
type VerifierFunc func(ctx context.Context, token string) error

func (f VerifierFunc) Verify(ctx context.Context, token string) error { return f(ctx, token) }

// NewStaticVerifier accepts exactly one pre-shared token, compared in
// constant time.
func NewStaticVerifier(token string) TokenVerifier {
	expected := []byte(token)
	return VerifierFunc(func(ctx context.Context, presented string) error {
		if subtle.ConstantTimeCompare(expected, []byte(presented)) != 1 {
			return fmt.Errorf("%w: invalid token", usecase.ErrUnauthorized)
		}
		return nil
	})
}

// JWTVerifier validates bearer tokens against a customJWTAuthorizer
// descriptor: signature via the provider's JWKS, expiry, and an
// allow-listed client.
type JWTVerifier struct {
	keys    keyfunc.Keyfunc
	allowed map[string]struct{}
	logger  *slog.Logger
}

// NewJWTVerifier resolves the provider's JWKS through its OIDC discovery
// document and builds a verifier. The keyfunc refreshes keys in the
// background for the lifetime of ctx.
func NewJWTVerifier(ctx context.Context, authorizer configs.JWTAuthorizer, httpClient *http.Client, logger *slog.Logger) (*JWTVerifier, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jwksURL, err := discoverJWKSURL(ctx, httpClient, authorizer.DiscoveryURL)
	if err != nil {
		return nil, fmt.Errorf("resolve JWKS from discovery document: %w", err)
	}

	keys, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("load JWKS from %s: %w", jwksURL, err)
	}

	allowed := make(map[string]struct{}, len(authorizer.AllowedClients))
	for _, c := range authorizer.AllowedClients {
		allowed[c] = struct{}{}
	}

	return &JWTVerifier{
		keys:    keys,
		allowed: allowed,
		logger:  logger.With("component", "jwt_verifier"),
	}, nil
}

// Verify parses and validates the token. Expired or unsigned tokens fail
// signature/claim validation in jwt.Parse; the client check runs after.
func (v *JWTVerifier) Verify(ctx context.Context, token string) error {
	parsed, err := jwt.Parse(token, v.keys.Keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		v.logger.Warn("Rejected bearer token", slog.Any("error", err))
		return fmt.Errorf("%w: %v", usecase.ErrUnauthorized, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("%w: unexpected claims type", usecase.ErrUnauthorized)
	}
	if !v.clientAllowed(claims) {
		v.logger.Warn("Rejected bearer token for unlisted client")
		return fmt.Errorf("%w: client not allowed", usecase.ErrUnauthorized)
	}
	return nil
}

// clientAllowed accepts the token when client_id (Cognito access tokens) or
// any aud entry (id tokens) is on the allow list.
func (v *JWTVerifier) clientAllowed(claims jwt.MapClaims) bool {
	if id, ok := claims["client_id"].(string); ok {
		if _, found := v.allowed[id]; found {
			return true
		}
	}
	aud, err := claims.GetAudience()
	if err != nil {
		return false
	}
	for _, a := range aud {
		if _, found := v.allowed[a]; found {
			return true
		}
	}
	return false
}

func discoverJWKSURL(ctx context.Context, client *http.Client, discoveryURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return "", fmt.Errorf("create discovery request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("discovery document returned HTTP %d", resp.StatusCode)
	}

	var doc struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode discovery document: %w", err)
	}
	if doc.JWKSURI == "" {
		return "", fmt.Errorf("discovery document has no jwks_uri")
	}
	return doc.JWKSURI, nil
}
