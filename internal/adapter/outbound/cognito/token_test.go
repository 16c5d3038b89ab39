package cognito_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore-tools/agentgate/internal/adapter/outbound/cognito"
)

func TestTokenSource_FetchesAndCaches(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		require.NoError(r.ParseForm())
		assert.Equal("client_credentials", r.PostFormValue("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-abc","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(server.Close)

	ts, err := cognito.NewTokenSource(context.Background(), cognito.Config{
		TokenURL:     server.URL + "/oauth2/token",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}, logger)
	require.NoError(err)

	tok, err := ts.Token(context.Background())
	require.NoError(err)
	assert.Equal("tok-abc", tok)

	// Second call is served from cache; the endpoint sees one request.
	tok, err = ts.Token(context.Background())
	require.NoError(err)
	assert.Equal("tok-abc", tok)
	assert.Equal(1, hits)
}

func TestTokenSource_EndpointError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	ts, err := cognito.NewTokenSource(context.Background(), cognito.Config{
		TokenURL: server.URL + "/oauth2/token",
		ClientID: "client-id",
	}, logger)
	require.NoError(t, err)

	_, err = ts.Token(context.Background())
	assert.Error(t, err)
}

func TestNewTokenSourceValidation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	_, err := cognito.NewTokenSource(context.Background(), cognito.Config{}, logger)
	assert.Error(t, err)
}

func TestTokenURLForDomain(t *testing.T) {
	assert.Equal(t,
		"https://my-pool.auth.us-east-1.amazoncognito.com/oauth2/token",
		cognito.TokenURLForDomain("my-pool", "us-east-1"))
}
