package mcpclient_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore-tools/agentgate/internal/adapter/outbound/mcpclient"
	"github.com/agentcore-tools/agentgate/internal/usecase"
	"github.com/agentcore-tools/agentgate/pkg/shared/mcpjsonrpc"
)

type staticToken string

func (s staticToken) Token(ctx context.Context) (string, error) { return string(s), nil }

// fakeTarget speaks just enough stateless streamable HTTP for the client:
// it answers initialize, swallows notifications, and delegates everything
// else to handle.
type fakeTarget struct {
	t      *testing.T
	handle func(t *testing.T, req mcpjsonrpc.Request, raw []byte, w http.ResponseWriter)
}

func (f *fakeTarget) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	require.NoError(f.t, err)

	var req mcpjsonrpc.Request
	require.NoError(f.t, json.Unmarshal(raw, &req))

	switch req.Method {
	case mcpjsonrpc.MethodInitialize:
		writeResult(w, req.ID, map[string]interface{}{
			"protocolVersion": mcpjsonrpc.ProtocolVersion,
			"capabilities":    map[string]interface{}{},
			"serverInfo":      map[string]interface{}{"name": "fake-target", "version": "0.0.1"},
		})
	case mcpjsonrpc.MethodNotificationInitialized:
		w.WriteHeader(http.StatusAccepted)
	default:
		f.handle(f.t, req, raw, w)
	}
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	payload, _ := json.Marshal(result)
	resp := mcpjsonrpc.Response{Version: mcpjsonrpc.Version, Result: payload, ID: id}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, handler http.Handler, tokens mcpclient.TokenSource) *mcpclient.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return mcpclient.New(server.URL+"/mcp", server.Client(), tokens, logger)
}

func TestClient_ListTools(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	schema := `{"type":"object","properties":{"message":{"type":"string"}}}`
	target := &fakeTarget{t: t, handle: func(t *testing.T, req mcpjsonrpc.Request, _ []byte, w http.ResponseWriter) {
		assert.Equal(mcpjsonrpc.MethodToolsList, req.Method)
		writeResult(w, req.ID, map[string]interface{}{
			"tools": []map[string]interface{}{
				{"name": "external_echo", "description": "Echo a message", "inputSchema": json.RawMessage(schema)},
			},
		})
	}}

	client := newTestClient(t, target, nil)
	tools, err := client.ListTools(ctx)
	require.NoError(err)
	require.Len(tools, 1)
	assert.Equal("external_echo", tools[0].Name)
	assert.Equal("Echo a message", tools[0].Description)
	assert.JSONEq(schema, string(tools[0].InputSchema))
}

func TestClient_CallToolRelaysArgumentsVerbatim(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	// Non-alphabetical key order: the byte sequence must survive intact.
	args := json.RawMessage(`{"b":2,"a":1,"nested":{"z":"y"}}`)

	target := &fakeTarget{t: t, handle: func(t *testing.T, req mcpjsonrpc.Request, raw []byte, w http.ResponseWriter) {
		assert.Equal(mcpjsonrpc.MethodToolsCall, req.Method)

		// Pull the arguments back out of the frame as raw bytes.
		var frame struct {
			Params struct {
				Name      string          `json:"name"`
				Arguments json.RawMessage `json:"arguments"`
			} `json:"params"`
		}
		require.NoError(json.Unmarshal(raw, &frame))
		assert.Equal("external_calculate", frame.Params.Name)
		assert.Equal(string(args), string(frame.Params.Arguments))

		writeResult(w, req.ID, map[string]interface{}{
			"content": []map[string]interface{}{{"type": "text", "text": "3"}},
		})
	}}

	client := newTestClient(t, target, nil)
	result, err := client.CallTool(ctx, "external_calculate", args)
	require.NoError(err)
	assert.False(result.IsError)
	assert.Equal("3", result.Text())
}

func TestClient_CallToolRelaysTargetError(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	target := &fakeTarget{t: t, handle: func(t *testing.T, req mcpjsonrpc.Request, _ []byte, w http.ResponseWriter) {
		writeResult(w, req.ID, map[string]interface{}{
			"content": []map[string]interface{}{{"type": "text", "text": "unknown tool: nope"}},
			"isError": true,
		})
	}}

	client := newTestClient(t, target, nil)
	result, err := client.CallTool(ctx, "nope", json.RawMessage(`{}`))
	require.NoError(err)
	assert.True(result.IsError)
	assert.Equal("unknown tool: nope", result.Text())
}

func TestClient_BearerTokenAttached(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	var sawAuth []string
	mux := http.NewServeMux()
	inner := &fakeTarget{t: t, handle: func(t *testing.T, req mcpjsonrpc.Request, _ []byte, w http.ResponseWriter) {
		writeResult(w, req.ID, map[string]interface{}{"tools": []interface{}{}})
	}}
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		sawAuth = append(sawAuth, r.Header.Get("Authorization"))
		inner.ServeHTTP(w, r)
	})

	client := newTestClient(t, mux, staticToken("tok-123"))
	_, err := client.ListTools(ctx)
	require.NoError(err)
	require.NotEmpty(sawAuth)
	for _, h := range sawAuth {
		assert.Equal("Bearer tok-123", h)
	}
}

func TestClient_UnreachableTarget(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	// Nothing listens here.
	client := mcpclient.New("http://127.0.0.1:1/mcp", http.DefaultClient, nil, logger)

	_, err := client.ListTools(ctx)
	assert.ErrorIs(err, usecase.ErrTargetUnreachable)

	_, err = client.CallTool(ctx, "echo", json.RawMessage(`{}`))
	assert.ErrorIs(err, usecase.ErrTargetUnreachable)
}

func TestClient_UnauthorizedTarget(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
	})

	client := newTestClient(t, handler, staticToken("expired"))
	_, err := client.CallTool(ctx, "echo", json.RawMessage(`{}`))
	assert.ErrorIs(err, usecase.ErrUnauthorized)
}

func TestClient_SSEResponseDecoded(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	target := &fakeTarget{t: t, handle: func(t *testing.T, req mcpjsonrpc.Request, _ []byte, w http.ResponseWriter) {
		payload, _ := json.Marshal(mcpjsonrpc.Response{
			Version: mcpjsonrpc.Version,
			Result:  json.RawMessage(`{"tools":[{"name":"sse_tool","description":"via sse"}]}`),
			ID:      req.ID,
		})
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
	}}

	client := newTestClient(t, target, nil)
	tools, err := client.ListTools(ctx)
	require.NoError(err)
	require.Len(tools, 1)
	assert.Equal("sse_tool", tools[0].Name)
}

func TestClient_MalformedToolListResult(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	target := &fakeTarget{t: t, handle: func(t *testing.T, req mcpjsonrpc.Request, _ []byte, w http.ResponseWriter) {
		resp := mcpjsonrpc.Response{Version: mcpjsonrpc.Version, Result: json.RawMessage(`"not an object"`), ID: req.ID}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}}

	client := newTestClient(t, target, nil)
	_, err := client.ListTools(ctx)
	assert.Error(err)
	assert.Contains(err.Error(), "unmarshal tools/list result")
}
