// Package mcpclient implements usecase.TargetClient over the MCP streamable
// HTTP transport. Every operation opens a fresh logical session against the
// target (initialize, initialized notification, then the actual request), so
// no state survives a call - stateless targets answer directly and
// session-aware targets get a session ID echoed back within the call.
package mcpclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/agentcore-tools/agentgate/internal/domain"
	"github.com/agentcore-tools/agentgate/internal/usecase"
	"github.com/agentcore-tools/agentgate/pkg/shared/mcpjsonrpc"
)

const sessionHeader = "Mcp-Session-Id"

// TokenSource supplies a bearer token for each outbound request. A nil
// TokenSource means the target is called unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks MCP to a single target endpoint.
type Client struct {
	endpoint string
	client   *http.Client
	tokens   TokenSource
	logger   *slog.Logger
	nextID   atomic.Int64
}

// New creates a new target client. The HTTP client's timeout bounds every
// call; tokens may be nil.
func New(endpoint string, httpClient *http.Client, tokens TokenSource, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint: endpoint,
		client:   httpClient,
		tokens:   tokens,
		logger:   logger.With("component", "mcp_client", "endpoint", endpoint),
	}
}

// ListTools fetches the target's tool descriptors, unmodified.
func (c *Client) ListTools(ctx context.Context) ([]domain.ToolDescriptor, error) {
	resp, err := c.roundTrip(ctx, mcpjsonrpc.MethodToolsList, nil)
	if err != nil {
		return nil, err
	}

	var result mcpjsonrpc.ListToolsResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		c.logger.Warn("Malformed tools/list result", slog.Any("error", err))
		return nil, fmt.Errorf("unmarshal tools/list result: %w", err)
	}

	descriptors := make([]domain.ToolDescriptor, 0, len(result.Tools))
	for _, t := range result.Tools {
		descriptors = append(descriptors, domain.ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return descriptors, nil
}

// CallTool forwards one invocation. The argument bytes are embedded in the
// downstream frame exactly as given; the target's result payload is returned
// verbatim alongside its parsed content.
func (c *Client) CallTool(ctx context.Context, name string, args json.RawMessage) (*domain.ToolResult, error) {
	params := mcpjsonrpc.CallToolParams{Name: name, Arguments: args}
	resp, err := c.roundTrip(ctx, mcpjsonrpc.MethodToolsCall, params)
	if err != nil {
		return nil, err
	}

	result := &domain.ToolResult{Raw: resp.Result}
	var parsed mcpjsonrpc.CallToolResult
	if err := json.Unmarshal(resp.Result, &parsed); err != nil {
		// Non-standard result shape: relay the raw payload as-is.
		c.logger.Debug("Tool result did not parse as content list, relaying raw", slog.Any("error", err))
		return result, nil
	}
	result.IsError = parsed.IsError
	for _, item := range parsed.Content {
		result.Content = append(result.Content, domain.ResultContent{Type: item.Type, Text: item.Text})
	}
	return result, nil
}

// roundTrip performs the per-call session dance and returns the response to
// the actual request. JSON-RPC errors from the target are returned as Go
// errors carrying the target's own code and message.
func (c *Client) roundTrip(ctx context.Context, method string, params interface{}) (*mcpjsonrpc.Response, error) {
	initParams := mcpjsonrpc.InitializeParams{
		ProtocolVersion: mcpjsonrpc.ProtocolVersion,
		Capabilities:    map[string]interface{}{},
		ClientInfo:      mcpjsonrpc.Implementation{Name: "agentgate", Version: "0.1.0"},
	}
	initResp, session, err := c.post(ctx, "", mcpjsonrpc.Request{
		Version: mcpjsonrpc.Version,
		Method:  mcpjsonrpc.MethodInitialize,
		Params:  initParams,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return nil, err
	}
	if initResp.Error != nil {
		return nil, fmt.Errorf("target rejected initialize: %d %s", initResp.Error.Code, initResp.Error.Message)
	}

	// Notification: no ID, no response body expected. Failures here are not
	// fatal for stateless targets.
	if _, _, err := c.post(ctx, session, mcpjsonrpc.Request{
		Version: mcpjsonrpc.Version,
		Method:  mcpjsonrpc.MethodNotificationInitialized,
	}); err != nil {
		c.logger.Debug("Initialized notification failed", slog.Any("error", err))
	}

	resp, _, err := c.post(ctx, session, mcpjsonrpc.Request{
		Version: mcpjsonrpc.Version,
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("target error for %s: %d %s", method, resp.Error.Code, resp.Error.Message)
	}
	return resp, nil
}

// post sends one JSON-RPC frame and decodes the response, which may arrive
// as plain JSON or as an SSE stream of data events. It returns the session
// ID advertised by the target, if any.
func (c *Client) post(ctx context.Context, session string, frame mcpjsonrpc.Request) (*mcpjsonrpc.Response, string, error) {
	body, err := json.Marshal(frame)
	if err != nil {
		return nil, "", fmt.Errorf("marshal %s request: %w", frame.Method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if session != "" {
		req.Header.Set(sessionHeader, session)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("obtain bearer token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", usecase.ErrTargetUnreachable, err)
	}
	defer resp.Body.Close()

	session = resp.Header.Get(sessionHeader)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, session, fmt.Errorf("%w: target returned %s", usecase.ErrUnauthorized, resp.Status)
	case resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusNoContent:
		// Accepted notification; nothing to decode.
		return &mcpjsonrpc.Response{Version: mcpjsonrpc.Version}, session, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, session, fmt.Errorf("target returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	decoded, err := decodeResponse(resp)
	if err != nil {
		return nil, session, err
	}
	return decoded, session, nil
}

func decodeResponse(resp *http.Response) (*mcpjsonrpc.Response, error) {
	contentType := resp.Header.Get("Content-Type")

	var payload []byte
	if strings.Contains(contentType, "text/event-stream") {
		data, err := lastSSEData(resp.Body)
		if err != nil {
			return nil, err
		}
		payload = data
	} else {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		payload = body
	}

	if len(bytes.TrimSpace(payload)) == 0 {
		return &mcpjsonrpc.Response{Version: mcpjsonrpc.Version}, nil
	}

	var out mcpjsonrpc.Response
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &out, nil
}

// lastSSEData scans an SSE stream and returns the payload of the final data
// event, which for request/response exchanges carries the JSON-RPC response.
func lastSSEData(r io.Reader) ([]byte, error) {
	var data []byte
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			data = []byte(strings.TrimPrefix(line, "data: "))
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read event stream: %w", err)
	}
	if data == nil {
		return nil, errors.New("event stream contained no data event")
	}
	return data, nil
}
