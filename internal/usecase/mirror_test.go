package usecase_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"

	"github.com/agentcore-tools/agentgate/internal/domain"
	"github.com/agentcore-tools/agentgate/internal/usecase"
)

// recordingRegistry captures tool registrations for inspection.
type recordingRegistry struct {
	tools    []mcp.Tool
	handlers map[string]mcpGoServer.ToolHandlerFunc
}

func newRecordingRegistry() *recordingRegistry {
	return &recordingRegistry{handlers: make(map[string]mcpGoServer.ToolHandlerFunc)}
}

func (r *recordingRegistry) AddTool(tool mcp.Tool, handler mcpGoServer.ToolHandlerFunc) {
	r.tools = append(r.tools, tool)
	r.handlers[tool.Name] = handler
}

func TestMirrorToolsUseCase_Execute(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	logger := testLogger()

	rawSchema := json.RawMessage(`{"type":"object","properties":{"message":{"type":"string"}},"required":["message"]}`)
	descriptors := []domain.ToolDescriptor{
		{Name: "external_echo", Description: "Echo a message", InputSchema: rawSchema},
		{Name: "external_server_info", Description: "Server info"},
		{Name: "", Description: "nameless, must be skipped"},
	}

	client := new(MockTargetClient)
	client.On("ListTools", mock.Anything).Return(descriptors, nil).Once()

	registry := newRecordingRegistry()
	proxy := usecase.NewProxyCallUseCase(client, logger)
	uc := usecase.NewMirrorToolsUseCase(client, registry, proxy, logger)

	require.NoError(uc.Execute(ctx))
	assert.True(uc.Healthy())
	assert.Equal([]string{"external_echo", "external_server_info"}, uc.MirroredTools())

	// The target's raw schema must be attached unmodified.
	require.Len(registry.tools, 2)
	assert.Equal("external_echo", registry.tools[0].Name)
	assert.Equal(json.RawMessage(rawSchema), registry.tools[0].RawInputSchema)

	client.AssertExpectations(t)
}

func TestMirrorToolsUseCase_ExecuteListFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	logger := testLogger()

	client := new(MockTargetClient)
	client.On("ListTools", mock.Anything).Return(nil, usecase.ErrTargetUnreachable).Once()

	registry := newRecordingRegistry()
	proxy := usecase.NewProxyCallUseCase(client, logger)
	uc := usecase.NewMirrorToolsUseCase(client, registry, proxy, logger)

	err := uc.Execute(ctx)
	assert.Error(err)
	assert.ErrorIs(err, usecase.ErrTargetUnreachable)
	assert.False(uc.Healthy())
	assert.Empty(registry.tools)
	client.AssertExpectations(t)
}

func TestMirrorHandlerForwardsAndRelays(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	logger := testLogger()

	descriptors := []domain.ToolDescriptor{{Name: "external_echo", Description: "Echo"}}
	relayed := &domain.ToolResult{
		Raw:     json.RawMessage(`{"content":[{"type":"text","text":"echo: hi"}]}`),
		Content: []domain.ResultContent{{Type: "text", Text: "echo: hi"}},
	}

	client := new(MockTargetClient)
	client.On("ListTools", mock.Anything).Return(descriptors, nil).Once()
	client.On("CallTool", mock.Anything, "external_echo", mock.MatchedBy(func(raw json.RawMessage) bool {
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err != nil {
			return false
		}
		return m["message"] == "hi"
	})).Return(relayed, nil).Once()

	registry := newRecordingRegistry()
	proxy := usecase.NewProxyCallUseCase(client, logger)
	uc := usecase.NewMirrorToolsUseCase(client, registry, proxy, logger)
	require.NoError(uc.Execute(ctx))

	handler, ok := registry.handlers["external_echo"]
	require.True(ok)

	req := mcp.CallToolRequest{}
	req.Params.Name = "external_echo"
	req.Params.Arguments = map[string]interface{}{"message": "hi"}

	result, err := handler(ctx, req)
	require.NoError(err)
	require.Len(result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(ok)
	assert.Equal("echo: hi", text.Text)
	assert.False(result.IsError)

	client.AssertExpectations(t)
}
