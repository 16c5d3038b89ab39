package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentcore-tools/agentgate/internal/domain"
)

// MirrorToolsUseCase discovers the target's tools and registers each one 1:1
// on the gateway's own MCP server, with the target's raw input schema and a
// handler that forwards the invocation. This is the alternative to proxy
// mode: instead of three meta-tools, clients see the target's tool surface
// directly.
//
// Registration is idempotent from the server's point of view: re-running a
// sync re-registers the current descriptor set under the same names.
type MirrorToolsUseCase struct {
	client   TargetClient
	registry ToolRegistry
	proxy    *ProxyCallUseCase
	logger   *slog.Logger

	mu       sync.Mutex
	lastErr  error
	mirrored []string
}

// NewMirrorToolsUseCase creates a new MirrorToolsUseCase.
func NewMirrorToolsUseCase(client TargetClient, registry ToolRegistry, proxy *ProxyCallUseCase, logger *slog.Logger) *MirrorToolsUseCase {
	return &MirrorToolsUseCase{
		client:   client,
		registry: registry,
		proxy:    proxy,
		logger:   logger.With("usecase", "MirrorTools"),
	}
}

// Execute fetches the target's tool descriptors and registers a passthrough
// tool for each. Unlike discovery, a transport failure here is returned as an
// error: a mirror sync that found nothing is a fault the operator must see.
func (uc *MirrorToolsUseCase) Execute(ctx context.Context) error {
	uc.logger.Info("Starting mirror sync")

	descriptors, err := uc.client.ListTools(ctx)
	if err != nil {
		uc.logger.Error("Mirror sync failed to list target tools", slog.Any("error", err))
		uc.setResult(nil, err)
		return fmt.Errorf("failed to list target tools for mirroring: %w", err)
	}

	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		if d.Name == "" {
			uc.logger.Warn("Skipping target tool with empty name")
			continue
		}
		uc.registry.AddTool(uc.mirrorTool(d), uc.mirrorHandler(d.Name))
		names = append(names, d.Name)
	}

	uc.setResult(names, nil)
	uc.logger.Info("Mirror sync completed", slog.Int("tool_count", len(names)))
	return nil
}

// Healthy reports whether the last sync succeeded. Used by the status check
// to mark the gateway degraded when its mirrored surface is stale or absent.
func (uc *MirrorToolsUseCase) Healthy() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.lastErr == nil
}

// MirroredTools returns the names registered by the last successful sync.
func (uc *MirrorToolsUseCase) MirroredTools() []string {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	out := make([]string, len(uc.mirrored))
	copy(out, uc.mirrored)
	return out
}

func (uc *MirrorToolsUseCase) setResult(names []string, err error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.lastErr = err
	if err == nil {
		uc.mirrored = names
	}
}

// mirrorTool builds the gateway-side tool definition from a target
// descriptor. The target's input schema is attached raw; when the target
// declared none, an open object schema is used so the tool stays callable.
func (uc *MirrorToolsUseCase) mirrorTool(d domain.ToolDescriptor) mcp.Tool {
	if len(d.InputSchema) > 0 {
		return mcp.NewToolWithRawSchema(d.Name, d.Description, json.RawMessage(d.InputSchema))
	}
	return mcp.NewTool(d.Name, mcp.WithDescription(d.Description))
}

// mirrorHandler returns the passthrough handler for one mirrored tool. The
// caller's arguments are marshalled once into the downstream frame and then
// relayed byte-for-byte; the target's result (including its own errors)
// comes back verbatim.
func (uc *MirrorToolsUseCase) mirrorHandler(name string) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error: invalid arguments for %s - %v", name, err)), nil
		}

		result, err := uc.proxy.Execute(ctx, name, args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error: Failed to call %s - %v", name, err)), nil
		}
		return toolResultFromTarget(result), nil
	}
}

// toolResultFromTarget converts a relayed target result into the mcp-go
// result type without reshaping its content.
func toolResultFromTarget(result *domain.ToolResult) *mcp.CallToolResult {
	out := &mcp.CallToolResult{IsError: result.IsError}
	if len(result.Content) == 0 {
		out.Content = []mcp.Content{mcp.NewTextContent(string(result.Raw))}
		return out
	}
	for _, c := range result.Content {
		out.Content = append(out.Content, mcp.NewTextContent(c.Text))
	}
	return out
}
