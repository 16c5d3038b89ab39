// Package mcptools registers the gateway's proxy-mode tool surface on the
// MCP server: a status check, a discovery proxy, and an invocation proxy.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentcore-tools/agentgate/internal/usecase"
)

// Deps carries the use cases behind the gateway tools.
type Deps struct {
	Status   *usecase.StatusUseCase
	Discover *usecase.DiscoverToolsUseCase
	Proxy    *usecase.ProxyCallUseCase
	Logger   *slog.Logger
}

// Register adds the three gateway tools to the registry.
func Register(registry usecase.ToolRegistry, deps Deps) {
	logger := deps.Logger.With("component", "gateway_tools")

	registry.AddTool(
		mcp.NewTool("gateway_status",
			mcp.WithDescription("Get gateway status and target connection info"),
		),
		statusHandler(deps.Status),
	)

	registry.AddTool(
		mcp.NewTool("list_target_tools",
			mcp.WithDescription("List all available tools from the target MCP server"),
		),
		discoverHandler(deps.Discover),
	)

	registry.AddTool(
		mcp.NewTool("proxy_tool_call",
			mcp.WithDescription("Proxy a tool call to the target MCP server"),
			mcp.WithString("tool_name",
				mcp.Required(),
				mcp.Description("Name of the tool on the target server"),
			),
			mcp.WithObject("arguments",
				mcp.Description("Arguments to forward to the target tool, unmodified"),
			),
		),
		proxyHandler(deps.Proxy),
	)

	logger.Info("Registered gateway tools",
		slog.Any("tools", []string{"gateway_status", "list_target_tools", "proxy_tool_call"}))
}

// statusHandler probes the target and reports the structured status. The
// probe result is always a successful tool response; unreachable is a value.
func statusHandler(status *usecase.StatusUseCase) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload, err := json.MarshalIndent(status.Execute(ctx), "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error: Failed to encode status - %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

// discoverHandler relays the target's tool list. Failures have already been
// degraded to an empty list by the use case; an empty list renders as a
// human-readable message.
func discoverHandler(discover *usecase.DiscoverToolsUseCase) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := discover.Execute(ctx)
		if len(result.AvailableTools) == 0 && result.Error == "" {
			return mcp.NewToolResultText("no tools available"), nil
		}
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error: Failed to encode tool list - %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

// proxyHandler forwards one invocation to the target. Transport failures
// come back as explicit error payloads; target-side errors are relayed with
// their original text.
func proxyHandler(proxy *usecase.ProxyCallUseCase) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		toolName, err := request.RequireString("tool_name")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error: tool_name is required - %v", err)), nil
		}

		var args json.RawMessage
		if raw, ok := request.GetArguments()["arguments"]; ok && raw != nil {
			encoded, err := json.Marshal(raw)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Error: invalid arguments - %v", err)), nil
			}
			args = encoded
		}

		result, err := proxy.Execute(ctx, toolName, args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error: Failed to call %s - %v", toolName, err)), nil
		}

		out := &mcp.CallToolResult{IsError: result.IsError}
		if len(result.Content) == 0 {
			out.Content = []mcp.Content{mcp.NewTextContent(string(result.Raw))}
			return out, nil
		}
		for _, c := range result.Content {
			out.Content = append(out.Content, mcp.NewTextContent(c.Text))
		}
		return out, nil
	}
}
