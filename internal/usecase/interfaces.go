package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/agentcore-tools/agentgate/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"
)

// Standard errors returned by use cases and adapters.
var (
	// ErrTargetUnreachable indicates the target server could not be reached
	// at the transport level (connection refused, DNS failure, timeout).
	ErrTargetUnreachable = errors.New("target server unreachable")

	// ErrUnauthorized indicates a request was rejected for a missing,
	// invalid, or expired bearer token.
	ErrUnauthorized = errors.New("unauthorized")
)

// TargetClient defines the interface for talking MCP to the downstream
// target server. Each call is self-contained: implementations open (or
// reuse) their own connection and hold no state across calls.
type TargetClient interface {
	// ListTools returns the target's tool descriptors, unmodified.
	ListTools(ctx context.Context) ([]domain.ToolDescriptor, error)

	// CallTool forwards a single invocation attempt. The argument bytes are
	// sent to the target exactly as given. Target-side tool errors come back
	// inside the result (IsError set), not as a Go error.
	CallTool(ctx context.Context, name string, args json.RawMessage) (*domain.ToolResult, error)
}

// HealthProber checks the reachability of the target server. A probe never
// fails: transport faults map to domain.TargetUnreachable.
type HealthProber interface {
	Probe(ctx context.Context) domain.TargetState
}

// ToolRegistry defines the interface the use cases need to register tools on
// the underlying MCP server (mcp-go). This avoids a direct dependency on a
// specific server implementation in the registration flow.
type ToolRegistry interface {
	AddTool(tool mcp.Tool, handler mcpGoServer.ToolHandlerFunc)
}
