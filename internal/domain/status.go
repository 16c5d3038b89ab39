package domain

import "encoding/json"

// GatewayState describes the gateway's own condition.
type GatewayState string

// TargetState describes the reachability of the downstream target server,
// as observed by a fresh probe. It is computed per request and never stored.
type TargetState string

const (
	GatewayRunning  GatewayState = "running"
	GatewayDegraded GatewayState = "degraded"

	TargetHealthy     TargetState = "healthy"
	TargetUnhealthy   TargetState = "unhealthy"
	TargetUnreachable TargetState = "unreachable"
)

// GatewayStatus is the structured result of a status check. An unreachable
// target is reported here as a field value; the gateway itself keeps serving.
type GatewayStatus struct {
	GatewayStatus GatewayState `json:"gateway_status"`
	TargetURL     string       `json:"target_url"`
	TargetStatus  TargetState  `json:"target_status"`
	ProxyMode     bool         `json:"proxy_mode"`
}

// ToolDescriptor represents a tool exposed by the target server,
// compliant with the Model Context Protocol (MCP).
// It is immutable once returned by discovery and is not persisted.
type ToolDescriptor struct {
	// Name is the tool's unique name on the target server.
	Name string `json:"name"`

	// Description is the target's natural language explanation of the tool.
	Description string `json:"description"`

	// InputSchema holds the target's JSON Schema for the tool input, raw and
	// unmodified. The gateway passes it through without interpretation.
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// ToolResult carries the outcome of a proxied tool invocation back to the
// caller. Raw holds the target's result payload verbatim; Content holds the
// parsed content items when the payload followed the standard shape.
type ToolResult struct {
	Raw     json.RawMessage
	Content []ResultContent
	IsError bool
}

// ResultContent is one parsed content item of a tool result.
type ResultContent struct {
	Type string
	Text string
}

// Text returns the first text content of the result, falling back to the raw
// payload when the target returned a non-standard or empty content list.
func (r *ToolResult) Text() string {
	for _, c := range r.Content {
		if c.Type == "text" {
			return c.Text
		}
	}
	return string(r.Raw)
}
