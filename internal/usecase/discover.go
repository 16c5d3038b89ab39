package usecase

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/agentcore-tools/agentgate/internal/domain"
)

// DiscoveryResult is the envelope returned to callers of the discovery
// operation. On failure AvailableTools is empty and Error carries the reason;
// a raw transport exception is never propagated to the client.
type DiscoveryResult struct {
	AvailableTools []domain.ToolDescriptor `json:"available_tools"`
	TargetServer   string                  `json:"target_server"`
	GatewayStatus  string                  `json:"gateway_status"` // "connected" or "disconnected"
	Error          string                  `json:"error,omitempty"`
}

// DiscoverToolsUseCase forwards a list-tools request to the target and
// returns the target's descriptors unmodified.
type DiscoverToolsUseCase struct {
	client    TargetClient
	targetURL string
	logger    *slog.Logger
	failures  metric.Int64Counter
}

// NewDiscoverToolsUseCase creates a new DiscoverToolsUseCase.
func NewDiscoverToolsUseCase(client TargetClient, targetURL string, logger *slog.Logger) *DiscoverToolsUseCase {
	meter := otel.Meter("agentgate/usecase")
	failures, err := meter.Int64Counter("gateway.discovery.failures")
	if err != nil {
		logger.Warn("Failed to create discovery failure counter", slog.Any("error", err))
	}
	return &DiscoverToolsUseCase{
		client:    client,
		targetURL: targetURL,
		logger:    logger.With("usecase", "DiscoverTools"),
		failures:  failures,
	}
}

// Execute lists the target's tools. Transport failures and malformed
// responses degrade to an empty descriptor list with the error indicator set.
func (uc *DiscoverToolsUseCase) Execute(ctx context.Context) DiscoveryResult {
	tools, err := uc.client.ListTools(ctx)
	if err != nil {
		uc.logger.Warn("Failed to list target tools, returning empty list", slog.Any("error", err))
		if uc.failures != nil {
			uc.failures.Add(ctx, 1)
		}
		return DiscoveryResult{
			AvailableTools: []domain.ToolDescriptor{},
			TargetServer:   uc.targetURL,
			GatewayStatus:  "disconnected",
			Error:          err.Error(),
		}
	}

	uc.logger.Info("Listed target tools", slog.Int("count", len(tools)))
	if tools == nil {
		tools = []domain.ToolDescriptor{}
	}
	return DiscoveryResult{
		AvailableTools: tools,
		TargetServer:   uc.targetURL,
		GatewayStatus:  "connected",
	}
}
