package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentcore-tools/agentgate/internal/domain"
)

// ProxyCallUseCase forwards a named tool invocation to the target server and
// relays the result content unmodified. There is exactly one forwarding
// attempt per call: failures surface to the caller, nothing is retried.
type ProxyCallUseCase struct {
	client TargetClient
	logger *slog.Logger
	tracer trace.Tracer
	calls  metric.Int64Counter
}

// NewProxyCallUseCase creates a new ProxyCallUseCase.
func NewProxyCallUseCase(client TargetClient, logger *slog.Logger) *ProxyCallUseCase {
	meter := otel.Meter("agentgate/usecase")
	calls, err := meter.Int64Counter("gateway.proxy.calls")
	if err != nil {
		logger.Warn("Failed to create proxy call counter", slog.Any("error", err))
	}
	return &ProxyCallUseCase{
		client: client,
		logger: logger.With("usecase", "ProxyCall"),
		tracer: otel.Tracer("agentgate/usecase"),
		calls:  calls,
	}
}

// Execute forwards the invocation. The argument bytes reach the target
// exactly as given. Target-side errors (unknown tool, argument validation)
// arrive inside the returned result and are relayed rather than
// re-interpreted; only transport-level faults return a Go error.
func (uc *ProxyCallUseCase) Execute(ctx context.Context, toolName string, args json.RawMessage) (*domain.ToolResult, error) {
	log := uc.logger.With(slog.String("tool_name", toolName))

	ctx, span := uc.tracer.Start(ctx, "gateway.proxy.call",
		trace.WithAttributes(attribute.String("tool.name", toolName)))
	defer span.End()

	if uc.calls != nil {
		uc.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("tool.name", toolName)))
	}

	log.Info("Forwarding tool invocation")
	result, err := uc.client.CallTool(ctx, toolName, args)
	if err != nil {
		log.Error("Failed to forward tool invocation", slog.Any("error", err))
		return nil, fmt.Errorf("failed to call %s on target: %w", toolName, err)
	}

	log.Info("Tool invocation relayed", slog.Bool("is_error", result.IsError))
	return result, nil
}
