package usecase

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentcore-tools/agentgate/internal/domain"
)

// StatusUseCase computes the gateway status by probing the configured target.
// The result is assembled fresh on every call; nothing is cached.
type StatusUseCase struct {
	targetURL string
	proxyMode bool
	prober    HealthProber
	// degraded reports whether the gateway itself is impaired (e.g. mirror
	// registration failed). Nil means the gateway is always "running".
	degraded func() bool
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewStatusUseCase creates a new StatusUseCase.
func NewStatusUseCase(targetURL string, proxyMode bool, prober HealthProber, degraded func() bool, logger *slog.Logger) *StatusUseCase {
	return &StatusUseCase{
		targetURL: targetURL,
		proxyMode: proxyMode,
		prober:    prober,
		degraded:  degraded,
		logger:    logger.With("usecase", "Status"),
		tracer:    otel.Tracer("agentgate/usecase"),
	}
}

// Execute probes the target and returns the gateway status. It never returns
// an error: an unreachable target is a status value, and the gateway reports
// itself as running regardless of the target's condition.
func (uc *StatusUseCase) Execute(ctx context.Context) domain.GatewayStatus {
	ctx, span := uc.tracer.Start(ctx, "gateway.status")
	defer span.End()

	targetState := uc.prober.Probe(ctx)
	span.SetAttributes(attribute.String("target.status", string(targetState)))

	gatewayState := domain.GatewayRunning
	if uc.degraded != nil && uc.degraded() {
		gatewayState = domain.GatewayDegraded
	}

	uc.logger.Info("Computed gateway status",
		slog.String("gateway_status", string(gatewayState)),
		slog.String("target_status", string(targetState)))

	return domain.GatewayStatus{
		GatewayStatus: gatewayState,
		TargetURL:     uc.targetURL,
		TargetStatus:  targetState,
		ProxyMode:     uc.proxyMode,
	}
}
