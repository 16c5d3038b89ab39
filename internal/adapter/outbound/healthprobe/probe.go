// Package healthprobe implements usecase.HealthProber with a bounded HTTP
// GET against the target's health endpoint.
package healthprobe

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/agentcore-tools/agentgate/internal/domain"
)

// DefaultTimeout bounds a single probe when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Prober checks one health URL. It never returns an error: every failure
// mode maps to a TargetState value.
type Prober struct {
	url     string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a new Prober for the given health URL.
func New(healthURL string, client *http.Client, timeout time.Duration, logger *slog.Logger) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		url:     healthURL,
		client:  client,
		timeout: timeout,
		logger:  logger.With("component", "health_probe", "url", healthURL),
	}
}

// Probe performs one GET against the health endpoint. Transport faults map
// to unreachable, non-2xx responses to unhealthy.
func (p *Prober) Probe(ctx context.Context) domain.TargetState {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.logger.Error("Failed to build probe request", slog.Any("error", err))
		return domain.TargetUnreachable
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("Target probe failed", slog.Any("error", err))
		return domain.TargetUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return domain.TargetHealthy
	}
	p.logger.Warn("Target probe returned non-success status", slog.Int("status_code", resp.StatusCode))
	return domain.TargetUnhealthy
}

// HealthURL derives the conventional health endpoint from an MCP target URL:
// the trailing /mcp path segment is replaced with /health.
func HealthURL(targetURL string) string {
	base := strings.TrimRight(targetURL, "/")
	base = strings.TrimSuffix(base, "/mcp")
	return base + "/health"
}
