package healthprobe_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentcore-tools/agentgate/internal/adapter/outbound/healthprobe"
	"github.com/agentcore-tools/agentgate/internal/domain"
)

func TestProber_Probe(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := context.Background()

	tests := []struct {
		name       string
		statusCode int
		want       domain.TargetState
	}{
		{name: "200 is healthy", statusCode: http.StatusOK, want: domain.TargetHealthy},
		{name: "204 is healthy", statusCode: http.StatusNoContent, want: domain.TargetHealthy},
		{name: "500 is unhealthy", statusCode: http.StatusInternalServerError, want: domain.TargetUnhealthy},
		{name: "404 is unhealthy", statusCode: http.StatusNotFound, want: domain.TargetUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			t.Cleanup(server.Close)

			p := healthprobe.New(server.URL+"/health", server.Client(), 0, logger)
			assert.Equal(t, tt.want, p.Probe(ctx))
		})
	}
}

func TestProber_ProbeUnreachable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Nothing listens on this port; the probe must report a state, not fail.
	p := healthprobe.New("http://127.0.0.1:1/health", http.DefaultClient, 0, logger)
	assert.Equal(t, domain.TargetUnreachable, p.Probe(context.Background()))
}

func TestHealthURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:8001/mcp", "http://localhost:8001/health"},
		{"http://localhost:8001/mcp/", "http://localhost:8001/health"},
		{"http://localhost:8001", "http://localhost:8001/health"},
		{"https://example.com/api/mcp", "https://example.com/api/health"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, healthprobe.HealthURL(tt.in))
	}
}
