// Package gatewayhttp provides the gateway's HTTP surface: the MCP endpoint,
// health and status routes, and the admin sync route, behind bearer-token
// authentication and CORS.
package gatewayhttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/agentcore-tools/agentgate/internal/usecase"
)

// Options configures the router. MCPHandler and Status are required; Mirror
// may be nil when the gateway runs in proxy mode, and a nil Verifier leaves
// the endpoints open (local development only).
type Options struct {
	MCPHandler http.Handler
	Status     *usecase.StatusUseCase
	Mirror     *usecase.MirrorToolsUseCase
	Verifier   TokenVerifier
	Logger     *slog.Logger

	// RequestTimeout bounds a whole request including the proxied target
	// call. Zero selects a default slightly above the target timeout.
	RequestTimeout time.Duration
}

type handlers struct {
	status *usecase.StatusUseCase
	mirror *usecase.MirrorToolsUseCase
	logger *slog.Logger
}

// NewRouter assembles the gateway's HTTP handler.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger.With("component", "gateway_http")
	h := &handlers{status: opts.Status, mirror: opts.Mirror, logger: logger}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 125 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Mcp-Session-Id"},
		ExposedHeaders: []string{"Mcp-Session-Id"},
	}).Handler)

	r.Get("/health", h.handleHealth)
	r.Get("/status", h.handleStatus)

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(opts.Verifier, logger))
		r.Mount("/mcp", opts.MCPHandler)
		r.Post("/admin/sync", h.handleSync)
	})

	return r
}

// bearerAuth rejects requests without a valid bearer token before any
// handler (and therefore any target traffic) is reached.
func bearerAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}
			if err := verifier.Verify(r.Context(), token); err != nil {
				logger.Warn("Rejected request", slog.String("path", r.URL.Path), slog.Any("error", err))
				unauthorized(w, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	return auth[len(prefix):], true
}

func unauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "reason": reason})
}

func (h *handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleStatus implements GET /status: a fresh probe of the target on every
// call, never an error response for an unreachable target.
func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := h.status.Execute(r.Context())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

// handleSync implements POST /admin/sync: re-runs the mirror sync so newly
// added target tools become visible without a restart.
func (h *handlers) handleSync(w http.ResponseWriter, r *http.Request) {
	if h.mirror == nil {
		http.Error(w, "mirror mode is not enabled on this gateway", http.StatusConflict)
		return
	}

	h.logger.Info("Received mirror sync request")
	if err := h.mirror.Execute(r.Context()); err != nil {
		h.logger.Error("Mirror sync failed", slog.Any("error", err))
		http.Error(w, "sync failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "synced",
		"tools":  h.mirror.MirroredTools(),
	})
}
