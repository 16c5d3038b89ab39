// Command agentgate runs an MCP gateway: a stateless proxy that fronts one
// downstream MCP target with bearer-token authentication, health reporting,
// tool discovery, and invocation forwarding.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mcpGoServer "github.com/mark3labs/mcp-go/server"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/agentcore-tools/agentgate/configs"
	"github.com/agentcore-tools/agentgate/internal/adapter/inbound/gatewayhttp"
	"github.com/agentcore-tools/agentgate/internal/adapter/inbound/mcptools"
	"github.com/agentcore-tools/agentgate/internal/adapter/outbound/cognito"
	"github.com/agentcore-tools/agentgate/internal/adapter/outbound/healthprobe"
	"github.com/agentcore-tools/agentgate/internal/adapter/outbound/mcpclient"
	"github.com/agentcore-tools/agentgate/internal/usecase"
)

const version = "0.1.0"

func main() {
	var transport string
	flag.StringVar(&transport, "transport", "http", "Transport mode: http or stdio")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === Configuration ===
	cfg, err := configs.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// === Logging ===
	logLevel := cfg.ParsedLogLevel()
	var logger *slog.Logger
	if transport == "stdio" {
		// In stdio mode, log to file to avoid interfering with the protocol
		// stream on stdout.
		logFile, err := os.OpenFile("/tmp/agentgate.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: logLevel}))
		} else {
			logger = slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: logLevel}))
		}
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	}
	slog.SetDefault(logger)
	logger.Info("Logger initialized.",
		slog.String("level", logLevel.String()),
		slog.String("transport", transport),
		slog.String("gateway_name", cfg.Gateway.GatewayName))

	// === OpenTelemetry Initialization ===
	shutdownOtel, err := initOtelProvider(cfg)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry.", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Error("Failed to shutdown OpenTelemetry TracerProvider.", slog.Any("error", err))
		}
	}()

	// === MCP Server ===
	mcpSrv := mcpGoServer.NewMCPServer(
		"agentgate",
		version,
		mcpGoServer.WithToolCapabilities(true),
	)

	// === Dependency Injection ===
	logger.Info("Initializing dependencies...", slog.String("target_url", cfg.TargetURL))

	targetHTTPClient := &http.Client{Timeout: cfg.TargetTimeout}

	var tokens mcpclient.TokenSource
	if cfg.TargetTokenURL != "" {
		ts, err := cognito.NewTokenSource(ctx, cognito.Config{
			TokenURL:     cfg.TargetTokenURL,
			ClientID:     cfg.TargetClientID,
			ClientSecret: cfg.TargetClientSecret,
			Scopes:       cfg.TargetScopes,
		}, logger)
		if err != nil {
			logger.Error("Failed to configure target token source.", slog.Any("error", err))
			os.Exit(1)
		}
		tokens = ts
		logger.Info("Outbound bearer authentication enabled for target.")
	}

	targetClient := mcpclient.New(cfg.TargetURL, targetHTTPClient, tokens, logger)
	prober := healthprobe.New(healthprobe.HealthURL(cfg.TargetURL), &http.Client{Timeout: cfg.ProbeTimeout}, cfg.ProbeTimeout, logger)

	proxyUC := usecase.NewProxyCallUseCase(targetClient, logger)
	discoverUC := usecase.NewDiscoverToolsUseCase(targetClient, cfg.TargetURL, logger)

	var mirrorUC *usecase.MirrorToolsUseCase
	var degraded func() bool
	if cfg.Gateway.ProxyMode {
		logger.Info("Proxy mode enabled: exposing gateway meta-tools.")
	} else {
		mirrorUC = usecase.NewMirrorToolsUseCase(targetClient, mcpSrv, proxyUC, logger)
		degraded = func() bool { return !mirrorUC.Healthy() }
	}

	statusUC := usecase.NewStatusUseCase(cfg.TargetURL, cfg.Gateway.ProxyMode, prober, degraded, logger)

	if cfg.Gateway.ProxyMode {
		mcptools.Register(mcpSrv, mcptools.Deps{
			Status:   statusUC,
			Discover: discoverUC,
			Proxy:    proxyUC,
			Logger:   logger,
		})
	} else {
		// Initial mirror sync. Startup continues on failure; the status
		// check reports the gateway as degraded until a sync succeeds.
		logger.Info("Mirror mode enabled: performing initial tool sync...")
		if err := mirrorUC.Execute(ctx); err != nil {
			logger.Error("Initial mirror sync failed. Server startup continuing, but tools are missing.", slog.Any("error", err))
		}
	}

	// === Inbound Authentication ===
	var verifier gatewayhttp.TokenVerifier
	switch {
	case cfg.Authorizer != nil:
		v, err := gatewayhttp.NewJWTVerifier(ctx, *cfg.Authorizer.CustomJWTAuthorizer, nil, logger)
		if err != nil {
			logger.Error("Failed to initialize JWT authorizer.", slog.Any("error", err))
			os.Exit(1)
		}
		verifier = v
		logger.Info("Inbound JWT authorization enabled.")
	case cfg.AuthToken != "":
		verifier = gatewayhttp.NewStaticVerifier(cfg.AuthToken)
		logger.Info("Inbound static token authorization enabled.")
	default:
		logger.Warn("No inbound authentication configured; endpoints are open.")
	}

	// === Transport Mode Selection ===
	switch transport {
	case "stdio":
		logger.Info("Starting in stdio mode")
		stdioServer := mcpGoServer.NewStdioServer(mcpSrv)
		if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil {
			logger.Error("Stdio server error", slog.Any("error", err))
			os.Exit(1)
		}

	case "http":
		streamable := mcpGoServer.NewStreamableHTTPServer(mcpSrv, mcpGoServer.WithStateLess(true))
		router := gatewayhttp.NewRouter(gatewayhttp.Options{
			MCPHandler:     streamable,
			Status:         statusUC,
			Mirror:         mirrorUC,
			Verifier:       verifier,
			Logger:         logger,
			RequestTimeout: cfg.TargetTimeout + cfg.ProbeTimeout,
		})

		httpServer := &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      router,
			ReadTimeout:  cfg.ServerReadTimeout,
			WriteTimeout: cfg.ServerWriteTimeout,
			IdleTimeout:  cfg.ServerIdleTimeout,
		}

		go func() {
			logger.Info("Gateway HTTP server starting.", slog.String("address", cfg.ListenAddr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Gateway HTTP server failed.", slog.Any("error", err))
				stop()
			}
		}()

		<-ctx.Done()

		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Gateway HTTP server graceful shutdown failed.", slog.Any("error", err))
		}
		logger.Info("Server shut down gracefully.")

	default:
		logger.Error("Invalid transport mode", slog.String("transport", transport))
		os.Exit(1)
	}
}

// initOtelProvider initializes the OpenTelemetry SDK and sets up the OTLP
// trace exporter. It returns a shutdown function to be called on exit.
// Tracing is disabled when no OTLP endpoint is configured.
func initOtelProvider(cfg *configs.Config) (func(context.Context) error, error) {
	ctx := context.Background()

	if cfg.OtelExporterOtlpEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, OpenTelemetry tracing disabled.")
		return func(context.Context) error { return nil }, nil
	}

	slog.Info("Initializing OTLP exporter.", slog.String("endpoint", cfg.OtelExporterOtlpEndpoint))

	grpcOpts := []grpc.DialOption{}
	if cfg.OtelExporterOtlpInsecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		slog.Warn("Using insecure connection for OTLP exporter.")
	}

	conn, err := grpc.NewClient(cfg.OtelExporterOtlpEndpoint, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to OTLP endpoint: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("agentgate"),
		),
	)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(r),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) error {
		providerErr := tp.Shutdown(ctx)
		connErr := conn.Close()
		return errors.Join(providerErr, connErr)
	}, nil
}
