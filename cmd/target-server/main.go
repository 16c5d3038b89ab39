// Command target-server is a small standalone MCP server used as a
// downstream target for the gateway: a handful of demo tools behind the
// streamable HTTP transport, plus a plain health endpoint.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kelseyhightower/envconfig"
	"github.com/mark3labs/mcp-go/mcp"
	mcpGoServer "github.com/mark3labs/mcp-go/server"
)

const version = "0.1.0"

type config struct {
	ListenAddr      string        `envconfig:"LISTEN_ADDR" default:":8001"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	flag.Parse()

	var cfg config
	if err := envconfig.Process("target", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mcpSrv := mcpGoServer.NewMCPServer(
		"external-tool-server",
		version,
		mcpGoServer.WithToolCapabilities(true),
	)
	registerTools(mcpSrv, logger)

	streamable := mcpGoServer.NewStreamableHTTPServer(mcpSrv, mcpGoServer.WithStateLess(true))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "server": "external-tool-server"})
	})
	r.Mount("/mcp", streamable)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	go func() {
		logger.Info("Target server starting.", slog.String("address", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Target server failed.", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Target server graceful shutdown failed.", slog.Any("error", err))
	}
	logger.Info("Target server shut down gracefully.")
}

func registerTools(srv *mcpGoServer.MCPServer, logger *slog.Logger) {
	srv.AddTool(
		mcp.NewTool("echo",
			mcp.WithDescription("Echo back the provided message"),
			mcp.WithString("message",
				mcp.Required(),
				mcp.Description("Message to echo back"),
			),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			message, err := request.RequireString("message")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText("echo: " + message), nil
		},
	)

	srv.AddTool(
		mcp.NewTool("calculate",
			mcp.WithDescription("Perform a basic arithmetic operation on two numbers"),
			mcp.WithString("operation",
				mcp.Required(),
				mcp.Description("Operation to perform"),
				mcp.Enum("add", "subtract", "multiply", "divide"),
			),
			mcp.WithNumber("a",
				mcp.Required(),
				mcp.Description("First operand"),
			),
			mcp.WithNumber("b",
				mcp.Required(),
				mcp.Description("Second operand"),
			),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			operation, err := request.RequireString("operation")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			a, err := request.RequireFloat("a")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			b, err := request.RequireFloat("b")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			var result float64
			switch operation {
			case "add":
				result = a + b
			case "subtract":
				result = a - b
			case "multiply":
				result = a * b
			case "divide":
				if b == 0 {
					return mcp.NewToolResultError("division by zero"), nil
				}
				result = a / b
			default:
				return mcp.NewToolResultError("unknown operation: " + operation), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("%g", result)), nil
		},
	)

	srv.AddTool(
		mcp.NewTool("server_info",
			mcp.WithDescription("Return information about this server"),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			info := map[string]string{
				"name":    "external-tool-server",
				"version": version,
				"runtime": runtime.Version(),
				"os":      runtime.GOOS,
			}
			payload, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(string(payload)), nil
		},
	)

	srv.AddTool(
		mcp.NewTool("health_check",
			mcp.WithDescription("Report server health"),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText(`{"status": "healthy"}`), nil
		},
	)

	logger.Info("Registered target tools",
		slog.Any("tools", []string{"echo", "calculate", "server_info", "health_check"}))
}
