package configs

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// AuthenticationConfig describes how callers of the gateway authenticate.
type AuthenticationConfig struct {
	Type     string `json:"type" yaml:"type"`         // e.g. "oauth2"
	Provider string `json:"provider" yaml:"provider"` // e.g. "cognito"
}

// GatewayDocument is the deployment-time gateway configuration document.
// The file is JSON; it is decoded with the YAML decoder (JSON is a YAML
// subset), the same path the environment-file merge uses.
type GatewayDocument struct {
	GatewayName    string               `json:"gateway_name" yaml:"gateway_name"`
	TargetURL      string               `json:"target_url" yaml:"target_url"`
	ProxyMode      bool                 `json:"proxy_mode" yaml:"proxy_mode"`
	Authentication AuthenticationConfig `json:"authentication" yaml:"authentication"`
	CreatedAt      string               `json:"created_at" yaml:"created_at"` // ISO-8601
}

// JWTAuthorizer configures inbound JWT validation: tokens must be issued by
// the provider behind DiscoveryURL and carry an allow-listed client.
type JWTAuthorizer struct {
	DiscoveryURL   string   `json:"discoveryUrl" yaml:"discoveryUrl"`
	AllowedClients []string `json:"allowedClients" yaml:"allowedClients"`
}

// AuthorizerDocument is the authorizer descriptor file.
type AuthorizerDocument struct {
	CustomJWTAuthorizer *JWTAuthorizer `json:"customJWTAuthorizer" yaml:"customJWTAuthorizer"`
}

// Config holds the final application configuration, merged from the gateway
// document and environment variables. Fields are loaded from environment
// variables with the prefix "AGENTGATE_", overriding file settings.
type Config struct {
	// Document paths (loaded first from env)
	GatewayConfigPath    string `envconfig:"GATEWAY_CONFIG"`
	AuthorizerConfigPath string `envconfig:"AUTHORIZER_CONFIG"`

	// File-loaded documents
	Gateway    GatewayDocument
	Authorizer *AuthorizerDocument

	// Environment-overridable fields
	ListenAddr         string        `envconfig:"LISTEN_ADDR" default:":8080"`
	TargetURL          string        `envconfig:"TARGET_URL"`
	TargetTimeout      time.Duration `envconfig:"TARGET_TIMEOUT" default:"120s"`
	ProbeTimeout       time.Duration `envconfig:"PROBE_TIMEOUT" default:"5s"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	ServerReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"5s"`
	ServerWriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"130s"`
	ServerIdleTimeout  time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`

	// Static bearer token accepted on the inbound surface. Ignored when an
	// authorizer document is configured.
	AuthToken string `envconfig:"AUTH_TOKEN"`

	// Outbound credentials for targets that require a bearer token.
	TargetTokenURL     string   `envconfig:"TARGET_TOKEN_URL"`
	TargetClientID     string   `envconfig:"TARGET_CLIENT_ID"`
	TargetClientSecret string   `envconfig:"TARGET_CLIENT_SECRET"`
	TargetScopes       []string `envconfig:"TARGET_SCOPES"`

	OtelExporterOtlpEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	LogLevel                 string `envconfig:"LOG_LEVEL" default:"info"`
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// Load loads configuration first from environment variables (to get the
// document paths), then from the gateway and authorizer documents, and
// finally processes environment variables again so they override file
// settings.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("agentgate", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if cfg.GatewayConfigPath != "" {
		raw, err := os.ReadFile(cfg.GatewayConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read gateway config '%s': %w", cfg.GatewayConfigPath, err)
		}
		if err := yaml.Unmarshal(raw, &cfg.Gateway); err != nil {
			return nil, fmt.Errorf("failed to unmarshal gateway config '%s': %w", cfg.GatewayConfigPath, err)
		}
		slog.Info("Loaded gateway configuration.", "path", cfg.GatewayConfigPath, "gateway_name", cfg.Gateway.GatewayName)
	}

	if cfg.AuthorizerConfigPath != "" {
		raw, err := os.ReadFile(cfg.AuthorizerConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read authorizer config '%s': %w", cfg.AuthorizerConfigPath, err)
		}
		var doc AuthorizerDocument
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal authorizer config '%s': %w", cfg.AuthorizerConfigPath, err)
		}
		cfg.Authorizer = &doc
		slog.Info("Loaded authorizer configuration.", "path", cfg.AuthorizerConfigPath)
	}

	// Process environment variables again so they override document values.
	if err := envconfig.Process("agentgate", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process overriding environment variables: %w", err)
	}
	if cfg.TargetURL == "" {
		cfg.TargetURL = cfg.Gateway.TargetURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that envconfig cannot express.
func (c *Config) Validate() error {
	if c.TargetURL == "" {
		return fmt.Errorf("no target URL configured (set AGENTGATE_TARGET_URL or target_url in the gateway config)")
	}
	if !strings.HasPrefix(c.TargetURL, "http://") && !strings.HasPrefix(c.TargetURL, "https://") {
		return fmt.Errorf("target URL must start with http:// or https://, got '%s'", c.TargetURL)
	}
	if c.Gateway.CreatedAt != "" {
		if _, err := time.Parse(time.RFC3339, c.Gateway.CreatedAt); err != nil {
			return fmt.Errorf("gateway config created_at is not ISO-8601: %w", err)
		}
	}
	if c.Authorizer != nil {
		a := c.Authorizer.CustomJWTAuthorizer
		if a == nil {
			return fmt.Errorf("authorizer config present but customJWTAuthorizer is missing")
		}
		if a.DiscoveryURL == "" {
			return fmt.Errorf("customJWTAuthorizer.discoveryUrl is required")
		}
		if len(a.AllowedClients) == 0 {
			return fmt.Errorf("customJWTAuthorizer.allowedClients must not be empty")
		}
	}
	return nil
}
