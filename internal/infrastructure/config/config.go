package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Supported OTLP wire protocols.
const (
	ProtocolHTTP = "http/protobuf"
	ProtocolGRPC = "grpc"
)

// Supported SQL drivers for the database probe.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Telemetry  TelemetryConfig
	Downstream DownstreamConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
	Database   DatabaseConfig
	Redis      RedisConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// TelemetryConfig holds OpenTelemetry export and resource settings.
type TelemetryConfig struct {
	Endpoint       string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"http://otel-collector:4318"`
	Protocol       string        `envconfig:"OTEL_EXPORTER_OTLP_PROTOCOL" default:"http/protobuf"`
	ServiceName    string        `envconfig:"OTEL_SERVICE_NAME" default:"fastapi"`
	ServiceVersion string        `envconfig:"SERVICE_VERSION" default:"0.1.0"`
	Environment    string        `envconfig:"DEPLOYMENT_ENV" default:"local"`
	Disabled       bool          `envconfig:"OTEL_SDK_DISABLED" default:"false"`
	MetricInterval time.Duration `envconfig:"OTEL_METRIC_EXPORT_INTERVAL" default:"10s"`
}

// DownstreamConfig holds the peer service used by /chain and /flow.
type DownstreamConfig struct {
	URL            string        `envconfig:"DOWNSTREAM_URL"`
	Timeout        time.Duration `envconfig:"DOWNSTREAM_TIMEOUT" default:"2.5s"`
	BreakerEnabled bool          `envconfig:"DOWNSTREAM_BREAKER_ENABLED" default:"false"`
	PublishURL     string        `envconfig:"PUBLISH_URL" default:"http://localhost:8000/publish"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"false"`
	// Global shares one bucket across all clients instead of one per IP.
	Global bool `envconfig:"RATE_LIMIT_GLOBAL" default:"false"`
}

// DatabaseConfig holds the SQL database probed by /db.
type DatabaseConfig struct {
	Driver string `envconfig:"DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"DB_DSN"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.DSN != ""
}

// RedisConfig holds the Redis stream used by /publish and the consumer.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	Stream   string `envconfig:"REDIS_STREAM" default:"observability"`
	Group    string `envconfig:"REDIS_GROUP" default:"consumers"`
}

// Enabled reports whether a Redis server is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Telemetry.Endpoint = strings.TrimRight(cfg.Telemetry.Endpoint, "/")
	cfg.Downstream.URL = strings.TrimRight(cfg.Downstream.URL, "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects values the rest of the service cannot act on.
func (c *Config) Validate() error {
	var errs []error
	switch c.Telemetry.Protocol {
	case ProtocolHTTP, ProtocolGRPC:
	default:
		errs = append(errs, fmt.Errorf("unsupported OTLP protocol %q", c.Telemetry.Protocol))
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Telemetry.MetricInterval <= 0 {
		errs = append(errs, errors.New("metric export interval must be positive"))
	}
	if c.Downstream.Timeout <= 0 {
		errs = append(errs, errors.New("downstream timeout must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Telemetry: TelemetryConfig{
			Endpoint:       "http://otel-collector:4318",
			Protocol:       ProtocolHTTP,
			ServiceName:    "fastapi",
			ServiceVersion: "0.1.0",
			Environment:    "local",
			MetricInterval: 10 * time.Second,
		},
		Downstream: DownstreamConfig{
			Timeout:        2500 * time.Millisecond,
			BreakerEnabled: false,
			PublishURL:     "http://localhost:8000/publish",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           false,
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
		},
		Redis: RedisConfig{
			Stream: "observability",
			Group:  "consumers",
		},
	}
}
