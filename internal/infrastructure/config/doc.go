// Package config provides 12-factor configuration management for the service.
//
// Configuration is loaded from environment variables with sensible defaults.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Telemetry: OTLP endpoint, protocol and resource identity
//   - Downstream: peer service for /chain and /flow
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Database, Redis: optional backends for /db and /publish
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s\n", cfg.Server.Addr())
//
// Environment Variables:
//   - PORT, HOST
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_PROTOCOL, OTEL_SERVICE_NAME
//   - SERVICE_VERSION, DEPLOYMENT_ENV, OTEL_SDK_DISABLED, OTEL_METRIC_EXPORT_INTERVAL
//   - DOWNSTREAM_URL, DOWNSTREAM_TIMEOUT, DOWNSTREAM_BREAKER_ENABLED, PUBLISH_URL
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED, RATE_LIMIT_GLOBAL
//   - DB_DRIVER, DB_DSN
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, REDIS_STREAM, REDIS_GROUP
package config
