// Package main is the entry point for the observability lab HTTP service.
//
// The service answers /health, /sleep, /chain, /db, /publish, /flow and
// /metrics. Every request is traced and measured by the middleware stack;
// traces, metrics and logs are exported over OTLP.
//
// Architecture:
//
//	client → server (/chain) → DOWNSTREAM_URL/sleep
//	client → server (/flow) → PUBLISH_URL (/publish) → Redis stream → consumer
//
// Configuration:
//   - Environment variables (12-factor), see internal/infrastructure/config
//   - CLI flags override the listen port and development logging
//
// Usage:
//
//	# Production mode
//	OTEL_EXPORTER_OTLP_ENDPOINT=http://otel-collector:4318 ./server
//
//	# Development mode (colored logs, debug level)
//	./server -dev -port 8080
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
