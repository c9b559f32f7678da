// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Trace correlation:
//   - Trace(ctx) adds trace_id and span_id fields for the active span
//   - WithOTel tees every record into an OpenTelemetry LoggerProvider
//     through the otelzap bridge, so records reach the OTLP logs endpoint
//     carrying the span context passed via Context(ctx)
//
// Example Usage:
//
//	logger := logging.NewDefault().WithOTel("fastapi-app", providers.LoggerProvider())
//	logger.For(ctx).Info("slept", zap.Int("sleep_ms", ms))
package logging
