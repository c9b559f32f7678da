// Package telemetry owns the OpenTelemetry tracer, meter and logger providers.
//
// A single *Providers value is built in main and injected into the request
// middleware, the measurement recorder, the downstream client and the stream
// producer/consumer. All three signals carry the same Resource (service name,
// version and deployment environment) and are exported over OTLP, either
// HTTP ({endpoint}/v1/traces, /v1/metrics, /v1/logs) or gRPC.
//
// The meter provider also feeds a Prometheus registry served by
// MetricsHandler.
package telemetry
