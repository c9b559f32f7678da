/*
Package tracing provides OpenTelemetry span management and the request
middleware.

# Overview

Context travels explicitly: every helper takes the parent context and
returns the derived one. Nothing here reads the global tracer provider.

# Features

- W3C traceparent/tracestate/baggage propagation over HTTP headers,
  string maps and stream message fields
- Scoped spans that close exactly once and never leave ERROR
- Attribute bags restricted to scalar kinds
- Gin middleware that opens a SERVER span per request and records one
  duration measurement, including on panics and attached errors

# Usage

	spans := tracing.NewSpans(providers.Tracer("fastapi-app"))
	prop := tracing.NewPropagator(providers.Propagator())

	router.Use(tracing.HTTPMiddleware(tracing.MiddlewareConfig{
		Spans:      spans,
		Propagator: prop,
		Recorder:   requestHistogram,
	}))

	// Manual span creation
	ctx, span := spans.Start(ctx, "db.query", trace.SpanKindInternal, tracing.Attrs{"db.system": "sqlite"})
	defer span.End()

# Trace Format

Inbound and outbound requests carry the W3C traceparent header. The
middleware echoes the trace id to the caller in X-Trace-ID.
*/
package tracing
