// Package http implements the service routes.
//
// Handlers never touch spans or measurements of their own request; the
// tracing middleware owns those. A handler reports a fault by attaching an
// error with c.Error and aborting, or by panicking.
//
// Routes:
//   - GET /health: liveness
//   - GET /sleep?ms=: sleep locally
//   - GET /chain?ms=: call the downstream peer's /sleep, or sleep locally
//   - GET /db: run the database probe
//   - GET /publish?ms=: append a message to the Redis stream
//   - GET /flow?ms=: call PUBLISH_URL so the consumer continues the trace
//   - GET /metrics: Prometheus exposition
package http
