// Package middleware provides the HTTP boundary middleware of the service.
//
// Middleware stack, outermost first:
//   - Faults: recovers handler panics and renders attached errors as 500
//   - CORS: cross-origin access with the trace headers exposed
//   - RateLimit: per-IP token bucket rate limiting
//
// The tracing middleware from the tracing package runs inside them so that
// every request it sees is measured exactly once.
//
// Example Usage:
//
//	router.Use(middleware.Faults(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
