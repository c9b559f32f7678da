// Package server wires the HTTP service together.
//
// Middleware order, outermost first:
//  1. Faults: recovers panics and renders attached errors
//  2. CORS
//  3. RateLimit (when enabled)
//  4. Tracing: SERVER span and request-duration measurement
//
// Server Lifecycle:
//  1. Load configuration from the environment
//  2. Build the logger and the telemetry providers
//  3. Open the optional database and Redis connections
//  4. Register routes and start listening
//  5. Graceful shutdown on signal, then flush telemetry
//
// Example Usage:
//
//	srv, err := server.New(ctx, cfg, logger, providers)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
