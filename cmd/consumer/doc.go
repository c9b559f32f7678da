// Package main runs the Redis stream consumer.
//
// The consumer reads entries published by /publish through a consumer
// group, continues each producer's trace under a CONSUMER span, sleeps for
// the requested time and calls DOWNSTREAM_URL/sleep when set. Telemetry is
// flushed after every entry.
//
// Usage:
//
//	REDIS_ADDR=redis:6379 DOWNSTREAM_URL=http://fastapi:8000 ./consumer
//
// Signals:
//   - SIGINT, SIGTERM: stop after the current batch
package main
