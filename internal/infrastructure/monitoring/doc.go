/*
Package monitoring records request and message durations as OpenTelemetry
histograms.

# Overview

Every inbound request produces exactly one Measurement: the elapsed
milliseconds tagged with http.method, http.route and http.status_code. When
the handler faulted before producing a response, the status is "500".

# Instruments

  - app_request_duration_ms: HTTP request duration (meter app.metrics 0.1.0)
  - app_consume_duration_ms: stream message processing duration

# Usage

	hist, err := monitoring.NewRequestHistogram(providers.Meter(monitoring.MeterName, monitoring.MeterVersion))
	hist.Record(ctx, monitoring.NewMeasurement(start, "GET", "/sleep", monitoring.ResolveStatus(200, true)))

	timer := monitoring.NewTimer(consumeHist)
	// ... process message ...
	timer.Stop(ctx, attribute.String("messaging.destination.name", stream))
*/
package monitoring
