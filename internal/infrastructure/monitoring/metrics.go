package monitoring

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument identity shared by every service in the lab.
const (
	MeterName    = "app.metrics"
	MeterVersion = "0.1.0"

	RequestDurationName = "app_request_duration_ms"
	RequestDurationDesc = "HTTP request duration"

	ConsumeDurationName = "app_consume_duration_ms"
	ConsumeDurationDesc = "Stream message processing duration"
)

// Recorder records one measurement per completed request.
type Recorder interface {
	Record(ctx context.Context, m Measurement)
}

// Histogram is a millisecond duration histogram.
type Histogram struct {
	hist metric.Float64Histogram
}

// NewHistogram creates a millisecond histogram on meter.
func NewHistogram(meter metric.Meter, name, description string) (*Histogram, error) {
	hist, err := meter.Float64Histogram(name,
		metric.WithUnit("ms"),
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return &Histogram{hist: hist}, nil
}

// NewRequestHistogram creates the app_request_duration_ms instrument.
func NewRequestHistogram(meter metric.Meter) (*Histogram, error) {
	return NewHistogram(meter, RequestDurationName, RequestDurationDesc)
}

// NewConsumeHistogram creates the app_consume_duration_ms instrument.
func NewConsumeHistogram(meter metric.Meter) (*Histogram, error) {
	return NewHistogram(meter, ConsumeDurationName, ConsumeDurationDesc)
}

// Record implements Recorder.
func (h *Histogram) Record(ctx context.Context, m Measurement) {
	h.Observe(ctx, m.DurationMs, m.Attributes()...)
}

// Observe records a raw duration. A nil Histogram drops the value.
func (h *Histogram) Observe(ctx context.Context, durationMs float64, attrs ...attribute.KeyValue) {
	if h == nil || h.hist == nil {
		return
	}
	if durationMs < 0 {
		durationMs = 0
	}
	h.hist.Record(ctx, durationMs, metric.WithAttributes(attrs...))
}
