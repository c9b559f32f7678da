package monitoring

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys carried by request measurements.
const (
	AttrMethod     = "http.method"
	AttrRoute      = "http.route"
	AttrStatusCode = "http.status_code"
)

// FallbackStatus is reported when no response was produced.
const FallbackStatus = "500"

// Measurement is one request-duration observation.
type Measurement struct {
	DurationMs float64
	Method     string
	Route      string
	StatusCode string
}

// NewMeasurement measures the time elapsed since start.
func NewMeasurement(start time.Time, method, route, status string) Measurement {
	return Measurement{
		DurationMs: Since(start),
		Method:     method,
		Route:      route,
		StatusCode: status,
	}
}

// Attributes returns the measurement tags.
func (m Measurement) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrMethod, m.Method),
		attribute.String(AttrRoute, m.Route),
		attribute.String(AttrStatusCode, m.StatusCode),
	}
}

// ResolveStatus returns the status to report for a request. When the handler
// produced no response the fallback "500" is used.
func ResolveStatus(status int, responded bool) string {
	if !responded || status <= 0 {
		return FallbackStatus
	}
	return strconv.Itoa(status)
}

// Since returns the milliseconds elapsed since start, never negative.
func Since(start time.Time) float64 {
	ms := float64(time.Since(start)) / float64(time.Millisecond)
	if ms < 0 {
		return 0
	}
	return ms
}

// Timer measures an operation's duration.
type Timer struct {
	start time.Time
	hist  *Histogram
}

// NewTimer starts a timer that reports into hist.
func NewTimer(hist *Histogram) *Timer {
	return &Timer{start: time.Now(), hist: hist}
}

// Elapsed returns the milliseconds since the timer started.
func (t *Timer) Elapsed() float64 {
	return Since(t.start)
}

// Stop records the elapsed time with attrs and returns it.
func (t *Timer) Stop(ctx context.Context, attrs ...attribute.KeyValue) float64 {
	ms := t.Elapsed()
	t.hist.Observe(ctx, ms, attrs...)
	return ms
}
