// Package telemetrytest builds in-memory telemetry providers for tests.
package telemetrytest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/telemetry"
)

// Harness wraps Providers with a span recorder and a manual metric reader.
type Harness struct {
	*telemetry.Providers
	Spans  *tracetest.SpanRecorder
	Reader *sdkmetric.ManualReader
}

// New returns providers with OTLP export disabled. They are shut down when
// the test ends.
func New(t testing.TB) *Harness {
	t.Helper()

	h := &Harness{
		Spans:  tracetest.NewSpanRecorder(),
		Reader: sdkmetric.NewManualReader(),
	}
	p, err := telemetry.New(context.Background(), telemetry.Config{
		Resource: telemetry.Resource{
			ServiceName:    "test-svc",
			ServiceVersion: "0.0.1",
			Environment:    "test",
		},
		Disabled: true,
	}, telemetry.WithSpanProcessor(h.Spans), telemetry.WithMetricReader(h.Reader))
	require.NoError(t, err)
	h.Providers = p

	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return h
}

// Ended returns all finished spans in end order.
func (h *Harness) Ended() []sdktrace.ReadOnlySpan {
	return h.Spans.Ended()
}

// SpansNamed returns the finished spans with the given name.
func (h *Harness) SpansNamed(name string) []sdktrace.ReadOnlySpan {
	var out []sdktrace.ReadOnlySpan
	for _, s := range h.Spans.Ended() {
		if s.Name() == name {
			out = append(out, s)
		}
	}
	return out
}

// Histogram collects and returns the data points of the named float64
// histogram, or nil if nothing was recorded under that name.
func (h *Harness) Histogram(t testing.TB, name string) []metricdata.HistogramDataPoint[float64] {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, h.Reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			hist, ok := m.Data.(metricdata.Histogram[float64])
			require.True(t, ok, "metric %s is %T", name, m.Data)
			return hist.DataPoints
		}
	}
	return nil
}

// Attr returns the string form of a data point attribute.
func Attr(set attribute.Set, key string) string {
	v, ok := set.Value(attribute.Key(key))
	if !ok {
		return ""
	}
	return v.Emit()
}

// SpanAttr returns the string form of a span attribute.
func SpanAttr(s sdktrace.ReadOnlySpan, key string) string {
	for _, kv := range s.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.Emit()
		}
	}
	return ""
}
