package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func testConfig() Config {
	return Config{
		Resource: Resource{
			ServiceName:    "svc-a",
			ServiceVersion: "1.2.3",
			Environment:    "test",
		},
		Endpoint:       "http://127.0.0.1:4318",
		Protocol:       "http/protobuf",
		MetricInterval: time.Second,
		Disabled:       true,
	}
}

func TestResourceBuild(t *testing.T) {
	res, err := testConfig().Resource.Build(context.Background())
	require.NoError(t, err)

	attrs := res.Set()
	name, ok := attrs.Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "svc-a", name.AsString())

	version, ok := attrs.Value(semconv.ServiceVersionKey)
	require.True(t, ok)
	assert.Equal(t, "1.2.3", version.AsString())

	env, ok := attrs.Value(semconv.DeploymentEnvironmentKey)
	require.True(t, ok)
	assert.Equal(t, "test", env.AsString())
}

func TestNewAttachesResourceToSpansAndMetrics(t *testing.T) {
	ctx := context.Background()
	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()

	p, err := New(ctx, testConfig(), WithSpanProcessor(spans), WithMetricReader(reader))
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(ctx) }()

	_, span := p.Tracer("test").Start(ctx, "op")
	span.End()

	counter, err := p.Meter("app.metrics", "0.1.0").Int64Counter("ops")
	require.NoError(t, err)
	counter.Add(ctx, 1)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	name, ok := ended[0].Resource().Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "svc-a", name.AsString())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, p.Resource(), rm.Resource)
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Equal(t, "app.metrics", rm.ScopeMetrics[0].Scope.Name)
	assert.Equal(t, "0.1.0", rm.ScopeMetrics[0].Scope.Version)
}

func TestPropagatorFields(t *testing.T) {
	p, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	assert.ElementsMatch(t, []string{"traceparent", "tracestate", "baggage"}, p.Propagator().Fields())
}

func TestMetricsHandlerExposesOTelInstruments(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, testConfig())
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(ctx) }()

	hist, err := p.Meter("app.metrics", "0.1.0").Float64Histogram("app_request_duration_ms")
	require.NoError(t, err)
	hist.Record(ctx, 12.5)

	rec := httptest.NewRecorder()
	p.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "app_request_duration_ms")
}

func TestNewBuildsExporters(t *testing.T) {
	tests := []struct {
		name     string
		protocol string
		endpoint string
	}{
		{name: "http", protocol: "http/protobuf", endpoint: "http://127.0.0.1:4318"},
		{name: "grpc", protocol: "grpc", endpoint: "http://127.0.0.1:4317"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Disabled = false
			cfg.Protocol = tt.protocol
			cfg.Endpoint = tt.endpoint

			p, err := New(context.Background(), cfg)
			require.NoError(t, err)
			require.NotNil(t, p.LoggerProvider())

			// Nothing listens on the endpoint; only construction is under test.
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_ = p.Shutdown(ctx)
		})
	}
}

type fakeSpanExporter struct {
	sdktrace.SpanExporter
	stopped bool
}

func (f *fakeSpanExporter) Shutdown(context.Context) error {
	f.stopped = true
	return nil
}

type fakeMetricExporter struct {
	sdkmetric.Exporter
	stopped bool
}

func (f *fakeMetricExporter) Shutdown(context.Context) error {
	f.stopped = true
	return nil
}

func TestBuildExportersShutsDownCreatedOnFailure(t *testing.T) {
	spans := &fakeSpanExporter{}
	metrics := &fakeMetricExporter{}

	tests := []struct {
		name        string
		builders    exporterBuilders
		wantErr     string
		wantSpans   bool
		wantMetrics bool
	}{
		{
			name: "metric exporter fails",
			builders: exporterBuilders{
				trace:  func(context.Context) (sdktrace.SpanExporter, error) { return spans, nil },
				metric: func(context.Context) (sdkmetric.Exporter, error) { return nil, errors.New("bad endpoint") },
			},
			wantErr:   "failed to create metric exporter: bad endpoint",
			wantSpans: true,
		},
		{
			name: "log exporter fails",
			builders: exporterBuilders{
				trace:  func(context.Context) (sdktrace.SpanExporter, error) { return spans, nil },
				metric: func(context.Context) (sdkmetric.Exporter, error) { return metrics, nil },
				log:    func(context.Context) (sdklog.Exporter, error) { return nil, errors.New("bad endpoint") },
			},
			wantErr:     "failed to create log exporter: bad endpoint",
			wantSpans:   true,
			wantMetrics: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans.stopped, metrics.stopped = false, false

			_, err := tt.builders.build(context.Background())

			assert.ErrorContains(t, err, tt.wantErr)
			assert.Equal(t, tt.wantSpans, spans.stopped)
			assert.Equal(t, tt.wantMetrics, metrics.stopped)
		})
	}
}
