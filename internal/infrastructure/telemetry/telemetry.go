package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	otellog "go.opentelemetry.io/otel/log"
	logglobal "go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Resource identifies the process on every span, metric and log record.
type Resource struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// Build converts the descriptor into an SDK resource.
func (r Resource) Build(ctx context.Context) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(r.ServiceName),
			semconv.ServiceVersion(r.ServiceVersion),
			semconv.DeploymentEnvironment(r.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}
	return res, nil
}

// Config configures the telemetry pipelines.
type Config struct {
	Resource       Resource
	Endpoint       string // base URL, e.g. http://otel-collector:4318
	Protocol       string // "http/protobuf" or "grpc"
	MetricInterval time.Duration
	// Disabled skips the OTLP exporters. Providers are still built so the
	// in-process readers (Prometheus, options) keep working.
	Disabled bool
}

type options struct {
	spanProcessors []sdktrace.SpanProcessor
	metricReaders  []sdkmetric.Reader
	logProcessors  []sdklog.Processor
	logger         *zap.Logger
}

// Option customizes New.
type Option func(*options)

// WithSpanProcessor attaches an extra span processor.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) { o.spanProcessors = append(o.spanProcessors, sp) }
}

// WithMetricReader attaches an extra metric reader.
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(o *options) { o.metricReaders = append(o.metricReaders, r) }
}

// WithLogProcessor attaches an extra log processor.
func WithLogProcessor(p sdklog.Processor) Option {
	return func(o *options) { o.logProcessors = append(o.logProcessors, p) }
}

// WithLogger sets the logger used for lifecycle and exporter error messages.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Providers is the process-wide telemetry handle. It is built once at startup
// and passed explicitly to everything that emits telemetry.
type Providers struct {
	resource       *resource.Resource
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	loggerProvider *sdklog.LoggerProvider
	propagator     propagation.TextMapPropagator
	registry       *prometheus.Registry
	logger         *zap.Logger
}

// New builds tracer, meter and logger providers sharing one resource.
func New(ctx context.Context, cfg Config, opts ...Option) (*Providers, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	res, err := cfg.Resource.Build(ctx)
	if err != nil {
		return nil, err
	}

	p := &Providers{
		resource: res,
		propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
		registry: prometheus.NewRegistry(),
		logger:   o.logger,
	}

	var exp exporters
	if !cfg.Disabled {
		exp, err = newExporters(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	promReader, err := promexporter.New(promexporter.WithRegisterer(p.registry))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create prometheus exporter: %w", err), exp.shutdown(ctx))
	}

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if exp.trace != nil {
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exp.trace))
	}
	for _, sp := range o.spanProcessors {
		traceOpts = append(traceOpts, sdktrace.WithSpanProcessor(sp))
	}
	p.tracerProvider = sdktrace.NewTracerProvider(traceOpts...)

	metricOpts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promReader),
	}
	if exp.metric != nil {
		interval := cfg.MetricInterval
		if interval <= 0 {
			interval = 10 * time.Second
		}
		metricOpts = append(metricOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp.metric, sdkmetric.WithInterval(interval)),
		))
	}
	for _, r := range o.metricReaders {
		metricOpts = append(metricOpts, sdkmetric.WithReader(r))
	}
	p.meterProvider = sdkmetric.NewMeterProvider(metricOpts...)

	logOpts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	if exp.log != nil {
		logOpts = append(logOpts, sdklog.WithProcessor(sdklog.NewBatchProcessor(exp.log)))
	}
	for _, lp := range o.logProcessors {
		logOpts = append(logOpts, sdklog.WithProcessor(lp))
	}
	p.loggerProvider = sdklog.NewLoggerProvider(logOpts...)

	p.logger.Info("telemetry initialized",
		zap.String("service", cfg.Resource.ServiceName),
		zap.String("environment", cfg.Resource.Environment),
		zap.String("endpoint", cfg.Endpoint),
		zap.String("protocol", cfg.Protocol),
		zap.Bool("otlp", !cfg.Disabled),
	)

	return p, nil
}

// Resource returns the SDK resource attached to all providers.
func (p *Providers) Resource() *resource.Resource {
	return p.resource
}

// Tracer returns a named tracer.
func (p *Providers) Tracer(name string) trace.Tracer {
	return p.tracerProvider.Tracer(name)
}

// Meter returns a named, versioned meter.
func (p *Providers) Meter(name, version string) metric.Meter {
	return p.meterProvider.Meter(name, metric.WithInstrumentationVersion(version))
}

// LoggerProvider returns the OpenTelemetry logger provider.
func (p *Providers) LoggerProvider() otellog.LoggerProvider {
	return p.loggerProvider
}

// Propagator returns the W3C trace-context + baggage propagator.
func (p *Providers) Propagator() propagation.TextMapPropagator {
	return p.propagator
}

// MetricsHandler serves the meter provider in Prometheus exposition format.
func (p *Providers) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// InstallGlobals registers the providers with the otel global API so
// third-party instrumentation reports through the same pipelines.
func (p *Providers) InstallGlobals() {
	otel.SetTracerProvider(p.tracerProvider)
	otel.SetMeterProvider(p.meterProvider)
	otel.SetTextMapPropagator(p.propagator)
	logglobal.SetLoggerProvider(p.loggerProvider)
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		p.logger.Warn("telemetry export error", zap.Error(err))
	}))
}

// ForceFlush pushes buffered spans, metrics and logs to their exporters.
func (p *Providers) ForceFlush(ctx context.Context) error {
	return errors.Join(
		p.tracerProvider.ForceFlush(ctx),
		p.meterProvider.ForceFlush(ctx),
		p.loggerProvider.ForceFlush(ctx),
	)
}

// Shutdown flushes and stops all providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	err := errors.Join(
		p.tracerProvider.Shutdown(ctx),
		p.meterProvider.Shutdown(ctx),
		p.loggerProvider.Shutdown(ctx),
	)
	if err != nil {
		p.logger.Error("telemetry shutdown failed", zap.Error(err))
	}
	return err
}
