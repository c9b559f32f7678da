package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Signal paths appended to the base endpoint for OTLP/HTTP.
const (
	TracesPath  = "/v1/traces"
	MetricsPath = "/v1/metrics"
	LogsPath    = "/v1/logs"
)

type exporters struct {
	trace  sdktrace.SpanExporter
	metric sdkmetric.Exporter
	log    sdklog.Exporter
}

func newExporters(ctx context.Context, cfg Config) (exporters, error) {
	if cfg.Protocol == "grpc" {
		return newGRPCExporters(ctx, cfg.Endpoint)
	}
	return newHTTPExporters(ctx, cfg.Endpoint)
}

type exporterBuilders struct {
	trace  func(context.Context) (sdktrace.SpanExporter, error)
	metric func(context.Context) (sdkmetric.Exporter, error)
	log    func(context.Context) (sdklog.Exporter, error)
}

// build creates the three exporters in order. When one fails, the ones
// already created are shut down.
func (b exporterBuilders) build(ctx context.Context) (exporters, error) {
	var e exporters
	var err error

	e.trace, err = b.trace(ctx)
	if err != nil {
		return exporters{}, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	e.metric, err = b.metric(ctx)
	if err != nil {
		return exporters{}, errors.Join(fmt.Errorf("failed to create metric exporter: %w", err), e.shutdown(ctx))
	}
	e.log, err = b.log(ctx)
	if err != nil {
		return exporters{}, errors.Join(fmt.Errorf("failed to create log exporter: %w", err), e.shutdown(ctx))
	}
	return e, nil
}

// shutdown stops every exporter that was created.
func (e exporters) shutdown(ctx context.Context) error {
	var errs []error
	if e.trace != nil {
		errs = append(errs, e.trace.Shutdown(ctx))
	}
	if e.metric != nil {
		errs = append(errs, e.metric.Shutdown(ctx))
	}
	if e.log != nil {
		errs = append(errs, e.log.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func newHTTPExporters(ctx context.Context, base string) (exporters, error) {
	return exporterBuilders{
		trace: func(ctx context.Context) (sdktrace.SpanExporter, error) {
			return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(base+TracesPath))
		},
		metric: func(ctx context.Context) (sdkmetric.Exporter, error) {
			return otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(base+MetricsPath))
		},
		log: func(ctx context.Context) (sdklog.Exporter, error) {
			return otlploghttp.New(ctx, otlploghttp.WithEndpointURL(base+LogsPath))
		},
	}.build(ctx)
}

func newGRPCExporters(ctx context.Context, target string) (exporters, error) {
	return exporterBuilders{
		trace: func(ctx context.Context) (sdktrace.SpanExporter, error) {
			return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(target))
		},
		metric: func(ctx context.Context) (sdkmetric.Exporter, error) {
			return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(target))
		},
		log: func(ctx context.Context) (sdklog.Exporter, error) {
			return otlploggrpc.New(ctx, otlploggrpc.WithEndpointURL(target))
		},
	}.build(ctx)
}
