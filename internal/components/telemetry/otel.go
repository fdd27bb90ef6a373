package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type OtlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (c OtlpConnConfig) enabled() bool {
	return c.GrpcEndpoint != "" || c.HttpEndpoint != ""
}

type OtlpConfig struct {
	Traces  OtlpConnConfig `json:"traces"`
	Metrics OtlpConnConfig `json:"metrics"`
}

// Otel holds the providers created by Setup, either can be nil if
// exporting was not configured.
type Otel struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

func (t Otel) Shutdown(ctx context.Context) error {
	var errlist []error
	if t.TracerProvider != nil {
		errlist = append(errlist, t.TracerProvider.Shutdown(ctx))
	}
	if t.MeterProvider != nil {
		errlist = append(errlist, t.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errlist...)
}

// Setup registers the global tracer and meter providers. When nothing is configured
// the otel no-op providers stay in place.
func Setup(ctx context.Context, serviceName string, config OtlpConfig) (Otel, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	r, err := newResource(serviceName)
	if err != nil {
		return Otel{}, err
	}

	var out Otel
	if config.Traces.enabled() {
		exporter, err := otlpTracerExportFromConfig(ctx, config.Traces)
		if err != nil {
			return Otel{}, err
		}
		out.TracerProvider = trace.NewTracerProvider(
			trace.WithBatcher(exporter),
			trace.WithResource(r),
		)
		otel.SetTracerProvider(out.TracerProvider)
	}

	if config.Metrics.enabled() {
		exporter, err := otlpMetricExportFromConfig(ctx, config.Metrics)
		if err != nil {
			return out, err
		}
		out.MeterProvider = metric.NewMeterProvider(
			metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(time.Second*30))),
			metric.WithResource(r),
		)
		otel.SetMeterProvider(out.MeterProvider)
	}

	return out, nil
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

func otlpTracerExportFromConfig(ctx context.Context, c OtlpConnConfig) (trace.SpanExporter, error) {
	if c.GrpcEndpoint != "" {
		slog.Info("tracer export initialized", "type", "grpc", "endpoint", c.GrpcEndpoint)
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(c.GrpcEndpoint),
			otlptracegrpc.WithHeaders(c.Headers),
		)
	}

	slog.Info("tracer export initialized", "type", "http", "endpoint", c.HttpEndpoint)
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(c.HttpEndpoint),
		otlptracehttp.WithHeaders(c.Headers),
	)
}

func otlpMetricExportFromConfig(ctx context.Context, c OtlpConnConfig) (metric.Exporter, error) {
	if c.GrpcEndpoint != "" {
		slog.Info("metric exporter initialized", "type", "grpc", "endpoint", c.GrpcEndpoint)
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(c.GrpcEndpoint),
			otlpmetricgrpc.WithHeaders(c.Headers),
		)
	}

	slog.Info("metric exporter initialized", "type", "http", "endpoint", c.HttpEndpoint)
	return otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(c.HttpEndpoint),
		otlpmetrichttp.WithHeaders(c.Headers),
	)
}
