package monitoring

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pi-gateway/logging"
)

var (
	// ActionCounter counts handled payment actions by action name and outcome.
	ActionCounter metric.Int64Counter
	// UpstreamCallDuration measures Pi platform API round trips in seconds.
	UpstreamCallDuration metric.Float64Histogram
	// SettlementDuration measures on-chain settlement attempts in seconds.
	SettlementDuration metric.Float64Histogram
	// HTTPServerDuration measures inbound request handling in milliseconds.
	HTTPServerDuration metric.Float64Histogram
)

// InitTracer initializes OpenTelemetry tracing with an OTLP gRPC exporter.
func InitTracer(serviceName, endpoint string) (*sdktrace.TracerProvider, trace.Tracer, error) {
	ctx := context.Background()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	tracer := tp.Tracer(serviceName)

	logging.Info("Tracing initialized", zap.String("service_name", serviceName))

	return tp, tracer, nil
}

// InitMeter initializes OpenTelemetry metrics with both an OTLP exporter and a
// Prometheus reader; the latter backs the /metrics endpoint.
func InitMeter(serviceName, endpoint string) (*sdkmetric.MeterProvider, metric.Meter, error) {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, err
	}

	promReader, err := otelprom.New()
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithReader(promReader),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)
	meter := mp.Meter(serviceName)

	ActionCounter, err = meter.Int64Counter(
		"payment_actions_total",
		metric.WithDescription("Total payment actions handled"),
	)
	if err != nil {
		return nil, nil, err
	}

	UpstreamCallDuration, err = meter.Float64Histogram(
		"pi_platform_call_duration_seconds",
		metric.WithDescription("Duration of Pi platform API calls"),
	)
	if err != nil {
		return nil, nil, err
	}

	SettlementDuration, err = meter.Float64Histogram(
		"ledger_settlement_duration_seconds",
		metric.WithDescription("Duration of ledger settlement attempts"),
	)
	if err != nil {
		return nil, nil, err
	}

	HTTPServerDuration, err = meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP server request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, nil, err
	}

	logging.Info("Metrics initialized", zap.String("endpoint", endpoint))

	return mp, meter, nil
}
