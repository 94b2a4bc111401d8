package logging

import (
	"context"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "pi-gateway"

var logger *zap.Logger
var loggerProvider *sdklog.LoggerProvider

// InitLogger builds the process logger: zap to stdout always, OTLP export when
// a collector is reachable. OTLP setup failures are non-fatal.
func InitLogger() error {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "msg"
	config.EncoderConfig.LevelKey = "level"

	var err error
	logger, err = config.Build(
		zap.AddCallerSkip(1), // Skip wrapper functions in stack trace
	)
	if err != nil {
		return err
	}

	ctx := context.Background()

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "otel-collector:4317"
	}

	exporter, err := otlploggrpc.New(ctx,
		otlploggrpc.WithEndpoint(otlpEndpoint),
		otlploggrpc.WithInsecure(),
	)
	if err != nil {
		logger.Warn("Failed to create OTLP log exporter, logs will only go to stdout", zap.Error(err))
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
	)
	if err != nil {
		logger.Warn("Failed to create resource", zap.Error(err))
		return nil
	}

	loggerProvider = sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(loggerProvider)

	return nil
}

// GetLogger returns the global logger. Before InitLogger runs (e.g. in tests)
// it returns a no-op logger.
func GetLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// WithTraceContext returns a logger carrying the span's trace and span ids so
// log lines can be joined with traces.
func WithTraceContext(span trace.Span) *zap.Logger {
	if span.SpanContext().IsValid() {
		sc := span.SpanContext()
		return GetLogger().With(
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
			zap.String("service", serviceName),
		)
	}
	return GetLogger().With(zap.String("service", serviceName))
}

func Info(msg string, fields ...zap.Field) {
	GetLogger().With(zap.String("service", serviceName)).Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetLogger().With(zap.String("service", serviceName)).Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	GetLogger().With(zap.String("service", serviceName)).Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	GetLogger().With(zap.String("service", serviceName)).Fatal(msg, fields...)
}

// Sync flushes any buffered log entries.
func Sync() error {
	if logger != nil {
		return logger.Sync()
	}
	return nil
}

// Shutdown flushes and stops the OTLP logger provider.
func Shutdown(ctx context.Context) error {
	if loggerProvider != nil {
		return loggerProvider.Shutdown(ctx)
	}
	return nil
}
