// Package telemetry bootstraps the OpenTelemetry tracer and meter providers.
package telemetry

import (
	"context"
	"errors"

	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Instrumentation scope names.
const (
	TracerName = "coach-planner"
	MeterName  = "coach-planner"
)

// Config is read from the standard OTEL_* variables. Exporting is off
// unless OTEL_ENABLED is true, so local runs need no collector.
type Config struct {
	Enabled        bool   `env:"OTEL_ENABLED,default=false"`
	Endpoint       string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceVersion string `env:"OTEL_SERVICE_VERSION,default=0.1.0"`
	ServiceName    string `env:"OTEL_SERVICE_NAME,default=coach-planner"`
	DeployEnv      string `env:"OTEL_DEPLOY_ENV,default=development"`
}

// Shutdown flushes and stops the providers.
type Shutdown func(ctx context.Context) error

// Init registers global tracer and meter providers. When exporting is
// disabled the SDK providers are still installed, without exporters.
func Init(ctx context.Context) (Shutdown, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, err
	}

	var (
		tracerProvider *sdktrace.TracerProvider
		meterProvider  *metric.MeterProvider
	)
	if cfg.Enabled {
		traceExporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient())
		if err != nil {
			return nil, err
		}
		metricExporter, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, err
		}
		tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter))
		meterProvider = metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(metricExporter)))
	} else {
		tracerProvider = sdktrace.NewTracerProvider()
		meterProvider = metric.NewMeterProvider()
	}

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return func(ctx context.Context) error {
		err := errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
		)
		if err != nil && err.Error() == "gRPC exporter is shutdown" {
			return nil
		}
		return err
	}, nil
}
