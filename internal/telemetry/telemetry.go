// Package telemetry provides OpenTelemetry integration for spaceferry.
//
// Telemetry is disabled by default (zero runtime overhead when off).
//
// # Configuration
//
//	SPACEFERRY_OTEL_ENABLED=true   enable telemetry (default: off)
//	OTEL_SERVICE_NAME=spaceferry   override service name
//
// When enabled, spans and metrics are pretty-printed to stderr; a long
// migration run is typically watched from a terminal, not a collector.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "github.com/spaceferry/spaceferry"

var shutdownFns []func(context.Context) error

// Enabled reports whether telemetry is active (SPACEFERRY_OTEL_ENABLED=true).
func Enabled() bool {
	return os.Getenv("SPACEFERRY_OTEL_ENABLED") == "true"
}

// Init configures OTel providers. When SPACEFERRY_OTEL_ENABLED is not
// "true" this installs no-op providers and returns immediately (zero
// overhead path).
func Init(ctx context.Context, serviceName, version string) error {
	if !Enabled() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return fmt.Errorf("telemetry: resource: %w", err)
	}

	traceExp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return fmt.Errorf("telemetry: trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	shutdownFns = append(shutdownFns, tp.Shutdown)

	metricExp, err := stdoutmetric.New()
	if err != nil {
		return fmt.Errorf("telemetry: metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp,
			sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	shutdownFns = append(shutdownFns, mp.Shutdown)

	initInstruments()
	return nil
}

// Shutdown flushes and stops all providers. Safe to call when disabled.
func Shutdown(ctx context.Context) {
	for _, fn := range shutdownFns {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_ = fn(ctx)
		cancel()
	}
	shutdownFns = nil
}
