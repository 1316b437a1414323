// Package telemetry installs the OpenTelemetry trace provider for a run.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
)

type ShutdownFunc func(context.Context) error

// Setup exports spans as JSON lines to traceFile. With an empty traceFile the
// global no-op provider stays in place and the returned shutdown does nothing.
func Setup(ctx context.Context, traceFile, service, version, jobID string) (ShutdownFunc, error) {
	if traceFile == "" {
		return func(context.Context) error { return nil }, nil
	}

	f, err := os.Create(traceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(service),
			semconv.ServiceVersion(version),
			attribute.String("pdf2audio.job_id", jobID),
		),
	)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		var errs []error
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}, nil
}
