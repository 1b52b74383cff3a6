// Package tracing wires the OpenTelemetry tracer provider used around scheduling runs.
package tracing

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/noah-isme/exam-scheduler-api/pkg/config"
)

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

// Init installs a global tracer provider. When tracing is disabled a no-op provider is installed
// so instrumented code never needs to branch.
func Init(cfg *config.Config, w io.Writer) (Shutdown, error) {
	if !cfg.Tracing.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.Tracing.ServiceName),
		attribute.String("deployment.environment", cfg.Env),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Tracer returns the named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
