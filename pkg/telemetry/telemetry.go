// Package telemetry provides ambient OpenTelemetry tracing for the offline
// analysis CLI tools (summarize, diff, evaluate, verify). It never
// instruments the live recording path: the Trace Writer and patches must
// stay allocation-light and non-blocking, per spec.md §4.3/§4.4.
package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Shutdown flushes and stops the tracer provider installed by Setup.
type Shutdown func(context.Context) error

// Setup installs a TracerProvider that exports spans as JSON to w, and
// returns the module's tracer plus a shutdown function. Intended for a CLI
// command's root span only, never for the recording path.
func Setup(ctx context.Context, serviceName string, w io.Writer) (trace.Tracer, Shutdown, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)

	tracer := tp.Tracer(serviceName)
	return tracer, tp.Shutdown, nil
}

// StartCommandSpan starts the root span for a single CLI invocation, named
// after the subcommand it wraps (e.g. "agentci.diff").
func StartCommandSpan(ctx context.Context, tracer trace.Tracer, command string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "agentci."+command)
}
