package telemetry

import (
	"context"

	"github.com/reusee/taitrace/cmds"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/reusee/taitrace"

// Tracer returns the tracer of the currently installed provider.
func Tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(instrumentationName)
}

var stdoutFlag = cmds.Switch("-otel-stdout", "export spans to stdout")

// Setup installs an SDK tracer provider when enabled.
// The returned function flushes and shuts it down.
func Setup() (shutdown func(context.Context) error, err error) {
	if !*stdoutFlag {
		return func(context.Context) error {
			return nil
		}, nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
