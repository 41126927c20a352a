// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"log/slog"

	"github.com/birun/console/pkg/api"
	"github.com/birun/console/pkg/otelhelper"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "birun-console"

// NewTracer returns an OTLP tracer when enabled, otherwise a no-op tracer with a no-op shutdown.
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, enabled bool) (trace.Tracer, otelhelper.ShutdownFunc, error) {
	if !enabled {
		return otelhelper.NoopTracer(), func(context.Context) error { return nil }, nil
	}

	return otelhelper.NewTracer(ctx, serviceName)
}

func NewClient(baseURL, token string, tracer trace.Tracer, logger *slog.Logger) (*api.Client, error) {
	return api.NewClient(api.Config{
		BaseURL: baseURL,
		Token:   token,
		Tracer:  tracer,
		Logger:  logger,
	})
}
