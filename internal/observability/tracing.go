// Package observability exports Genkit traces over OTLP HTTP.
//
// Every Generate and Embed call runs inside a Genkit span; registering a
// span processor on Genkit's TracerProvider is enough to ship them to any
// OTLP collector (Jaeger, Grafana Tempo, a vendor agent listening on
// localhost:4318).
//
// Configuration (~/.owlia/config.yaml):
//
//	tracing:
//	  enabled: true
//	  endpoint: "localhost:4318"
//	  environment: "dev"
//	  service_name: "owlia"
//
// OTEL_EXPORTER_OTLP_ENDPOINT overrides the endpoint.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/owlia-ai/owlia/internal/config"
)

// DefaultEndpoint is the conventional local OTLP HTTP port.
const DefaultEndpoint = "localhost:4318"

// noopShutdown is returned when tracing is disabled or unavailable.
func noopShutdown(context.Context) error { return nil }

// SetupTracing registers an OTLP HTTP exporter with Genkit's TracerProvider
// and returns a shutdown function that flushes pending spans.
//
// A collector that cannot be reached must not take the tutor down with it,
// so exporter construction failure logs a warning and disables tracing.
func SetupTracing(ctx context.Context, cfg config.TraceConfig, logger *slog.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	// Genkit's TracerProvider reads the service identity from the
	// standard OTel environment variables at span export time.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("tracing disabled: exporter setup failed", "endpoint", endpoint, "error", err)
		return noopShutdown, nil
	}

	tracing.TracerProvider().RegisterSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter))

	logger.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
