// Package observability configures OpenTelemetry tracing.
package observability

import (
	"context"                    // Exporter setup and shutdown
	"errors"                     // Joining shutdown errors
	"fmt"                        // Error wrapping
	"ticketflow/internal/config" // Application configuration
	"time"                       // Export timeout

	"github.com/sirupsen/logrus"                                      // Logrus for structured logging
	"go.opentelemetry.io/otel"                                        // Global providers
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp" // OTLP/HTTP exporter
	"go.opentelemetry.io/otel/propagation"                            // W3C trace context
	"go.opentelemetry.io/otel/sdk/resource"                           // Service metadata
	sdktrace "go.opentelemetry.io/otel/sdk/trace"                     // Tracer provider
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"                // Attribute names
)

const (
	tracesPath    = "/v1/traces"     // OTLP/HTTP traces path
	exportTimeout = 10 * time.Second // Batch export deadline
	maxQueueSize  = 2048             // Spans buffered before dropping
)

// Shutdown flushes and stops the tracer provider
type Shutdown func(context.Context) error

// SetupTracing installs a global tracer provider exporting to cfg.OtelEndpoint.
// Without an endpoint spans stay on the no-op provider and the returned Shutdown does nothing.
func SetupTracing(ctx context.Context, cfg *config.Config) (Shutdown, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if cfg.OtelEndpoint == "" {
		logrus.Info("Tracing disabled, no OTEL_ENDPOINT set")
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.OtelEndpoint),
		otlptracehttp.WithURLPath(tracesPath),
	}
	if cfg.OtelAuthHeader != "" {
		opts = append(opts, otlptracehttp.WithHeaders(map[string]string{"Authorization": cfg.OtelAuthHeader}))
	}
	if !cfg.IsProd {
		opts = append(opts, otlptracehttp.WithInsecure()) // Local collectors speak plain HTTP
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter,
			sdktrace.WithExportTimeout(exportTimeout),
			sdktrace.WithMaxQueueSize(maxQueueSize),
		)),
	)
	otel.SetTracerProvider(tp)
	logrus.WithField("endpoint", cfg.OtelEndpoint).Info("Tracing enabled")

	return func(ctx context.Context) error {
		return errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx))
	}, nil
}
