package middleware

import (
	"fmt" // Span names

	"github.com/gin-gonic/gin"             // Gin web framework
	"go.opentelemetry.io/otel"             // Global tracer and propagator
	"go.opentelemetry.io/otel/attribute"   // Span attributes
	"go.opentelemetry.io/otel/codes"       // Span status
	"go.opentelemetry.io/otel/propagation" // Header carrier
	"go.opentelemetry.io/otel/trace"       // Span kinds
)

// Tracing opens a server span per request, continuing any trace the caller propagated
func Tracing() gin.HandlerFunc {
	tracer := otel.Tracer("ticketflow/http")
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", c.Request.Method, route), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
		)
		if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
		}
	}
}
