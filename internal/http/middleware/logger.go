package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Logger writes one structured entry per HTTP request.
// Fields: request_id, method, path, status, latency_ms and, when a span is active, trace_id.
func Logger(l *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		// The global error handler runs after this returns, so derive the status from err.
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		fields := []zap.Field{
			zap.String("request_id", RequestIDFromCtx(c)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000),
		}
		if sc := trace.SpanContextFromContext(c.UserContext()); sc.HasTraceID() {
			fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			l.Error("http_request", fields...)
		case status >= fiber.StatusBadRequest:
			l.Warn("http_request", fields...)
		default:
			l.Info("http_request", fields...)
		}

		return err
	}
}
