package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	_ "appserver/docs"
	"appserver/internal/storage"
	"appserver/pkg/logger"
)

// Pinger is the part of *sql.DB the health check needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SystemDeps are the dependencies of the built-in operational routes.
type SystemDeps struct {
	DB          Pinger
	Store       storage.Storage // optional
	Gatherer    prometheus.Gatherer
	MetricsPath string
}

// RegisterSystemRoutes attaches the operational routes owned by the bootstrap.
// Application routes are mounted separately.
func RegisterSystemRoutes(app fiber.Router, deps SystemDeps) {
	app.Get("/health", HealthCheck(deps.DB, deps.Store))
	app.Get("/healthz", LivenessProbe())
	if deps.Gatherer != nil {
		app.Get(deps.MetricsPath, Metrics(deps.Gatherer))
	}
	app.Get("/swagger/*", Swagger())
}

// HealthCheck godoc
// @Summary Readiness probe
// @Description Pings the database and, when configured, the object storage bucket.
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(db Pinger, store storage.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			logger.Warn(c.UserContext(), "health check failed", zap.String("dependency", "database"), zap.Error(err))
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		if store != nil {
			if err := store.Ping(ctx); err != nil {
				logger.Warn(c.UserContext(), "health check failed", zap.String("dependency", "storage"), zap.Error(err))
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe godoc
// @Summary Liveness probe
// @Success 200
// @Router /healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// Metrics exposes g in the Prometheus text format.
func Metrics(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// Swagger serves the Swagger UI. The registered spec leaves host and schemes
// empty, so the UI targets whatever origin served it.
func Swagger() fiber.Handler {
	return swagger.HandlerDefault
}
