// Package server assembles the Fiber application: global middleware, the
// operational routes owned by the bootstrap, and the application router.
package server

import (
	"fmt"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	handlers "appserver/internal/http/handler"
	"appserver/internal/http/middleware"
	"appserver/internal/storage"
)

const defaultMetricsPath = "/metrics"

// Options configures New.
type Options struct {
	// Logger receives access logs and recovered handler panics.
	Logger *zap.Logger
	// DB backs the /health readiness probe.
	DB handlers.Pinger
	// Store is probed by /health when set.
	Store storage.Storage
	// Registry receives HTTP metrics and is exposed on MetricsPath.
	// A fresh registry is used when nil.
	Registry *prometheus.Registry
	// MetricsPath defaults to /metrics.
	MetricsPath string
	// ServiceName is reported by the tracing middleware.
	ServiceName string
	// Routes mounts the application's own routes.
	Routes func(fiber.Router)
	// OnListen is called once the listener is bound.
	OnListen func(fiber.ListenData) error
}

// New builds the Fiber application. It does not bind a port.
func New(opts Options) (*fiber.App, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("server: database is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = defaultMetricsPath
	}

	prom, err := middleware.NewPrometheusMiddleware(opts.Registry, opts.MetricsPath)
	if err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: true,
	})

	if opts.OnListen != nil {
		app.Hooks().OnListen(opts.OnListen)
	}

	// Panics inside handlers are answered with a 500 and never reach the process-level handler.
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e any) {
			opts.Logger.Error("recovered handler panic",
				zap.Any("panic", e),
				zap.String("path", c.Path()),
				zap.String("request_id", middleware.RequestIDFromCtx(c)),
			)
		},
	}))
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware(otelfiber.WithServerName(opts.ServiceName)))
	app.Use(middleware.Logger(opts.Logger))
	app.Use(prom.Handler())

	handlers.RegisterSystemRoutes(app, handlers.SystemDeps{
		DB:          opts.DB,
		Store:       opts.Store,
		Gatherer:    opts.Registry,
		MetricsPath: opts.MetricsPath,
	})

	if opts.Routes != nil {
		opts.Routes(app)
	}

	return app, nil
}
