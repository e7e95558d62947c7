package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"appserver/internal/config"
	"appserver/internal/database"
	"appserver/internal/http/server"
	"appserver/internal/otel"
	"appserver/internal/storage"
	"appserver/internal/supervisor"
	"appserver/pkg/logger"
	"appserver/pkg/serrors"
)

func serveCommand(cfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.AppConfig) error {
	log := logger.Setup(cfg.Environment)
	sup := supervisor.New(
		supervisor.WithLogger(log),
		supervisor.WithShutdownTimeout(cfg.ShutdownTimeout()),
	)
	defer sup.Recover()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := &bootstrap{
		cfg:       cfg,
		log:       log,
		sup:       sup,
		connectDB: database.NewPostgres,
		listen: func(app *fiber.App, addr string) error {
			return app.Listen(addr)
		},
	}
	return b.run(ctx)
}

// bootstrap holds the startup sequence. Its seams exist so the ordering can be tested.
type bootstrap struct {
	cfg       *config.AppConfig
	log       *zap.Logger
	sup       *supervisor.Supervisor
	connectDB func(context.Context, config.DatabaseConfig) (*sql.DB, error)
	listen    func(app *fiber.App, addr string) error
}

// run connects the database, then binds the listener and blocks until a
// shutdown signal or an unhandled rejection. The listener is never bound when
// the database connect fails.
func (b *bootstrap) run(ctx context.Context) error {
	ctx = logger.WithLogger(ctx, b.log)

	if err := b.cfg.Validate(); err != nil {
		err = serrors.Wrap(serrors.ErrConfig, err, "config")
		b.sup.Fatal("invalid configuration", err)
		return err
	}

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()
	// Deferred after the closers: a panic exits before any cleanup runs.
	defer b.sup.Recover()

	shutdownTracing, err := otel.Init(ctx, b.cfg.Tracing, b.log)
	if err != nil {
		b.sup.Fatal("tracing setup failed", err)
		return err
	}
	closers = append(closers, func() {
		sctx, cancel := context.WithTimeout(context.Background(), b.cfg.ShutdownTimeout())
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn(ctx, "tracing shutdown failed", zap.Error(err))
		}
	})

	if dsn, err := database.BuildDSN(b.cfg.Database); err == nil {
		logger.Info(ctx, "connecting to database", zap.String("dsn", database.Redact(dsn, b.cfg.Database.Password)))
	}
	db, err := b.connectDB(ctx, b.cfg.Database)
	if err != nil {
		b.sup.Fatal("DB connection error", err)
		return err
	}
	closers = append(closers, func() { _ = db.Close() })
	logger.Info(ctx, "DB connection established...")

	var store storage.Storage
	if b.cfg.MinIO.Enabled() {
		store, err = storage.NewMinIO(ctx, b.cfg.MinIO)
		if err != nil {
			b.sup.Fatal("object storage connection error", err)
			return err
		}
		logger.Info(ctx, "object storage connected", zap.String("bucket", store.Bucket()))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "main"),
	)

	app, err := server.New(server.Options{
		Logger:      b.log,
		DB:          db,
		Store:       store,
		Registry:    reg,
		ServiceName: b.cfg.Tracing.ServiceName,
		OnListen: func(ld fiber.ListenData) error {
			logger.Info(ctx, "App listening on port: "+ld.Port, zap.String("port", ld.Port))
			return nil
		},
	})
	if err != nil {
		b.sup.Fatal("failed to build http server", err)
		return err
	}

	b.sup.SetListener(app)
	addr := ":" + b.cfg.Port
	b.sup.Go("http-listener", func() error {
		return b.listen(app, addr)
	})

	if err := b.sup.Wait(ctx); err != nil {
		return err
	}
	logger.Info(ctx, "server stopped")
	return nil
}
