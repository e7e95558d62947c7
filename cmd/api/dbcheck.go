package main

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"appserver/internal/config"
	"appserver/internal/database"
	"appserver/pkg/logger"
)

func dbCheckCommand(cfg *config.AppConfig, connectDB func(context.Context, config.DatabaseConfig) (*sql.DB, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "dbcheck",
		Short: "Connects to the database once and reports the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logger.WithLogger(cmd.Context(), logger.Setup(cfg.Environment))
			defer logger.Sync(ctx)

			dsn, err := database.BuildDSN(cfg.Database)
			if err != nil {
				logger.Error(ctx, "invalid database configuration", zap.Error(err))
				return err
			}

			db, err := connectDB(ctx, cfg.Database)
			if err != nil {
				logger.Error(ctx, "DB connection error", zap.Error(err))
				return err
			}
			defer db.Close()

			logger.Info(ctx, "DB connection established...", zap.String("dsn", database.Redact(dsn, cfg.Database.Password)))
			return nil
		},
	}
}
