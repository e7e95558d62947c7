// Package main is the process entrypoint: it loads configuration, connects
// the database, binds the HTTP listener and installs the last-resort fault
// handlers.
package main

import (
	"context"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"appserver/internal/config"
	"appserver/internal/database"
)

// @title App Server API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:           "appserver",
		Short:         "Connects the database and serves HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}

	rootCmd.AddCommand(
		serveCommand(cfg),
		dbCheckCommand(cfg, database.NewPostgres),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
