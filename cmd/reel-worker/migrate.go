package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/race-reels/internal/config"
	"github.com/yourusername/race-reels/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger schema",
		Long:  `Creates the sightings and ingestion_jobs tables for the postgres and sqlite backends. DynamoDB tables are provisioned outside the worker.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			switch cfg.Ledger.Backend {
			case config.LedgerBackendPostgres:
				db, err := database.NewDB(ctx, &cfg.Database)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.Migrate(ctx); err != nil {
					return err
				}
			case config.LedgerBackendSQLite:
				db, err := database.OpenSQLite(ctx, cfg.SQLite.Path)
				if err != nil {
					return err
				}
				defer db.Close()
			default:
				return fmt.Errorf("migrate is not supported for the %s backend", cfg.Ledger.Backend)
			}

			appLogger.WithField("backend", cfg.Ledger.Backend).Info("Ledger schema is up to date")
			return nil
		},
	}
}
