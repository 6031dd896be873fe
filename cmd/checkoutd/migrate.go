package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CacconeLabYale/TsetseCheckout/internal/infrastructure/database"
	"github.com/CacconeLabYale/TsetseCheckout/internal/pkg/config"
	"github.com/CacconeLabYale/TsetseCheckout/internal/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Create or update the database schema",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate()
		},
	}
}

func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Initialize(cfg.Environment)

	db, err := database.NewPostgresDB(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Migrate()
}
