package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dostify/dostify/internal/store/postgres"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		if cfg.Database.URL == "" {
			return fmt.Errorf("database url is not configured")
		}
		if err := postgres.RunMigrations(cfg.Database.URL); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		fmt.Println("Migrations applied.")
		return nil
	},
}
