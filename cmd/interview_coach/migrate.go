package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/db"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  `Apply the embedded goose migrations to DATABASE_URL, or roll back the latest one with --down.`,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Roll back the most recent migration")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(config.Requirements{Database: true})
	if err != nil {
		return err
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if migrateDown {
		if err := database.MigrateDown(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Rolled back one migration")
		return nil
	}
	if err := database.Migrate(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
	return nil
}
