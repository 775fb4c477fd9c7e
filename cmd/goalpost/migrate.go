package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/goalpost/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on startup; use --status to check the schema
version without changing anything.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	ctx := cmd.Context()

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		fmt.Fprintf(cmd.OutOrStdout(), "Database:        %s\n", settings.DatabasePath)
		fmt.Fprintf(cmd.OutOrStdout(), "Current version: %d\n", current)
		fmt.Fprintf(cmd.OutOrStdout(), "Latest version:  %d\n", storage.ExpectedSchemaVersion)
		if current < storage.ExpectedSchemaVersion {
			fmt.Fprintln(cmd.OutOrStdout(), "Run 'goalpost migrate' to apply pending migrations.")
		}
		return nil
	}

	slog.Info("Running database migrations", "database", settings.DatabasePath, "from", current)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("Database migrations completed", "version", storage.ExpectedSchemaVersion)
	return nil
}
