package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// ExpectedSchemaVersion is the user_version a fully migrated database reports.
const ExpectedSchemaVersion = 3

// Migration moves the schema forward by one user_version.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", strings.TrimSpace(query), err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS goals (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					currency TEXT NOT NULL,
					target_amount TEXT NOT NULL,
					start_date DATETIME NOT NULL,
					deadline DATETIME NOT NULL,
					status TEXT NOT NULL DEFAULT 'active',
					emoji TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_goals_status ON goals(status)`,

				`CREATE TABLE IF NOT EXISTS assets (
					id TEXT PRIMARY KEY,
					currency TEXT NOT NULL,
					chain_id TEXT NOT NULL DEFAULT '',
					address TEXT NOT NULL DEFAULT '',
					cached_on_chain_balance TEXT NOT NULL DEFAULT '0',
					balance_updated_at DATETIME,
					created_at DATETIME NOT NULL
				)`,
				`CREATE UNIQUE INDEX idx_assets_chain_address ON assets(chain_id, address) WHERE address <> ''`,

				`CREATE TABLE IF NOT EXISTS asset_transactions (
					id TEXT PRIMARY KEY,
					asset_id TEXT NOT NULL,
					amount TEXT NOT NULL,
					date DATETIME NOT NULL,
					source TEXT NOT NULL,
					external_id TEXT NOT NULL DEFAULT '',
					counterparty TEXT NOT NULL DEFAULT '',
					comment TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_asset_transactions_asset ON asset_transactions(asset_id, date)`,

				`CREATE TABLE IF NOT EXISTS allocations (
					id TEXT PRIMARY KEY,
					asset_id TEXT NOT NULL,
					goal_id TEXT NOT NULL,
					amount TEXT NOT NULL,
					updated_at DATETIME NOT NULL,
					UNIQUE(asset_id, goal_id)
				)`,
				`CREATE INDEX idx_allocations_goal ON allocations(goal_id)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Add monthly execution tracking",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS execution_records (
					id TEXT PRIMARY KEY,
					month_label TEXT UNIQUE NOT NULL,
					status TEXT NOT NULL,
					created_at DATETIME NOT NULL,
					started_at DATETIME,
					completed_at DATETIME,
					can_undo_until DATETIME,
					tracked_goal_ids TEXT NOT NULL DEFAULT '[]'
				)`,
				`CREATE TABLE IF NOT EXISTS execution_snapshots (
					record_id TEXT PRIMARY KEY,
					goal_totals TEXT NOT NULL,
					created_at DATETIME NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS completed_executions (
					record_id TEXT PRIMARY KEY,
					goal_totals TEXT NOT NULL,
					rates TEXT NOT NULL,
					closed_at DATETIME NOT NULL
				)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Index imported transaction ids for duplicate detection",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_asset_transactions_external ON asset_transactions(asset_id, external_id)`,
			})
		},
	},
}

// SchemaVersion returns the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("applied schema migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// A binary older than the database must not write to it.
	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
