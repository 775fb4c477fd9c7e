package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/google/uuid"
)

const transactionColumns = `id, asset_id, amount, date, source, external_id, counterparty, comment, created_at`

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var t model.Transaction
	err := row.Scan(&t.ID, &t.AssetID, &t.Amount, &t.Date, &t.Source, &t.ExternalID, &t.Counterparty, &t.Comment, &t.CreatedAt)
	t.Date = t.Date.UTC()
	return t, err
}

// GetTransaction returns a transaction by id.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM asset_transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return &txn, nil
}

// ListTransactions returns transactions matching the filter, newest first.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		conditions []string
		args       []any
	)
	if filter.AssetID != nil {
		conditions = append(conditions, "asset_id = ?")
		args = append(args, *filter.AssetID)
	}
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, string(filter.Source))
	}
	if filter.StartDate != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, filter.EndDate.UTC())
	}

	query := `SELECT ` + transactionColumns + ` FROM asset_transactions`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY date DESC, created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}

// ObserveTransactions streams transactions matching the filter.
func (s *SQLiteStorage) ObserveTransactions(ctx context.Context, filter service.TransactionFilter) (<-chan []model.Transaction, error) {
	return observe(ctx, s.watch, tableTransactions, func(ctx context.Context) ([]model.Transaction, error) {
		return s.ListTransactions(ctx, filter)
	})
}

// CreateTransaction records a balance change on an existing asset.
func (s *SQLiteStorage) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	if _, err := s.GetAsset(ctx, txn.AssetID); err != nil {
		return err
	}

	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO asset_transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.AssetID, txn.Amount, txn.Date.UTC(), string(txn.Source),
		txn.ExternalID, txn.Counterparty, txn.Comment, txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	s.watch.notify(tableTransactions, tableAssets)
	slog.Debug("recorded transaction", "asset_id", txn.AssetID, "amount", txn.Amount.String(), "source", txn.Source)
	return nil
}

// UpdateTransaction edits a transaction's amount, date and notes.
func (s *SQLiteStorage) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE asset_transactions SET amount = ?, date = ?, counterparty = ?, comment = ?
		WHERE id = ?`,
		txn.Amount, txn.Date.UTC(), txn.Counterparty, txn.Comment, txn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if err := requireAffected(result, "transaction", txn.ID); err != nil {
		return err
	}

	s.watch.notify(tableTransactions, tableAssets)
	return nil
}

// DeleteTransaction removes a transaction.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM asset_transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if err := requireAffected(result, "transaction", id); err != nil {
		return err
	}

	s.watch.notify(tableTransactions, tableAssets)
	return nil
}

// HasExternalID reports whether an asset already holds a transaction
// imported under externalID.
func (s *SQLiteStorage) HasExternalID(ctx context.Context, assetID uuid.UUID, externalID string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(externalID, "externalID"); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM asset_transactions WHERE asset_id = ? AND external_id = ?`,
		assetID, externalID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check external id: %w", err)
	}
	return count > 0, nil
}
