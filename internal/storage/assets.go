package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const assetColumns = `id, currency, chain_id, address, cached_on_chain_balance, balance_updated_at, created_at`

func scanAsset(row rowScanner) (model.Asset, error) {
	var (
		a         model.Asset
		updatedAt sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Currency, &a.ChainID, &a.Address, &a.CachedOnChainBalance, &updatedAt, &a.CreatedAt)
	a.BalanceUpdatedAt = fromNullTime(updatedAt)
	return a, err
}

// manualBalances sums manual transactions per asset. A nil id sums every
// asset.
func (s *SQLiteStorage) manualBalances(ctx context.Context, assetID *uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	query := `SELECT asset_id, amount FROM asset_transactions WHERE source = ?`
	args := []any{string(model.SourceManual)}
	if assetID != nil {
		query += ` AND asset_id = ?`
		args = append(args, *assetID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query manual balances: %w", err)
	}
	defer rows.Close()

	balances := make(map[uuid.UUID]decimal.Decimal)
	for rows.Next() {
		var (
			id     uuid.UUID
			amount decimal.Decimal
		)
		if err := rows.Scan(&id, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan transaction amount: %w", err)
		}
		balances[id] = balances[id].Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction amounts: %w", err)
	}
	return balances, nil
}

// GetAsset returns an asset with its manual balance resolved.
func (s *SQLiteStorage) GetAsset(ctx context.Context, id uuid.UUID) (*model.Asset, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if err != nil {
		return nil, notFound(err, "asset", id)
	}

	balances, err := s.manualBalances(ctx, &id)
	if err != nil {
		return nil, err
	}
	asset.ManualBalance = balances[id]

	return &asset, nil
}

// ListAssets returns assets matching the filter.
func (s *SQLiteStorage) ListAssets(ctx context.Context, filter service.AssetFilter) ([]model.Asset, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + assetColumns + ` FROM assets`
	var args []any
	if filter.Currency != "" {
		query += ` WHERE currency = ?`
		args = append(args, filter.Currency)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}

	var assets []model.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}
	// Release the only connection before the balance query.
	rows.Close()

	balances, err := s.manualBalances(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range assets {
		assets[i].ManualBalance = balances[assets[i].ID]
	}

	slog.Debug("retrieved assets", "count", len(assets))
	return assets, nil
}

// ObserveAssets streams the asset list. Transaction changes re-emit too,
// since they move manual balances.
func (s *SQLiteStorage) ObserveAssets(ctx context.Context, filter service.AssetFilter) (<-chan []model.Asset, error) {
	return observe(ctx, s.watch, tableAssets, func(ctx context.Context) ([]model.Asset, error) {
		return s.ListAssets(ctx, filter)
	})
}

func (s *SQLiteStorage) checkAddressUnique(ctx context.Context, asset *model.Asset) error {
	if asset.Address == "" {
		return nil
	}

	var existing uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM assets WHERE chain_id = ? AND address = ? AND id <> ?`,
		asset.ChainID, asset.Address, asset.ID,
	).Scan(&existing)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check asset address: %w", err)
	}
	return common.NewValidationError("address", fmt.Sprintf("%s on %s is already tracked by asset %s", asset.Address, asset.ChainID, existing))
}

// CreateAsset inserts a new asset. Manual balance is derived from
// transactions and is not stored.
func (s *SQLiteStorage) CreateAsset(ctx context.Context, asset *model.Asset) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAsset(asset); err != nil {
		return err
	}
	if err := s.checkAddressUnique(ctx, asset); err != nil {
		return err
	}

	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (`+assetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		asset.ID, asset.Currency, asset.ChainID, asset.Address, asset.CachedOnChainBalance,
		toNullTime(asset.BalanceUpdatedAt), asset.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}

	s.watch.notify(tableAssets)
	slog.Info("created asset", "asset_id", asset.ID, "currency", asset.Currency)
	return nil
}

// UpdateAsset updates currency and on-chain identity.
func (s *SQLiteStorage) UpdateAsset(ctx context.Context, asset *model.Asset) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAsset(asset); err != nil {
		return err
	}
	if err := s.checkAddressUnique(ctx, asset); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE assets SET currency = ?, chain_id = ?, address = ?, cached_on_chain_balance = ?, balance_updated_at = ?
		WHERE id = ?`,
		asset.Currency, asset.ChainID, asset.Address, asset.CachedOnChainBalance,
		toNullTime(asset.BalanceUpdatedAt), asset.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}
	if err := requireAffected(result, "asset", asset.ID); err != nil {
		return err
	}

	s.watch.notify(tableAssets)
	return nil
}

// UpdateOnChainBalance stores a freshly fetched on-chain balance.
func (s *SQLiteStorage) UpdateOnChainBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE assets SET cached_on_chain_balance = ?, balance_updated_at = ? WHERE id = ?`,
		balance, at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update on-chain balance: %w", err)
	}
	if err := requireAffected(result, "asset", id); err != nil {
		return err
	}

	s.watch.notify(tableAssets)
	return nil
}

// DeleteAsset removes an asset with its transactions and allocations.
func (s *SQLiteStorage) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM asset_transactions WHERE asset_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete asset transactions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM allocations WHERE asset_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete asset allocations: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete asset: %w", err)
		}
		return requireAffected(result, "asset", id)
	})
	if err != nil {
		return err
	}

	s.watch.notify(tableAssets, tableTransactions, tableAllocations)
	slog.Info("deleted asset", "asset_id", id)
	return nil
}
