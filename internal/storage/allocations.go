package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const allocationColumns = `id, asset_id, goal_id, amount, updated_at`

func scanAllocation(row rowScanner) (model.Allocation, error) {
	var a model.Allocation
	err := row.Scan(&a.ID, &a.AssetID, &a.GoalID, &a.Amount, &a.UpdatedAt)
	return a, err
}

// GetAllocation returns the allocation of an asset to a goal.
func (s *SQLiteStorage) GetAllocation(ctx context.Context, assetID, goalID uuid.UUID) (*model.Allocation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+allocationColumns+` FROM allocations WHERE asset_id = ? AND goal_id = ?`,
		assetID, goalID,
	)
	allocation, err := scanAllocation(row)
	if err != nil {
		return nil, notFound(err, "allocation", fmt.Sprintf("%s->%s", assetID, goalID))
	}
	return &allocation, nil
}

// ListAllocations returns allocations for an asset, a goal, or everything.
func (s *SQLiteStorage) ListAllocations(ctx context.Context, filter service.AllocationFilter) ([]model.Allocation, error) {
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
	if filter.GoalID != nil {
		conditions = append(conditions, "goal_id = ?")
		args = append(args, *filter.GoalID)
	}

	query := `SELECT ` + allocationColumns + ` FROM allocations`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY asset_id, goal_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var allocations []model.Allocation
	for rows.Next() {
		allocation, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, allocation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocations: %w", err)
	}

	return allocations, nil
}

// ObserveAllocations streams allocations matching the filter.
func (s *SQLiteStorage) ObserveAllocations(ctx context.Context, filter service.AllocationFilter) (<-chan []model.Allocation, error) {
	return observe(ctx, s.watch, tableAllocations, func(ctx context.Context) ([]model.Allocation, error) {
		return s.ListAllocations(ctx, filter)
	})
}

// UpsertAllocation writes the allocation row for (asset, goal). A zero
// amount removes the row.
func (s *SQLiteStorage) UpsertAllocation(ctx context.Context, assetID, goalID uuid.UUID, amount decimal.Decimal) (*model.Allocation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(assetID, "assetID"); err != nil {
		return nil, err
	}
	if err := validateID(goalID, "goalID"); err != nil {
		return nil, err
	}
	if err := validateAllocationAmount(amount); err != nil {
		return nil, err
	}

	if amount.IsZero() {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM allocations WHERE asset_id = ? AND goal_id = ?`, assetID, goalID); err != nil {
			return nil, fmt.Errorf("failed to delete allocation: %w", err)
		}
		s.watch.notify(tableAllocations)
		return nil, nil
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO allocations (`+allocationColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(asset_id, goal_id) DO UPDATE SET
			amount = excluded.amount,
			updated_at = excluded.updated_at`,
		uuid.New(), assetID, goalID, amount, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert allocation: %w", err)
	}

	s.watch.notify(tableAllocations)
	return s.GetAllocation(ctx, assetID, goalID)
}

// DeleteAllocation removes the allocation of an asset to a goal.
func (s *SQLiteStorage) DeleteAllocation(ctx context.Context, assetID, goalID uuid.UUID) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM allocations WHERE asset_id = ? AND goal_id = ?`, assetID, goalID)
	if err != nil {
		return fmt.Errorf("failed to delete allocation: %w", err)
	}
	if err := requireAffected(result, "allocation", fmt.Sprintf("%s->%s", assetID, goalID)); err != nil {
		return err
	}

	s.watch.notify(tableAllocations)
	return nil
}
