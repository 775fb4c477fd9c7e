package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/google/uuid"
)

type rowScanner interface {
	Scan(dest ...any) error
}

const goalColumns = `id, name, currency, target_amount, start_date, deadline, status, emoji, description, created_at, updated_at`

func scanGoal(row rowScanner) (model.Goal, error) {
	var g model.Goal
	err := row.Scan(
		&g.ID, &g.Name, &g.Currency, &g.TargetAmount, &g.StartDate, &g.Deadline,
		&g.Status, &g.Emoji, &g.Description, &g.CreatedAt, &g.UpdatedAt,
	)
	g.StartDate = g.StartDate.UTC()
	g.Deadline = g.Deadline.UTC()
	return g, err
}

// GetGoal returns a goal by id.
func (s *SQLiteStorage) GetGoal(ctx context.Context, id uuid.UUID) (*model.Goal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	goal, err := scanGoal(row)
	if err != nil {
		return nil, notFound(err, "goal", id)
	}
	return &goal, nil
}

// ListGoals returns goals matching the filter ordered by deadline.
func (s *SQLiteStorage) ListGoals(ctx context.Context, filter service.GoalFilter) ([]model.Goal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + goalColumns + ` FROM goals`
	args := make([]any, 0, len(filter.Statuses))
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY deadline, name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var goals []model.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, goal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}

	slog.Debug("retrieved goals", "count", len(goals))
	return goals, nil
}

// ObserveGoals streams the goal list, re-emitting after every goal change.
func (s *SQLiteStorage) ObserveGoals(ctx context.Context, filter service.GoalFilter) (<-chan []model.Goal, error) {
	return observe(ctx, s.watch, tableGoals, func(ctx context.Context) ([]model.Goal, error) {
		return s.ListGoals(ctx, filter)
	})
}

// CreateGoal inserts a new goal.
func (s *SQLiteStorage) CreateGoal(ctx context.Context, goal *model.Goal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateGoal(goal); err != nil {
		return err
	}

	now := time.Now().UTC()
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = now
	}
	goal.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		goal.ID, goal.Name, goal.Currency, goal.TargetAmount, goal.StartDate.UTC(), goal.Deadline.UTC(),
		string(goal.Status), goal.Emoji, goal.Description, goal.CreatedAt, goal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}

	s.watch.notify(tableGoals)
	slog.Info("created goal", "goal_id", goal.ID, "name", goal.Name)
	return nil
}

// UpdateGoal replaces a goal's mutable fields.
func (s *SQLiteStorage) UpdateGoal(ctx context.Context, goal *model.Goal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateGoalUpdate(goal); err != nil {
		return err
	}

	goal.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE goals
		SET name = ?, currency = ?, target_amount = ?, start_date = ?, deadline = ?,
			status = ?, emoji = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		goal.Name, goal.Currency, goal.TargetAmount, goal.StartDate.UTC(), goal.Deadline.UTC(),
		string(goal.Status), goal.Emoji, goal.Description, goal.UpdatedAt, goal.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	if err := requireAffected(result, "goal", goal.ID); err != nil {
		return err
	}

	s.watch.notify(tableGoals)
	return nil
}

// DeleteGoal removes a goal and every allocation pointing at it.
func (s *SQLiteStorage) DeleteGoal(ctx context.Context, id uuid.UUID) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM allocations WHERE goal_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete goal allocations: %w", err)
		}
		removed, _ = result.RowsAffected()

		result, err = tx.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete goal: %w", err)
		}
		return requireAffected(result, "goal", id)
	})
	if err != nil {
		return err
	}

	s.watch.notify(tableGoals, tableAllocations)
	slog.Info("deleted goal", "goal_id", id, "allocations_removed", removed)
	return nil
}
