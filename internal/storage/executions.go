package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const executionColumns = `id, month_label, status, created_at, started_at, completed_at, can_undo_until, tracked_goal_ids`

func scanExecutionRecord(row rowScanner) (model.MonthlyExecutionRecord, error) {
	var (
		r                               model.MonthlyExecutionRecord
		startedAt, completedAt, undoEnd sql.NullTime
		tracked                         string
	)
	if err := row.Scan(&r.ID, &r.MonthLabel, &r.Status, &r.CreatedAt, &startedAt, &completedAt, &undoEnd, &tracked); err != nil {
		return r, err
	}
	r.StartedAt = fromNullTime(startedAt)
	r.CompletedAt = fromNullTime(completedAt)
	r.CanUndoUntil = fromNullTime(undoEnd)
	if err := json.Unmarshal([]byte(tracked), &r.TrackedGoalIDs); err != nil {
		return r, fmt.Errorf("%w: tracked goal ids for %s: %v", common.ErrDatabaseCorrupted, r.MonthLabel, err)
	}
	return r, nil
}

func trackedJSON(ids []uuid.UUID) (string, error) {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode tracked goals: %w", err)
	}
	return string(data), nil
}

// GetExecutionRecord returns the record for a month.
func (s *SQLiteStorage) GetExecutionRecord(ctx context.Context, monthLabel string) (*model.MonthlyExecutionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateMonthLabel(monthLabel); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+executionColumns+` FROM execution_records WHERE month_label = ?`, monthLabel)
	record, err := scanExecutionRecord(row)
	if err != nil {
		return nil, notFound(err, "execution record", monthLabel)
	}
	return &record, nil
}

// ListExecutionRecords returns every record, oldest month first.
func (s *SQLiteStorage) ListExecutionRecords(ctx context.Context) ([]model.MonthlyExecutionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+executionColumns+` FROM execution_records ORDER BY month_label`)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution records: %w", err)
	}
	defer rows.Close()

	var records []model.MonthlyExecutionRecord
	for rows.Next() {
		record, err := scanExecutionRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution records: %w", err)
	}
	return records, nil
}

// ObserveExecutionRecords streams the record list.
func (s *SQLiteStorage) ObserveExecutionRecords(ctx context.Context) (<-chan []model.MonthlyExecutionRecord, error) {
	return observe(ctx, s.watch, tableExecutions, s.ListExecutionRecords)
}

// CreateExecutionRecord inserts a record. Month labels are unique.
func (s *SQLiteStorage) CreateExecutionRecord(ctx context.Context, record *model.MonthlyExecutionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExecutionRecord(record); err != nil {
		return err
	}

	if _, err := s.GetExecutionRecord(ctx, record.MonthLabel); err == nil {
		return fmt.Errorf("execution record %s: %w", record.MonthLabel, common.ErrDuplicateEntry)
	}

	tracked, err := trackedJSON(record.TrackedGoalIDs)
	if err != nil {
		return err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO execution_records (`+executionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.MonthLabel, string(record.Status), record.CreatedAt,
		toNullTime(record.StartedAt), toNullTime(record.CompletedAt), toNullTime(record.CanUndoUntil), tracked,
	)
	if err != nil {
		return fmt.Errorf("failed to create execution record: %w", err)
	}

	s.watch.notify(tableExecutions)
	slog.Debug("created execution record", "month", record.MonthLabel)
	return nil
}

// UpdateExecutionRecord writes the record's status and timestamps.
func (s *SQLiteStorage) UpdateExecutionRecord(ctx context.Context, record *model.MonthlyExecutionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExecutionRecord(record); err != nil {
		return err
	}

	tracked, err := trackedJSON(record.TrackedGoalIDs)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE execution_records
		SET status = ?, started_at = ?, completed_at = ?, can_undo_until = ?, tracked_goal_ids = ?
		WHERE id = ?`,
		string(record.Status), toNullTime(record.StartedAt), toNullTime(record.CompletedAt),
		toNullTime(record.CanUndoUntil), tracked, record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution record: %w", err)
	}
	if err := requireAffected(result, "execution record", record.MonthLabel); err != nil {
		return err
	}

	s.watch.notify(tableExecutions)
	return nil
}

// DeleteExecutionRecord removes a month's record with its snapshot and
// close data.
func (s *SQLiteStorage) DeleteExecutionRecord(ctx context.Context, monthLabel string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	record, err := s.GetExecutionRecord(ctx, monthLabel)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM execution_snapshots WHERE record_id = ?`, record.ID); err != nil {
			return fmt.Errorf("failed to delete snapshot: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM completed_executions WHERE record_id = ?`, record.ID); err != nil {
			return fmt.Errorf("failed to delete completed execution: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM execution_records WHERE id = ?`, record.ID); err != nil {
			return fmt.Errorf("failed to delete execution record: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.watch.notify(tableExecutions)
	return nil
}

// SaveSnapshot stores (or replaces) the start-of-tracking snapshot.
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, snapshot *model.ExecutionSnapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if snapshot == nil {
		return fmt.Errorf("%w: snapshot", ErrNilParameter)
	}

	totals, err := json.Marshal(snapshot.GoalTotals)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot totals: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO execution_snapshots (record_id, goal_totals, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(record_id) DO UPDATE SET goal_totals = excluded.goal_totals, created_at = excluded.created_at`,
		snapshot.RecordID, string(totals), snapshot.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the snapshot taken when a record started tracking.
func (s *SQLiteStorage) GetSnapshot(ctx context.Context, recordID uuid.UUID) (*model.ExecutionSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		snapshot = model.ExecutionSnapshot{RecordID: recordID}
		totals   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT goal_totals, created_at FROM execution_snapshots WHERE record_id = ?`, recordID,
	).Scan(&totals, &snapshot.CreatedAt)
	if err != nil {
		return nil, notFound(err, "snapshot", recordID)
	}

	if err := decodeTotals(totals, &snapshot.GoalTotals); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// DeleteSnapshot removes a record's snapshot. Missing snapshots are ignored.
func (s *SQLiteStorage) DeleteSnapshot(ctx context.Context, recordID uuid.UUID) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM execution_snapshots WHERE record_id = ?`, recordID); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// SaveCompletedExecution stores (or replaces) the close-of-month data.
func (s *SQLiteStorage) SaveCompletedExecution(ctx context.Context, completed *model.CompletedExecution) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if completed == nil {
		return fmt.Errorf("%w: completed execution", ErrNilParameter)
	}

	totals, err := json.Marshal(completed.GoalTotals)
	if err != nil {
		return fmt.Errorf("failed to encode completed totals: %w", err)
	}
	rates, err := json.Marshal(completed.Rates)
	if err != nil {
		return fmt.Errorf("failed to encode completed rates: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO completed_executions (record_id, goal_totals, rates, closed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(record_id) DO UPDATE SET
			goal_totals = excluded.goal_totals,
			rates = excluded.rates,
			closed_at = excluded.closed_at`,
		completed.RecordID, string(totals), string(rates), completed.ClosedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save completed execution: %w", err)
	}
	return nil
}

// GetCompletedExecution returns the data frozen when a month was closed.
func (s *SQLiteStorage) GetCompletedExecution(ctx context.Context, recordID uuid.UUID) (*model.CompletedExecution, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		completed     = model.CompletedExecution{RecordID: recordID}
		totals, rates string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT goal_totals, rates, closed_at FROM completed_executions WHERE record_id = ?`, recordID,
	).Scan(&totals, &rates, &completed.ClosedAt)
	if err != nil {
		return nil, notFound(err, "completed execution", recordID)
	}

	if err := decodeTotals(totals, &completed.GoalTotals); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rates), &completed.Rates); err != nil {
		return nil, fmt.Errorf("%w: completed rates: %v", common.ErrDatabaseCorrupted, err)
	}
	return &completed, nil
}

// DeleteCompletedExecution removes close-of-month data. Missing rows are
// ignored.
func (s *SQLiteStorage) DeleteCompletedExecution(ctx context.Context, recordID uuid.UUID) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM completed_executions WHERE record_id = ?`, recordID); err != nil {
		return fmt.Errorf("failed to delete completed execution: %w", err)
	}
	return nil
}

func decodeTotals(raw string, dst *map[uuid.UUID]decimal.Decimal) error {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("%w: goal totals: %v", common.ErrDatabaseCorrupted, err)
	}
	return nil
}
