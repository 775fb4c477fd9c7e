package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExecutionStatus is the state of a monthly execution record.
type ExecutionStatus string

// Execution states.
const (
	ExecutionDraft     ExecutionStatus = "draft"
	ExecutionExecuting ExecutionStatus = "executing"
	ExecutionClosed    ExecutionStatus = "closed"
)

const monthLabelLayout = "2006-01"

// MonthLabel formats t as a "YYYY-MM" label in UTC.
func MonthLabel(t time.Time) string {
	return t.UTC().Format(monthLabelLayout)
}

// ParseMonthLabel parses a "YYYY-MM" label into the first instant of that
// month in UTC.
func ParseMonthLabel(label string) (time.Time, error) {
	t, err := time.ParseInLocation(monthLabelLayout, label, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month label %q: %w", label, err)
	}
	return t, nil
}

// MonthlyExecutionRecord tracks one calendar month of contributions.
type MonthlyExecutionRecord struct {
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CanUndoUntil   *time.Time
	MonthLabel     string
	Status         ExecutionStatus
	TrackedGoalIDs []uuid.UUID
	ID             uuid.UUID
}

// NewExecutionRecord creates a draft record for the month.
func NewExecutionRecord(monthLabel string, now time.Time) *MonthlyExecutionRecord {
	return &MonthlyExecutionRecord{
		ID:         uuid.New(),
		MonthLabel: monthLabel,
		Status:     ExecutionDraft,
		CreatedAt:  now.UTC(),
	}
}

// CanUndo reports whether an undo is still allowed at now.
func (r *MonthlyExecutionRecord) CanUndo(now time.Time) bool {
	return r.CanUndoUntil != nil && now.Before(*r.CanUndoUntil)
}

// ExecutionSnapshot stores the funded total of each tracked goal at the
// moment tracking started.
type ExecutionSnapshot struct {
	CreatedAt  time.Time
	GoalTotals map[uuid.UUID]decimal.Decimal
	RecordID   uuid.UUID
}

// CompletedExecution freezes funded totals and the exchange rates used when
// a month was closed. Rates are keyed "FROM/TO".
type CompletedExecution struct {
	ClosedAt   time.Time
	GoalTotals map[uuid.UUID]decimal.Decimal
	Rates      map[string]decimal.Decimal
	RecordID   uuid.UUID
}
