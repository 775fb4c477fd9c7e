package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/shopspring/decimal"
)

// GoalDelta compares a tracked goal with its start-of-month snapshot.
// Amounts are in the goal's currency.
type GoalDelta struct {
	Goal     model.Goal
	Baseline decimal.Decimal
	Current  decimal.Decimal
	Delta    decimal.Decimal
	Target   decimal.Decimal
	Stale    bool
}

// MonthProgress is the execution view of one month.
type MonthProgress struct {
	Record model.MonthlyExecutionRecord
	Goals  []GoalDelta
	// Frozen is set for closed months, whose totals come from close data.
	Frozen bool
}

// Stale reports whether any live total excluded allocations.
func (m MonthProgress) Stale() bool {
	for _, g := range m.Goals {
		if g.Stale {
			return true
		}
	}
	return false
}

// Progress reports how each tracked goal moved since tracking started.
// Executing months use the live totals from the shared calculator; closed
// months use the totals frozen at close.
func (t *Tracker) Progress(ctx context.Context, monthLabel string) (MonthProgress, error) {
	record, err := t.store.GetExecutionRecord(ctx, monthLabel)
	if err != nil {
		return MonthProgress{}, err
	}

	result := MonthProgress{Record: *record}
	if record.Status == model.ExecutionDraft {
		return result, nil
	}

	snapshot, err := t.store.GetSnapshot(ctx, record.ID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return MonthProgress{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var frozen *model.CompletedExecution
	if record.Status == model.ExecutionClosed {
		frozen, err = t.store.GetCompletedExecution(ctx, record.ID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return MonthProgress{}, fmt.Errorf("failed to load close data: %w", err)
		}
		result.Frozen = frozen != nil
	}

	progresses, err := t.trackedProgress(ctx, record)
	if err != nil {
		return MonthProgress{}, err
	}

	for _, p := range progresses {
		delta := GoalDelta{
			Goal:     p.Goal,
			Baseline: decimal.Zero,
			Current:  p.CurrentTotal,
			Target:   p.Goal.TargetAmount,
			Stale:    p.Stale,
		}
		if snapshot != nil {
			if base, ok := snapshot.GoalTotals[p.Goal.ID]; ok {
				delta.Baseline = base
			}
		}
		if frozen != nil {
			if total, ok := frozen.GoalTotals[p.Goal.ID]; ok {
				delta.Current = total
				delta.Stale = false
			}
		}
		delta.Delta = delta.Current.Sub(delta.Baseline)
		result.Goals = append(result.Goals, delta)
	}

	return result, nil
}
