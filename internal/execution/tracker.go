// Package execution tracks each calendar month of contributions through
// draft, executing and closed, with a timed undo window after every
// forward transition.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/config"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/progress"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transition names.
const (
	OpStartTracking     = "startTracking"
	OpMarkComplete      = "markComplete"
	OpUndoStartTracking = "undoStartTracking"
	OpUndoCompletion    = "undoCompletion"
)

type transition struct {
	from model.ExecutionStatus
	to   model.ExecutionStatus
}

var transitions = map[string]transition{
	OpStartTracking:     {from: model.ExecutionDraft, to: model.ExecutionExecuting},
	OpMarkComplete:      {from: model.ExecutionExecuting, to: model.ExecutionClosed},
	OpUndoStartTracking: {from: model.ExecutionExecuting, to: model.ExecutionDraft},
	OpUndoCompletion:    {from: model.ExecutionClosed, to: model.ExecutionExecuting},
}

// Store is the persistence the tracker needs.
type Store interface {
	service.GoalStore
	service.ExecutionStore
}

// Tracker drives monthly execution records.
type Tracker struct {
	store    Store
	calc     *progress.Calculator
	now      func() time.Time
	settings config.ExecutionSettings
}

// NewTracker creates a tracker. calc must be the calculator the goal views
// use so execution totals match them. A nil now uses time.Now.
func NewTracker(store Store, calc *progress.Calculator, settings config.ExecutionSettings, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: store, calc: calc, settings: settings, now: now}
}

// CurrentMonth returns the label of the month containing now.
func (t *Tracker) CurrentMonth() string {
	return model.MonthLabel(t.now())
}

// EnsureRecord returns the month's record, creating a draft if none exists.
func (t *Tracker) EnsureRecord(ctx context.Context, monthLabel string) (*model.MonthlyExecutionRecord, error) {
	if _, err := model.ParseMonthLabel(monthLabel); err != nil {
		return nil, common.NewValidationError("monthLabel", err.Error())
	}

	record, err := t.store.GetExecutionRecord(ctx, monthLabel)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	record = model.NewExecutionRecord(monthLabel, t.now())
	if err := t.store.CreateExecutionRecord(ctx, record); err != nil {
		if errors.Is(err, common.ErrDuplicateEntry) {
			return t.store.GetExecutionRecord(ctx, monthLabel)
		}
		return nil, err
	}

	slog.Info("created execution record", "month", monthLabel)
	return record, nil
}

// Record returns the month's record.
func (t *Tracker) Record(ctx context.Context, monthLabel string) (*model.MonthlyExecutionRecord, error) {
	return t.store.GetExecutionRecord(ctx, monthLabel)
}

// StartTracking moves a draft month to executing, snapshots the funded
// total of every active goal and freezes the tracked goal set. Records that
// are not draft are returned unchanged.
func (t *Tracker) StartTracking(ctx context.Context, monthLabel string) (*model.MonthlyExecutionRecord, error) {
	record, err := t.EnsureRecord(ctx, monthLabel)
	if err != nil {
		return nil, err
	}
	if record.Status != model.ExecutionDraft {
		slog.Info("month already tracked", "month", monthLabel, "status", record.Status)
		return record, nil
	}

	goals, err := t.store.ListGoals(ctx, service.ActiveGoals)
	if err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}
	progresses, err := t.calc.ComputeAll(ctx, goals)
	if err != nil {
		return nil, fmt.Errorf("failed to compute progress: %w", err)
	}

	now := t.now().UTC()
	snapshot := &model.ExecutionSnapshot{
		RecordID:   record.ID,
		CreatedAt:  now,
		GoalTotals: make(map[uuid.UUID]decimal.Decimal, len(progresses)),
	}
	tracked := make([]uuid.UUID, 0, len(progresses))
	for _, p := range progresses {
		snapshot.GoalTotals[p.Goal.ID] = p.CurrentTotal
		tracked = append(tracked, p.Goal.ID)
	}

	if err := t.store.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, err
	}

	updated := *record
	updated.Status = transitions[OpStartTracking].to
	updated.StartedAt = &now
	updated.CompletedAt = nil
	updated.CanUndoUntil = t.undoDeadline(now)
	updated.TrackedGoalIDs = tracked
	if err := t.store.UpdateExecutionRecord(ctx, &updated); err != nil {
		// A draft record must not keep a snapshot.
		if delErr := t.store.DeleteSnapshot(ctx, record.ID); delErr != nil {
			slog.Warn("failed to discard snapshot", "month", monthLabel, "error", delErr)
		}
		return nil, err
	}

	slog.Info("started tracking month", "month", monthLabel, "goals", len(tracked))
	return &updated, nil
}

// MarkComplete closes an executing month and freezes its totals and the
// rates used to compute them.
func (t *Tracker) MarkComplete(ctx context.Context, monthLabel string) (*model.MonthlyExecutionRecord, error) {
	record, err := t.store.GetExecutionRecord(ctx, monthLabel)
	if err != nil {
		return nil, err
	}
	if err := check(record, OpMarkComplete); err != nil {
		return nil, err
	}

	progresses, err := t.trackedProgress(ctx, record)
	if err != nil {
		return nil, err
	}

	now := t.now().UTC()
	completed := &model.CompletedExecution{
		RecordID:   record.ID,
		ClosedAt:   now,
		GoalTotals: make(map[uuid.UUID]decimal.Decimal, len(progresses)),
		Rates:      make(map[string]decimal.Decimal),
	}
	for _, p := range progresses {
		completed.GoalTotals[p.Goal.ID] = p.CurrentTotal
		for pair, rate := range p.Rates {
			completed.Rates[pair] = rate
		}
	}
	if err := t.store.SaveCompletedExecution(ctx, completed); err != nil {
		return nil, err
	}

	updated := *record
	updated.Status = transitions[OpMarkComplete].to
	updated.CompletedAt = &now
	updated.CanUndoUntil = t.undoDeadline(now)
	if err := t.store.UpdateExecutionRecord(ctx, &updated); err != nil {
		return nil, err
	}

	slog.Info("closed month", "month", monthLabel)
	return &updated, nil
}

// UndoStartTracking returns an executing month to draft while its undo
// window is open, discarding the snapshot and any close data.
func (t *Tracker) UndoStartTracking(ctx context.Context, monthLabel string) (*model.MonthlyExecutionRecord, error) {
	record, err := t.store.GetExecutionRecord(ctx, monthLabel)
	if err != nil {
		return nil, err
	}
	if err := check(record, OpUndoStartTracking); err != nil {
		return nil, err
	}
	if err := t.checkUndo(record, OpUndoStartTracking); err != nil {
		return nil, err
	}

	if err := t.store.DeleteSnapshot(ctx, record.ID); err != nil {
		return nil, err
	}
	if err := t.store.DeleteCompletedExecution(ctx, record.ID); err != nil {
		return nil, err
	}

	updated := *record
	updated.Status = transitions[OpUndoStartTracking].to
	updated.StartedAt = nil
	updated.CanUndoUntil = nil
	updated.TrackedGoalIDs = nil
	if err := t.store.UpdateExecutionRecord(ctx, &updated); err != nil {
		return nil, err
	}

	slog.Info("undid start of tracking", "month", monthLabel)
	return &updated, nil
}

// UndoCompletion reopens a closed month while its undo window is open. The
// close data is kept until the month is closed again or tracking is undone.
func (t *Tracker) UndoCompletion(ctx context.Context, monthLabel string) (*model.MonthlyExecutionRecord, error) {
	record, err := t.store.GetExecutionRecord(ctx, monthLabel)
	if err != nil {
		return nil, err
	}
	if err := check(record, OpUndoCompletion); err != nil {
		return nil, err
	}
	if err := t.checkUndo(record, OpUndoCompletion); err != nil {
		return nil, err
	}

	updated := *record
	updated.Status = transitions[OpUndoCompletion].to
	updated.CompletedAt = nil
	updated.CanUndoUntil = nil
	if err := t.store.UpdateExecutionRecord(ctx, &updated); err != nil {
		return nil, err
	}

	slog.Info("reopened month", "month", monthLabel)
	return &updated, nil
}

func check(record *model.MonthlyExecutionRecord, op string) error {
	if record.Status != transitions[op].from {
		return &common.TransitionError{
			Err:        common.ErrInvalidTransition,
			MonthLabel: record.MonthLabel,
			From:       string(record.Status),
			Op:         op,
		}
	}
	return nil
}

func (t *Tracker) checkUndo(record *model.MonthlyExecutionRecord, op string) error {
	var reason error
	switch {
	case t.settings.UndoGracePeriod <= 0:
		reason = common.ErrUndoDisabled
	case !record.CanUndo(t.now()):
		reason = common.ErrUndoWindowExpired
	default:
		return nil
	}
	return &common.TransitionError{
		Err:        reason,
		MonthLabel: record.MonthLabel,
		From:       string(record.Status),
		Op:         op,
	}
}

func (t *Tracker) undoDeadline(now time.Time) *time.Time {
	if t.settings.UndoGracePeriod <= 0 {
		return nil
	}
	until := now.Add(t.settings.UndoGracePeriod)
	return &until
}

// trackedProgress computes live progress for the goals frozen into a
// record. Goals deleted since are dropped.
func (t *Tracker) trackedProgress(ctx context.Context, record *model.MonthlyExecutionRecord) ([]progress.GoalProgress, error) {
	goals := make([]model.Goal, 0, len(record.TrackedGoalIDs))
	for _, id := range record.TrackedGoalIDs {
		goal, err := t.store.GetGoal(ctx, id)
		if errors.Is(err, common.ErrNotFound) {
			slog.Debug("tracked goal no longer exists", "goal_id", id, "month", record.MonthLabel)
			continue
		}
		if err != nil {
			return nil, err
		}
		goals = append(goals, *goal)
	}
	return t.calc.ComputeAll(ctx, goals)
}
