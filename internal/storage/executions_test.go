package storage

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestSQLiteStorage_ExecutionRecordLifecycle(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	record := model.NewExecutionRecord("2026-04", now)
	if err := store.CreateExecutionRecord(ctx, record); err != nil {
		t.Fatalf("CreateExecutionRecord() error = %v", err)
	}

	dup := model.NewExecutionRecord("2026-04", now)
	if err := store.CreateExecutionRecord(ctx, dup); !errors.Is(err, common.ErrDuplicateEntry) {
		t.Errorf("duplicate CreateExecutionRecord() error = %v, want ErrDuplicateEntry", err)
	}

	got, err := store.GetExecutionRecord(ctx, "2026-04")
	if err != nil {
		t.Fatalf("GetExecutionRecord() error = %v", err)
	}
	if got.Status != model.ExecutionDraft || got.StartedAt != nil || len(got.TrackedGoalIDs) != 0 {
		t.Errorf("new record = %+v, want empty draft", got)
	}

	goalID := uuid.New()
	started := now.Add(time.Hour)
	undoUntil := started.Add(24 * time.Hour)
	got.Status = model.ExecutionExecuting
	got.StartedAt = &started
	got.CanUndoUntil = &undoUntil
	got.TrackedGoalIDs = []uuid.UUID{goalID}
	if err := store.UpdateExecutionRecord(ctx, got); err != nil {
		t.Fatalf("UpdateExecutionRecord() error = %v", err)
	}

	updated, err := store.GetExecutionRecord(ctx, "2026-04")
	if err != nil {
		t.Fatalf("GetExecutionRecord() error = %v", err)
	}
	if updated.Status != model.ExecutionExecuting {
		t.Errorf("Status = %s, want executing", updated.Status)
	}
	if updated.StartedAt == nil || !updated.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", updated.StartedAt, started)
	}
	if !slices.Contains(updated.TrackedGoalIDs, goalID) {
		t.Errorf("TrackedGoalIDs = %v, want %s", updated.TrackedGoalIDs, goalID)
	}
	if !updated.CanUndo(started) || updated.CanUndo(undoUntil) {
		t.Errorf("undo window not persisted: %v", updated.CanUndoUntil)
	}
}

func TestSQLiteStorage_ExecutionRecordValidation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		mutate func(*model.MonthlyExecutionRecord)
		name   string
		field  string
	}{
		{name: "bad label", mutate: func(r *model.MonthlyExecutionRecord) { r.MonthLabel = "April 2026" }, field: "month_label"},
		{name: "day in label", mutate: func(r *model.MonthlyExecutionRecord) { r.MonthLabel = "2026-04-01" }, field: "month_label"},
		{name: "unknown status", mutate: func(r *model.MonthlyExecutionRecord) { r.Status = "paused" }, field: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := model.NewExecutionRecord("2026-05", time.Now())
			tt.mutate(record)

			err := store.CreateExecutionRecord(ctx, record)
			var verr *common.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("CreateExecutionRecord() error = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %s, want %s", verr.Field, tt.field)
			}
		})
	}

	if _, err := store.GetExecutionRecord(ctx, "2026-13"); !errors.Is(err, common.ErrValidation) {
		t.Errorf("GetExecutionRecord(2026-13) error = %v, want ErrValidation", err)
	}
	if _, err := store.GetExecutionRecord(ctx, "2026-06"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("GetExecutionRecord(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_ListExecutionRecordsOrder(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	for _, label := range []string{"2026-03", "2025-12", "2026-01"} {
		if err := store.CreateExecutionRecord(ctx, model.NewExecutionRecord(label, time.Now())); err != nil {
			t.Fatalf("CreateExecutionRecord(%s) error = %v", label, err)
		}
	}

	records, err := store.ListExecutionRecords(ctx)
	if err != nil {
		t.Fatalf("ListExecutionRecords() error = %v", err)
	}
	want := []string{"2025-12", "2026-01", "2026-03"}
	if len(records) != len(want) {
		t.Fatalf("ListExecutionRecords() returned %d, want %d", len(records), len(want))
	}
	for i, r := range records {
		if r.MonthLabel != want[i] {
			t.Errorf("records[%d] = %s, want %s", i, r.MonthLabel, want[i])
		}
	}
}

func TestSQLiteStorage_SnapshotAndCompletedExecution(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	record := model.NewExecutionRecord("2026-04", time.Now())
	if err := store.CreateExecutionRecord(ctx, record); err != nil {
		t.Fatalf("CreateExecutionRecord() error = %v", err)
	}

	goalA, goalB := uuid.New(), uuid.New()
	snapshot := &model.ExecutionSnapshot{
		RecordID:   record.ID,
		CreatedAt:  time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
		GoalTotals: map[uuid.UUID]decimal.Decimal{goalA: dec(t, "120.5"), goalB: dec(t, "0")},
	}
	if err := store.SaveSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	gotSnap, err := store.GetSnapshot(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if len(gotSnap.GoalTotals) != 2 || !gotSnap.GoalTotals[goalA].Equal(dec(t, "120.5")) {
		t.Errorf("snapshot totals = %v", gotSnap.GoalTotals)
	}

	// Saving again replaces the previous snapshot.
	snapshot.GoalTotals = map[uuid.UUID]decimal.Decimal{goalA: dec(t, "130")}
	if err := store.SaveSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	gotSnap, _ = store.GetSnapshot(ctx, record.ID)
	if len(gotSnap.GoalTotals) != 1 || !gotSnap.GoalTotals[goalA].Equal(dec(t, "130")) {
		t.Errorf("replaced snapshot totals = %v", gotSnap.GoalTotals)
	}

	completed := &model.CompletedExecution{
		RecordID:   record.ID,
		ClosedAt:   time.Date(2026, 4, 30, 20, 0, 0, 0, time.UTC),
		GoalTotals: map[uuid.UUID]decimal.Decimal{goalA: dec(t, "180")},
		Rates:      map[string]decimal.Decimal{"BTC/USD": dec(t, "64000.25")},
	}
	if err := store.SaveCompletedExecution(ctx, completed); err != nil {
		t.Fatalf("SaveCompletedExecution() error = %v", err)
	}

	gotDone, err := store.GetCompletedExecution(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetCompletedExecution() error = %v", err)
	}
	if !gotDone.ClosedAt.Equal(completed.ClosedAt) {
		t.Errorf("ClosedAt = %v, want %v", gotDone.ClosedAt, completed.ClosedAt)
	}
	if !gotDone.Rates["BTC/USD"].Equal(dec(t, "64000.25")) {
		t.Errorf("Rates = %v", gotDone.Rates)
	}

	if err := store.DeleteCompletedExecution(ctx, record.ID); err != nil {
		t.Fatalf("DeleteCompletedExecution() error = %v", err)
	}
	if _, err := store.GetCompletedExecution(ctx, record.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("GetCompletedExecution() after delete error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteCompletedExecution(ctx, record.ID); err != nil {
		t.Errorf("DeleteCompletedExecution() on missing row error = %v", err)
	}

	if err := store.DeleteSnapshot(ctx, record.ID); err != nil {
		t.Fatalf("DeleteSnapshot() error = %v", err)
	}
	if _, err := store.GetSnapshot(ctx, record.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("GetSnapshot() after delete error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_DeleteExecutionRecordCascades(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	record := model.NewExecutionRecord("2026-02", time.Now())
	if err := store.CreateExecutionRecord(ctx, record); err != nil {
		t.Fatalf("CreateExecutionRecord() error = %v", err)
	}
	totals := map[uuid.UUID]decimal.Decimal{uuid.New(): dec(t, "10")}
	if err := store.SaveSnapshot(ctx, &model.ExecutionSnapshot{RecordID: record.ID, CreatedAt: time.Now(), GoalTotals: totals}); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if err := store.SaveCompletedExecution(ctx, &model.CompletedExecution{RecordID: record.ID, ClosedAt: time.Now(), GoalTotals: totals}); err != nil {
		t.Fatalf("SaveCompletedExecution() error = %v", err)
	}

	if err := store.DeleteExecutionRecord(ctx, "2026-02"); err != nil {
		t.Fatalf("DeleteExecutionRecord() error = %v", err)
	}

	if _, err := store.GetSnapshot(ctx, record.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("snapshot survived record delete: %v", err)
	}
	if _, err := store.GetCompletedExecution(ctx, record.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("completed execution survived record delete: %v", err)
	}
	if err := store.DeleteExecutionRecord(ctx, "2026-02"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("second DeleteExecutionRecord() error = %v, want ErrNotFound", err)
	}
}
