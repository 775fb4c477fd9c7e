package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/google/uuid"
)

func TestSQLiteStorage_UpsertAllocation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	goal := createTestGoal(t, store, "House", "50000")
	asset := createTestAsset(t, store, "USD")

	first, err := store.UpsertAllocation(ctx, asset.ID, goal.ID, dec(t, "100"))
	if err != nil {
		t.Fatalf("UpsertAllocation() error = %v", err)
	}
	if first == nil || !first.Amount.Equal(dec(t, "100")) {
		t.Fatalf("UpsertAllocation() = %+v, want amount 100", first)
	}

	second, err := store.UpsertAllocation(ctx, asset.ID, goal.ID, dec(t, "250.5"))
	if err != nil {
		t.Fatalf("UpsertAllocation() error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert replaced the row: id %s, want %s", second.ID, first.ID)
	}
	if !second.Amount.Equal(dec(t, "250.5")) {
		t.Errorf("Amount = %s, want 250.5", second.Amount)
	}

	all, err := store.ListAllocations(ctx, service.AllocationFilter{})
	if err != nil {
		t.Fatalf("ListAllocations() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListAllocations() returned %d rows, want 1", len(all))
	}
}

func TestSQLiteStorage_UpsertAllocationZeroRemoves(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	goal := createTestGoal(t, store, "Bike", "800")
	asset := createTestAsset(t, store, "USD")

	if _, err := store.UpsertAllocation(ctx, asset.ID, goal.ID, dec(t, "80")); err != nil {
		t.Fatalf("UpsertAllocation() error = %v", err)
	}

	removed, err := store.UpsertAllocation(ctx, asset.ID, goal.ID, dec(t, "0"))
	if err != nil {
		t.Fatalf("UpsertAllocation(0) error = %v", err)
	}
	if removed != nil {
		t.Errorf("UpsertAllocation(0) = %+v, want nil", removed)
	}
	if _, err := store.GetAllocation(ctx, asset.ID, goal.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("GetAllocation() error = %v, want ErrNotFound", err)
	}

	// Zero on a missing row is a no-op.
	if _, err := store.UpsertAllocation(ctx, asset.ID, goal.ID, dec(t, "0")); err != nil {
		t.Errorf("UpsertAllocation(0) on missing row error = %v", err)
	}
}

func TestSQLiteStorage_UpsertAllocationRejects(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	goal := createTestGoal(t, store, "Bike", "800")
	asset := createTestAsset(t, store, "USD")

	_, err := store.UpsertAllocation(ctx, asset.ID, goal.ID, dec(t, "-1"))
	var verr *common.ValidationError
	if !errors.As(err, &verr) || verr.Field != "amount" {
		t.Errorf("UpsertAllocation(-1) error = %v, want amount ValidationError", err)
	}

	if _, err := store.UpsertAllocation(ctx, uuid.Nil, goal.ID, dec(t, "1")); !errors.Is(err, ErrNilID) {
		t.Errorf("UpsertAllocation(nil asset) error = %v, want ErrNilID", err)
	}
	if _, err := store.UpsertAllocation(ctx, asset.ID, uuid.Nil, dec(t, "1")); !errors.Is(err, ErrNilID) {
		t.Errorf("UpsertAllocation(nil goal) error = %v, want ErrNilID", err)
	}
}

func TestSQLiteStorage_ListAllocationsFilters(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	trip := createTestGoal(t, store, "Trip", "1000")
	car := createTestGoal(t, store, "Car", "9000")
	savings := createTestAsset(t, store, "USD")
	brokerage := createTestAsset(t, store, "USD")

	pairs := []struct {
		asset  uuid.UUID
		goal   uuid.UUID
		amount string
	}{
		{savings.ID, trip.ID, "100"},
		{savings.ID, car.ID, "200"},
		{brokerage.ID, car.ID, "300"},
	}
	for _, p := range pairs {
		if _, err := store.UpsertAllocation(ctx, p.asset, p.goal, dec(t, p.amount)); err != nil {
			t.Fatalf("UpsertAllocation() error = %v", err)
		}
	}

	tests := []struct {
		filter service.AllocationFilter
		name   string
		want   string
	}{
		{name: "by asset", filter: service.AllocationFilter{AssetID: &savings.ID}, want: "300"},
		{name: "by goal", filter: service.AllocationFilter{GoalID: &car.ID}, want: "500"},
		{name: "by pair", filter: service.AllocationFilter{AssetID: &brokerage.ID, GoalID: &car.ID}, want: "300"},
		{name: "everything", filter: service.AllocationFilter{}, want: "600"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocations, err := store.ListAllocations(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListAllocations() error = %v", err)
			}
			total := dec(t, "0")
			for _, a := range allocations {
				total = total.Add(a.Amount)
			}
			if total.String() != tt.want {
				t.Errorf("allocated total = %s, want %s", total, tt.want)
			}
		})
	}

	if err := store.DeleteAllocation(ctx, savings.ID, trip.ID); err != nil {
		t.Fatalf("DeleteAllocation() error = %v", err)
	}
	if err := store.DeleteAllocation(ctx, savings.ID, trip.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("second DeleteAllocation() error = %v, want ErrNotFound", err)
	}
}
