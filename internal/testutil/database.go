// Package testutil provides test fixtures for goalpost: an in-memory
// database and fluent builders for goals, assets and allocations.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/Veraticus/goalpost/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TestDB wraps a migrated in-memory store.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a new in-memory database and runs migrations. The
// store is closed when the test finishes.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	goal := db.Goal("Vacation").Target("3000").Deadline(deadline).Create()
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// Dec parses a decimal literal or fails the test.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// GoalBuilder builds and persists a goal.
type GoalBuilder struct {
	db   *TestDB
	goal *model.Goal
}

// Goal starts a goal with a 1000 USD target due a year from now.
func (db *TestDB) Goal(name string) *GoalBuilder {
	deadline := model.StartOfDay(time.Now()).AddDate(1, 0, 0)
	return &GoalBuilder{
		db:   db,
		goal: model.NewGoal(name, "USD", decimal.NewFromInt(1000), deadline),
	}
}

// Target sets the target amount.
func (b *GoalBuilder) Target(amount string) *GoalBuilder {
	b.goal.TargetAmount = Dec(b.db.t, amount)
	return b
}

// Currency sets the goal currency.
func (b *GoalBuilder) Currency(currency string) *GoalBuilder {
	b.goal.Currency = currency
	return b
}

// Deadline sets the deadline.
func (b *GoalBuilder) Deadline(deadline time.Time) *GoalBuilder {
	b.goal.Deadline = deadline
	if !b.goal.StartDate.Before(deadline) {
		b.goal.StartDate = deadline.AddDate(-1, 0, 0)
	}
	return b
}

// StartDate sets the start date.
func (b *GoalBuilder) StartDate(start time.Time) *GoalBuilder {
	b.goal.StartDate = start
	return b
}

// Status sets the lifecycle status.
func (b *GoalBuilder) Status(status model.GoalStatus) *GoalBuilder {
	b.goal.Status = status
	return b
}

// Create persists the goal.
func (b *GoalBuilder) Create() *model.Goal {
	b.db.t.Helper()
	if err := b.db.Storage.CreateGoal(context.Background(), b.goal); err != nil {
		b.db.t.Fatalf("failed to create goal %q: %v", b.goal.Name, err)
	}
	return b.goal
}

// AssetBuilder builds and persists an asset with an optional opening
// balance.
type AssetBuilder struct {
	db      *TestDB
	asset   *model.Asset
	balance decimal.Decimal
}

// Asset starts a manual asset in the given currency.
func (db *TestDB) Asset(currency string) *AssetBuilder {
	return &AssetBuilder{db: db, asset: model.NewAsset(currency)}
}

// Balance records an opening manual deposit.
func (b *AssetBuilder) Balance(amount string) *AssetBuilder {
	b.balance = Dec(b.db.t, amount)
	return b
}

// OnChain marks the asset as tracking a wallet with a cached balance.
func (b *AssetBuilder) OnChain(chainID, address, cached string) *AssetBuilder {
	b.asset.ChainID = chainID
	b.asset.Address = address
	b.asset.CachedOnChainBalance = Dec(b.db.t, cached)
	return b
}

// Create persists the asset and its opening deposit.
func (b *AssetBuilder) Create() *model.Asset {
	b.db.t.Helper()
	ctx := context.Background()
	if err := b.db.Storage.CreateAsset(ctx, b.asset); err != nil {
		b.db.t.Fatalf("failed to create asset: %v", err)
	}
	if !b.balance.IsZero() {
		b.db.Deposit(b.asset.ID, b.balance.String())
	}
	created, err := b.db.Storage.GetAsset(ctx, b.asset.ID)
	if err != nil {
		b.db.t.Fatalf("failed to reload asset: %v", err)
	}
	return created
}

// Deposit records a manual transaction on an asset.
func (db *TestDB) Deposit(assetID uuid.UUID, amount string) *model.Transaction {
	db.t.Helper()
	txn := model.NewManualTransaction(assetID, Dec(db.t, amount), time.Now().UTC())
	if err := db.Storage.CreateTransaction(context.Background(), txn); err != nil {
		db.t.Fatalf("failed to record deposit: %v", err)
	}
	return txn
}

// Allocate assigns part of an asset to a goal directly in storage.
func (db *TestDB) Allocate(assetID, goalID uuid.UUID, amount string) {
	db.t.Helper()
	if _, err := db.Storage.UpsertAllocation(context.Background(), assetID, goalID, Dec(db.t, amount)); err != nil {
		db.t.Fatalf("failed to allocate: %v", err)
	}
}
