// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/goalpost/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GoalFilter restricts goal queries. An empty filter matches every goal.
type GoalFilter struct {
	Statuses []model.GoalStatus
}

// ActiveGoals matches goals that take part in planning.
var ActiveGoals = GoalFilter{Statuses: []model.GoalStatus{model.GoalStatusActive}}

// AssetFilter restricts asset queries.
type AssetFilter struct {
	Currency string
}

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	AssetID   *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
	Source    model.TransactionSource
	Limit     int
	Offset    int
}

// AllocationFilter restricts allocation queries to an asset, a goal, or both.
type AllocationFilter struct {
	AssetID *uuid.UUID
	GoalID  *uuid.UUID
}

// GoalStore persists goals. Deleting a goal removes its allocations.
type GoalStore interface {
	GetGoal(ctx context.Context, id uuid.UUID) (*model.Goal, error)
	ListGoals(ctx context.Context, filter GoalFilter) ([]model.Goal, error)
	ObserveGoals(ctx context.Context, filter GoalFilter) (<-chan []model.Goal, error)
	CreateGoal(ctx context.Context, goal *model.Goal) error
	UpdateGoal(ctx context.Context, goal *model.Goal) error
	DeleteGoal(ctx context.Context, id uuid.UUID) error
}

// AssetStore persists assets. Deleting an asset removes its transactions
// and allocations.
type AssetStore interface {
	GetAsset(ctx context.Context, id uuid.UUID) (*model.Asset, error)
	ListAssets(ctx context.Context, filter AssetFilter) ([]model.Asset, error)
	ObserveAssets(ctx context.Context, filter AssetFilter) (<-chan []model.Asset, error)
	CreateAsset(ctx context.Context, asset *model.Asset) error
	UpdateAsset(ctx context.Context, asset *model.Asset) error
	UpdateOnChainBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, at time.Time) error
	DeleteAsset(ctx context.Context, id uuid.UUID) error
}

// TransactionStore persists asset transactions.
type TransactionStore interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	ObserveTransactions(ctx context.Context, filter TransactionFilter) (<-chan []model.Transaction, error)
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	HasExternalID(ctx context.Context, assetID uuid.UUID, externalID string) (bool, error)
}

// AllocationStore persists the asset-to-goal allocation ledger.
type AllocationStore interface {
	GetAllocation(ctx context.Context, assetID, goalID uuid.UUID) (*model.Allocation, error)
	ListAllocations(ctx context.Context, filter AllocationFilter) ([]model.Allocation, error)
	ObserveAllocations(ctx context.Context, filter AllocationFilter) (<-chan []model.Allocation, error)
	// UpsertAllocation writes a single row. A zero amount deletes the row
	// and returns nil.
	UpsertAllocation(ctx context.Context, assetID, goalID uuid.UUID, amount decimal.Decimal) (*model.Allocation, error)
	DeleteAllocation(ctx context.Context, assetID, goalID uuid.UUID) error
}

// ExecutionStore persists monthly execution records and their snapshots.
type ExecutionStore interface {
	GetExecutionRecord(ctx context.Context, monthLabel string) (*model.MonthlyExecutionRecord, error)
	ListExecutionRecords(ctx context.Context) ([]model.MonthlyExecutionRecord, error)
	ObserveExecutionRecords(ctx context.Context) (<-chan []model.MonthlyExecutionRecord, error)
	CreateExecutionRecord(ctx context.Context, record *model.MonthlyExecutionRecord) error
	UpdateExecutionRecord(ctx context.Context, record *model.MonthlyExecutionRecord) error
	DeleteExecutionRecord(ctx context.Context, monthLabel string) error

	SaveSnapshot(ctx context.Context, snapshot *model.ExecutionSnapshot) error
	GetSnapshot(ctx context.Context, recordID uuid.UUID) (*model.ExecutionSnapshot, error)
	DeleteSnapshot(ctx context.Context, recordID uuid.UUID) error

	SaveCompletedExecution(ctx context.Context, completed *model.CompletedExecution) error
	GetCompletedExecution(ctx context.Context, recordID uuid.UUID) (*model.CompletedExecution, error)
	DeleteCompletedExecution(ctx context.Context, recordID uuid.UUID) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	GoalStore
	AssetStore
	TransactionStore
	AllocationStore
	ExecutionStore

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RateProvider returns how many units of `to` one unit of `from` buys.
type RateProvider interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// RateFunc adapts a function to the RateProvider interface.
type RateFunc func(ctx context.Context, from, to string) (decimal.Decimal, error)

// Rate calls f.
func (f RateFunc) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	return f(ctx, from, to)
}

// BalanceFetcher reads the live balance of an on-chain address.
type BalanceFetcher interface {
	FetchBalance(ctx context.Context, chainID, address string) (decimal.Decimal, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
