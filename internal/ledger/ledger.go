// Package ledger tracks how much of each asset is assigned to each goal.
//
// Allocation amounts are denominated in the asset's currency. Totals for a
// goal are converted into the goal's currency; a rate failure excludes the
// affected allocation and marks the total stale rather than failing.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/rates"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Epsilon absorbs rounding noise when comparing allocated totals.
var Epsilon = decimal.New(1, -7)

// Store is the persistence the ledger needs.
type Store interface {
	service.GoalStore
	service.AssetStore
	service.AllocationStore
}

// Ledger reads and writes allocations.
type Ledger struct {
	store    Store
	provider service.RateProvider
}

// New creates a ledger. provider converts asset currencies into goal
// currencies.
func New(store Store, provider service.RateProvider) *Ledger {
	return &Ledger{store: store, provider: provider}
}

// Allocate sets the amount of an asset assigned to a goal. Zero removes
// the allocation. Over-allocation is logged, never rejected.
func (l *Ledger) Allocate(ctx context.Context, assetID, goalID uuid.UUID, amount decimal.Decimal) (*model.Allocation, error) {
	if amount.IsNegative() {
		return nil, common.NewValidationError("amount", "cannot be negative")
	}
	if _, err := l.store.GetAsset(ctx, assetID); err != nil {
		return nil, fmt.Errorf("allocate: %w", err)
	}
	if _, err := l.store.GetGoal(ctx, goalID); err != nil {
		return nil, fmt.Errorf("allocate: %w", err)
	}

	allocation, err := l.store.UpsertAllocation(ctx, assetID, goalID, amount)
	if err != nil {
		return nil, err
	}

	l.warnIfOverAllocated(ctx, assetID)
	return allocation, nil
}

// ShareAsset replaces every allocation of an asset with shares. Goals
// missing from shares lose their allocation from this asset.
func (l *Ledger) ShareAsset(ctx context.Context, assetID uuid.UUID, shares map[uuid.UUID]decimal.Decimal) error {
	if _, err := l.store.GetAsset(ctx, assetID); err != nil {
		return fmt.Errorf("share asset: %w", err)
	}
	for goalID, amount := range shares {
		if amount.IsNegative() {
			return common.NewValidationError("amount", fmt.Sprintf("share for goal %s cannot be negative", goalID))
		}
		if _, err := l.store.GetGoal(ctx, goalID); err != nil {
			return fmt.Errorf("share asset: %w", err)
		}
	}

	existing, err := l.store.ListAllocations(ctx, service.AllocationFilter{AssetID: &assetID})
	if err != nil {
		return err
	}
	for _, a := range existing {
		if _, keep := shares[a.GoalID]; keep {
			continue
		}
		if _, err := l.store.UpsertAllocation(ctx, assetID, a.GoalID, decimal.Zero); err != nil {
			return fmt.Errorf("failed to clear share for goal %s: %w", a.GoalID, err)
		}
	}
	for goalID, amount := range shares {
		if _, err := l.store.UpsertAllocation(ctx, assetID, goalID, amount); err != nil {
			return fmt.Errorf("failed to share with goal %s: %w", goalID, err)
		}
	}

	slog.Info("shared asset", "asset_id", assetID, "goals", len(shares))
	l.warnIfOverAllocated(ctx, assetID)
	return nil
}

// TotalAllocatedForAsset sums an asset's allocations in its own currency.
func (l *Ledger) TotalAllocatedForAsset(ctx context.Context, assetID uuid.UUID) (decimal.Decimal, error) {
	allocations, err := l.store.ListAllocations(ctx, service.AllocationFilter{AssetID: &assetID})
	if err != nil {
		return decimal.Zero, err
	}
	return sumAllocations(allocations), nil
}

// Unallocated returns the part of an asset's current amount not assigned
// to any goal, floored at zero.
func (l *Ledger) Unallocated(ctx context.Context, assetID uuid.UUID) (decimal.Decimal, error) {
	summary, err := l.Summarize(ctx, assetID)
	if err != nil {
		return decimal.Zero, err
	}
	return summary.Unallocated, nil
}

// IsOverAllocated reports whether allocations exceed the asset's current
// amount by more than Epsilon.
func (l *Ledger) IsOverAllocated(ctx context.Context, assetID uuid.UUID) (bool, error) {
	summary, err := l.Summarize(ctx, assetID)
	if err != nil {
		return false, err
	}
	return summary.OverAllocated, nil
}

// AssetSummary is the allocation state of one asset.
type AssetSummary struct {
	Asset         model.Asset
	Allocated     decimal.Decimal
	Unallocated   decimal.Decimal
	OverAllocated bool
}

// Summarize computes the allocation state of an asset.
func (l *Ledger) Summarize(ctx context.Context, assetID uuid.UUID) (AssetSummary, error) {
	asset, err := l.store.GetAsset(ctx, assetID)
	if err != nil {
		return AssetSummary{}, err
	}
	allocated, err := l.TotalAllocatedForAsset(ctx, assetID)
	if err != nil {
		return AssetSummary{}, err
	}
	return summarize(*asset, allocated), nil
}

func summarize(asset model.Asset, allocated decimal.Decimal) AssetSummary {
	current := asset.CurrentAmount()
	return AssetSummary{
		Asset:         asset,
		Allocated:     allocated,
		Unallocated:   decimal.Max(decimal.Zero, current.Sub(allocated)),
		OverAllocated: allocated.GreaterThan(current.Add(Epsilon)),
	}
}

// SummarizeAll computes the allocation state of every asset.
func (l *Ledger) SummarizeAll(ctx context.Context) ([]AssetSummary, error) {
	assets, err := l.store.ListAssets(ctx, service.AssetFilter{})
	if err != nil {
		return nil, err
	}
	allocations, err := l.store.ListAllocations(ctx, service.AllocationFilter{})
	if err != nil {
		return nil, err
	}

	byAsset := make(map[uuid.UUID]decimal.Decimal)
	for _, a := range allocations {
		byAsset[a.AssetID] = byAsset[a.AssetID].Add(a.Amount)
	}

	summaries := make([]AssetSummary, 0, len(assets))
	for _, asset := range assets {
		summaries = append(summaries, summarize(asset, byAsset[asset.ID]))
	}
	return summaries, nil
}

func (l *Ledger) warnIfOverAllocated(ctx context.Context, assetID uuid.UUID) {
	summary, err := l.Summarize(ctx, assetID)
	if err != nil {
		slog.Debug("could not check allocation state", "asset_id", assetID, "error", err)
		return
	}
	if summary.OverAllocated {
		slog.Warn("asset is over-allocated",
			"asset_id", assetID,
			"allocated", summary.Allocated.String(),
			"current_amount", summary.Asset.CurrentAmount().String(),
		)
	}
}

func sumAllocations(allocations []model.Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// GoalFunding is the converted total allocated to a goal.
type GoalFunding struct {
	Total decimal.Decimal

	// Rates holds the "FROM/TO" rates used for the conversion.
	Rates map[string]decimal.Decimal

	// SkippedAssets lists assets excluded because no rate was available.
	SkippedAssets []uuid.UUID
}

// Stale reports whether any allocation was excluded from Total.
func (f GoalFunding) Stale() bool {
	return len(f.SkippedAssets) > 0
}

// TotalAllocatedForGoal sums every allocation pointing at a goal in the
// goal's currency.
func (l *Ledger) TotalAllocatedForGoal(ctx context.Context, goalID uuid.UUID) (GoalFunding, error) {
	goal, err := l.store.GetGoal(ctx, goalID)
	if err != nil {
		return GoalFunding{}, err
	}
	funding, err := l.FundGoals(ctx, []model.Goal{*goal})
	if err != nil {
		return GoalFunding{}, err
	}
	return funding[goalID], nil
}

// FundGoals computes GoalFunding for each goal, loading assets and
// allocations once.
func (l *Ledger) FundGoals(ctx context.Context, goals []model.Goal) (map[uuid.UUID]GoalFunding, error) {
	assets, err := l.store.ListAssets(ctx, service.AssetFilter{})
	if err != nil {
		return nil, err
	}
	currencies := make(map[uuid.UUID]string, len(assets))
	for _, a := range assets {
		currencies[a.ID] = a.Currency
	}

	allocations, err := l.store.ListAllocations(ctx, service.AllocationFilter{})
	if err != nil {
		return nil, err
	}
	byGoal := make(map[uuid.UUID][]model.Allocation)
	for _, a := range allocations {
		byGoal[a.GoalID] = append(byGoal[a.GoalID], a)
	}

	result := make(map[uuid.UUID]GoalFunding, len(goals))
	for _, goal := range goals {
		funding := GoalFunding{Total: decimal.Zero, Rates: map[string]decimal.Decimal{}}
		for _, a := range byGoal[goal.ID] {
			from := currencies[a.AssetID]
			if rates.SameCurrency(from, goal.Currency) {
				funding.Total = funding.Total.Add(a.Amount)
				continue
			}
			rate, err := l.provider.Rate(ctx, from, goal.Currency)
			if err != nil {
				if !errors.Is(err, common.ErrRateUnavailable) {
					return nil, err
				}
				slog.Warn("excluding allocation without exchange rate",
					"goal_id", goal.ID, "asset_id", a.AssetID, "from", from, "to", goal.Currency, "error", err)
				funding.SkippedAssets = append(funding.SkippedAssets, a.AssetID)
				continue
			}
			funding.Rates[rates.PairKey(from, goal.Currency)] = rate
			funding.Total = funding.Total.Add(a.Amount.Mul(rate))
		}
		result[goal.ID] = funding
	}
	return result, nil
}
