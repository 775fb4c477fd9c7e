// Package assets manages balance sources: manual deposits, statement
// imports and cached on-chain balances.
package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/ofx"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the persistence the asset service needs.
type Store interface {
	service.AssetStore
	service.TransactionStore
}

// Service records balance changes on assets.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates an asset service. A nil now uses time.Now.
func NewService(store Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// CreateAsset adds a manual asset, or an on-chain one when chainID and
// address are both set.
func (s *Service) CreateAsset(ctx context.Context, currency, chainID, address string) (*model.Asset, error) {
	if (chainID == "") != (address == "") {
		return nil, common.NewValidationError("address", "chain id and address must be given together")
	}

	asset := model.NewAsset(strings.ToUpper(strings.TrimSpace(currency)))
	asset.ChainID = strings.TrimSpace(chainID)
	asset.Address = strings.TrimSpace(address)
	if err := s.store.CreateAsset(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// TransactionInput describes a manual balance change.
type TransactionInput struct {
	Date         time.Time
	Amount       decimal.Decimal
	Counterparty string
	Comment      string
	AssetID      uuid.UUID
}

// AddTransaction records a signed manual balance change. A zero date means
// now.
func (s *Service) AddTransaction(ctx context.Context, in TransactionInput) (*model.Transaction, error) {
	if in.Amount.IsZero() {
		return nil, common.NewValidationError("amount", "cannot be zero")
	}

	date := in.Date
	if date.IsZero() {
		date = s.now()
	}

	txn := model.NewManualTransaction(in.AssetID, in.Amount, date)
	txn.Counterparty = strings.TrimSpace(in.Counterparty)
	txn.Comment = strings.TrimSpace(in.Comment)
	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// RefreshReport summarizes an on-chain refresh.
type RefreshReport struct {
	Failed  map[uuid.UUID]error
	Updated int
	Skipped int
}

// RefreshOnChainBalances fetches the live balance of every on-chain asset.
// A failed fetch keeps the cached balance.
func (s *Service) RefreshOnChainBalances(ctx context.Context, fetcher service.BalanceFetcher) (RefreshReport, error) {
	report := RefreshReport{Failed: make(map[uuid.UUID]error)}

	assets, err := s.store.ListAssets(ctx, service.AssetFilter{})
	if err != nil {
		return report, fmt.Errorf("failed to list assets: %w", err)
	}

	for _, asset := range assets {
		if !asset.IsOnChain() {
			report.Skipped++
			continue
		}

		balance, err := fetcher.FetchBalance(ctx, asset.ChainID, asset.Address)
		if err != nil {
			report.Failed[asset.ID] = err
			slog.Warn("keeping cached on-chain balance",
				"asset_id", asset.ID,
				"chain", asset.ChainID,
				"cached", asset.CachedOnChainBalance.String(),
				"error", err)
			continue
		}

		if err := s.store.UpdateOnChainBalance(ctx, asset.ID, balance, s.now()); err != nil {
			return report, err
		}
		report.Updated++
	}

	slog.Info("refreshed on-chain balances", "updated", report.Updated, "failed", len(report.Failed))
	return report, nil
}

// ImportResult summarizes a statement import.
type ImportResult struct {
	Imported int
	Skipped  int
	Total    int
}

// ImportOFX records every statement entry as a manual transaction on the
// asset. Entries whose FITID was already imported are skipped. Statements
// in another currency than the asset are rejected before anything is
// written. progress, if set, is called once per entry.
func (s *Service) ImportOFX(ctx context.Context, assetID uuid.UUID, reader io.Reader, progress func()) (ImportResult, error) {
	var result ImportResult

	asset, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return result, err
	}

	statements, err := ofx.NewParser().Parse(ctx, reader)
	if err != nil {
		return result, err
	}

	for _, stmt := range statements {
		if stmt.Currency != "" && !strings.EqualFold(stmt.Currency, asset.Currency) {
			return result, common.NewValidationError("currency",
				fmt.Sprintf("statement for %s is in %s, asset is %s", stmt.AccountID, stmt.Currency, asset.Currency))
		}
		result.Total += len(stmt.Entries)
	}

	for _, stmt := range statements {
		for _, entry := range stmt.Entries {
			imported, err := s.importEntry(ctx, asset.ID, entry)
			if err != nil {
				return result, err
			}
			if imported {
				result.Imported++
			} else {
				result.Skipped++
			}
			if progress != nil {
				progress()
			}
		}
	}

	slog.Info("imported statement",
		"asset_id", asset.ID,
		"imported", result.Imported,
		"skipped", result.Skipped)
	return result, nil
}

func (s *Service) importEntry(ctx context.Context, assetID uuid.UUID, entry ofx.Entry) (bool, error) {
	if entry.FITID != "" {
		exists, err := s.store.HasExternalID(ctx, assetID, entry.FITID)
		if err != nil {
			return false, err
		}
		if exists {
			slog.Debug("skipping imported entry", "fitid", entry.FITID)
			return false, nil
		}
	}
	if entry.Amount.IsZero() {
		return false, nil
	}

	txn := model.NewManualTransaction(assetID, entry.Amount, entry.Date)
	txn.ExternalID = entry.FITID
	txn.Counterparty = entry.Counterparty
	txn.Comment = entry.Memo
	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		return false, fmt.Errorf("failed to record entry %s: %w", entry.FITID, err)
	}
	return true, nil
}
