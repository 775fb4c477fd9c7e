package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/model"
	"github.com/Veraticus/goalpost/internal/service"
	"github.com/google/uuid"
)

func TestSQLiteStorage_ListTransactionsFilters(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	checking := createTestAsset(t, store, "USD")
	wallet := createTestAsset(t, store, "USD")

	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	deposit(t, store, checking.ID, "100", jan)
	deposit(t, store, checking.ID, "200", feb)
	deposit(t, store, checking.ID, "300", mar)
	deposit(t, store, wallet.ID, "50", feb.AddDate(0, 0, 5))

	onChain := model.NewManualTransaction(wallet.ID, dec(t, "7"), mar)
	onChain.Source = model.SourceOnChain
	if err := store.CreateTransaction(ctx, onChain); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter service.TransactionFilter
		want   []string
	}{
		{name: "asset newest first", filter: service.TransactionFilter{AssetID: &checking.ID}, want: []string{"300", "200", "100"}},
		{name: "date range", filter: service.TransactionFilter{StartDate: &start, EndDate: &end}, want: []string{"50", "200"}},
		{name: "on-chain source", filter: service.TransactionFilter{Source: model.SourceOnChain}, want: []string{"7"}},
		{name: "paged", filter: service.TransactionFilter{AssetID: &checking.ID, Limit: 1, Offset: 1}, want: []string{"200"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns, err := store.ListTransactions(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListTransactions() error = %v", err)
			}
			if len(txns) != len(tt.want) {
				t.Fatalf("ListTransactions() returned %d, want %d", len(txns), len(tt.want))
			}
			for i, txn := range txns {
				if txn.Amount.String() != tt.want[i] {
					t.Errorf("txns[%d].Amount = %s, want %s", i, txn.Amount, tt.want[i])
				}
			}
		})
	}
}

func TestSQLiteStorage_TransactionUpdateMovesBalance(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	asset := createTestAsset(t, store, "USD")
	txn := deposit(t, store, asset.ID, "100", time.Now())
	deposit(t, store, asset.ID, "20", time.Now())

	txn.Amount = dec(t, "60")
	txn.Comment = "corrected"
	if err := store.UpdateTransaction(ctx, txn); err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}

	got, err := store.GetTransaction(ctx, txn.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.Comment != "corrected" {
		t.Errorf("Comment = %q, want corrected", got.Comment)
	}

	balance := func() string {
		t.Helper()
		a, err := store.GetAsset(ctx, asset.ID)
		if err != nil {
			t.Fatalf("GetAsset() error = %v", err)
		}
		return a.ManualBalance.String()
	}
	if b := balance(); b != "80" {
		t.Errorf("balance after update = %s, want 80", b)
	}

	if err := store.DeleteTransaction(ctx, txn.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if b := balance(); b != "20" {
		t.Errorf("balance after delete = %s, want 20", b)
	}

	if err := store.DeleteTransaction(ctx, txn.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("second DeleteTransaction() error = %v, want ErrNotFound", err)
	}
	if err := store.UpdateTransaction(ctx, txn); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("UpdateTransaction(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_CreateTransactionValidation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	asset := createTestAsset(t, store, "USD")

	tests := []struct {
		wantErr error
		mutate  func(*model.Transaction)
		name    string
	}{
		{name: "unknown asset", mutate: func(txn *model.Transaction) { txn.AssetID = uuid.New() }, wantErr: common.ErrNotFound},
		{name: "nil asset", mutate: func(txn *model.Transaction) { txn.AssetID = uuid.Nil }, wantErr: ErrNilID},
		{name: "zero date", mutate: func(txn *model.Transaction) { txn.Date = time.Time{} }, wantErr: common.ErrValidation},
		{name: "unknown source", mutate: func(txn *model.Transaction) { txn.Source = "bank" }, wantErr: common.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := model.NewManualTransaction(asset.ID, dec(t, "10"), time.Now())
			tt.mutate(txn)
			if err := store.CreateTransaction(ctx, txn); !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateTransaction() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := store.CreateTransaction(ctx, nil); !errors.Is(err, ErrNilParameter) {
		t.Errorf("CreateTransaction(nil) error = %v, want ErrNilParameter", err)
	}
}

func TestSQLiteStorage_HasExternalID(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	asset := createTestAsset(t, store, "USD")
	other := createTestAsset(t, store, "USD")

	txn := model.NewManualTransaction(asset.ID, dec(t, "42"), time.Now())
	txn.ExternalID = "FITID-001"
	if err := store.CreateTransaction(ctx, txn); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	tests := []struct {
		name    string
		id      string
		assetID uuid.UUID
		want    bool
	}{
		{name: "imported", assetID: asset.ID, id: "FITID-001", want: true},
		{name: "unknown id", assetID: asset.ID, id: "FITID-002", want: false},
		{name: "other asset", assetID: other.ID, id: "FITID-001", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.HasExternalID(ctx, tt.assetID, tt.id)
			if err != nil {
				t.Fatalf("HasExternalID() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HasExternalID() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := store.HasExternalID(ctx, asset.ID, " "); !errors.Is(err, ErrEmptyString) {
		t.Errorf("HasExternalID(blank) error = %v, want ErrEmptyString", err)
	}
}
