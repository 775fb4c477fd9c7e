package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionSource records where a balance change came from.
type TransactionSource string

// Transaction sources.
const (
	SourceManual  TransactionSource = "manual"
	SourceOnChain TransactionSource = "onChain"
)

// Transaction is a signed balance change on a single asset, in the asset's
// currency.
type Transaction struct {
	Date         time.Time
	CreatedAt    time.Time
	Amount       decimal.Decimal
	Source       TransactionSource
	ExternalID   string
	Counterparty string
	Comment      string
	ID           uuid.UUID
	AssetID      uuid.UUID
}

// NewManualTransaction creates a manual transaction for an asset.
func NewManualTransaction(assetID uuid.UUID, amount decimal.Decimal, date time.Time) *Transaction {
	return &Transaction{
		ID:        uuid.New(),
		AssetID:   assetID,
		Amount:    amount,
		Date:      date.UTC(),
		Source:    SourceManual,
		CreatedAt: time.Now().UTC(),
	}
}
