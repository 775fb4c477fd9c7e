package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Asset is a balance source in one currency. On-chain assets carry a chain
// id and address; their balance is cached because it can only be fetched on
// a best-effort basis.
type Asset struct {
	CreatedAt            time.Time
	BalanceUpdatedAt     *time.Time
	ManualBalance        decimal.Decimal
	CachedOnChainBalance decimal.Decimal
	Currency             string
	ChainID              string
	Address              string
	ID                   uuid.UUID
}

// NewAsset creates a manual asset.
func NewAsset(currency string) *Asset {
	return &Asset{
		ID:        uuid.New(),
		Currency:  currency,
		CreatedAt: time.Now().UTC(),
	}
}

// CurrentAmount is the manual balance plus the last known on-chain balance.
func (a *Asset) CurrentAmount() decimal.Decimal {
	return a.ManualBalance.Add(a.CachedOnChainBalance)
}

// IsOnChain reports whether the asset tracks an on-chain address.
func (a *Asset) IsOnChain() bool {
	return a.ChainID != "" && a.Address != ""
}
