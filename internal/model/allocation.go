package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Allocation assigns part of an asset's balance to a goal. Amount is in the
// asset's currency.
type Allocation struct {
	UpdatedAt time.Time
	Amount    decimal.Decimal
	ID        uuid.UUID
	AssetID   uuid.UUID
	GoalID    uuid.UUID
}
