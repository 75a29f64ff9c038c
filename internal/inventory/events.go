package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentPostedEvent represents a manual inventory adjustment ready
// for ledger posting. Quantity is positive; Symbol carries the
// direction.
type AdjustmentPostedEvent struct {
	MovementID   string          `validate:"required"`
	MaterialID   int64           `validate:"required,gt=0"`
	MaterialName string          `validate:"required"`
	LocationID   int64           `validate:"required,gt=0"`
	Quantity     decimal.Decimal `validate:"required"`
	Unit         string          `validate:"required,max=20"`
	Symbol       string          `validate:"required"`
	Date         time.Time       `validate:"required"`
	ActorID      int64
}

// IntegrationHandler receives inventory domain events for ledger
// integration.
type IntegrationHandler interface {
	HandleInventoryAdjustmentPosted(ctx context.Context, evt AdjustmentPostedEvent) error
}
