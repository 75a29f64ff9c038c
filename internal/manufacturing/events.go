// Package manufacturing defines the narrow document shapes the ledger
// core consumes from the manufacturing workflow.
package manufacturing

import (
	"time"

	"github.com/shopspring/decimal"
)

// ComponentLine is one bill-of-materials component, expressed per unit
// of finished product.
type ComponentLine struct {
	MaterialID      int64           `validate:"required,gt=0"`
	QuantityPerUnit decimal.Decimal `validate:"required"`
	Unit            string          `validate:"required,max=20"`
}

// CompletionEvent describes a work order marked as completed.
type CompletionEvent struct {
	WorkOrderID           string          `validate:"required"`
	FinishedMaterialID    int64           `validate:"required,gt=0"`
	FinishedMaterialName  string          `validate:"required"`
	FinishedUnit          string          `validate:"required,max=20"`
	QuantityProduced      decimal.Decimal `validate:"required"`
	ScheduledDate         time.Time       `validate:"required"`
	OriginLocationID      int64           `validate:"required,gt=0"`
	DestinationLocationID int64           `validate:"required,gt=0"`
	Components            []ComponentLine `validate:"required,min=1,dive"`
	ActorID               int64
}
