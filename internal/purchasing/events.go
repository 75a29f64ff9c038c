// Package purchasing defines the narrow document shapes the ledger core
// consumes from the purchasing workflow. The workflow itself lives
// outside this module.
package purchasing

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptLine is one received purchase order line.
type ReceiptLine struct {
	MaterialID int64           `validate:"required,gt=0"`
	Quantity   decimal.Decimal `validate:"required"`
	Unit       string          `validate:"required,max=20"`
	UnitPrice  decimal.Decimal `validate:"required"`
	Currency   string          `validate:"required,len=3"`
}

// ReceiptEvent describes a purchase order marked as received.
type ReceiptEvent struct {
	OrderID      string        `validate:"required"`
	SupplierName string        `validate:"required"`
	DeliveryDate time.Time     `validate:"required"`
	LocationID   int64         `validate:"required,gt=0"`
	Lines        []ReceiptLine `validate:"required,min=1,dive"`
	ActorID      int64
}

// Total is the monetary value of the receipt at two decimal places.
func (e ReceiptEvent) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		total = total.Add(line.Quantity.Mul(line.UnitPrice))
	}
	return total.Round(2)
}
