// Package sales defines the narrow document shapes the ledger core
// consumes from the sales workflow.
package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryLine is one delivered sales order line.
type DeliveryLine struct {
	MaterialID int64           `validate:"required,gt=0"`
	Quantity   decimal.Decimal `validate:"required"`
	Unit       string          `validate:"required,max=20"`
	UnitPrice  decimal.Decimal `validate:"required"`
	Currency   string          `validate:"required,len=3"`
}

// DeliveryEvent describes a sales order marked as delivered.
type DeliveryEvent struct {
	OrderID      string         `validate:"required"`
	CustomerName string         `validate:"required"`
	IssueDate    time.Time      `validate:"required"`
	LocationID   int64          `validate:"required,gt=0"`
	Lines        []DeliveryLine `validate:"required,min=1,dive"`
	ActorID      int64
}

// Total is the monetary value of the delivery at two decimal places.
func (e DeliveryEvent) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		total = total.Add(line.Quantity.Mul(line.UnitPrice))
	}
	return total.Round(2)
}
