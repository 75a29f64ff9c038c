package journals

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/keystone-erp/keystone-ledger/internal/accounting/shared"
)

// LineInput describes one journal line for entry creation.
type LineInput struct {
	AccountCode string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// EntryInput groups the fields required to create a draft entry.
type EntryInput struct {
	Date          time.Time
	Description   string
	OperationType OperationType
	Module        SourceModule
	Reference     string
	Currency      string
	CreatedBy     int64
	Lines         []LineInput
}

// Validate ensures the input satisfies the line and balance invariants
// before anything is persisted. A violation rejects the whole entry.
func (in EntryInput) Validate() error {
	if in.OperationType == "" {
		return errors.New("journals: operation type required")
	}
	if in.Module == "" {
		return errors.New("journals: source module required")
	}
	if in.Currency == "" {
		return errors.New("journals: currency required")
	}
	if len(in.Lines) < 2 {
		return shared.ErrTooFewLines
	}
	debit := decimal.Zero
	credit := decimal.Zero
	for idx, line := range in.Lines {
		if line.AccountCode == "" {
			return fmt.Errorf("journals: line %d missing account", idx+1)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("journals: line %d: %w", idx+1, shared.ErrNegativeAmount)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return fmt.Errorf("journals: line %d: %w", idx+1, shared.ErrLineBothSides)
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return fmt.Errorf("journals: line %d: %w", idx+1, shared.ErrLineEmpty)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Round(2).Equal(credit.Round(2)) {
		return shared.ErrUnbalanced
	}
	return nil
}

// RecomputeSummary reports the result of a full balance rebuild.
type RecomputeSummary struct {
	EntriesProcessed int
	AccountsTouched  int
}
