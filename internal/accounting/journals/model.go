package journals

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus enumerates journal lifecycle values.
type EntryStatus string

const (
	StatusDraft     EntryStatus = "DRAFT"
	StatusPosted    EntryStatus = "POSTED"
	StatusCancelled EntryStatus = "CANCELLED"
)

// OperationType identifies the business operation behind an entry.
type OperationType string

const (
	OperationPurchase   OperationType = "PURCHASE"
	OperationSale       OperationType = "SALE"
	OperationProduction OperationType = "PRODUCTION"
	OperationAdjustment OperationType = "ADJUSTMENT"
	OperationTransfer   OperationType = "TRANSFER"
	OperationManual     OperationType = "MANUAL"
)

// SourceModule identifies the originating system module.
type SourceModule string

const (
	ModulePurchases     SourceModule = "PURCHASES"
	ModuleSales         SourceModule = "SALES"
	ModuleManufacturing SourceModule = "MANUFACTURING"
	ModuleInventory     SourceModule = "INVENTORY"
	ModuleAccounting    SourceModule = "ACCOUNTING"
)

// FormatEntryID renders the human-readable sequential entry ID.
func FormatEntryID(n int64) string {
	return fmt.Sprintf("JE-%06d", n)
}

// ParseEntryID extracts the numeric suffix from an entry ID.
func ParseEntryID(id string) (int64, error) {
	suffix, ok := strings.CutPrefix(id, "JE-")
	if !ok {
		return 0, fmt.Errorf("journals: malformed entry id %q", id)
	}
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("journals: malformed entry id %q: %w", id, err)
	}
	return n, nil
}

// JournalEntry captures a double-entry transaction and its lines.
type JournalEntry struct {
	ID            int64
	EntryID       string
	Date          time.Time
	Description   string
	OperationType OperationType
	Module        SourceModule
	Reference     string
	Currency      string
	Status        EntryStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CreatedBy     int64
	Lines         []JournalLine
}

// JournalLine stores the debit or credit amount for one account.
// Exactly one of Debit/Credit is positive.
type JournalLine struct {
	ID          int64
	EntryRowID  int64
	Position    int
	AccountCode string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TotalDebit sums the debit side of all lines.
func (e JournalEntry) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		total = total.Add(line.Debit)
	}
	return total
}

// TotalCredit sums the credit side of all lines.
func (e JournalEntry) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		total = total.Add(line.Credit)
	}
	return total
}

// IsBalanced reports whether debits equal credits at two decimal places.
// Decimal comparison is exact; no epsilon tolerance.
func (e JournalEntry) IsBalanced() bool {
	return e.TotalDebit().Round(2).Equal(e.TotalCredit().Round(2))
}
