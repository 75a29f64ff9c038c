package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the structured form of the `_IN`/`_OUT` symbol suffix
// convention. Symbols stay on the wire for parity with existing data;
// arithmetic uses Direction only.
type Direction string

const (
	DirectionInbound  Direction = "IN"
	DirectionOutbound Direction = "OUT"
)

// Well-known movement type symbols shared with the document workflows.
const (
	SymbolPurchaseIn    = "PURCHASE_IN"
	SymbolSaleOut       = "SALE_OUT"
	SymbolProductionIn  = "PRODUCTION_IN"
	SymbolProductionOut = "PRODUCTION_OUT"
	SymbolAdjustmentIn  = "ADJUSTMENT_IN"
	SymbolAdjustmentOut = "ADJUSTMENT_OUT"
	SymbolTransferIn    = "TRANSFER_IN"
	SymbolTransferOut   = "TRANSFER_OUT"
)

// ErrUnknownDirection indicates a movement type symbol without an
// `_IN`/`_OUT` suffix.
var ErrUnknownDirection = errors.New("inventory: movement symbol must end in _IN or _OUT")

// DirectionFromSymbol derives the movement direction from the symbol
// suffix. This is the single place the string convention is parsed.
func DirectionFromSymbol(symbol string) (Direction, error) {
	switch {
	case strings.HasSuffix(symbol, "_IN"):
		return DirectionInbound, nil
	case strings.HasSuffix(symbol, "_OUT"):
		return DirectionOutbound, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDirection, symbol)
	}
}

// MovementType is the lookup entity behind every movement.
type MovementType struct {
	ID        int64
	Name      string
	Symbol    string
	Direction Direction
	CreatedAt time.Time
}

// Movement is one immutable inventory quantity event. Quantity is
// always stored positive; the sign comes from the type's direction at
// read time. Rows are never updated; the only deletion path is the
// production-order cancellation bulk delete.
type Movement struct {
	ID         int64
	MovementID string
	MaterialID int64
	LocationID int64
	Quantity   decimal.Decimal
	Unit       string
	Type       MovementType
	Reference  string
	OccurredAt time.Time
	CreatedAt  time.Time
	CreatedBy  int64
}

// StockKey identifies one derived stock aggregate.
type StockKey struct {
	MaterialID int64
	LocationID int64
	Unit       string
}

func (k StockKey) String() string {
	return fmt.Sprintf("%d:%d:%s", k.MaterialID, k.LocationID, k.Unit)
}

// RecordInput describes a single movement to record.
type RecordInput struct {
	MaterialID int64
	LocationID int64
	Quantity   decimal.Decimal
	Unit       string
	TypeSymbol string
	Reference  string
	OccurredAt time.Time
	ActorID    int64
}

// FormatMovementID renders the generated movement identifier.
func FormatMovementID(at time.Time, n int64) string {
	return fmt.Sprintf("INV-%s-%d", at.UTC().Format("20060102-150405"), n)
}

var (
	// ErrInvalidQuantity indicates a non-positive movement quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrInsufficientStock indicates an outbound movement exceeding the
	// derived stock at its location.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrMovementTypeNotFound indicates a missing movement type row.
	ErrMovementTypeNotFound = errors.New("inventory: movement type not found")
	// ErrNoLocation indicates the document carries no usable location.
	ErrNoLocation = errors.New("inventory: location required")
)
