package inventory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// memoryInventoryRepository backs the service tests. The tx wrapper
// snapshots movements on entry and restores them when the callback
// fails, mimicking a rollback.
type memoryInventoryRepository struct {
	mu        sync.Mutex
	counter   int64
	nextRow   int64
	types     map[string]MovementType
	movements []Movement
}

func newMemoryInventoryRepository() *memoryInventoryRepository {
	repo := &memoryInventoryRepository{types: make(map[string]MovementType)}
	symbols := []string{
		SymbolPurchaseIn, SymbolSaleOut,
		SymbolProductionIn, SymbolProductionOut,
		SymbolAdjustmentIn, SymbolAdjustmentOut,
		SymbolTransferIn, SymbolTransferOut,
	}
	for i, symbol := range symbols {
		direction, _ := DirectionFromSymbol(symbol)
		repo.types[symbol] = MovementType{ID: int64(i + 1), Name: symbol, Symbol: symbol, Direction: direction}
	}
	return repo
}

func (m *memoryInventoryRepository) sum(key StockKey) decimal.Decimal {
	total := decimal.Zero
	for _, mv := range m.movements {
		if mv.MaterialID != key.MaterialID || mv.LocationID != key.LocationID || mv.Unit != key.Unit {
			continue
		}
		if mv.Type.Direction == DirectionOutbound {
			total = total.Sub(mv.Quantity)
		} else {
			total = total.Add(mv.Quantity)
		}
	}
	return total
}

func (m *memoryInventoryRepository) CurrentStock(ctx context.Context, key StockKey) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sum(key), nil
}

func (m *memoryInventoryRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mv := range m.movements {
		if mv.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryInventoryRepository) ExistsByReferenceAndSymbol(ctx context.Context, reference, symbol string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mv := range m.movements {
		if mv.Reference == reference && mv.Type.Symbol == symbol {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryInventoryRepository) ListByReference(ctx context.Context, reference string) ([]Movement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Movement
	for _, mv := range m.movements {
		if mv.Reference == reference {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (m *memoryInventoryRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	counter, nextRow := m.counter, m.nextRow
	snapshot := append([]Movement(nil), m.movements...)
	if err := fn(ctx, &memoryInventoryTx{repo: m}); err != nil {
		m.counter, m.nextRow = counter, nextRow
		m.movements = snapshot
		return err
	}
	return nil
}

type memoryInventoryTx struct {
	repo *memoryInventoryRepository
}

func (t *memoryInventoryTx) LockStock(ctx context.Context, key StockKey) error {
	return nil
}

func (t *memoryInventoryTx) SumStock(ctx context.Context, key StockKey) (decimal.Decimal, error) {
	return t.repo.sum(key), nil
}

func (t *memoryInventoryTx) GetMovementType(ctx context.Context, symbol string) (MovementType, error) {
	mt, ok := t.repo.types[symbol]
	if !ok {
		return MovementType{}, ErrMovementTypeNotFound
	}
	return mt, nil
}

func (t *memoryInventoryTx) NextMovementNumber(ctx context.Context) (int64, error) {
	t.repo.counter++
	return t.repo.counter, nil
}

func (t *memoryInventoryTx) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	t.repo.nextRow++
	m.ID = t.repo.nextRow
	t.repo.movements = append(t.repo.movements, m)
	return m.ID, nil
}

func (t *memoryInventoryTx) DeleteByReference(ctx context.Context, reference string) (int64, error) {
	var kept []Movement
	var deleted int64
	for _, mv := range t.repo.movements {
		if mv.Reference == reference {
			deleted++
			continue
		}
		kept = append(kept, mv)
	}
	t.repo.movements = kept
	return deleted, nil
}
