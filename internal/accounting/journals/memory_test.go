package journals

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/keystone-erp/keystone-ledger/internal/accounting/accounts"
	"github.com/keystone-erp/keystone-ledger/internal/accounting/shared"
)

// memoryRepository is an in-memory Repository/TxRepository used by the
// service tests. The tx wrapper snapshots state on entry and restores
// it when the callback fails, mimicking a rollback.
type memoryRepository struct {
	mu       sync.Mutex
	counter  int64
	nextRow  int64
	entries  map[string]*JournalEntry
	accounts map[string]*accounts.Account
	clock    time.Time
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		entries:  make(map[string]*JournalEntry),
		accounts: make(map[string]*accounts.Account),
		clock:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memoryRepository) addAccount(code, name string, t accounts.AccountType) {
	m.accounts[code] = &accounts.Account{
		ID:       int64(len(m.accounts) + 1),
		Code:     code,
		Name:     name,
		Type:     t,
		Nature:   accounts.NatureForType(t),
		Currency: "USD",
		IsActive: true,
	}
}

func (m *memoryRepository) balance(code string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[code].CurrentBalance
}

func (m *memoryRepository) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memoryRepository) List(ctx context.Context) ([]JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]JournalEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, *e)
	}
	return out, nil
}

func (m *memoryRepository) GetWithLines(ctx context.Context, entryID string) (JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	return *e, nil
}

func (m *memoryRepository) FindByReference(ctx context.Context, reference string, op OperationType) (JournalEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Reference == reference && e.OperationType == op {
			return *e, true, nil
		}
	}
	return JournalEntry{}, false, nil
}

func (m *memoryRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.snapshot()
	if err := fn(ctx, &memoryTx{repo: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memoryState struct {
	counter  int64
	nextRow  int64
	entries  map[string]*JournalEntry
	accounts map[string]*accounts.Account
}

func (m *memoryRepository) snapshot() memoryState {
	s := memoryState{
		counter:  m.counter,
		nextRow:  m.nextRow,
		entries:  make(map[string]*JournalEntry, len(m.entries)),
		accounts: make(map[string]*accounts.Account, len(m.accounts)),
	}
	for k, v := range m.entries {
		entry := *v
		entry.Lines = append([]JournalLine(nil), v.Lines...)
		s.entries[k] = &entry
	}
	for k, v := range m.accounts {
		account := *v
		s.accounts[k] = &account
	}
	return s
}

func (m *memoryRepository) restore(s memoryState) {
	m.counter = s.counter
	m.nextRow = s.nextRow
	m.entries = s.entries
	m.accounts = s.accounts
}

type memoryTx struct {
	repo *memoryRepository
}

func (t *memoryTx) NextEntryNumber(ctx context.Context) (int64, error) {
	t.repo.counter++
	return t.repo.counter, nil
}

func (t *memoryTx) InsertEntry(ctx context.Context, entry JournalEntry) (int64, error) {
	t.repo.nextRow++
	entry.ID = t.repo.nextRow
	entry.CreatedAt = t.repo.tick()
	t.repo.entries[entry.EntryID] = &entry
	return entry.ID, nil
}

func (t *memoryTx) InsertLines(ctx context.Context, entryRowID int64, lines []JournalLine) error {
	for _, e := range t.repo.entries {
		if e.ID == entryRowID {
			e.Lines = append([]JournalLine(nil), lines...)
			return nil
		}
	}
	return shared.ErrJournalNotFound
}

func (t *memoryTx) GetEntryWithLines(ctx context.Context, entryID string) (JournalEntry, error) {
	e, ok := t.repo.entries[entryID]
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	return *e, nil
}

func (t *memoryTx) UpdateStatus(ctx context.Context, entryID string, status EntryStatus) error {
	e, ok := t.repo.entries[entryID]
	if !ok {
		return shared.ErrJournalNotFound
	}
	e.Status = status
	return nil
}

func (t *memoryTx) ExistsByReference(ctx context.Context, reference string, op OperationType) (bool, error) {
	for _, e := range t.repo.entries {
		if e.Reference == reference && e.OperationType == op {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) ListPostedOrdered(ctx context.Context) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, e := range t.repo.entries {
		if e.Status == StatusPosted {
			out = append(out, *e)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Date.Before(out[i].Date) ||
				(out[j].Date.Equal(out[i].Date) && out[j].CreatedAt.Before(out[i].CreatedAt)) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (t *memoryTx) GetAccountForUpdate(ctx context.Context, code string) (accounts.Account, error) {
	a, ok := t.repo.accounts[code]
	if !ok {
		return accounts.Account{}, shared.ErrAccountNotFound
	}
	return *a, nil
}

func (t *memoryTx) ApplyBalanceDelta(ctx context.Context, code string, delta decimal.Decimal) error {
	a, ok := t.repo.accounts[code]
	if !ok {
		return shared.ErrAccountNotFound
	}
	a.CurrentBalance = a.CurrentBalance.Add(delta)
	return nil
}

func (t *memoryTx) ZeroAllBalances(ctx context.Context) error {
	for _, a := range t.repo.accounts {
		a.CurrentBalance = decimal.Zero
	}
	return nil
}
