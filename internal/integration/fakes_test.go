package integration

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/keystone-erp/keystone-ledger/internal/accounting/accounts"
	"github.com/keystone-erp/keystone-ledger/internal/accounting/journals"
	"github.com/keystone-erp/keystone-ledger/internal/accounting/mappings"
	acctshared "github.com/keystone-erp/keystone-ledger/internal/accounting/shared"
)

// memJournalRepo is the minimal journals.Repository used by hook
// tests: draft creation and reference lookup.
type memJournalRepo struct {
	counter int64
	nextRow int64
	entries []journals.JournalEntry
}

func (m *memJournalRepo) List(ctx context.Context) ([]journals.JournalEntry, error) {
	return append([]journals.JournalEntry(nil), m.entries...), nil
}

func (m *memJournalRepo) GetWithLines(ctx context.Context, entryID string) (journals.JournalEntry, error) {
	for _, e := range m.entries {
		if e.EntryID == entryID {
			return e, nil
		}
	}
	return journals.JournalEntry{}, acctshared.ErrJournalNotFound
}

func (m *memJournalRepo) FindByReference(ctx context.Context, reference string, op journals.OperationType) (journals.JournalEntry, bool, error) {
	for _, e := range m.entries {
		if e.Reference == reference && e.OperationType == op {
			return e, true, nil
		}
	}
	return journals.JournalEntry{}, false, nil
}

func (m *memJournalRepo) WithTx(ctx context.Context, fn func(context.Context, journals.TxRepository) error) error {
	before := len(m.entries)
	counter := m.counter
	if err := fn(ctx, &memJournalTx{repo: m}); err != nil {
		m.entries = m.entries[:before]
		m.counter = counter
		return err
	}
	return nil
}

type memJournalTx struct {
	repo *memJournalRepo
}

func (t *memJournalTx) NextEntryNumber(ctx context.Context) (int64, error) {
	t.repo.counter++
	return t.repo.counter, nil
}

func (t *memJournalTx) InsertEntry(ctx context.Context, entry journals.JournalEntry) (int64, error) {
	t.repo.nextRow++
	entry.ID = t.repo.nextRow
	t.repo.entries = append(t.repo.entries, entry)
	return entry.ID, nil
}

func (t *memJournalTx) InsertLines(ctx context.Context, entryRowID int64, lines []journals.JournalLine) error {
	for i := range t.repo.entries {
		if t.repo.entries[i].ID == entryRowID {
			t.repo.entries[i].Lines = append([]journals.JournalLine(nil), lines...)
			return nil
		}
	}
	return acctshared.ErrJournalNotFound
}

func (t *memJournalTx) GetEntryWithLines(ctx context.Context, entryID string) (journals.JournalEntry, error) {
	return t.repo.GetWithLines(ctx, entryID)
}

func (t *memJournalTx) UpdateStatus(ctx context.Context, entryID string, status journals.EntryStatus) error {
	for i := range t.repo.entries {
		if t.repo.entries[i].EntryID == entryID {
			t.repo.entries[i].Status = status
			return nil
		}
	}
	return acctshared.ErrJournalNotFound
}

func (t *memJournalTx) ExistsByReference(ctx context.Context, reference string, op journals.OperationType) (bool, error) {
	_, found, err := t.repo.FindByReference(ctx, reference, op)
	return found, err
}

func (t *memJournalTx) ListPostedOrdered(ctx context.Context) ([]journals.JournalEntry, error) {
	return nil, nil
}

func (t *memJournalTx) GetAccountForUpdate(ctx context.Context, code string) (accounts.Account, error) {
	return accounts.Account{}, acctshared.ErrAccountNotFound
}

func (t *memJournalTx) ApplyBalanceDelta(ctx context.Context, code string, delta decimal.Decimal) error {
	return nil
}

func (t *memJournalTx) ZeroAllBalances(ctx context.Context) error {
	return nil
}

// memAccounts is an in-memory chart of accounts.
type memAccounts struct {
	byCode map[string]accounts.Account
}

func newMemAccounts(list ...accounts.Account) *memAccounts {
	m := &memAccounts{byCode: make(map[string]accounts.Account)}
	for _, a := range list {
		m.byCode[a.Code] = a
	}
	return m
}

func (m *memAccounts) GetByCode(ctx context.Context, code string) (accounts.Account, error) {
	a, ok := m.byCode[code]
	if !ok {
		return accounts.Account{}, acctshared.ErrAccountNotFound
	}
	return a, nil
}

func (m *memAccounts) FirstByType(ctx context.Context, t accounts.AccountType) (accounts.Account, error) {
	codes := make([]string, 0, len(m.byCode))
	for code := range m.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if a := m.byCode[code]; a.Type == t && a.IsActive {
			return a, nil
		}
	}
	return accounts.Account{}, acctshared.ErrAccountNotFound
}

func (m *memAccounts) List(ctx context.Context) ([]accounts.Account, error) {
	out := make([]accounts.Account, 0, len(m.byCode))
	for _, a := range m.byCode {
		out = append(out, a)
	}
	return out, nil
}

func testAccount(code, name string, t accounts.AccountType) accounts.Account {
	return accounts.Account{
		Code:     code,
		Name:     name,
		Type:     t,
		Nature:   accounts.NatureForType(t),
		Currency: "USD",
		IsActive: true,
	}
}

// memMappings is an in-memory account mapping table keyed by
// module/key.
type memMappings struct {
	rows map[string]string
}

func (m *memMappings) Get(ctx context.Context, module, key string) (mappings.AccountMapping, error) {
	if m == nil || m.rows == nil {
		return mappings.AccountMapping{}, acctshared.ErrMappingNotFound
	}
	code, ok := m.rows[module+"/"+key]
	if !ok {
		return mappings.AccountMapping{}, acctshared.ErrMappingNotFound
	}
	return mappings.AccountMapping{Module: module, Key: key, AccountCode: code}, nil
}

// captureReporter records pending reports for assertions.
type captureReporter struct {
	reports []error
}

func (r *captureReporter) ReportPending(ctx context.Context, module journals.SourceModule, reference string, cause error) {
	r.reports = append(r.reports, cause)
}
