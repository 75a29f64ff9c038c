package journals

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/keystone-erp/keystone-ledger/internal/accounting/accounts"
	"github.com/keystone-erp/keystone-ledger/internal/accounting/shared"
	"github.com/keystone-erp/keystone-ledger/internal/platform/db"
)

// Repository encapsulates DB operations for journal entries.
type Repository interface {
	List(ctx context.Context) ([]JournalEntry, error)
	GetWithLines(ctx context.Context, entryID string) (JournalEntry, error)
	FindByReference(ctx context.Context, reference string, op OperationType) (JournalEntry, bool, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available within a posting
// transaction, including the account balance mutations that must share
// it.
type TxRepository interface {
	// NextEntryNumber increments and returns the journal counter. The
	// counter row is updated inside the caller's transaction, so the
	// allocation is serialised and rolls back with a failed insert,
	// keeping successful IDs gapless.
	NextEntryNumber(ctx context.Context) (int64, error)
	InsertEntry(ctx context.Context, entry JournalEntry) (int64, error)
	InsertLines(ctx context.Context, entryRowID int64, lines []JournalLine) error
	GetEntryWithLines(ctx context.Context, entryID string) (JournalEntry, error)
	UpdateStatus(ctx context.Context, entryID string, status EntryStatus) error
	ExistsByReference(ctx context.Context, reference string, op OperationType) (bool, error)
	ListPostedOrdered(ctx context.Context) ([]JournalEntry, error)

	// Account balance operations, transaction-scoped so propagation is
	// all-or-nothing across an entry's lines.
	GetAccountForUpdate(ctx context.Context, code string) (accounts.Account, error)
	ApplyBalanceDelta(ctx context.Context, code string, delta decimal.Decimal) error
	ZeroAllBalances(ctx context.Context) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, entry_id, date, description, operation_type, module, reference, currency, status, created_at, updated_at, created_by`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.EntryID, &e.Date, &e.Description, &e.OperationType, &e.Module, &e.Reference, &e.Currency, &e.Status, &e.CreatedAt, &e.UpdatedAt, &e.CreatedBy)
	return e, err
}

func (r *repository) List(ctx context.Context) ([]JournalEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries ORDER BY entry_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) GetWithLines(ctx context.Context, entryID string) (JournalEntry, error) {
	var entry JournalEntry
	err := r.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = tx.GetEntryWithLines(ctx, entryID)
		return err
	})
	return entry, err
}

func (r *repository) FindByReference(ctx context.Context, reference string, op OperationType) (JournalEntry, bool, error) {
	row := r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE reference=$1 AND operation_type=$2 ORDER BY entry_id LIMIT 1`, reference, op)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, false, nil
		}
		return JournalEntry{}, false, err
	}
	return e, true, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) NextEntryNumber(ctx context.Context) (int64, error) {
	var n int64
	err := r.tx.QueryRow(ctx, `UPDATE ledger_counters SET value = value + 1 WHERE name='journal_entry' RETURNING value`).Scan(&n)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = r.tx.QueryRow(ctx, `INSERT INTO ledger_counters (name, value) VALUES ('journal_entry', 1) RETURNING value`).Scan(&n)
		}
		if err != nil {
			return 0, err
		}
	}
	return n, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, entry JournalEntry) (int64, error) {
	var id int64
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (entry_id, date, description, operation_type, module, reference, currency, status, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		entry.EntryID, entry.Date, entry.Description, entry.OperationType, entry.Module, entry.Reference, entry.Currency, entry.Status, entry.CreatedBy)
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryRowID int64, lines []JournalLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_entry_lines (entry_row_id, position, account_code, description, debit, credit)
VALUES ($1,$2,$3,$4,$5,$6)`, entryRowID, line.Position, line.AccountCode, line.Description, line.Debit, line.Credit); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetEntryWithLines(ctx context.Context, entryID string) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE entry_id=$1`, entryID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	lines, err := r.linesFor(ctx, entry.ID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

func (r *txRepository) linesFor(ctx context.Context, entryRowID int64) ([]JournalLine, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, entry_row_id, position, account_code, description, debit, credit, created_at, updated_at
FROM journal_entry_lines WHERE entry_row_id=$1 ORDER BY position ASC`, entryRowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryRowID, &line.Position, &line.AccountCode, &line.Description, &line.Debit, &line.Credit, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *txRepository) UpdateStatus(ctx context.Context, entryID string, status EntryStatus) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status=$2, updated_at=NOW() WHERE entry_id=$1`, entryID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrJournalNotFound
	}
	return nil
}

func (r *txRepository) ExistsByReference(ctx context.Context, reference string, op OperationType) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_entries WHERE reference=$1 AND operation_type=$2)`, reference, op).Scan(&exists)
	return exists, err
}

// ListPostedOrdered loads every posted entry with lines in replay order
// for the recomputation pass.
func (r *txRepository) ListPostedOrdered(ctx context.Context) ([]JournalEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE status=$1 ORDER BY date ASC, created_at ASC`, StatusPosted)
	if err != nil {
		return nil, err
	}
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	for i := range entries {
		lines, err := r.linesFor(ctx, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Lines = lines
	}
	return entries, nil
}

func (r *txRepository) GetAccountForUpdate(ctx context.Context, code string) (accounts.Account, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, code, name, type, nature, parent_code, currency, country, is_control_account, is_active, current_balance, created_at, updated_at, created_by
FROM accounts WHERE code=$1 FOR UPDATE`, code)
	var a accounts.Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Nature, &a.ParentCode, &a.Currency, &a.Country, &a.IsControlAccount, &a.IsActive, &a.CurrentBalance, &a.CreatedAt, &a.UpdatedAt, &a.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounts.Account{}, shared.ErrAccountNotFound
		}
		return accounts.Account{}, err
	}
	return a, nil
}

func (r *txRepository) ApplyBalanceDelta(ctx context.Context, code string, delta decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET current_balance = current_balance + $2, updated_at=NOW() WHERE code=$1`, code, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) ZeroAllBalances(ctx context.Context) error {
	_, err := r.tx.Exec(ctx, `UPDATE accounts SET current_balance = 0, updated_at=NOW()`)
	return err
}
