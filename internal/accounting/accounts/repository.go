package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-erp/keystone-ledger/internal/accounting/shared"
)

// Repository exposes read access to the chart of accounts. Balance
// mutation is deliberately absent here: deltas are applied through the
// journals transaction repository so they share the posting transaction.
type Repository interface {
	GetByCode(ctx context.Context, code string) (Account, error)
	// FirstByType returns the first active account of the given type in
	// code order, used as the opt-in fallback when a well-known code is
	// absent.
	FirstByType(ctx context.Context, t AccountType) (Account, error)
	List(ctx context.Context) ([]Account, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, code, name, type, nature, parent_code, currency, country, is_control_account, is_active, current_balance, created_at, updated_at, created_by`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Nature, &a.ParentCode, &a.Currency, &a.Country, &a.IsControlAccount, &a.IsActive, &a.CurrentBalance, &a.CreatedAt, &a.UpdatedAt, &a.CreatedBy)
	return a, err
}

func (r *repository) GetByCode(ctx context.Context, code string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1`, code)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) FirstByType(ctx context.Context, t AccountType) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE type=$1 AND is_active ORDER BY code LIMIT 1`, t)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
