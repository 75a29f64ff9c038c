package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/keystone-erp/keystone-ledger/internal/platform/db"
	"github.com/keystone-erp/keystone-ledger/internal/shared"
)

// Repository exposes movement persistence and the derived stock
// aggregation.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CurrentStock(ctx context.Context, key StockKey) (decimal.Decimal, error)
	ExistsByReference(ctx context.Context, reference string) (bool, error)
	ExistsByReferenceAndSymbol(ctx context.Context, reference, symbol string) (bool, error)
	ListByReference(ctx context.Context, reference string) ([]Movement, error)
}

// TxRepository exposes the operations available inside a movement
// transaction.
type TxRepository interface {
	// LockStock serialises writers on one (material, location, unit)
	// key for the duration of the transaction, making the
	// check-then-insert on outbound movements safe under concurrency.
	LockStock(ctx context.Context, key StockKey) error
	SumStock(ctx context.Context, key StockKey) (decimal.Decimal, error)
	GetMovementType(ctx context.Context, symbol string) (MovementType, error)
	NextMovementNumber(ctx context.Context) (int64, error)
	InsertMovement(ctx context.Context, m Movement) (int64, error)
	DeleteByReference(ctx context.Context, reference string) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// stockSumQuery signs quantities by the movement type's direction.
const stockSumQuery = `SELECT COALESCE(SUM(CASE WHEN mt.direction = 'OUT' THEN -m.quantity ELSE m.quantity END), 0)
FROM inventory_movements m
JOIN movement_types mt ON mt.id = m.movement_type_id
WHERE m.material_id=$1 AND m.location_id=$2 AND m.unit=$3`

func (r *repository) CurrentStock(ctx context.Context, key StockKey) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, stockSumQuery, key.MaterialID, key.LocationID, key.Unit).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *repository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM inventory_movements WHERE reference=$1)`, reference).Scan(&exists)
	return exists, err
}

func (r *repository) ExistsByReferenceAndSymbol(ctx context.Context, reference, symbol string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM inventory_movements m JOIN movement_types mt ON mt.id = m.movement_type_id
WHERE m.reference=$1 AND mt.symbol=$2)`, reference, symbol).Scan(&exists)
	return exists, err
}

const movementColumns = `m.id, m.movement_id, m.material_id, m.location_id, m.quantity, m.unit, m.reference, m.occurred_at, m.created_at, m.created_by,
mt.id, mt.name, mt.symbol, mt.direction`

func scanMovement(row pgx.Row) (Movement, error) {
	var m Movement
	err := row.Scan(&m.ID, &m.MovementID, &m.MaterialID, &m.LocationID, &m.Quantity, &m.Unit, &m.Reference, &m.OccurredAt, &m.CreatedAt, &m.CreatedBy,
		&m.Type.ID, &m.Type.Name, &m.Type.Symbol, &m.Type.Direction)
	return m, err
}

func (r *repository) ListByReference(ctx context.Context, reference string) ([]Movement, error) {
	rows, err := r.db.Query(ctx, `SELECT `+movementColumns+`
FROM inventory_movements m JOIN movement_types mt ON mt.id = m.movement_type_id
WHERE m.reference=$1 ORDER BY m.id ASC`, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) LockStock(ctx context.Context, key StockKey) error {
	_, err := r.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, shared.StockLockID(key.MaterialID, key.LocationID, key.Unit))
	return err
}

func (r *txRepository) SumStock(ctx context.Context, key StockKey) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.tx.QueryRow(ctx, stockSumQuery, key.MaterialID, key.LocationID, key.Unit).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *txRepository) GetMovementType(ctx context.Context, symbol string) (MovementType, error) {
	var mt MovementType
	err := r.tx.QueryRow(ctx, `SELECT id, name, symbol, direction, created_at FROM movement_types WHERE symbol=$1`, symbol).
		Scan(&mt.ID, &mt.Name, &mt.Symbol, &mt.Direction, &mt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MovementType{}, ErrMovementTypeNotFound
		}
		return MovementType{}, err
	}
	return mt, nil
}

func (r *txRepository) NextMovementNumber(ctx context.Context) (int64, error) {
	var n int64
	err := r.tx.QueryRow(ctx, `UPDATE ledger_counters SET value = value + 1 WHERE name='inventory_movement' RETURNING value`).Scan(&n)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = r.tx.QueryRow(ctx, `INSERT INTO ledger_counters (name, value) VALUES ('inventory_movement', 1) RETURNING value`).Scan(&n)
		}
		if err != nil {
			return 0, err
		}
	}
	return n, nil
}

func (r *txRepository) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	row := r.tx.QueryRow(ctx, `INSERT INTO inventory_movements (movement_id, material_id, location_id, quantity, unit, movement_type_id, reference, occurred_at, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		m.MovementID, m.MaterialID, m.LocationID, m.Quantity, m.Unit, m.Type.ID, m.Reference, m.OccurredAt, m.CreatedBy)
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteByReference removes every movement tied to one source document.
// This is the production-cancellation exception to append-only.
func (r *txRepository) DeleteByReference(ctx context.Context, reference string) (int64, error) {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM inventory_movements WHERE reference=$1`, reference)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
