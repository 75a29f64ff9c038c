package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// IntegrityMetrics receives scan outcomes.
type IntegrityMetrics interface {
	IntegrityScanRan(driftEntries int)
}

// GLIntegrityJob scans POSTED entries for debit/credit drift. Posting
// enforces the balance invariant up front, so any hit here means data
// was mutated outside the journal engine.
type GLIntegrityJob struct {
	Pool    *pgxpool.Pool
	Metrics IntegrityMetrics
	Logger  *slog.Logger
}

// NewGLIntegrityJob initialises the integrity scan handler.
func NewGLIntegrityJob(pool *pgxpool.Pool, metrics IntegrityMetrics, logger *slog.Logger) *GLIntegrityJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &GLIntegrityJob{Pool: pool, Metrics: metrics, Logger: logger}
}

type driftEntry struct {
	EntryID     string
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// Handle executes the integrity scan.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("gl integrity: handler not configured")
	}
	var payload IntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := time.Now()
	drift, scanned, err := j.scan(ctx, payload.Since)
	if err != nil {
		j.Logger.Error("gl integrity scan failed", slog.Any("error", err))
		return err
	}
	for _, d := range drift {
		j.Logger.Error("posted entry out of balance",
			slog.String("entry_id", d.EntryID),
			slog.String("total_debit", d.TotalDebit.StringFixed(2)),
			slog.String("total_credit", d.TotalCredit.StringFixed(2)))
	}
	if j.Metrics != nil {
		j.Metrics.IntegrityScanRan(len(drift))
	}
	j.Logger.Info("gl integrity scan completed",
		slog.Int("entries", scanned),
		slog.Int("drift", len(drift)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *GLIntegrityJob) scan(ctx context.Context, since time.Time) ([]driftEntry, int, error) {
	const query = `
SELECT e.entry_id, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM journal_entries e
JOIN journal_entry_lines l ON l.entry_row_id = e.id
WHERE e.status = 'POSTED' AND ($1::timestamptz IS NULL OR e.date >= $1)
GROUP BY e.entry_id`
	var sinceArg any
	if !since.IsZero() {
		sinceArg = since
	}
	rows, err := j.Pool.Query(ctx, query, sinceArg)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var drift []driftEntry
	scanned := 0
	for rows.Next() {
		var d driftEntry
		if err := rows.Scan(&d.EntryID, &d.TotalDebit, &d.TotalCredit); err != nil {
			return nil, 0, err
		}
		scanned++
		if !d.TotalDebit.Round(2).Equal(d.TotalCredit.Round(2)) {
			drift = append(drift, d)
		}
	}
	return drift, scanned, rows.Err()
}
