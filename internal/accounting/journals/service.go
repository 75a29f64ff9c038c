package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/keystone-erp/keystone-ledger/internal/accounting/accounts"
	"github.com/keystone-erp/keystone-ledger/internal/accounting/shared"
	internalShared "github.com/keystone-erp/keystone-ledger/internal/shared"
)

// AuditPort records ledger mutations for the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// MetricsPort counts ledger operations.
type MetricsPort interface {
	EntryPosted()
	EntryCancelled()
	RecomputeRan()
}

// Service coordinates the journal entry state machine and balance
// propagation.
type Service struct {
	repo    Repository
	audit   AuditPort
	metrics MetricsPort
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(repo Repository, audit AuditPort, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, logger: logger, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) List(ctx context.Context) ([]JournalEntry, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, entryID string) (JournalEntry, error) {
	return s.repo.GetWithLines(ctx, entryID)
}

// FindByReference looks up the entry covering a source document, if any.
func (s *Service) FindByReference(ctx context.Context, reference string, op OperationType) (JournalEntry, bool, error) {
	return s.repo.FindByReference(ctx, reference, op)
}

// CreateDraft validates the input, allocates the next entry ID and
// persists the entry with its lines in DRAFT status, all in one
// transaction.
func (s *Service) CreateDraft(ctx context.Context, input EntryInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	date := input.Date
	if date.IsZero() {
		date = s.now()
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextEntryNumber(ctx)
		if err != nil {
			return err
		}
		entry = JournalEntry{
			EntryID:       FormatEntryID(number),
			Date:          date,
			Description:   input.Description,
			OperationType: input.OperationType,
			Module:        input.Module,
			Reference:     input.Reference,
			Currency:      input.Currency,
			Status:        StatusDraft,
			CreatedBy:     input.CreatedBy,
		}
		rowID, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = rowID
		lines := make([]JournalLine, 0, len(input.Lines))
		for idx, line := range input.Lines {
			lines = append(lines, JournalLine{
				EntryRowID:  rowID,
				Position:    idx + 1,
				AccountCode: line.AccountCode,
				Description: line.Description,
				Debit:       line.Debit,
				Credit:      line.Credit,
			})
		}
		if err := tx.InsertLines(ctx, rowID, lines); err != nil {
			return err
		}
		entry.Lines = lines
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, input.CreatedBy, "journal.create", entry.EntryID, map[string]any{
		"operation_type": entry.OperationType,
		"reference":      entry.Reference,
	})
	return entry, nil
}

// Post transitions a DRAFT entry to POSTED after the balance check.
// Propagation to account balances is a separate, explicit step: callers
// follow up with Apply, or use PostAndApply for the combined atomic
// form.
func (s *Service) Post(ctx context.Context, entryID string, actorID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = s.postInTx(ctx, tx, entryID)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.entryPosted(ctx, actorID, entry)
	return entry, nil
}

func (s *Service) postInTx(ctx context.Context, tx TxRepository, entryID string) (JournalEntry, error) {
	entry, err := tx.GetEntryWithLines(ctx, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	if entry.Status != StatusDraft {
		return JournalEntry{}, shared.ErrInvalidStatus
	}
	if !entry.IsBalanced() {
		return JournalEntry{}, shared.ErrUnbalanced
	}
	if err := tx.UpdateStatus(ctx, entryID, StatusPosted); err != nil {
		return JournalEntry{}, err
	}
	entry.Status = StatusPosted
	return entry, nil
}

// Apply propagates a POSTED entry's lines to account balances and
// returns the accounts' new balances keyed by label. All lines are
// applied in one transaction; any account lookup failure rolls back the
// whole propagation.
func (s *Service) Apply(ctx context.Context, entryID string) (map[string]decimal.Decimal, error) {
	balances := make(map[string]decimal.Decimal)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.Status != StatusPosted {
			return shared.ErrInvalidStatus
		}
		return s.applyLines(ctx, tx, entry, false, balances)
	})
	if err != nil {
		return nil, err
	}
	return balances, nil
}

// PostAndApply performs Post and Apply as one atomic transaction: if any
// account update fails the entry remains DRAFT.
func (s *Service) PostAndApply(ctx context.Context, entryID string, actorID int64) (JournalEntry, map[string]decimal.Decimal, error) {
	var entry JournalEntry
	balances := make(map[string]decimal.Decimal)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = s.postInTx(ctx, tx, entryID)
		if err != nil {
			return err
		}
		return s.applyLines(ctx, tx, entry, false, balances)
	})
	if err != nil {
		return JournalEntry{}, nil, err
	}
	s.entryPosted(ctx, actorID, entry)
	return entry, balances, nil
}

// Cancel flips the entry to CANCELLED without touching balances. For a
// POSTED entry the caller is responsible for reversing propagated
// deltas first; CancelAndReverse does both atomically.
func (s *Service) Cancel(ctx context.Context, entryID string, actorID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = tx.GetEntryWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.Status == StatusCancelled {
			return shared.ErrInvalidStatus
		}
		if err := tx.UpdateStatus(ctx, entryID, StatusCancelled); err != nil {
			return err
		}
		entry.Status = StatusCancelled
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.entryCancelled(ctx, actorID, entry, false)
	return entry, nil
}

// CancelAndReverse reverses the propagated balance deltas of a POSTED
// entry and transitions it to CANCELLED in a single transaction.
func (s *Service) CancelAndReverse(ctx context.Context, entryID string, actorID int64) (JournalEntry, map[string]decimal.Decimal, error) {
	var entry JournalEntry
	balances := make(map[string]decimal.Decimal)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = tx.GetEntryWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.Status != StatusPosted {
			return shared.ErrInvalidStatus
		}
		if err := s.applyLines(ctx, tx, entry, true, balances); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, entryID, StatusCancelled); err != nil {
			return err
		}
		entry.Status = StatusCancelled
		return nil
	})
	if err != nil {
		return JournalEntry{}, nil, err
	}
	s.entryCancelled(ctx, actorID, entry, true)
	return entry, balances, nil
}

// Recompute rebuilds every account balance from scratch by replaying
// all POSTED entries in (date, created_at) order. The caller must hold
// the ledger-wide exclusive lock: the pass starts with a global reset.
func (s *Service) Recompute(ctx context.Context) (RecomputeSummary, error) {
	var summary RecomputeSummary
	touched := make(map[string]struct{})
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ZeroAllBalances(ctx); err != nil {
			return err
		}
		entries, err := tx.ListPostedOrdered(ctx)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			balances := make(map[string]decimal.Decimal)
			if err := s.applyLines(ctx, tx, entry, false, balances); err != nil {
				return fmt.Errorf("journals: recompute %s: %w", entry.EntryID, err)
			}
			for label := range balances {
				touched[label] = struct{}{}
			}
			summary.EntriesProcessed++
		}
		return nil
	})
	if err != nil {
		return RecomputeSummary{}, err
	}
	summary.AccountsTouched = len(touched)
	if s.metrics != nil {
		s.metrics.RecomputeRan()
	}
	s.logger.Info("ledger balances recomputed",
		slog.Int("entries", summary.EntriesProcessed),
		slog.Int("accounts", summary.AccountsTouched))
	return summary, nil
}

// applyLines applies (or, when reverse is set, negates) the per-line
// balance delta derived from each account's nature.
func (s *Service) applyLines(ctx context.Context, tx TxRepository, entry JournalEntry, reverse bool, balances map[string]decimal.Decimal) error {
	for _, line := range entry.Lines {
		account, err := tx.GetAccountForUpdate(ctx, line.AccountCode)
		if err != nil {
			return fmt.Errorf("journals: line %d account %s: %w", line.Position, line.AccountCode, err)
		}
		delta := balanceDelta(account.Nature, line)
		if reverse {
			delta = delta.Neg()
		}
		if err := tx.ApplyBalanceDelta(ctx, account.Code, delta); err != nil {
			return err
		}
		// The account row is re-read per line, so CurrentBalance already
		// includes deltas applied by earlier lines of this entry.
		balances[account.Label()] = account.CurrentBalance.Add(delta)
	}
	return nil
}

// balanceDelta computes the signed change to an account's running
// balance for one line: debit-nature accounts grow with debits,
// credit-nature accounts grow with credits.
func balanceDelta(nature accounts.AccountNature, line JournalLine) decimal.Decimal {
	if nature == accounts.NatureDebit {
		return line.Debit.Sub(line.Credit)
	}
	return line.Credit.Sub(line.Debit)
}

func (s *Service) entryPosted(ctx context.Context, actorID int64, entry JournalEntry) {
	if s.metrics != nil {
		s.metrics.EntryPosted()
	}
	s.recordAudit(ctx, actorID, "journal.post", entry.EntryID, map[string]any{
		"reference":      entry.Reference,
		"operation_type": entry.OperationType,
		"total_debit":    entry.TotalDebit().StringFixed(2),
	})
}

func (s *Service) entryCancelled(ctx context.Context, actorID int64, entry JournalEntry, reversed bool) {
	if s.metrics != nil {
		s.metrics.EntryCancelled()
	}
	s.recordAudit(ctx, actorID, "journal.cancel", entry.EntryID, map[string]any{
		"reference": entry.Reference,
		"reversed":  reversed,
	})
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entryID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   internalShared.EntityJournalEntry,
		EntityID: entryID,
		Meta:     meta,
		At:       s.now(),
	}); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
