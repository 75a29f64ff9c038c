package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/keystone-erp/keystone-ledger/internal/manufacturing"
	"github.com/keystone-erp/keystone-ledger/internal/purchasing"
	"github.com/keystone-erp/keystone-ledger/internal/sales"
	"github.com/keystone-erp/keystone-ledger/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts recorded movements.
type MetricsPort interface {
	MovementRecorded()
}

// Service coordinates the movement ledger: appends movements, derives
// stock and builds the document-level movement batches.
type Service struct {
	repo     Repository
	audit    AuditPort
	metrics  MetricsPort
	cache    *StockCache
	logger   *slog.Logger
	allowNeg bool
	now      func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// NewService builds Service. Cache may be nil.
func NewService(repo Repository, audit AuditPort, metrics MetricsPort, cache *StockCache, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, cache: cache, logger: logger, allowNeg: cfg.AllowNegativeStock, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CurrentStock computes the derived stock for one key: Σ inbound −
// Σ outbound over all movements, via the cache when configured.
func (s *Service) CurrentStock(ctx context.Context, key StockKey) (decimal.Decimal, error) {
	if key.MaterialID == 0 || key.LocationID == 0 {
		return decimal.Zero, errors.New("inventory: material and location required")
	}
	return s.cache.Fetch(ctx, key, func(ctx context.Context) (decimal.Decimal, error) {
		return s.repo.CurrentStock(ctx, key)
	})
}

// Record appends one movement. Outbound movements are rejected when the
// requested quantity exceeds the derived stock; the check runs under a
// per-key lock inside the insert transaction.
func (s *Service) Record(ctx context.Context, input RecordInput) (Movement, error) {
	var movement Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		movement, err = s.recordInTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return Movement{}, err
	}
	s.afterRecord(ctx, []Movement{movement})
	return movement, nil
}

func (s *Service) recordInTx(ctx context.Context, tx TxRepository, input RecordInput) (Movement, error) {
	if input.MaterialID == 0 || input.LocationID == 0 {
		return Movement{}, errors.New("inventory: material and location required")
	}
	if !input.Quantity.IsPositive() {
		return Movement{}, ErrInvalidQuantity
	}
	mt, err := tx.GetMovementType(ctx, input.TypeSymbol)
	if err != nil {
		return Movement{}, err
	}
	key := StockKey{MaterialID: input.MaterialID, LocationID: input.LocationID, Unit: input.Unit}
	if mt.Direction == DirectionOutbound && !s.allowNeg {
		if err := tx.LockStock(ctx, key); err != nil {
			return Movement{}, err
		}
		stock, err := tx.SumStock(ctx, key)
		if err != nil {
			return Movement{}, err
		}
		if input.Quantity.GreaterThan(stock) {
			return Movement{}, fmt.Errorf("%w: requested %s, available %s", ErrInsufficientStock, input.Quantity, stock)
		}
	}
	number, err := tx.NextMovementNumber(ctx)
	if err != nil {
		return Movement{}, err
	}
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now().UTC()
	}
	movement := Movement{
		MovementID: FormatMovementID(occurredAt, number),
		MaterialID: input.MaterialID,
		LocationID: input.LocationID,
		Quantity:   input.Quantity,
		Unit:       input.Unit,
		Type:       mt,
		Reference:  input.Reference,
		OccurredAt: occurredAt,
		CreatedBy:  input.ActorID,
	}
	id, err := tx.InsertMovement(ctx, movement)
	if err != nil {
		return Movement{}, err
	}
	movement.ID = id
	return movement, nil
}

// RecordPurchaseReceipt creates one PURCHASE_IN movement per received
// line. It is idempotent on the order reference: when movements already
// exist the call is a success-no-op returning nil. All lines are
// written in one transaction.
func (s *Service) RecordPurchaseReceipt(ctx context.Context, evt purchasing.ReceiptEvent) ([]Movement, error) {
	exists, err := s.repo.ExistsByReferenceAndSymbol(ctx, evt.OrderID, SymbolPurchaseIn)
	if err != nil {
		return nil, err
	}
	if exists {
		s.logger.Info("movements already recorded for purchase order", slog.String("reference", evt.OrderID))
		return nil, nil
	}
	var created []Movement
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range evt.Lines {
			if !line.Quantity.IsPositive() {
				continue
			}
			movement, err := s.recordInTx(ctx, tx, RecordInput{
				MaterialID: line.MaterialID,
				LocationID: evt.LocationID,
				Quantity:   line.Quantity,
				Unit:       line.Unit,
				TypeSymbol: SymbolPurchaseIn,
				Reference:  evt.OrderID,
				OccurredAt: evt.DeliveryDate,
				ActorID:    evt.ActorID,
			})
			if err != nil {
				return fmt.Errorf("inventory: receipt %s material %d: %w", evt.OrderID, line.MaterialID, err)
			}
			created = append(created, movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterRecord(ctx, created)
	return created, nil
}

// RecordSaleDelivery creates one SALE_OUT movement per delivered line,
// each subject to the stock-sufficiency check. Idempotent on the order
// reference; one transaction for the whole document.
func (s *Service) RecordSaleDelivery(ctx context.Context, evt sales.DeliveryEvent) ([]Movement, error) {
	exists, err := s.repo.ExistsByReferenceAndSymbol(ctx, evt.OrderID, SymbolSaleOut)
	if err != nil {
		return nil, err
	}
	if exists {
		s.logger.Info("movements already recorded for sales order", slog.String("reference", evt.OrderID))
		return nil, nil
	}
	var created []Movement
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range evt.Lines {
			if !line.Quantity.IsPositive() {
				continue
			}
			movement, err := s.recordInTx(ctx, tx, RecordInput{
				MaterialID: line.MaterialID,
				LocationID: evt.LocationID,
				Quantity:   line.Quantity,
				Unit:       line.Unit,
				TypeSymbol: SymbolSaleOut,
				Reference:  evt.OrderID,
				OccurredAt: evt.IssueDate,
				ActorID:    evt.ActorID,
			})
			if err != nil {
				return fmt.Errorf("inventory: delivery %s material %d: %w", evt.OrderID, line.MaterialID, err)
			}
			created = append(created, movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterRecord(ctx, created)
	return created, nil
}

// RecordProductionCompletion consumes each bill-of-materials component
// from the origin location (PRODUCTION_OUT, scaled by the produced
// quantity) and receives the finished good at the destination
// (PRODUCTION_IN). The whole batch is one transaction: a failing
// component line rolls back every movement of the document, keeping
// stock and accounting mutually consistent. Idempotent on the work
// order reference.
func (s *Service) RecordProductionCompletion(ctx context.Context, evt manufacturing.CompletionEvent) ([]Movement, error) {
	if evt.OriginLocationID == 0 || evt.DestinationLocationID == 0 {
		return nil, ErrNoLocation
	}
	exists, err := s.repo.ExistsByReference(ctx, evt.WorkOrderID)
	if err != nil {
		return nil, err
	}
	if exists {
		s.logger.Info("movements already recorded for work order", slog.String("reference", evt.WorkOrderID))
		return nil, nil
	}
	var created []Movement
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, comp := range evt.Components {
			consumed := comp.QuantityPerUnit.Mul(evt.QuantityProduced)
			if !consumed.IsPositive() {
				continue
			}
			movement, err := s.recordInTx(ctx, tx, RecordInput{
				MaterialID: comp.MaterialID,
				LocationID: evt.OriginLocationID,
				Quantity:   consumed,
				Unit:       comp.Unit,
				TypeSymbol: SymbolProductionOut,
				Reference:  evt.WorkOrderID,
				OccurredAt: evt.ScheduledDate,
				ActorID:    evt.ActorID,
			})
			if err != nil {
				return fmt.Errorf("inventory: work order %s component %d: %w", evt.WorkOrderID, comp.MaterialID, err)
			}
			created = append(created, movement)
		}
		movement, err := s.recordInTx(ctx, tx, RecordInput{
			MaterialID: evt.FinishedMaterialID,
			LocationID: evt.DestinationLocationID,
			Quantity:   evt.QuantityProduced,
			Unit:       evt.FinishedUnit,
			TypeSymbol: SymbolProductionIn,
			Reference:  evt.WorkOrderID,
			OccurredAt: evt.ScheduledDate,
			ActorID:    evt.ActorID,
		})
		if err != nil {
			return fmt.Errorf("inventory: work order %s finished good: %w", evt.WorkOrderID, err)
		}
		created = append(created, movement)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterRecord(ctx, created)
	return created, nil
}

// CancelProductionMovements bulk-deletes every movement recorded for a
// cancelled work order. This is the single sanctioned exception to the
// append-only movement log.
func (s *Service) CancelProductionMovements(ctx context.Context, workOrderID string, actorID int64) (int64, error) {
	if workOrderID == "" {
		return 0, errors.New("inventory: work order reference required")
	}
	var deleted int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		deleted, err = tx.DeleteByReference(ctx, workOrderID)
		return err
	})
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("stock cache bump failed", slog.Any("error", err))
		}
		s.recordAudit(ctx, actorID, "inventory.cancel_production", workOrderID, map[string]any{
			"deleted": deleted,
		})
	}
	return deleted, nil
}

// ListByReference returns the movements created for one source document.
func (s *Service) ListByReference(ctx context.Context, reference string) ([]Movement, error) {
	return s.repo.ListByReference(ctx, reference)
}

func (s *Service) afterRecord(ctx context.Context, created []Movement) {
	if len(created) == 0 {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("stock cache bump failed", slog.Any("error", err))
	}
	for _, m := range created {
		if s.metrics != nil {
			s.metrics.MovementRecorded()
		}
		s.recordAudit(ctx, m.CreatedBy, fmt.Sprintf("inventory.%s", m.Type.Symbol), m.MovementID, map[string]any{
			"material_id": m.MaterialID,
			"location_id": m.LocationID,
			"quantity":    m.Quantity.String(),
			"reference":   m.Reference,
		})
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   shared.EntityMovement,
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
