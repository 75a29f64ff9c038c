// Package integration translates document events from the physical
// workflows into journal entries. It is the only place business
// documents and the journal engine meet.
package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/keystone-erp/keystone-ledger/internal/accounting/accounts"
	"github.com/keystone-erp/keystone-ledger/internal/accounting/journals"
	"github.com/keystone-erp/keystone-ledger/internal/accounting/mappings"
	acctshared "github.com/keystone-erp/keystone-ledger/internal/accounting/shared"
	"github.com/keystone-erp/keystone-ledger/internal/inventory"
	"github.com/keystone-erp/keystone-ledger/internal/manufacturing"
	"github.com/keystone-erp/keystone-ledger/internal/purchasing"
	"github.com/keystone-erp/keystone-ledger/internal/sales"
	"github.com/keystone-erp/keystone-ledger/internal/shared"
)

// Well-known chart codes used when no account mapping row overrides
// them. They mirror the seeded chart of accounts.
const (
	codeInventory     = "1.1.05"
	codeReceivable    = "1.1.03"
	codeFinishedGoods = "1.1.06"
	codePayable       = "2.1.01"
	codeRevenue       = "4.1.01"
	codeAdjustment    = "5.1.05"
)

// Placeholder unit costs. Costing is out of scope; production and
// adjustment valuations use flat per-unit amounts until a costing
// engine supplies real ones.
var (
	productionUnitCost = decimal.NewFromInt(100)
	adjustmentUnitCost = decimal.NewFromInt(50)
)

// errZeroAmount short-circuits generation when a document values to
// zero. The skip is logged and reported as success.
var errZeroAmount = errors.New("integration: computed amount is zero")

// PendingReporter receives accounting failures when strict mode is
// off, so the physical workflow can continue while the entry is
// produced later by hand or by a retry.
type PendingReporter interface {
	ReportPending(ctx context.Context, module journals.SourceModule, reference string, cause error)
}

// LogReporter is the default PendingReporter: it records the failure
// at error level and nothing else.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) ReportPending(_ context.Context, module journals.SourceModule, reference string, cause error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("journal entry pending, accounting failure tolerated",
		slog.String("module", string(module)),
		slog.String("reference", reference),
		slog.Any("error", cause))
}

// Config carries the generation policies.
type Config struct {
	// FallbackByType permits resolving a missing well-known code to the
	// first active account of the matching type.
	FallbackByType bool
	// Strict returns accounting failures to the calling workflow
	// instead of reporting them as pending.
	Strict bool
	// DefaultCurrency is used for documents that carry no currency of
	// their own (production, adjustments).
	DefaultCurrency string
}

// Hooks generates one draft journal entry per business document.
// Posting stays a separate caller-driven step.
type Hooks struct {
	journals *journals.Service
	accounts accounts.Repository
	mappings mappings.Repository
	idem     *shared.IdempotencyStore
	reporter PendingReporter
	validate *validator.Validate
	logger   *slog.Logger
	cfg      Config
}

var _ inventory.IntegrationHandler = (*Hooks)(nil)

// NewHooks wires the generators. mappings, idem and reporter may be
// nil: mappings then resolve straight to the well-known codes, the
// idempotency backstop is skipped and failures fall back to LogReporter.
func NewHooks(journalSvc *journals.Service, accountRepo accounts.Repository, mappingRepo mappings.Repository, idem *shared.IdempotencyStore, reporter PendingReporter, cfg Config, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	if reporter == nil {
		reporter = LogReporter{Logger: logger}
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	return &Hooks{
		journals: journalSvc,
		accounts: accountRepo,
		mappings: mappingRepo,
		idem:     idem,
		reporter: reporter,
		validate: validator.New(),
		logger:   logger,
		cfg:      cfg,
	}
}

// HandlePurchaseReceived books the received goods: inventory is
// debited and the supplier payable credited for the receipt total.
func (h *Hooks) HandlePurchaseReceived(ctx context.Context, evt purchasing.ReceiptEvent) error {
	if err := h.validate.Struct(evt); err != nil {
		return fmt.Errorf("integration: purchase receipt %s: %w", evt.OrderID, err)
	}
	return h.generate(ctx, journals.ModulePurchases, journals.OperationPurchase, evt.OrderID, func(ctx context.Context) (journals.EntryInput, error) {
		amount := evt.Total()
		if amount.IsZero() {
			return journals.EntryInput{}, errZeroAmount
		}
		inventoryAcc, err := h.resolveAccount(ctx, journals.ModulePurchases, "purchase.inventory", codeInventory, accounts.AccountTypeAsset)
		if err != nil {
			return journals.EntryInput{}, err
		}
		payableAcc, err := h.resolveAccount(ctx, journals.ModulePurchases, "purchase.payable", codePayable, accounts.AccountTypeLiability)
		if err != nil {
			return journals.EntryInput{}, err
		}
		description := fmt.Sprintf("Purchase receipt %s - %s", evt.OrderID, evt.SupplierName)
		return journals.EntryInput{
			Date:          evt.DeliveryDate,
			Description:   description,
			OperationType: journals.OperationPurchase,
			Module:        journals.ModulePurchases,
			Reference:     evt.OrderID,
			Currency:      evt.Lines[0].Currency,
			CreatedBy:     evt.ActorID,
			Lines: []journals.LineInput{
				{AccountCode: inventoryAcc.Code, Description: description, Debit: amount},
				{AccountCode: payableAcc.Code, Description: description, Credit: amount},
			},
		}, nil
	})
}

// HandleSaleDelivered books the delivered goods: the customer
// receivable is debited and revenue credited for the delivery total.
func (h *Hooks) HandleSaleDelivered(ctx context.Context, evt sales.DeliveryEvent) error {
	if err := h.validate.Struct(evt); err != nil {
		return fmt.Errorf("integration: sale delivery %s: %w", evt.OrderID, err)
	}
	return h.generate(ctx, journals.ModuleSales, journals.OperationSale, evt.OrderID, func(ctx context.Context) (journals.EntryInput, error) {
		amount := evt.Total()
		if amount.IsZero() {
			return journals.EntryInput{}, errZeroAmount
		}
		receivableAcc, err := h.resolveAccount(ctx, journals.ModuleSales, "sale.receivable", codeReceivable, accounts.AccountTypeAsset)
		if err != nil {
			return journals.EntryInput{}, err
		}
		revenueAcc, err := h.resolveAccount(ctx, journals.ModuleSales, "sale.revenue", codeRevenue, accounts.AccountTypeRevenue)
		if err != nil {
			return journals.EntryInput{}, err
		}
		description := fmt.Sprintf("Sale delivery %s - %s", evt.OrderID, evt.CustomerName)
		return journals.EntryInput{
			Date:          evt.IssueDate,
			Description:   description,
			OperationType: journals.OperationSale,
			Module:        journals.ModuleSales,
			Reference:     evt.OrderID,
			Currency:      evt.Lines[0].Currency,
			CreatedBy:     evt.ActorID,
			Lines: []journals.LineInput{
				{AccountCode: receivableAcc.Code, Description: description, Debit: amount},
				{AccountCode: revenueAcc.Code, Description: description, Credit: amount},
			},
		}, nil
	})
}

// HandleProductionCompleted books the value shift from raw materials
// to finished goods at the placeholder unit cost. The finished goods
// code falls back to the general inventory code before the type
// fallback applies.
func (h *Hooks) HandleProductionCompleted(ctx context.Context, evt manufacturing.CompletionEvent) error {
	if err := h.validate.Struct(evt); err != nil {
		return fmt.Errorf("integration: production completion %s: %w", evt.WorkOrderID, err)
	}
	return h.generate(ctx, journals.ModuleManufacturing, journals.OperationProduction, evt.WorkOrderID, func(ctx context.Context) (journals.EntryInput, error) {
		amount := evt.QuantityProduced.Mul(productionUnitCost).Round(2)
		if amount.IsZero() {
			return journals.EntryInput{}, errZeroAmount
		}
		finishedAcc, err := h.resolveAccountChain(ctx, journals.ModuleManufacturing, "production.finished_goods", []string{codeFinishedGoods, codeInventory}, accounts.AccountTypeAsset)
		if err != nil {
			return journals.EntryInput{}, err
		}
		rawAcc, err := h.resolveAccount(ctx, journals.ModuleManufacturing, "production.raw_materials", codeInventory, accounts.AccountTypeAsset)
		if err != nil {
			return journals.EntryInput{}, err
		}
		description := fmt.Sprintf("Production completion %s - %s", evt.WorkOrderID, evt.FinishedMaterialName)
		return journals.EntryInput{
			Date:          evt.ScheduledDate,
			Description:   description,
			OperationType: journals.OperationProduction,
			Module:        journals.ModuleManufacturing,
			Reference:     evt.WorkOrderID,
			Currency:      h.cfg.DefaultCurrency,
			CreatedBy:     evt.ActorID,
			Lines: []journals.LineInput{
				{AccountCode: finishedAcc.Code, Description: description, Debit: amount},
				{AccountCode: rawAcc.Code, Description: description, Credit: amount},
			},
		}, nil
	})
}

// HandleInventoryAdjustmentPosted books a manual stock adjustment at
// the placeholder unit cost. Inbound adjustments debit inventory and
// credit the adjustment account; outbound adjustments mirror that.
func (h *Hooks) HandleInventoryAdjustmentPosted(ctx context.Context, evt inventory.AdjustmentPostedEvent) error {
	if err := h.validate.Struct(evt); err != nil {
		return fmt.Errorf("integration: adjustment %s: %w", evt.MovementID, err)
	}
	direction, err := inventory.DirectionFromSymbol(evt.Symbol)
	if err != nil {
		return fmt.Errorf("integration: adjustment %s: %w", evt.MovementID, err)
	}
	return h.generate(ctx, journals.ModuleInventory, journals.OperationAdjustment, evt.MovementID, func(ctx context.Context) (journals.EntryInput, error) {
		amount := evt.Quantity.Abs().Mul(adjustmentUnitCost).Round(2)
		if amount.IsZero() {
			return journals.EntryInput{}, errZeroAmount
		}
		inventoryAcc, err := h.resolveAccount(ctx, journals.ModuleInventory, "adjustment.inventory", codeInventory, accounts.AccountTypeAsset)
		if err != nil {
			return journals.EntryInput{}, err
		}
		adjustmentKey := "adjustment.loss"
		if direction == inventory.DirectionInbound {
			adjustmentKey = "adjustment.gain"
		}
		adjustmentAcc, err := h.resolveAccount(ctx, journals.ModuleInventory, adjustmentKey, codeAdjustment, accounts.AccountTypeExpense)
		if err != nil {
			return journals.EntryInput{}, err
		}
		description := fmt.Sprintf("Inventory adjustment %s - %s", evt.MovementID, evt.MaterialName)
		lines := []journals.LineInput{
			{AccountCode: inventoryAcc.Code, Description: description, Debit: amount},
			{AccountCode: adjustmentAcc.Code, Description: description, Credit: amount},
		}
		if direction == inventory.DirectionOutbound {
			lines = []journals.LineInput{
				{AccountCode: adjustmentAcc.Code, Description: description, Debit: amount},
				{AccountCode: inventoryAcc.Code, Description: description, Credit: amount},
			}
		}
		return journals.EntryInput{
			Date:          evt.Date,
			Description:   description,
			OperationType: journals.OperationAdjustment,
			Module:        journals.ModuleInventory,
			Reference:     evt.MovementID,
			Currency:      h.cfg.DefaultCurrency,
			CreatedBy:     evt.ActorID,
			Lines:         lines,
		}, nil
	})
}

// generate runs the common pipeline: reference idempotency check,
// storage-level idempotency backstop, entry build, draft creation,
// failure policy.
func (h *Hooks) generate(ctx context.Context, module journals.SourceModule, op journals.OperationType, reference string, build func(context.Context) (journals.EntryInput, error)) error {
	_, exists, err := h.journals.FindByReference(ctx, reference, op)
	if err != nil {
		return h.fail(ctx, module, reference, err)
	}
	if exists {
		h.logger.Info("journal entry already exists for reference",
			slog.String("module", string(module)),
			slog.String("reference", reference))
		return nil
	}
	idemKey := strings.ToLower(string(op)) + ":" + reference
	if h.idem != nil {
		if err := h.idem.CheckAndInsert(ctx, idemKey, string(module)); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				h.logger.Info("duplicate generation suppressed",
					slog.String("module", string(module)),
					slog.String("reference", reference))
				return nil
			}
			return h.fail(ctx, module, reference, err)
		}
	}
	input, err := build(ctx)
	if err != nil {
		h.releaseKey(ctx, idemKey)
		if errors.Is(err, errZeroAmount) {
			h.logger.Info("zero-amount document skipped",
				slog.String("module", string(module)),
				slog.String("reference", reference))
			return nil
		}
		return h.fail(ctx, module, reference, err)
	}
	entry, err := h.journals.CreateDraft(ctx, input)
	if err != nil {
		h.releaseKey(ctx, idemKey)
		return h.fail(ctx, module, reference, err)
	}
	h.logger.Info("journal entry drafted",
		slog.String("entry_id", entry.EntryID),
		slog.String("module", string(module)),
		slog.String("reference", reference),
		slog.String("amount", entry.TotalDebit().StringFixed(2)))
	return nil
}

// resolveAccount walks the lookup chain: mapping row, well-known code,
// then the opt-in first-of-type fallback.
func (h *Hooks) resolveAccount(ctx context.Context, module journals.SourceModule, mappingKey, code string, t accounts.AccountType) (accounts.Account, error) {
	return h.resolveAccountChain(ctx, module, mappingKey, []string{code}, t)
}

// resolveAccountChain is resolveAccount over an ordered list of
// candidate codes. Every code is tried before the type fallback.
func (h *Hooks) resolveAccountChain(ctx context.Context, module journals.SourceModule, mappingKey string, codes []string, t accounts.AccountType) (accounts.Account, error) {
	if h.mappings != nil {
		mapping, err := h.mappings.Get(ctx, string(module), mappingKey)
		switch {
		case err == nil:
			account, err := h.accounts.GetByCode(ctx, mapping.AccountCode)
			if err == nil {
				return account, nil
			}
			if !errors.Is(err, acctshared.ErrAccountNotFound) {
				return accounts.Account{}, err
			}
			h.logger.Warn("account mapping points at missing account",
				slog.String("mapping_key", mappingKey),
				slog.String("account_code", mapping.AccountCode))
		case !errors.Is(err, acctshared.ErrMappingNotFound):
			return accounts.Account{}, err
		}
	}
	for _, code := range codes {
		account, err := h.accounts.GetByCode(ctx, code)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, acctshared.ErrAccountNotFound) {
			return accounts.Account{}, err
		}
	}
	if h.cfg.FallbackByType {
		account, err := h.accounts.FirstByType(ctx, t)
		if err == nil {
			h.logger.Warn("well-known account missing, using first of type",
				slog.String("codes", strings.Join(codes, ",")),
				slog.String("type", string(t)),
				slog.String("resolved", account.Code))
			return account, nil
		}
		if !errors.Is(err, acctshared.ErrAccountNotFound) {
			return accounts.Account{}, err
		}
	}
	return accounts.Account{}, fmt.Errorf("%w: no account for codes %s or type %s", acctshared.ErrMissingMasterData, strings.Join(codes, ","), t)
}

// fail applies the accounting failure policy: strict mode surfaces the
// error to the calling workflow, otherwise it is reported as pending
// and the workflow continues.
func (h *Hooks) fail(ctx context.Context, module journals.SourceModule, reference string, err error) error {
	if h.cfg.Strict {
		return err
	}
	h.reporter.ReportPending(ctx, module, reference, err)
	return nil
}

func (h *Hooks) releaseKey(ctx context.Context, key string) {
	if h.idem == nil {
		return
	}
	if err := h.idem.Delete(ctx, key); err != nil {
		h.logger.Warn("idempotency key release failed", slog.String("key", key), slog.Any("error", err))
	}
}
