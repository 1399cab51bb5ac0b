package sales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kimanidev/dukapos-backend/internal/ledger"
	"github.com/kimanidev/dukapos-backend/internal/localstore"
	"github.com/kimanidev/dukapos-backend/pkg/db/models"
	"github.com/kimanidev/dukapos-backend/pkg/enums"
	pkgerrors "github.com/kimanidev/dukapos-backend/pkg/errors"
	"github.com/kimanidev/dukapos-backend/pkg/logger"
)

// placeholderPrefix marks sale numbers synthesized for queued sales so the UI
// can render something stable before sync assigns the real number.
const placeholderPrefix = "PENDING-"

// Service is the single entry point for recording and mutating sales. The
// online/offline decision is invisible to callers: a successful return means
// the sale is durably recorded, either remotely or in the local queue.
type Service interface {
	RecordSale(ctx context.Context, input RecordSaleInput) (*SaleResult, error)
	UpdateSale(ctx context.Context, saleID uuid.UUID, input UpdateSaleInput) (*models.Sale, error)
	DeleteSale(ctx context.Context, saleID uuid.UUID) error
	GetSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error)
}

// SaleItemInput is one validated line of a sale.
type SaleItemInput struct {
	ProductID  uuid.UUID
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

// RecordSaleInput holds the validated payload to record a sale.
type RecordSaleInput struct {
	CustomerName  *string
	CustomerPhone *string
	TotalAmount   decimal.Decimal
	TaxAmount     decimal.Decimal
	PaymentMethod enums.PaymentMethod
	Status        enums.SaleStatus
	UserID        uuid.UUID
	Items         []SaleItemInput
}

// UpdateSaleInput holds optional mutation values for a sale.
type UpdateSaleInput struct {
	CustomerName  *string
	CustomerPhone *string
	TotalAmount   *decimal.Decimal
	Status        *enums.SaleStatus
}

// SaleResult is what the caller renders after recording. Queued reports the
// offline path: ID is then absent and SaleNumber is a placeholder.
type SaleResult struct {
	ID          *uuid.UUID
	LocalID     *uuid.UUID
	SaleNumber  string
	Status      enums.SaleStatus
	TotalAmount decimal.Decimal
	Queued      bool
	CreatedAt   time.Time
}

type remoteLedger interface {
	LedgerClient
	Transact(ctx context.Context, fn func(tx ledger.Service) error) error
	CreateSaleNumber(ctx context.Context) (string, error)
	InsertSale(ctx context.Context, sale *models.Sale) (*models.Sale, error)
	InsertSaleItems(ctx context.Context, saleID uuid.UUID, items []models.SaleItem) error
	UpdateSale(ctx context.Context, saleID uuid.UUID, fields map[string]any) error
	DeleteSale(ctx context.Context, saleID uuid.UUID) error
	FindSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error)
}

type localQueue interface {
	InsertPendingSale(ctx context.Context, input localstore.PendingSaleInput) (*models.PendingSale, error)
	AdjustCachedStock(ctx context.Context, productID uuid.UUID, delta int) error
}

type networkState interface {
	IsOnline() bool
}

type ServiceParams struct {
	Ledger  remoteLedger
	Store   localQueue
	Network networkState
	Logger  *logger.Logger
}

type service struct {
	ledger  remoteLedger
	store   localQueue
	network networkState
	effects *Effects
	logg    *logger.Logger
	nowFn   func() time.Time
}

// NewService constructs the sale recording service.
func NewService(params ServiceParams) (Service, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger client required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("local store required")
	}
	if params.Network == nil {
		return nil, fmt.Errorf("network monitor required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	effects, err := NewEffects(params.Ledger, params.Logger)
	if err != nil {
		return nil, err
	}

	return &service{
		ledger:  params.Ledger,
		store:   params.Store,
		network: params.Network,
		effects: effects,
		logg:    params.Logger,
		nowFn:   time.Now,
	}, nil
}

// RecordSale attempts the ledger when the network looks up and falls back to
// the local queue on any connectivity failure. Logic failures (the request
// itself is invalid) propagate immediately and never queue.
func (s *service) RecordSale(ctx context.Context, input RecordSaleInput) (*SaleResult, error) {
	if err := validateRecordInput(input); err != nil {
		return nil, err
	}
	s.warnOnTotalMismatch(ctx, input)

	// minted once: the remote client_ref and the local queue id are the same
	// value, so a partially-created remote row is reconciled, not duplicated
	ref := uuid.New()
	ctx = s.logg.WithLocalID(ctx, ref.String())

	if !s.network.IsOnline() {
		return s.recordLocally(ctx, ref, input)
	}

	result, err := s.recordRemotely(ctx, ref, input)
	if err == nil {
		return result, nil
	}
	if !pkgerrors.IsNetwork(err) {
		return nil, err
	}
	s.logg.Warn(ctx, "ledger unreachable mid-record, queueing sale locally")
	return s.recordLocally(ctx, ref, input)
}

func (s *service) recordRemotely(ctx context.Context, ref uuid.UUID, input RecordSaleInput) (*SaleResult, error) {
	number, err := s.ledger.CreateSaleNumber(ctx)
	if err != nil {
		return nil, err
	}

	sale := buildSale(ref, number, input)
	inserted, err := s.ledger.InsertSale(ctx, sale)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithSaleID(ctx, inserted.ID.String())
	if err := s.ledger.InsertSaleItems(ctx, inserted.ID, sale.Items); err != nil {
		if pkgerrors.IsNetwork(err) {
			// the sale row exists remotely without items; the queued record
			// shares its client_ref, so sync completes it instead of
			// duplicating it
			s.logg.Warn(ctx, "sale row created but item insert failed, deferring to sync")
		}
		return nil, err
	}

	inserted.Items = sale.Items
	if err := s.effects.ApplyNewSale(ctx, inserted); err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "sale recorded on ledger")
	id := inserted.ID
	return &SaleResult{
		ID:          &id,
		SaleNumber:  inserted.SaleNumber,
		Status:      inserted.Status,
		TotalAmount: inserted.TotalAmount,
		CreatedAt:   s.nowFn().UTC(),
	}, nil
}

func (s *service) recordLocally(ctx context.Context, ref uuid.UUID, input RecordSaleInput) (*SaleResult, error) {
	items := make(models.PendingSaleItems, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, models.PendingSaleItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}

	record, err := s.store.InsertPendingSale(ctx, localstore.PendingSaleInput{
		LocalID:       ref,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		TotalAmount:   input.TotalAmount,
		TaxAmount:     input.TaxAmount,
		PaymentMethod: input.PaymentMethod,
		Status:        input.Status,
		UserID:        input.UserID,
		Items:         items,
	})
	if err != nil {
		return nil, err
	}

	// optimistic local-only stock drain so the cached catalog tracks offline
	// sales; the authoritative deduction happens during sync
	if input.Status == enums.SaleStatusCompleted {
		for _, item := range input.Items {
			if adjErr := s.store.AdjustCachedStock(ctx, item.ProductID, -item.Quantity); adjErr != nil {
				s.logg.Error(s.logg.WithProductID(ctx, item.ProductID.String()),
					"optimistic cache stock adjustment failed", adjErr)
			}
		}
	}

	s.logg.Info(ctx, "sale queued for sync")
	localID := record.LocalID
	return &SaleResult{
		LocalID:     &localID,
		SaleNumber:  placeholderNumber(record.LocalID),
		Status:      record.Status,
		TotalAmount: record.TotalAmount,
		Queued:      true,
		CreatedAt:   record.CreatedAt,
	}, nil
}

// UpdateSale mutates a ledger sale, running the transition table for status
// changes so stock and debtor records stay consistent.
func (s *service) UpdateSale(ctx context.Context, saleID uuid.UUID, input UpdateSaleInput) (*models.Sale, error) {
	sale, err := s.ledger.FindSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithSaleID(ctx, saleID.String())

	newStatus := sale.Status
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid sale status %q", *input.Status))
		}
		newStatus = *input.Status
	}

	// snapshot with post-update fields; Status keeps the old value so the
	// transition table sees (from, to)
	updated := *sale
	fields := map[string]any{}
	if input.CustomerName != nil {
		updated.CustomerName = input.CustomerName
		fields["customer_name"] = *input.CustomerName
	}
	if input.CustomerPhone != nil {
		updated.CustomerPhone = input.CustomerPhone
		fields["customer_phone"] = *input.CustomerPhone
	}
	if input.TotalAmount != nil {
		updated.TotalAmount = *input.TotalAmount
		fields["total_amount"] = *input.TotalAmount
	}
	if newStatus != sale.Status {
		fields["status"] = newStatus
	}

	runEffects := newStatus != sale.Status ||
		(sale.Status == enums.SaleStatusPending && len(fields) > 0)

	// effects and the sale update commit as one transaction: a failed update
	// must not leave stock or debtor records moved for a transition that never
	// happened
	err = s.ledger.Transact(ctx, func(tx ledger.Service) error {
		if runEffects {
			txEffects, err := NewEffects(tx, s.logg)
			if err != nil {
				return err
			}
			if err := txEffects.ApplyTransition(ctx, &updated, newStatus); err != nil {
				return err
			}
		}
		return tx.UpdateSale(ctx, saleID, fields)
	})
	if err != nil {
		return nil, err
	}

	updated.Status = newStatus
	s.logg.Info(ctx, "sale updated")
	return &updated, nil
}

// DeleteSale restores stock first (a pure-delta no-op for sales that never
// deducted), removes any linked debtor, then the item and sale rows.
func (s *service) DeleteSale(ctx context.Context, saleID uuid.UUID) error {
	sale, err := s.ledger.FindSale(ctx, saleID)
	if err != nil {
		return err
	}
	ctx = s.logg.WithSaleID(ctx, saleID.String())

	err = s.ledger.Transact(ctx, func(tx ledger.Service) error {
		if sale.Status == enums.SaleStatusCompleted {
			if err := tx.RestoreStockForSale(ctx, saleID); err != nil {
				return err
			}
		}
		if err := tx.DeleteDebtorForSale(ctx, saleID); err != nil {
			return err
		}
		return tx.DeleteSale(ctx, saleID)
	})
	if err != nil {
		return err
	}

	s.logg.Info(ctx, "sale deleted")
	return nil
}

func (s *service) GetSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	return s.ledger.FindSale(ctx, saleID)
}

func (s *service) warnOnTotalMismatch(ctx context.Context, input RecordSaleInput) {
	sum := decimal.Zero
	for _, item := range input.Items {
		sum = sum.Add(item.TotalPrice)
	}
	// tolerated, not rejected: discounts and rounding legitimately skew the
	// recorded total away from the line sum
	if !sum.Equal(input.TotalAmount) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"item_total":  sum.String(),
			"sale_total":  input.TotalAmount.String(),
			"item_count":  len(input.Items),
			"sale_status": input.Status,
		}), "sale total does not match item line sum")
	}
}

func validateRecordInput(input RecordSaleInput) error {
	if !input.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid sale status %q", input.Status))
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "a sale needs at least one item")
	}
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: product id is required", i))
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity must be positive", i))
		}
	}
	if input.TotalAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "total amount must not be negative")
	}
	return nil
}

func buildSale(ref uuid.UUID, number string, input RecordSaleInput) *models.Sale {
	clientRef := ref
	sale := &models.Sale{
		SaleNumber:    number,
		ClientRef:     &clientRef,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		TotalAmount:   input.TotalAmount,
		TaxAmount:     input.TaxAmount,
		PaymentMethod: input.PaymentMethod,
		Status:        input.Status,
		UserID:        input.UserID,
	}
	for _, item := range input.Items {
		sale.Items = append(sale.Items, models.SaleItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}
	return sale
}

// placeholderNumber synthesizes the interim sale number from the first
// segment of the local id, e.g. PENDING-9f8e7a6b.
func placeholderNumber(localID uuid.UUID) string {
	return placeholderPrefix + strings.SplitN(localID.String(), "-", 2)[0]
}
