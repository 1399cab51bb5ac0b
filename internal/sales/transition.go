package sales

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kimanidev/dukapos-backend/pkg/db/models"
	"github.com/kimanidev/dukapos-backend/pkg/enums"
	pkgerrors "github.com/kimanidev/dukapos-backend/pkg/errors"
	"github.com/kimanidev/dukapos-backend/pkg/logger"
)

// effect is one stock or debtor side effect triggered by a status change.
type effect int

const (
	effectRemoveDebtor effect = iota
	effectCreateDebtor
	effectDeductStock
	effectRestoreStock
	effectSyncDebtorFields
)

type transitionKey struct {
	from enums.SaleStatus
	to   enums.SaleStatus
}

// transitionEffects is the full status matrix. Keeping it as a table (rather
// than branching inline) makes the stock/debtor invariants auditable: the net
// stock delta of any transition chain equals that of the direct transition.
var transitionEffects = map[transitionKey][]effect{
	{enums.SaleStatusPending, enums.SaleStatusCompleted}:   {effectRemoveDebtor, effectDeductStock},
	{enums.SaleStatusPending, enums.SaleStatusCancelled}:   {effectRemoveDebtor},
	{enums.SaleStatusPending, enums.SaleStatusPending}:     {effectSyncDebtorFields},
	{enums.SaleStatusCompleted, enums.SaleStatusPending}:   {effectRestoreStock, effectCreateDebtor},
	{enums.SaleStatusCompleted, enums.SaleStatusCancelled}: {effectRestoreStock},
	{enums.SaleStatusCompleted, enums.SaleStatusCompleted}: {},
	{enums.SaleStatusCancelled, enums.SaleStatusPending}:   {effectCreateDebtor},
	{enums.SaleStatusCancelled, enums.SaleStatusCompleted}: {effectDeductStock},
	{enums.SaleStatusCancelled, enums.SaleStatusCancelled}: {},
}

func effectsFor(from, to enums.SaleStatus) ([]effect, error) {
	effects, ok := transitionEffects[transitionKey{from: from, to: to}]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("no transition from %s to %s", from, to))
	}
	return effects, nil
}

// LedgerClient is the slice of the ledger surface the effects runner needs.
type LedgerClient interface {
	AdjustProductStock(ctx context.Context, productID uuid.UUID, delta int) error
	RestoreStockForSale(ctx context.Context, saleID uuid.UUID) error
	CreateDebtor(ctx context.Context, debtor *models.Debtor) error
	UpdateDebtorForSale(ctx context.Context, saleID uuid.UUID, customerName string, customerPhone *string, amount decimal.Decimal) error
	DeleteDebtorForSale(ctx context.Context, saleID uuid.UUID) error
}

// Effects executes stock and debtor side effects against the ledger. It is
// shared by the synchronous record/update paths and the sync engine so both
// apply identical business rules.
type Effects struct {
	ledger LedgerClient
	logg   *logger.Logger
}

func NewEffects(ledger LedgerClient, logg *logger.Logger) (*Effects, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Effects{ledger: ledger, logg: logg}, nil
}

// ApplyNewSale runs the side effects of a freshly inserted sale: completed
// sales deduct stock exactly once; pending sales with a positive amount get a
// mirrored debtor record. Debtor creation is best-effort; its failure never
// fails the sale.
func (e *Effects) ApplyNewSale(ctx context.Context, sale *models.Sale) error {
	switch sale.Status {
	case enums.SaleStatusCompleted:
		return e.deductStock(ctx, sale)
	case enums.SaleStatusPending:
		e.createDebtorBestEffort(ctx, sale)
	}
	return nil
}

// ApplyTransition runs the table-driven effects for a status change. The sale
// must carry its post-update field values with Status still holding the old
// status; `to` is the new status.
func (e *Effects) ApplyTransition(ctx context.Context, sale *models.Sale, to enums.SaleStatus) error {
	effects, err := effectsFor(sale.Status, to)
	if err != nil {
		return err
	}

	for _, eff := range effects {
		switch eff {
		case effectRemoveDebtor:
			if err := e.ledger.DeleteDebtorForSale(ctx, sale.ID); err != nil {
				return err
			}
		case effectCreateDebtor:
			e.createDebtorBestEffort(ctx, sale)
		case effectDeductStock:
			if err := e.deductStock(ctx, sale); err != nil {
				return err
			}
		case effectRestoreStock:
			if err := e.ledger.RestoreStockForSale(ctx, sale.ID); err != nil {
				return err
			}
		case effectSyncDebtorFields:
			name := ""
			if sale.CustomerName != nil {
				name = *sale.CustomerName
			}
			if err := e.ledger.UpdateDebtorForSale(ctx, sale.ID, name, sale.CustomerPhone, sale.TotalAmount); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Effects) deductStock(ctx context.Context, sale *models.Sale) error {
	for _, item := range sale.Items {
		if err := e.ledger.AdjustProductStock(ctx, item.ProductID, -item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (e *Effects) createDebtorBestEffort(ctx context.Context, sale *models.Sale) {
	ctx = e.logg.WithSaleID(ctx, sale.ID.String())

	if !sale.TotalAmount.IsPositive() {
		e.logg.Warn(ctx, "skipping debtor creation for non-positive sale amount")
		return
	}

	name := ""
	if sale.CustomerName != nil {
		name = *sale.CustomerName
	}
	debtor := &models.Debtor{
		SaleID:        sale.ID,
		CustomerName:  name,
		CustomerPhone: sale.CustomerPhone,
		Amount:        sale.TotalAmount,
		UserID:        sale.UserID,
	}
	for _, item := range sale.Items {
		debtor.Items = append(debtor.Items, models.DebtorItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}

	if err := e.ledger.CreateDebtor(ctx, debtor); err != nil {
		e.logg.Error(ctx, "debtor creation failed, sale recorded without it",
			pkgerrors.Wrap(pkgerrors.CodeSecondary, err, "creating debtor"))
	}
}
