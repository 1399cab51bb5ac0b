package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kimanidev/dukapos-backend/pkg/db"
	"github.com/kimanidev/dukapos-backend/pkg/db/models"
	pkgerrors "github.com/kimanidev/dukapos-backend/pkg/errors"
	"github.com/kimanidev/dukapos-backend/pkg/logger"
)

// saleNumberFormat yields human-readable identifiers like SALE-000042.
const saleNumberFormat = "SALE-%06d"

// Service is the contract to the remote system of record. Every method
// returns errors from the typed taxonomy: CodeNetwork for connectivity-class
// failures (retryable, offline fallback) and logic codes for everything the
// ledger itself rejected.
type Service interface {
	Ping(ctx context.Context) error
	Transact(ctx context.Context, fn func(tx Service) error) error
	CreateSaleNumber(ctx context.Context) (string, error)
	InsertSale(ctx context.Context, sale *models.Sale) (*models.Sale, error)
	InsertSaleItems(ctx context.Context, saleID uuid.UUID, items []models.SaleItem) error
	UpdateSale(ctx context.Context, saleID uuid.UUID, fields map[string]any) error
	DeleteSale(ctx context.Context, saleID uuid.UUID) error
	FindSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error)
	AdjustProductStock(ctx context.Context, productID uuid.UUID, delta int) error
	RestoreStockForSale(ctx context.Context, saleID uuid.UUID) error
	CreateDebtor(ctx context.Context, debtor *models.Debtor) error
	UpdateDebtorForSale(ctx context.Context, saleID uuid.UUID, customerName string, customerPhone *string, amount decimal.Decimal) error
	DeleteDebtorForSale(ctx context.Context, saleID uuid.UUID) error
	FetchAllProducts(ctx context.Context) ([]models.Product, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type ServiceParams struct {
	Repository Repository
	Pinger     pinger
	Logger     *logger.Logger
}

type service struct {
	repo   Repository
	pinger pinger
	logg   *logger.Logger
}

// NewService constructs the ledger client.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Pinger == nil {
		return nil, fmt.Errorf("ledger pinger required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   params.Repository,
		pinger: params.Pinger,
		logg:   params.Logger,
	}, nil
}

func (s *service) Ping(ctx context.Context) error {
	return s.pinger.Ping(ctx)
}

// Transact runs fn against a tx-scoped clone of the service so multi-step
// mutations (a status transition's stock/debtor effects plus the sale update)
// commit or roll back as one unit.
func (s *service) Transact(ctx context.Context, fn func(tx Service) error) error {
	err := s.repo.Transact(ctx, func(txRepo Repository) error {
		return fn(&service{repo: txRepo, pinger: s.pinger, logg: s.logg})
	})
	return db.ClassifyRemote(err, "ledger transaction")
}

func (s *service) CreateSaleNumber(ctx context.Context) (string, error) {
	claimed, err := s.repo.NextSaleNumber(ctx)
	if err != nil {
		return "", db.ClassifyRemote(err, "claiming sale number")
	}
	return fmt.Sprintf(saleNumberFormat, claimed), nil
}

// InsertSale creates the sale row. When the sale carries a client_ref and a
// row with that ref already exists (a retried sync after partial failure),
// the existing row is returned instead of a duplicate.
func (s *service) InsertSale(ctx context.Context, sale *models.Sale) (*models.Sale, error) {
	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return nil, db.ClassifyRemote(err, "inserting sale")
	}
	if created {
		return sale, nil
	}

	existing, err := s.repo.FindSaleByClientRef(ctx, *sale.ClientRef)
	if err != nil {
		return nil, db.ClassifyRemote(err, "loading deduplicated sale")
	}
	s.logg.Info(s.logg.WithSaleID(ctx, existing.ID.String()), "sale insert deduplicated by client ref")
	return existing, nil
}

func (s *service) InsertSaleItems(ctx context.Context, saleID uuid.UUID, items []models.SaleItem) error {
	if err := s.repo.ReplaceSaleItems(ctx, saleID, items); err != nil {
		return db.ClassifyRemote(err, "inserting sale items")
	}
	return nil
}

func (s *service) UpdateSale(ctx context.Context, saleID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.repo.UpdateSaleFields(ctx, saleID, fields); err != nil {
		return db.ClassifyRemote(err, "updating sale")
	}
	return nil
}

func (s *service) DeleteSale(ctx context.Context, saleID uuid.UUID) error {
	if err := s.repo.DeleteSale(ctx, saleID); err != nil {
		return db.ClassifyRemote(err, "deleting sale")
	}
	return nil
}

func (s *service) FindSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	sale, err := s.repo.FindSaleByID(ctx, saleID)
	if err != nil {
		return nil, db.ClassifyRemote(err, "loading sale")
	}
	return sale, nil
}

// AdjustProductStock applies an atomic delta. Adjusting a product the ledger
// no longer knows is a logic failure, not a retryable one.
func (s *service) AdjustProductStock(ctx context.Context, productID uuid.UUID, delta int) error {
	affected, err := s.repo.AdjustStock(ctx, productID, delta)
	if err != nil {
		return db.ClassifyRemote(err, "adjusting product stock")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound,
			fmt.Sprintf("product %s not found for stock adjustment", productID))
	}
	return nil
}

// RestoreStockForSale re-reads the sale's items and reverses their deduction.
// The adjustment is a pure delta, so restoring a sale that never deducted is
// the caller's transition table's concern, not this method's.
func (s *service) RestoreStockForSale(ctx context.Context, saleID uuid.UUID) error {
	sale, err := s.FindSale(ctx, saleID)
	if err != nil {
		return err
	}
	for _, item := range sale.Items {
		if err := s.AdjustProductStock(ctx, item.ProductID, item.Quantity); err != nil {
			if pkgerrors.IsLogic(err) {
				// product deleted server-side: nothing left to restore into
				s.logg.Warn(s.logg.WithProductID(ctx, item.ProductID.String()),
					"skipping stock restore for missing product")
				continue
			}
			return err
		}
	}
	return nil
}

func (s *service) CreateDebtor(ctx context.Context, debtor *models.Debtor) error {
	if err := s.repo.CreateDebtor(ctx, debtor); err != nil {
		return db.ClassifyRemote(err, "creating debtor")
	}
	return nil
}

func (s *service) UpdateDebtorForSale(ctx context.Context, saleID uuid.UUID, customerName string, customerPhone *string, amount decimal.Decimal) error {
	fields := map[string]any{
		"customer_name":  customerName,
		"customer_phone": customerPhone,
		"amount":         amount,
	}
	if err := s.repo.UpdateDebtorFields(ctx, saleID, fields); err != nil {
		return db.ClassifyRemote(err, "updating debtor")
	}
	return nil
}

func (s *service) DeleteDebtorForSale(ctx context.Context, saleID uuid.UUID) error {
	if err := s.repo.DeleteDebtorBySale(ctx, saleID); err != nil {
		return db.ClassifyRemote(err, "deleting debtor")
	}
	return nil
}

func (s *service) FetchAllProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, db.ClassifyRemote(err, "fetching products")
	}
	return products, nil
}
