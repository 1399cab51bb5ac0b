package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kimanidev/dukapos-backend/pkg/db/models"
)

// Repository is the raw data access surface against the ledger database.
// Errors come back untranslated; the service layer classifies them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Transact(ctx context.Context, fn func(tx Repository) error) error
	NextSaleNumber(ctx context.Context) (int64, error)
	CreateSale(ctx context.Context, sale *models.Sale) (created bool, err error)
	FindSaleByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	FindSaleByClientRef(ctx context.Context, clientRef uuid.UUID) (*models.Sale, error)
	UpdateSaleFields(ctx context.Context, saleID uuid.UUID, fields map[string]any) error
	DeleteSale(ctx context.Context, saleID uuid.UUID) error
	ReplaceSaleItems(ctx context.Context, saleID uuid.UUID, items []models.SaleItem) error
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (int64, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	CreateDebtor(ctx context.Context, debtor *models.Debtor) error
	UpdateDebtorFields(ctx context.Context, saleID uuid.UUID, fields map[string]any) error
	DeleteDebtorBySale(ctx context.Context, saleID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Transact runs fn against a tx-bound clone of the repository. fn returning an
// error rolls every write back.
func (r *repository) Transact(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// NextSaleNumber claims the next value from the single-row counter in one
// atomic statement, so concurrent terminals never receive the same number.
func (r *repository) NextSaleNumber(ctx context.Context) (int64, error) {
	var claimed int64
	err := r.db.WithContext(ctx).
		Raw("UPDATE sale_counters SET next_number = next_number + 1 WHERE id = 1 RETURNING next_number - 1").
		Scan(&claimed).Error
	if err != nil {
		return 0, err
	}
	return claimed, nil
}

// CreateSale inserts the sale row, deduplicating on client_ref. Returns false
// when a row with the same client_ref already existed.
func (r *repository) CreateSale(ctx context.Context, sale *models.Sale) (bool, error) {
	query := r.db.WithContext(ctx).Omit("Items")
	if sale.ClientRef != nil {
		query = query.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_ref"}},
			DoNothing: true,
		})
	}
	result := query.Create(sale)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindSaleByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) FindSaleByClientRef(ctx context.Context, clientRef uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("client_ref = ?", clientRef).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) UpdateSaleFields(ctx context.Context, saleID uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ?", saleID).
		Updates(fields).Error
}

func (r *repository) DeleteSale(ctx context.Context, saleID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sale_id = ?", saleID).Delete(&models.SaleItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", saleID).Delete(&models.Sale{}).Error
	})
}

// ReplaceSaleItems makes item insertion idempotent: delete-then-insert inside
// one transaction, so a retried record never duplicates lines.
func (r *repository) ReplaceSaleItems(ctx context.Context, saleID uuid.UUID, items []models.SaleItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sale_id = ?", saleID).Delete(&models.SaleItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].SaleID = saleID
		}
		return tx.Create(&items).Error
	})
}

// AdjustStock applies a pure delta; the returned row count tells the caller
// whether the product still exists.
func (r *repository) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	return result.RowsAffected, result.Error
}

func (r *repository) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Order("name ASC").Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) CreateDebtor(ctx context.Context, debtor *models.Debtor) error {
	return r.db.WithContext(ctx).Create(debtor).Error
}

func (r *repository) UpdateDebtorFields(ctx context.Context, saleID uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Debtor{}).
		Where("sale_id = ?", saleID).
		Updates(fields).Error
}

func (r *repository) DeleteDebtorBySale(ctx context.Context, saleID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var debtor models.Debtor
		err := tx.Where("sale_id = ?", saleID).First(&debtor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("debtor_id = ?", debtor.ID).Delete(&models.DebtorItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", debtor.ID).Delete(&models.Debtor{}).Error
	})
}
