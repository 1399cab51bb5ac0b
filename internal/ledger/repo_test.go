package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kimanidev/dukapos-backend/pkg/db/models"
	"github.com/kimanidev/dukapos-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS sales (
  id TEXT PRIMARY KEY,
  sale_number TEXT NOT NULL UNIQUE,
  client_ref TEXT UNIQUE,
  customer_name TEXT,
  customer_phone TEXT,
  total_amount NUMERIC NOT NULL,
  tax_amount NUMERIC NOT NULL,
  payment_method TEXT NOT NULL DEFAULT 'cash',
  status TEXT NOT NULL DEFAULT 'completed',
  user_id TEXT NOT NULL,
  terminal_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS sale_items (
  id TEXT PRIMARY KEY,
  sale_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  total_price NUMERIC NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  cost_price NUMERIC NOT NULL,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  min_stock_level INTEGER NOT NULL DEFAULT 0,
  unit TEXT NOT NULL DEFAULT 'pcs',
  supplier_id TEXT,
  barcode TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS debtors (
  id TEXT PRIMARY KEY,
  sale_id TEXT NOT NULL UNIQUE,
  customer_name TEXT NOT NULL,
  customer_phone TEXT,
  amount NUMERIC NOT NULL,
  user_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS debtor_items (
  id TEXT PRIMARY KEY,
  debtor_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  total_price NUMERIC NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS sale_counters (
  id INTEGER PRIMARY KEY,
  next_number INTEGER NOT NULL DEFAULT 1
);`,
		`INSERT INTO sale_counters (id, next_number) VALUES (1, 1);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func testSale(clientRef *uuid.UUID) *models.Sale {
	return &models.Sale{
		ID:            uuid.New(),
		SaleNumber:    "SALE-" + uuid.NewString()[:8],
		ClientRef:     clientRef,
		TotalAmount:   decimal.NewFromInt(500),
		TaxAmount:     decimal.NewFromInt(0),
		PaymentMethod: enums.PaymentMethodCash,
		Status:        enums.SaleStatusCompleted,
		UserID:        uuid.New(),
	}
}

func TestNextSaleNumberIncrements(t *testing.T) {
	repo := NewRepository(setupLedgerTestDB(t))
	ctx := context.Background()

	first, err := repo.NextSaleNumber(ctx)
	require.NoError(t, err)
	second, err := repo.NextSaleNumber(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
}

func TestCreateSaleDeduplicatesByClientRef(t *testing.T) {
	repo := NewRepository(setupLedgerTestDB(t))
	ctx := context.Background()

	ref := uuid.New()
	created, err := repo.CreateSale(ctx, testSale(&ref))
	require.NoError(t, err)
	assert.True(t, created)

	retry := testSale(&ref)
	created, err = repo.CreateSale(ctx, retry)
	require.NoError(t, err)
	assert.False(t, created, "second insert with same client_ref must be a no-op")

	existing, err := repo.FindSaleByClientRef(ctx, ref)
	require.NoError(t, err)
	assert.NotEqual(t, retry.ID, existing.ID)
}

func TestReplaceSaleItemsIsIdempotent(t *testing.T) {
	repo := NewRepository(setupLedgerTestDB(t))
	ctx := context.Background()

	sale := testSale(nil)
	_, err := repo.CreateSale(ctx, sale)
	require.NoError(t, err)

	items := []models.SaleItem{
		{
			ID:         uuid.New(),
			ProductID:  uuid.New(),
			Quantity:   2,
			UnitPrice:  decimal.NewFromInt(250),
			TotalPrice: decimal.NewFromInt(500),
		},
	}
	require.NoError(t, repo.ReplaceSaleItems(ctx, sale.ID, items))

	// a retry replaces rather than appends
	items[0].ID = uuid.New()
	require.NoError(t, repo.ReplaceSaleItems(ctx, sale.ID, items))

	loaded, err := repo.FindSaleByID(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, 2, loaded.Items[0].Quantity)
}

func TestAdjustStockAppliesDelta(t *testing.T) {
	conn := setupLedgerTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	product := models.Product{
		ID:            uuid.New(),
		Name:          "Chai",
		Category:      "beverages",
		UnitPrice:     decimal.NewFromInt(50),
		CostPrice:     decimal.NewFromInt(30),
		StockQuantity: 10,
	}
	require.NoError(t, conn.Create(&product).Error)

	affected, err := repo.AdjustStock(ctx, product.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.AdjustStock(ctx, product.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 8, reloaded.StockQuantity)

	affected, err = repo.AdjustStock(ctx, uuid.New(), -1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected, "missing product adjusts zero rows")
}

func TestTransactRollsBackOnError(t *testing.T) {
	conn := setupLedgerTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	product := models.Product{
		ID:            uuid.New(),
		Name:          "Unga",
		Category:      "staples",
		UnitPrice:     decimal.NewFromInt(120),
		CostPrice:     decimal.NewFromInt(90),
		StockQuantity: 10,
	}
	require.NoError(t, conn.Create(&product).Error)

	sale := testSale(nil)
	_, err := repo.CreateSale(ctx, sale)
	require.NoError(t, err)

	boom := errors.New("update rejected")
	err = repo.Transact(ctx, func(tx Repository) error {
		affected, err := tx.AdjustStock(ctx, product.ID, -4)
		require.NoError(t, err)
		require.Equal(t, int64(1), affected)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 10, reloaded.StockQuantity, "failed transaction left stock untouched")

	// a clean run commits
	require.NoError(t, repo.Transact(ctx, func(tx Repository) error {
		_, err := tx.AdjustStock(ctx, product.ID, -4)
		return err
	}))
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 6, reloaded.StockQuantity)
}

func TestDebtorLifecycle(t *testing.T) {
	repo := NewRepository(setupLedgerTestDB(t))
	ctx := context.Background()

	saleID := uuid.New()
	debtor := &models.Debtor{
		ID:           uuid.New(),
		SaleID:       saleID,
		CustomerName: "Wanjiku",
		Amount:       decimal.NewFromInt(750),
		UserID:       uuid.New(),
		Items: []models.DebtorItem{
			{
				ID:         uuid.New(),
				ProductID:  uuid.New(),
				Quantity:   3,
				UnitPrice:  decimal.NewFromInt(250),
				TotalPrice: decimal.NewFromInt(750),
			},
		},
	}
	require.NoError(t, repo.CreateDebtor(ctx, debtor))

	require.NoError(t, repo.UpdateDebtorFields(ctx, saleID, map[string]any{
		"customer_name": "Wanjiku N.",
		"amount":        decimal.NewFromInt(800),
	}))

	require.NoError(t, repo.DeleteDebtorBySale(ctx, saleID))
	// deleting again is a no-op
	require.NoError(t, repo.DeleteDebtorBySale(ctx, saleID))
}

func TestDeleteSaleRemovesItems(t *testing.T) {
	conn := setupLedgerTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	sale := testSale(nil)
	_, err := repo.CreateSale(ctx, sale)
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceSaleItems(ctx, sale.ID, []models.SaleItem{
		{ID: uuid.New(), ProductID: uuid.New(), Quantity: 1,
			UnitPrice: decimal.NewFromInt(100), TotalPrice: decimal.NewFromInt(100)},
	}))

	require.NoError(t, repo.DeleteSale(ctx, sale.ID))

	var saleCount, itemCount int64
	require.NoError(t, conn.Model(&models.Sale{}).Count(&saleCount).Error)
	require.NoError(t, conn.Model(&models.SaleItem{}).Count(&itemCount).Error)
	assert.Zero(t, saleCount)
	assert.Zero(t, itemCount)
}
