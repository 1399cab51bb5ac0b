package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimanidev/dukapos-backend/internal/netwatch"
	"github.com/kimanidev/dukapos-backend/internal/syncengine"
	"github.com/kimanidev/dukapos-backend/pkg/config"
	"github.com/kimanidev/dukapos-backend/pkg/db/models"
	pkgerrors "github.com/kimanidev/dukapos-backend/pkg/errors"
	"github.com/kimanidev/dukapos-backend/pkg/logger"
)

type stubFetcher struct {
	fetchFn func(ctx context.Context) ([]models.Product, error)
}

func (s *stubFetcher) FetchAllProducts(ctx context.Context) ([]models.Product, error) {
	if s.fetchFn == nil {
		panic("FetchAllProducts not implemented")
	}
	return s.fetchFn(ctx)
}

type stubSnapshot struct {
	replaceFn func(ctx context.Context, products []models.CachedProduct) error
	staleFn   func(ctx context.Context) (bool, error)
}

func (s *stubSnapshot) ReplaceProductCache(ctx context.Context, products []models.CachedProduct) error {
	if s.replaceFn == nil {
		panic("ReplaceProductCache not implemented")
	}
	return s.replaceFn(ctx, products)
}

func (s *stubSnapshot) ListCachedProducts(context.Context) ([]models.CachedProduct, error) {
	panic("ListCachedProducts not implemented")
}

func (s *stubSnapshot) GetCachedProduct(context.Context, uuid.UUID) (*models.CachedProduct, error) {
	panic("GetCachedProduct not implemented")
}

func (s *stubSnapshot) IsCacheStale(ctx context.Context) (bool, error) {
	if s.staleFn == nil {
		panic("IsCacheStale not implemented")
	}
	return s.staleFn(ctx)
}

type stubEvents struct {
	listener netwatch.Listener
}

func (s *stubEvents) Subscribe(fn netwatch.Listener) func() {
	s.listener = fn
	return func() { s.listener = nil }
}

type stubSyncer struct {
	calls int
}

func (s *stubSyncer) SyncPendingSales(context.Context) (syncengine.Progress, error) {
	s.calls++
	return syncengine.Progress{}, nil
}

func newCatalogService(t *testing.T, fetcher *stubFetcher, store *stubSnapshot, events *stubEvents, syncer *stubSyncer) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Config: config.CacheConfig{
			RefreshMaxRetries: 2,
			RefreshRetryDelay: time.Millisecond,
		},
		Ledger:  fetcher,
		Store:   store,
		Network: events,
		Syncer:  syncer,
		Logger:  logger.New(logger.Options{Level: logger.ParseLevel("error")}),
	})
	require.NoError(t, err)
	return svc
}

func TestRefreshProductCacheReplacesSnapshot(t *testing.T) {
	productID := uuid.New()
	supplierID := uuid.New()
	fetcher := &stubFetcher{
		fetchFn: func(context.Context) ([]models.Product, error) {
			return []models.Product{{
				ID:            productID,
				Name:          "Chai",
				Category:      "beverages",
				UnitPrice:     decimal.NewFromInt(50),
				CostPrice:     decimal.NewFromInt(30),
				StockQuantity: 12,
				MinStockLevel: 3,
				Unit:          "pcs",
				SupplierID:    &supplierID,
			}}, nil
		},
	}

	var replaced []models.CachedProduct
	store := &stubSnapshot{
		replaceFn: func(_ context.Context, products []models.CachedProduct) error {
			replaced = products
			return nil
		},
	}
	svc := newCatalogService(t, fetcher, store, &stubEvents{}, &stubSyncer{})

	require.NoError(t, svc.RefreshProductCache(context.Background()))
	require.Len(t, replaced, 1)
	assert.Equal(t, productID, replaced[0].ID)
	assert.Equal(t, "Chai", replaced[0].Name)
	assert.Equal(t, 12, replaced[0].StockQuantity)
	assert.Equal(t, &supplierID, replaced[0].SupplierID)
}

func TestRefreshRetriesConnectivityFailures(t *testing.T) {
	attempts := 0
	fetcher := &stubFetcher{
		fetchFn: func(context.Context) ([]models.Product, error) {
			attempts++
			if attempts < 3 {
				return nil, pkgerrors.New(pkgerrors.CodeNetwork, "connection reset")
			}
			return []models.Product{}, nil
		},
	}
	store := &stubSnapshot{
		replaceFn: func(context.Context, []models.CachedProduct) error { return nil },
	}
	svc := newCatalogService(t, fetcher, store, &stubEvents{}, &stubSyncer{})

	require.NoError(t, svc.RefreshProductCache(context.Background()))
	assert.Equal(t, 3, attempts)
}

func TestRefreshDoesNotRetryLogicFailures(t *testing.T) {
	attempts := 0
	fetcher := &stubFetcher{
		fetchFn: func(context.Context) ([]models.Product, error) {
			attempts++
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "schema drift")
		},
	}
	svc := newCatalogService(t, fetcher, &stubSnapshot{}, &stubEvents{}, &stubSyncer{})

	err := svc.RefreshProductCache(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRefreshIfStale(t *testing.T) {
	fetched := 0
	fetcher := &stubFetcher{
		fetchFn: func(context.Context) ([]models.Product, error) {
			fetched++
			return nil, nil
		},
	}
	stale := false
	store := &stubSnapshot{
		staleFn:   func(context.Context) (bool, error) { return stale, nil },
		replaceFn: func(context.Context, []models.CachedProduct) error { return nil },
	}
	svc := newCatalogService(t, fetcher, store, &stubEvents{}, &stubSyncer{})
	ctx := context.Background()

	refreshed, err := svc.RefreshIfStale(ctx)
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Zero(t, fetched)

	stale = true
	refreshed, err = svc.RefreshIfStale(ctx)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, 1, fetched)
}

func TestSetupAutoSyncRefreshesThenSyncs(t *testing.T) {
	var order []string
	fetcher := &stubFetcher{
		fetchFn: func(context.Context) ([]models.Product, error) {
			order = append(order, "refresh")
			return nil, nil
		},
	}
	store := &stubSnapshot{
		replaceFn: func(context.Context, []models.CachedProduct) error { return nil },
	}
	events := &stubEvents{}
	syncer := &orderedSyncer{order: &order}
	svc, err := NewService(ServiceParams{
		Ledger:  fetcher,
		Store:   store,
		Network: events,
		Syncer:  syncer,
		Logger:  logger.New(logger.Options{Level: logger.ParseLevel("error")}),
	})
	require.NoError(t, err)

	unsubscribe := svc.SetupAutoSync(context.Background())
	require.NotNil(t, events.listener)

	events.listener(false) // going offline triggers nothing
	assert.Empty(t, order)

	events.listener(true)
	assert.Equal(t, []string{"refresh", "sync"}, order)

	unsubscribe()
	assert.Nil(t, events.listener)
}

func TestSetupAutoSyncStopsAfterShutdown(t *testing.T) {
	fetcher := &stubFetcher{
		fetchFn: func(context.Context) ([]models.Product, error) {
			t.Fatal("refresh must not run after shutdown")
			return nil, nil
		},
	}
	events := &stubEvents{}
	svc := newCatalogService(t, fetcher, &stubSnapshot{}, events, &stubSyncer{})

	ctx, cancel := context.WithCancel(context.Background())
	unsubscribe := svc.SetupAutoSync(ctx)
	defer unsubscribe()
	require.NotNil(t, events.listener)

	cancel()
	events.listener(true)
}

type orderedSyncer struct {
	order *[]string
}

func (s *orderedSyncer) SyncPendingSales(context.Context) (syncengine.Progress, error) {
	*s.order = append(*s.order, "sync")
	return syncengine.Progress{}, nil
}
