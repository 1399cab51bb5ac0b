package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/kimanidev/dukapos-backend/internal/netwatch"
	"github.com/kimanidev/dukapos-backend/internal/syncengine"
	"github.com/kimanidev/dukapos-backend/pkg/config"
	"github.com/kimanidev/dukapos-backend/pkg/db/models"
	pkgerrors "github.com/kimanidev/dukapos-backend/pkg/errors"
	"github.com/kimanidev/dukapos-backend/pkg/logger"
)

const (
	defaultMaxRetries   = 3
	defaultRetryDelay   = 500 * time.Millisecond
	defaultRefreshEvery = 15 * time.Minute
)

// Service keeps the local product snapshot usable for offline price and
// stock lookups.
type Service interface {
	RefreshProductCache(ctx context.Context) error
	RefreshIfStale(ctx context.Context) (bool, error)
	ListProducts(ctx context.Context) ([]models.CachedProduct, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.CachedProduct, error)
	SetupAutoSync(ctx context.Context) func()
	Run(ctx context.Context) error
}

type productFetcher interface {
	FetchAllProducts(ctx context.Context) ([]models.Product, error)
}

type snapshotStore interface {
	ReplaceProductCache(ctx context.Context, products []models.CachedProduct) error
	ListCachedProducts(ctx context.Context) ([]models.CachedProduct, error)
	GetCachedProduct(ctx context.Context, id uuid.UUID) (*models.CachedProduct, error)
	IsCacheStale(ctx context.Context) (bool, error)
}

type onlineEvents interface {
	Subscribe(fn netwatch.Listener) func()
}

type saleSyncer interface {
	SyncPendingSales(ctx context.Context) (syncengine.Progress, error)
}

type ServiceParams struct {
	Config  config.CacheConfig
	Ledger  productFetcher
	Store   snapshotStore
	Network onlineEvents
	Syncer  saleSyncer
	Logger  *logger.Logger
}

type service struct {
	cfg     config.CacheConfig
	ledger  productFetcher
	store   snapshotStore
	network onlineEvents
	syncer  saleSyncer
	logg    *logger.Logger
}

// NewService constructs the cache refresh service.
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
	if params.Syncer == nil {
		return nil, fmt.Errorf("sync engine required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	cfg := params.Config
	if cfg.RefreshMaxRetries == 0 {
		cfg.RefreshMaxRetries = defaultMaxRetries
	}
	if cfg.RefreshRetryDelay <= 0 {
		cfg.RefreshRetryDelay = defaultRetryDelay
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshEvery
	}

	return &service{
		cfg:     cfg,
		ledger:  params.Ledger,
		store:   params.Store,
		network: params.Network,
		syncer:  params.Syncer,
		logg:    params.Logger,
	}, nil
}

// RefreshProductCache fetches the full catalog and atomically replaces the
// snapshot. Connectivity failures get a bounded exponential backoff before
// giving up; logic failures abort immediately.
func (s *service) RefreshProductCache(ctx context.Context) error {
	var products []models.Product

	backoff := retry.WithMaxRetries(s.cfg.RefreshMaxRetries, retry.NewExponential(s.cfg.RefreshRetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		fetched, err := s.ledger.FetchAllProducts(ctx)
		if err != nil {
			if pkgerrors.IsNetwork(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		products = fetched
		return nil
	})
	if err != nil {
		return err
	}

	snapshot := make([]models.CachedProduct, 0, len(products))
	for _, product := range products {
		snapshot = append(snapshot, models.CachedProduct{
			ID:            product.ID,
			Name:          product.Name,
			Category:      product.Category,
			UnitPrice:     product.UnitPrice,
			CostPrice:     product.CostPrice,
			StockQuantity: product.StockQuantity,
			MinStockLevel: product.MinStockLevel,
			Unit:          product.Unit,
			SupplierID:    product.SupplierID,
			Barcode:       product.Barcode,
		})
	}

	if err := s.store.ReplaceProductCache(ctx, snapshot); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "products", len(snapshot)), "product cache refreshed")
	return nil
}

// RefreshIfStale refreshes only when the snapshot aged out, reporting
// whether a refresh ran.
func (s *service) RefreshIfStale(ctx context.Context) (bool, error) {
	stale, err := s.store.IsCacheStale(ctx)
	if err != nil {
		return false, err
	}
	if !stale {
		return false, nil
	}
	if err := s.RefreshProductCache(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) ListProducts(ctx context.Context) ([]models.CachedProduct, error) {
	return s.store.ListCachedProducts(ctx)
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.CachedProduct, error) {
	return s.store.GetCachedProduct(ctx, id)
}

// SetupAutoSync wires the online transition to, in order, a catalog refresh
// and a pending-sale drain. The listener runs under ctx so shutdown cancels
// any in-flight refresh or drain. Returns the deregistration handle.
func (s *service) SetupAutoSync(ctx context.Context) func() {
	return s.network.Subscribe(func(online bool) {
		if !online || ctx.Err() != nil {
			return
		}
		s.logg.Info(ctx, "connectivity restored, refreshing catalog and syncing")

		if err := s.RefreshProductCache(ctx); err != nil {
			s.logg.Error(ctx, "catalog refresh after reconnect failed", err)
		}
		if _, err := s.syncer.SyncPendingSales(ctx); err != nil {
			s.logg.Error(ctx, "pending sale sync after reconnect failed", err)
		}
	})
}

// Run refreshes periodically until the context is canceled. With
// RefreshOnStaleOnly set, ticks inside the freshness window are no-ops.
func (s *service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cache refresh loop context canceled")
			return ctx.Err()
		case <-ticker.C:
			var err error
			if s.cfg.RefreshOnStaleOnly {
				_, err = s.RefreshIfStale(ctx)
			} else {
				err = s.RefreshProductCache(ctx)
			}
			if err != nil {
				s.logg.Error(ctx, "scheduled cache refresh failed", err)
			}
		}
	}
}
