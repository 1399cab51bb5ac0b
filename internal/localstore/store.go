package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kimanidev/dukapos-backend/pkg/db/models"
	"github.com/kimanidev/dukapos-backend/pkg/enums"
	pkgerrors "github.com/kimanidev/dukapos-backend/pkg/errors"
)

// DefaultFreshnessWindow is how long a catalog snapshot counts as fresh.
const DefaultFreshnessWindow = time.Hour

// Store is the terminal's durable persistence: the pending-sale queue, the
// product catalog snapshot and the generic sync-operation queue. It never
// talks to the network; its only failure mode is local storage trouble, which
// is fatal and always propagates.
type Store struct {
	db        *gorm.DB
	freshness time.Duration
	nowFn     func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithFreshnessWindow overrides the catalog staleness window.
func WithFreshnessWindow(window time.Duration) Option {
	return func(s *Store) {
		if window > 0 {
			s.freshness = window
		}
	}
}

// WithNowFunc injects the clock, for tests.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// New builds the store and runs the additive schema migration. AutoMigrate
// only ever adds tables/columns, so existing queue rows survive upgrades.
func New(conn *gorm.DB, opts ...Option) (*Store, error) {
	if conn == nil {
		return nil, fmt.Errorf("terminal db connection required")
	}

	store := &Store{
		db:        conn,
		freshness: DefaultFreshnessWindow,
		nowFn:     time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.db.AutoMigrate(
		&models.PendingSale{},
		&models.CachedProduct{},
		&models.SyncQueueItem{},
	); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeLocalStorage, err, "migrating terminal schema")
	}
	return store, nil
}

// PendingSaleInput carries the sale payload for queueing. LocalID is optional;
// when the caller already minted one (it doubles as the remote idempotency
// key) the store keeps it, otherwise it generates a fresh UUID.
type PendingSaleInput struct {
	LocalID       uuid.UUID
	CustomerName  *string
	CustomerPhone *string
	TotalAmount   decimal.Decimal
	TaxAmount     decimal.Decimal
	PaymentMethod enums.PaymentMethod
	Status        enums.SaleStatus
	UserID        uuid.UUID
	Items         models.PendingSaleItems
}

// InsertPendingSale durably queues a sale with a fresh local id and
// sync_status=pending. The write must never silently fail: any storage error
// surfaces as LOCAL_STORAGE_ERROR.
func (s *Store) InsertPendingSale(ctx context.Context, input PendingSaleInput) (*models.PendingSale, error) {
	localID := input.LocalID
	if localID == uuid.Nil {
		localID = uuid.New()
	}
	record := &models.PendingSale{
		LocalID:       localID,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		TotalAmount:   input.TotalAmount,
		TaxAmount:     input.TaxAmount,
		PaymentMethod: input.PaymentMethod,
		Status:        input.Status,
		UserID:        input.UserID,
		Items:         input.Items,
		SyncStatus:    enums.SyncStatusPending,
		CreatedAt:     s.nowFn().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeLocalStorage, err, "queueing pending sale")
	}
	return record, nil
}

// ListUnsyncedSales returns every record still owed to the ledger, oldest
// first.
func (s *Store) ListUnsyncedSales(ctx context.Context) ([]models.PendingSale, error) {
	var records []models.PendingSale
	err := s.db.WithContext(ctx).
		Where("sync_status <> ?", enums.SyncStatusSynced).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeLocalStorage, err, "listing unsynced sales")
	}
	return records, nil
}

// CountUnsyncedSales reports the backlog size.
func (s *Store) CountUnsyncedSales(ctx context.Context) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.PendingSale{}).
		Where("sync_status <> ?", enums.SyncStatusSynced).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeLocalStorage, err, "counting unsynced sales")
	}
	return int(count), nil
}

// GetPendingSale loads one queue record.
func (s *Store) GetPendingSale(ctx context.Context, localID uuid.UUID) (*models.PendingSale, error) {
	var record models.PendingSale
	err := s.db.WithContext(ctx).First(&record, "local_id = ?", localID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "pending sale not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeLocalStorage, err, "loading pending sale")
	}
	return &record, nil
}

// MarkSyncing transitions pending/failed -> syncing. The guard is a single
// conditional UPDATE so interleaved writers cannot double-claim a record. A
// record already in syncing is claimable too: only a crash mid-drain leaves
// one behind (the engine is single-flight), and re-claiming is what lets the
// next drain pick it back up.
func (s *Store) MarkSyncing(ctx context.Context, localID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Model(&models.PendingSale{}).
		Where("local_id = ? AND sync_status IN ?", localID,
			[]enums.SyncStatus{enums.SyncStatusPending, enums.SyncStatusFailed, enums.SyncStatusSyncing}).
		Update("sync_status", enums.SyncStatusSyncing)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeLocalStorage, result.Error, "marking sale syncing")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is not eligible for syncing")
	}
	return nil
}

// MarkSynced finalizes a record: stamps synced_at and merges the
// server-assigned id and sale number. Synced records are immutable afterwards
// except for purging.
func (s *Store) MarkSynced(ctx context.Context, localID uuid.UUID, serverSaleID uuid.UUID, serverSaleNumber string) error {
	now := s.nowFn().UTC()
	result := s.db.WithContext(ctx).
		Model(&models.PendingSale{}).
		Where("local_id = ? AND sync_status = ?", localID, enums.SyncStatusSyncing).
		Updates(map[string]any{
			"sync_status":        enums.SyncStatusSynced,
			"synced_at":          now,
			"server_sale_id":     serverSaleID,
			"server_sale_number": serverSaleNumber,
			"error_message":      nil,
		})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeLocalStorage, result.Error, "marking sale synced")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "sale was not in syncing state")
	}
	return nil
}

// MarkFailed records the failure reason and bumps the retry counter in one
// atomic update.
func (s *Store) MarkFailed(ctx context.Context, localID uuid.UUID, errMessage string) error {
	result := s.db.WithContext(ctx).
		Model(&models.PendingSale{}).
		Where("local_id = ? AND sync_status = ?", localID, enums.SyncStatusSyncing).
		Updates(map[string]any{
			"sync_status":   enums.SyncStatusFailed,
			"error_message": errMessage,
			"retry_count":   gorm.Expr("retry_count + 1"),
		})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeLocalStorage, result.Error, "marking sale failed")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "sale was not in syncing state")
	}
	return nil
}

// PurgeOldSyncedSales deletes synced records whose synced_at predates the
// retention window. Unsynced records are never touched.
func (s *Store) PurgeOldSyncedSales(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.nowFn().UTC().Add(-olderThan)
	result := s.db.WithContext(ctx).
		Where("sync_status = ? AND synced_at < ?", enums.SyncStatusSynced, cutoff).
		Delete(&models.PendingSale{})
	if result.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeLocalStorage, result.Error, "purging synced sales")
	}
	return result.RowsAffected, nil
}

// ReplaceProductCache swaps the whole snapshot inside one transaction so
// readers never observe a half-replaced cache.
func (s *Store) ReplaceProductCache(ctx context.Context, products []models.CachedProduct) error {
	now := s.nowFn().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.CachedProduct{}).Error; err != nil {
			return err
		}
		if len(products) == 0 {
			return nil
		}
		for i := range products {
			products[i].CachedAt = now
		}
		return tx.Create(&products).Error
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeLocalStorage, err, "replacing product cache")
	}
	return nil
}

// ListCachedProducts returns the whole snapshot.
func (s *Store) ListCachedProducts(ctx context.Context) ([]models.CachedProduct, error) {
	var products []models.CachedProduct
	err := s.db.WithContext(ctx).Order("name ASC").Find(&products).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeLocalStorage, err, "listing cached products")
	}
	return products, nil
}

// GetCachedProduct looks one product up by id.
func (s *Store) GetCachedProduct(ctx context.Context, id uuid.UUID) (*models.CachedProduct, error) {
	var product models.CachedProduct
	err := s.db.WithContext(ctx).First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not in cache")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeLocalStorage, err, "reading cached product")
	}
	return &product, nil
}

// AdjustCachedStock applies an optimistic local-only stock delta so offline
// sales see stock drain. The authoritative adjustment happens on the ledger
// during sync.
func (s *Store) AdjustCachedStock(ctx context.Context, productID uuid.UUID, delta int) error {
	result := s.db.WithContext(ctx).
		Model(&models.CachedProduct{}).
		Where("id = ?", productID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeLocalStorage, result.Error, "adjusting cached stock")
	}
	return nil
}

// IsCacheStale reports true when the cache is empty or any entry predates the
// freshness window.
func (s *Store) IsCacheStale(ctx context.Context) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.CachedProduct{}).Count(&count).Error; err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeLocalStorage, err, "counting cached products")
	}
	if count == 0 {
		return true, nil
	}

	cutoff := s.nowFn().UTC().Add(-s.freshness)
	var staleCount int64
	err := s.db.WithContext(ctx).
		Model(&models.CachedProduct{}).
		Where("cached_at < ?", cutoff).
		Count(&staleCount).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeLocalStorage, err, "checking cache staleness")
	}
	return staleCount > 0, nil
}

// EnqueueOperation appends a generic operation to the sync queue.
func (s *Store) EnqueueOperation(ctx context.Context, op enums.SyncOperation, payload any) (*models.SyncQueueItem, error) {
	if !op.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid sync operation %q", op))
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encoding operation payload")
	}
	item := &models.SyncQueueItem{
		Operation: op,
		Data:      data,
		Status:    enums.QueueItemStatusPending,
		CreatedAt: s.nowFn().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeLocalStorage, err, "queueing operation")
	}
	return item, nil
}

// ListPendingOperations returns queued operations, oldest first. Failed items
// are included so they get retried on the next drain.
func (s *Store) ListPendingOperations(ctx context.Context) ([]models.SyncQueueItem, error) {
	var items []models.SyncQueueItem
	err := s.db.WithContext(ctx).
		Where("status IN ?", []enums.QueueItemStatus{enums.QueueItemStatusPending, enums.QueueItemStatusFailed}).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeLocalStorage, err, "listing queued operations")
	}
	return items, nil
}

// CompleteOperation stamps a queue item done.
func (s *Store) CompleteOperation(ctx context.Context, id uint) error {
	now := s.nowFn().UTC()
	err := s.db.WithContext(ctx).
		Model(&models.SyncQueueItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.QueueItemStatusCompleted,
			"processed_at": now,
			"error":        nil,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeLocalStorage, err, "completing operation")
	}
	return nil
}

// FailOperation records a queue item failure for later retry.
func (s *Store) FailOperation(ctx context.Context, id uint, errMessage string) error {
	err := s.db.WithContext(ctx).
		Model(&models.SyncQueueItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": enums.QueueItemStatusFailed,
			"error":  errMessage,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeLocalStorage, err, "failing operation")
	}
	return nil
}
