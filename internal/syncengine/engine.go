package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/kimanidev/dukapos-backend/internal/sales"
	"github.com/kimanidev/dukapos-backend/pkg/db/models"
	"github.com/kimanidev/dukapos-backend/pkg/enums"
	pkgerrors "github.com/kimanidev/dukapos-backend/pkg/errors"
	"github.com/kimanidev/dukapos-backend/pkg/logger"
	"github.com/kimanidev/dukapos-backend/pkg/metrics"
	"github.com/kimanidev/dukapos-backend/pkg/redis"
)

const (
	defaultRetention      = 7 * 24 * time.Hour
	defaultIdempotencyTTL = 30 * 24 * time.Hour

	effectsGuardScope = "sale-effects"
)

// Progress is the cumulative drain state pushed to subscribers after every
// record and at completion.
type Progress struct {
	TotalPending int  `json:"total_pending"`
	Synced       int  `json:"synced"`
	Failed       int  `json:"failed"`
	InProgress   bool `json:"in_progress"`
}

// Subscriber receives progress updates. Called synchronously from the drain
// loop; keep it cheap.
type Subscriber func(Progress)

// OperationHandler applies one generic queued operation remotely.
type OperationHandler func(ctx context.Context, payload json.RawMessage) error

type queueStore interface {
	ListUnsyncedSales(ctx context.Context) ([]models.PendingSale, error)
	CountUnsyncedSales(ctx context.Context) (int, error)
	MarkSyncing(ctx context.Context, localID uuid.UUID) error
	MarkSynced(ctx context.Context, localID uuid.UUID, serverSaleID uuid.UUID, serverSaleNumber string) error
	MarkFailed(ctx context.Context, localID uuid.UUID, errMessage string) error
	PurgeOldSyncedSales(ctx context.Context, olderThan time.Duration) (int64, error)
	ListPendingOperations(ctx context.Context) ([]models.SyncQueueItem, error)
	CompleteOperation(ctx context.Context, id uint) error
	FailOperation(ctx context.Context, id uint, errMessage string) error
}

type remoteLedger interface {
	sales.LedgerClient
	CreateSaleNumber(ctx context.Context) (string, error)
	InsertSale(ctx context.Context, sale *models.Sale) (*models.Sale, error)
	InsertSaleItems(ctx context.Context, saleID uuid.UUID, items []models.SaleItem) error
}

type EngineParams struct {
	Store       queueStore
	Ledger      remoteLedger
	Logger      *logger.Logger
	Metrics     *metrics.SyncMetrics
	Idempotency redis.IdempotencyStore // optional; nil disables the guard
	TerminalID  string

	RetentionWindow time.Duration
	IdempotencyTTL  time.Duration
}

// Engine drains the local queues against the ledger. One instance owns the
// single-flight guard: concurrent SyncPendingSales calls return immediately
// with InProgress set and touch nothing.
type Engine struct {
	store       queueStore
	ledger      remoteLedger
	effects     *sales.Effects
	logg        *logger.Logger
	metrics     *metrics.SyncMetrics
	idempotency redis.IdempotencyStore
	terminalID  string
	retention   time.Duration
	idemTTL     time.Duration
	nowFn       func() time.Time

	running atomic.Bool

	mu          sync.Mutex
	subscribers map[int]Subscriber
	nextSubID   int
	handlers    map[enums.SyncOperation]OperationHandler
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("local store required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	effects, err := sales.NewEffects(params.Ledger, params.Logger)
	if err != nil {
		return nil, err
	}

	retention := params.RetentionWindow
	if retention <= 0 {
		retention = defaultRetention
	}
	idemTTL := params.IdempotencyTTL
	if idemTTL <= 0 {
		idemTTL = defaultIdempotencyTTL
	}

	return &Engine{
		store:       params.Store,
		ledger:      params.Ledger,
		effects:     effects,
		logg:        params.Logger,
		metrics:     params.Metrics,
		idempotency: params.Idempotency,
		terminalID:  params.TerminalID,
		retention:   retention,
		idemTTL:     idemTTL,
		nowFn:       time.Now,
		subscribers: map[int]Subscriber{},
		handlers:    map[enums.SyncOperation]OperationHandler{},
	}, nil
}

// Subscribe registers a progress listener and returns its unsubscribe
// function.
func (e *Engine) Subscribe(fn Subscriber) func() {
	if fn == nil {
		return func() {}
	}

	e.mu.Lock()
	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subscribers, id)
		e.mu.Unlock()
	}
}

// RegisterHandler binds a handler to a generic queue operation type.
func (e *Engine) RegisterHandler(op enums.SyncOperation, handler OperationHandler) {
	e.mu.Lock()
	e.handlers[op] = handler
	e.mu.Unlock()
}

// Status reports the current backlog without starting a drain.
func (e *Engine) Status(ctx context.Context) (Progress, error) {
	pending, err := e.store.CountUnsyncedSales(ctx)
	if err != nil {
		return Progress{}, err
	}
	if e.metrics != nil {
		e.metrics.SetQueueDepth(pending)
	}
	return Progress{TotalPending: pending, InProgress: e.running.Load()}, nil
}

// SyncPendingSales drains the queue oldest-first, one record at a time, with
// per-record failure isolation. The returned error aggregates per-record
// failures; a non-nil error still means the drain ran to completion.
func (e *Engine) SyncPendingSales(ctx context.Context) (Progress, error) {
	if !e.running.CompareAndSwap(false, true) {
		return Progress{InProgress: true}, nil
	}
	defer e.running.Store(false)

	started := e.nowFn()
	records, err := e.store.ListUnsyncedSales(ctx)
	if err != nil {
		return Progress{}, err
	}

	progress := Progress{TotalPending: len(records), InProgress: true}
	var drainErr error

	for _, record := range records {
		if err := e.syncRecord(ctx, record); err != nil {
			progress.Failed++
			drainErr = multierr.Append(drainErr, err)
			if e.metrics != nil {
				e.metrics.IncFailed()
			}
		} else {
			progress.Synced++
			if e.metrics != nil {
				e.metrics.IncSynced()
			}
		}
		e.notify(progress)
	}

	e.drainOperations(ctx)

	if purged, err := e.store.PurgeOldSyncedSales(ctx, e.retention); err != nil {
		e.logg.Error(ctx, "purging synced sales failed", err)
	} else if purged > 0 {
		e.logg.Info(e.logg.WithField(ctx, "purged", purged), "purged old synced sales")
	}

	progress.InProgress = false
	e.notify(progress)

	if e.metrics != nil {
		e.metrics.ObserveDuration(e.nowFn().Sub(started))
		if remaining, err := e.store.CountUnsyncedSales(ctx); err == nil {
			e.metrics.SetQueueDepth(remaining)
		}
	}
	return progress, drainErr
}

func (e *Engine) syncRecord(ctx context.Context, record models.PendingSale) error {
	ctx = e.logg.WithLocalID(ctx, record.LocalID.String())

	if err := e.store.MarkSyncing(ctx, record.LocalID); err != nil {
		e.logg.Error(ctx, "claiming record for sync failed", err)
		return err
	}

	synced, err := e.pushRecord(ctx, record)
	if err != nil {
		e.logg.Error(ctx, "sale sync failed", err)
		if markErr := e.store.MarkFailed(ctx, record.LocalID, err.Error()); markErr != nil {
			e.logg.Error(ctx, "marking record failed", markErr)
		}
		return err
	}

	if err := e.store.MarkSynced(ctx, record.LocalID, synced.ID, synced.SaleNumber); err != nil {
		e.logg.Error(ctx, "marking record synced", err)
		return err
	}
	e.logg.Info(e.logg.WithSaleID(ctx, synced.ID.String()), "sale synced to ledger")
	return nil
}

// pushRecord performs the remote half of a record's sync: sale row (deduped
// by client_ref), items (idempotent replace), then side effects, guarded so a
// retried record never deducts stock twice.
func (e *Engine) pushRecord(ctx context.Context, record models.PendingSale) (*models.Sale, error) {
	number, err := e.ledger.CreateSaleNumber(ctx)
	if err != nil {
		return nil, err
	}

	sale := e.buildSale(record, number)
	inserted, err := e.ledger.InsertSale(ctx, sale)
	if err != nil {
		return nil, err
	}

	if err := e.ledger.InsertSaleItems(ctx, inserted.ID, sale.Items); err != nil {
		return nil, err
	}
	inserted.Items = sale.Items

	applied, err := e.effectsAlreadyApplied(ctx, record.LocalID)
	if err != nil {
		e.logg.Error(ctx, "idempotency guard read failed, applying effects anyway", err)
	}
	if !applied {
		if err := e.effects.ApplyNewSale(ctx, inserted); err != nil {
			return nil, err
		}
		e.markEffectsApplied(ctx, record.LocalID)
	}
	return inserted, nil
}

func (e *Engine) effectsAlreadyApplied(ctx context.Context, localID uuid.UUID) (bool, error) {
	if e.idempotency == nil {
		return false, nil
	}
	key := e.idempotency.IdempotencyKey(effectsGuardScope, localID.String())
	value, err := e.idempotency.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value != "", nil
}

func (e *Engine) markEffectsApplied(ctx context.Context, localID uuid.UUID) {
	if e.idempotency == nil {
		return
	}
	key := e.idempotency.IdempotencyKey(effectsGuardScope, localID.String())
	if _, err := e.idempotency.SetNX(ctx, key, "1", e.idemTTL); err != nil {
		e.logg.Error(ctx, "idempotency guard write failed", err)
	}
}

func (e *Engine) buildSale(record models.PendingSale, number string) *models.Sale {
	clientRef := record.LocalID
	sale := &models.Sale{
		SaleNumber:    number,
		ClientRef:     &clientRef,
		CustomerName:  record.CustomerName,
		CustomerPhone: record.CustomerPhone,
		TotalAmount:   record.TotalAmount,
		TaxAmount:     record.TaxAmount,
		PaymentMethod: record.PaymentMethod,
		Status:        record.Status,
		UserID:        record.UserID,
	}
	if e.terminalID != "" {
		terminalID := e.terminalID
		sale.TerminalID = &terminalID
	}
	for _, item := range record.Items {
		sale.Items = append(sale.Items, models.SaleItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}
	return sale
}

// drainOperations processes the generic queue with the registered handlers.
// Unknown operation types stay queued until a handler is registered.
func (e *Engine) drainOperations(ctx context.Context) {
	items, err := e.store.ListPendingOperations(ctx)
	if err != nil {
		e.logg.Error(ctx, "listing queued operations failed", err)
		return
	}

	for _, item := range items {
		e.mu.Lock()
		handler, ok := e.handlers[item.Operation]
		e.mu.Unlock()
		if !ok {
			e.logg.Warn(e.logg.WithField(ctx, "operation", item.Operation),
				"no handler registered for queued operation")
			continue
		}

		if err := handler(ctx, item.Data); err != nil {
			e.logg.Error(e.logg.WithField(ctx, "operation", item.Operation),
				"queued operation failed", err)
			if failErr := e.store.FailOperation(ctx, item.ID, err.Error()); failErr != nil {
				e.logg.Error(ctx, "marking operation failed", failErr)
			}
			continue
		}
		if err := e.store.CompleteOperation(ctx, item.ID); err != nil {
			e.logg.Error(ctx, "marking operation completed", err)
		}
	}
}

func (e *Engine) notify(progress Progress) {
	e.mu.Lock()
	listeners := make([]Subscriber, 0, len(e.subscribers))
	for _, fn := range e.subscribers {
		listeners = append(listeners, fn)
	}
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(progress)
	}
}

// NewStockAdjustmentHandler returns the update_product handler: it applies an
// offline stock correction against the ledger.
func NewStockAdjustmentHandler(ledger sales.LedgerClient) OperationHandler {
	return func(ctx context.Context, payload json.RawMessage) error {
		var adjustment models.StockAdjustmentPayload
		if err := json.Unmarshal(payload, &adjustment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding stock adjustment")
		}
		productID, err := uuid.Parse(adjustment.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parsing product id")
		}
		return ledger.AdjustProductStock(ctx, productID, adjustment.Delta)
	}
}
