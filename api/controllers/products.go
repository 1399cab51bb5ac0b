package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kimanidev/dukapos-backend/api/responses"
	"github.com/kimanidev/dukapos-backend/api/validators"
	"github.com/kimanidev/dukapos-backend/internal/catalog"
	"github.com/kimanidev/dukapos-backend/internal/localstore"
	"github.com/kimanidev/dukapos-backend/pkg/db/models"
	"github.com/kimanidev/dukapos-backend/pkg/enums"
	pkgerrors "github.com/kimanidev/dukapos-backend/pkg/errors"
	"github.com/kimanidev/dukapos-backend/pkg/logger"
)

type stockAdjuster interface {
	AdjustProductStock(ctx context.Context, productID uuid.UUID, delta int) error
}

type onlineState interface {
	IsOnline() bool
}

type ProductController struct {
	catalog catalog.Service
	store   *localstore.Store
	ledger  stockAdjuster
	network onlineState
	logg    *logger.Logger
}

func NewProductController(
	catalogSvc catalog.Service,
	store *localstore.Store,
	ledger stockAdjuster,
	network onlineState,
	logg *logger.Logger,
) *ProductController {
	return &ProductController{
		catalog: catalogSvc,
		store:   store,
		ledger:  ledger,
		network: network,
		logg:    logg,
	}
}

type productResponse struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	StockQuantity int             `json:"stock_quantity"`
	MinStockLevel int             `json:"min_stock_level"`
	Unit          string          `json:"unit"`
	Barcode       *string         `json:"barcode,omitempty"`
	CachedAt      time.Time       `json:"cached_at"`
}

type stockAdjustmentRequest struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

// List serves the cached catalog, refreshing it first when stale and the
// ledger is reachable.
func (c *ProductController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if c.network.IsOnline() {
		if _, err := c.catalog.RefreshIfStale(ctx); err != nil {
			c.logg.Warn(ctx, "stale catalog refresh failed, serving cached snapshot")
		}
	}

	products, err := c.catalog.ListProducts(ctx)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	responses.WriteSuccess(w, out)
}

func (c *ProductController) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := pathUUID(r, "productID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	product, err := c.catalog.GetProduct(ctx, productID)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, toProductResponse(*product))
}

// AdjustStock applies a stock delta on the ledger when online; offline (or on
// a network failure) it queues the adjustment and updates the cached snapshot
// so the terminal sees the new level immediately.
func (c *ProductController) AdjustStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := pathUUID(r, "productID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	var req stockAdjustmentRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	ctx = c.logg.WithProductID(ctx, productID.String())

	if c.network.IsOnline() {
		err := c.ledger.AdjustProductStock(ctx, productID, req.Delta)
		if err == nil {
			responses.WriteSuccess(w, map[string]any{"queued": false, "delta": req.Delta})
			return
		}
		if !pkgerrors.IsNetwork(err) {
			responses.WriteError(ctx, c.logg, w, err)
			return
		}
		c.logg.Warn(ctx, "ledger unreachable, queueing stock adjustment")
	}

	if err := c.queueAdjustment(ctx, productID, req); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]any{"queued": true, "delta": req.Delta})
}

func (c *ProductController) queueAdjustment(ctx context.Context, productID uuid.UUID, req stockAdjustmentRequest) error {
	payload := models.StockAdjustmentPayload{
		ProductID: productID.String(),
		Delta:     req.Delta,
		Reason:    req.Reason,
	}
	if _, err := c.store.EnqueueOperation(ctx, enums.SyncOperationUpdateProduct, payload); err != nil {
		return err
	}

	// Best effort; the queued operation is the source of truth.
	if err := c.store.AdjustCachedStock(ctx, productID, req.Delta); err != nil {
		c.logg.Warn(ctx, "cached stock adjustment failed")
	}
	return nil
}

func toProductResponse(p models.CachedProduct) productResponse {
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Category:      p.Category,
		UnitPrice:     p.UnitPrice,
		CostPrice:     p.CostPrice,
		StockQuantity: p.StockQuantity,
		MinStockLevel: p.MinStockLevel,
		Unit:          p.Unit,
		Barcode:       p.Barcode,
		CachedAt:      p.CachedAt,
	}
}
