package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kimanidev/dukapos-backend/api/responses"
	"github.com/kimanidev/dukapos-backend/api/validators"
	"github.com/kimanidev/dukapos-backend/internal/sales"
	"github.com/kimanidev/dukapos-backend/pkg/db/models"
	"github.com/kimanidev/dukapos-backend/pkg/enums"
	pkgerrors "github.com/kimanidev/dukapos-backend/pkg/errors"
	"github.com/kimanidev/dukapos-backend/pkg/logger"
)

type SaleController struct {
	service sales.Service
	logg    *logger.Logger
}

func NewSaleController(service sales.Service, logg *logger.Logger) *SaleController {
	return &SaleController{service: service, logg: logg}
}

type saleItemRequest struct {
	ProductID  string          `json:"product_id" validate:"required,uuid"`
	Quantity   int             `json:"quantity" validate:"required,min=1"`
	UnitPrice  decimal.Decimal `json:"unit_price" validate:"required"`
	TotalPrice decimal.Decimal `json:"total_price" validate:"required"`
}

type recordSaleRequest struct {
	CustomerName  *string           `json:"customer_name"`
	CustomerPhone *string           `json:"customer_phone"`
	TotalAmount   decimal.Decimal   `json:"total_amount" validate:"required"`
	TaxAmount     decimal.Decimal   `json:"tax_amount"`
	PaymentMethod string            `json:"payment_method" validate:"required,oneof=cash mpesa"`
	Status        string            `json:"status" validate:"omitempty,oneof=completed pending cancelled"`
	UserID        string            `json:"user_id" validate:"required,uuid"`
	Items         []saleItemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateSaleRequest struct {
	CustomerName  *string          `json:"customer_name"`
	CustomerPhone *string          `json:"customer_phone"`
	TotalAmount   *decimal.Decimal `json:"total_amount"`
	Status        *string          `json:"status" validate:"omitempty,oneof=completed pending cancelled"`
}

type saleResultResponse struct {
	ID          *uuid.UUID      `json:"id,omitempty"`
	LocalID     *uuid.UUID      `json:"local_id,omitempty"`
	SaleNumber  string          `json:"sale_number"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Queued      bool            `json:"queued"`
	CreatedAt   time.Time       `json:"created_at"`
}

type saleResponse struct {
	ID            uuid.UUID          `json:"id"`
	SaleNumber    string             `json:"sale_number"`
	CustomerName  *string            `json:"customer_name,omitempty"`
	CustomerPhone *string            `json:"customer_phone,omitempty"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	TaxAmount     decimal.Decimal    `json:"tax_amount"`
	PaymentMethod string             `json:"payment_method"`
	Status        string             `json:"status"`
	UserID        uuid.UUID          `json:"user_id"`
	Items         []saleItemResponse `json:"items"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type saleItemResponse struct {
	ID         uuid.UUID       `json:"id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func (c *SaleController) Record(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req recordSaleRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	input, err := c.toRecordInput(req)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	result, err := c.service.RecordSale(ctx, input)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	status := http.StatusCreated
	if result.Queued {
		// The sale is durably queued but not yet on the ledger.
		status = http.StatusAccepted
	}
	responses.WriteSuccessStatus(w, status, saleResultResponse{
		ID:          result.ID,
		LocalID:     result.LocalID,
		SaleNumber:  result.SaleNumber,
		Status:      string(result.Status),
		TotalAmount: result.TotalAmount,
		Queued:      result.Queued,
		CreatedAt:   result.CreatedAt,
	})
}

func (c *SaleController) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	saleID, err := pathUUID(r, "saleID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	sale, err := c.service.GetSale(ctx, saleID)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, toSaleResponse(sale))
}

func (c *SaleController) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	saleID, err := pathUUID(r, "saleID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	var req updateSaleRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	input := sales.UpdateSaleInput{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		TotalAmount:   req.TotalAmount,
	}
	if req.Status != nil {
		status, err := enums.ParseSaleStatus(*req.Status)
		if err != nil {
			responses.WriteError(ctx, c.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		input.Status = &status
	}

	sale, err := c.service.UpdateSale(ctx, saleID, input)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, toSaleResponse(sale))
}

func (c *SaleController) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	saleID, err := pathUUID(r, "saleID")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	if err := c.service.DeleteSale(ctx, saleID); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, map[string]any{"deleted": true})
}

func (c *SaleController) toRecordInput(req recordSaleRequest) (sales.RecordSaleInput, error) {
	method, err := enums.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return sales.RecordSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}

	status := enums.SaleStatusCompleted
	if req.Status != "" {
		status, err = enums.ParseSaleStatus(req.Status)
		if err != nil {
			return sales.RecordSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return sales.RecordSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}

	items := make([]sales.SaleItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return sales.RecordSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		items = append(items, sales.SaleItemInput{
			ProductID:  productID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}

	return sales.RecordSaleInput{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		TotalAmount:   req.TotalAmount,
		TaxAmount:     req.TaxAmount,
		PaymentMethod: method,
		Status:        status,
		UserID:        userID,
		Items:         items,
	}, nil
}

func toSaleResponse(sale *models.Sale) saleResponse {
	items := make([]saleItemResponse, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, saleItemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}

	return saleResponse{
		ID:            sale.ID,
		SaleNumber:    sale.SaleNumber,
		CustomerName:  sale.CustomerName,
		CustomerPhone: sale.CustomerPhone,
		TotalAmount:   sale.TotalAmount,
		TaxAmount:     sale.TaxAmount,
		PaymentMethod: string(sale.PaymentMethod),
		Status:        string(sale.Status),
		UserID:        sale.UserID,
		Items:         items,
		CreatedAt:     sale.CreatedAt,
		UpdatedAt:     sale.UpdatedAt,
	}
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+param)
	}
	return id, nil
}
