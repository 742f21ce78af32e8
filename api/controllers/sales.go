package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/api/middleware"
	"github.com/angelmondragon/kardex-pos/api/responses"
	"github.com/angelmondragon/kardex-pos/api/validators"
	salessvc "github.com/angelmondragon/kardex-pos/internal/sales"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

// Amount and quantity rules are enforced by the sale validator in rule order,
// so the request DTO only checks shape.
type createSaleRequest struct {
	Items         []saleItemRequest `json:"items"`
	CustomerID    *int64            `json:"customer_id,omitempty"`
	PaymentMethod *string           `json:"payment_method,omitempty"`
	Tax           decimal.Decimal   `json:"tax"`
	Discount      decimal.Decimal   `json:"discount"`
	InvoiceNumber string            `json:"invoice_number,omitempty" validate:"max=32"`
	Notes         string            `json:"notes,omitempty" validate:"max=500"`
}

type saleItemRequest struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type createSaleResponse struct {
	SaleID        int64           `json:"sale_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Total         decimal.Decimal `json:"total"`
}

func (r createSaleRequest) toInput(operator string) (salessvc.CreateSaleInput, error) {
	input := salessvc.CreateSaleInput{
		CustomerID:    r.CustomerID,
		Tax:           r.Tax,
		Discount:      r.Discount,
		InvoiceNumber: strings.TrimSpace(r.InvoiceNumber),
		Notes:         strings.TrimSpace(r.Notes),
		CreatedBy:     operator,
	}
	if r.PaymentMethod != nil {
		code, err := enums.ParsePaymentMethodCode(strings.ToUpper(strings.TrimSpace(*r.PaymentMethod)))
		if err != nil {
			return salessvc.CreateSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
				WithDetails(map[string]any{"field": "payment_method"})
		}
		input.PaymentMethod = &code
	}
	input.Items = make([]salessvc.SaleItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		input.Items = append(input.Items, salessvc.SaleItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return input, nil
}

// CreateSale commits a sale with its stock movements and invoice number.
func CreateSale(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(middleware.OperatorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateSale(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, createSaleResponse{
			SaleID:        result.SaleID,
			InvoiceNumber: result.InvoiceNumber,
			Total:         result.Total,
		})
	}
}

func CancelSale(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saleID, err := validators.PathID(r, "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.CancelSale(r.Context(), saleID, middleware.OperatorFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sale, err := svc.GetSale(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSaleResponse(sale))
	}
}

func GetSale(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saleID, err := validators.PathID(r, "saleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sale, err := svc.GetSale(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSaleResponse(sale))
	}
}

func GetSaleByInvoice(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoice := strings.TrimSpace(chi.URLParam(r, "invoice"))
		if invoice == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invoice is required"))
			return
		}
		sale, err := svc.GetSaleByInvoice(r.Context(), invoice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSaleResponse(sale))
	}
}

// ListSales returns sales between from and to, both inclusive calendar dates in
// the business timezone. Without a range it lists today's sales.
func ListSales(svc salessvc.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := validators.ParseQueryDate(r, "from", loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "to", loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var rows []models.Sale
		switch {
		case from.IsZero() && to.IsZero():
			rows, err = svc.ListTodaySales(r.Context())
		case from.IsZero() || to.IsZero():
			err = pkgerrors.New(pkgerrors.CodeValidation, "from and to must be provided together")
		default:
			rows, err = svc.ListSales(r.Context(), from, to.AddDate(0, 0, 1))
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]saleResponse, 0, len(rows))
		for i := range rows {
			out = append(out, toSaleResponse(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}
