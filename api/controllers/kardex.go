package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/api/middleware"
	"github.com/angelmondragon/kardex-pos/api/responses"
	"github.com/angelmondragon/kardex-pos/api/validators"
	salessvc "github.com/angelmondragon/kardex-pos/internal/sales"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/pagination"
)

type registerMovementRequest struct {
	MovementCode string           `json:"movement_code" validate:"required"`
	Quantity     decimal.Decimal  `json:"quantity"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
	Reference    string           `json:"reference,omitempty" validate:"max=64"`
	Notes        string           `json:"notes,omitempty" validate:"max=500"`
}

type adjustStockRequest struct {
	TargetStock decimal.Decimal `json:"target_stock"`
	Reason      string          `json:"reason" validate:"required,max=500"`
}

// RegisterStockMovement appends a manual kardex entry (purchase, return, loss).
func RegisterStockMovement(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.PathID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload registerMovementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movement, err := svc.RegisterStockMovement(r.Context(), salessvc.RegisterMovementInput{
			ProductID: productID,
			Code:      enums.MovementCode(strings.ToUpper(strings.TrimSpace(payload.MovementCode))),
			Quantity:  payload.Quantity,
			UnitPrice: payload.UnitPrice,
			Reference: strings.TrimSpace(payload.Reference),
			Notes:     strings.TrimSpace(payload.Notes),
			CreatedBy: middleware.OperatorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toMovementResponse(movement))
	}
}

// AdjustStock moves a product to a counted stock level. A count that matches
// the current stock records nothing and answers 204.
func AdjustStock(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.PathID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movement, err := svc.AdjustStock(r.Context(), salessvc.AdjustStockInput{
			ProductID:   productID,
			TargetStock: payload.TargetStock,
			Reason:      strings.TrimSpace(payload.Reason),
			CreatedBy:   middleware.OperatorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if movement == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toMovementResponse(movement))
	}
}

func StockHistory(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.PathID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.GetStockHistoryPage(r.Context(), productID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := historyResponse{
			Movements:  make([]movementResponse, 0, len(page.Movements)),
			NextCursor: page.NextCursor,
		}
		for i := range page.Movements {
			out.Movements = append(out.Movements, toMovementResponse(&page.Movements[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

type movementTypeLister interface {
	Types() []models.MovementType
}

func MovementTypes(catalog movementTypeLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types := catalog.Types()
		out := make([]movementTypeResponse, 0, len(types))
		for _, t := range types {
			out = append(out, movementTypeResponse{Code: t.Code, Name: t.Name, Sign: t.Sign})
		}
		responses.WriteSuccess(w, out)
	}
}
