package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/api/middleware"
	"github.com/angelmondragon/kardex-pos/api/responses"
	"github.com/angelmondragon/kardex-pos/api/validators"
	productsvc "github.com/angelmondragon/kardex-pos/internal/products"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

type createProductRequest struct {
	Name          string          `json:"name" validate:"required,max=200"`
	SKU           *string         `json:"sku,omitempty" validate:"omitempty,max=64"`
	Barcode       *string         `json:"barcode,omitempty" validate:"omitempty,max=64"`
	CategoryID    *int64          `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	MinimumStock  decimal.Decimal `json:"minimum_stock" validate:"gte=0"`
	PurchasePrice decimal.Decimal `json:"purchase_price" validate:"gte=0"`
	SalePrice     decimal.Decimal `json:"sale_price" validate:"gte=0"`
	InitialStock  decimal.Decimal `json:"initial_stock" validate:"gte=0"`
	Description   *string         `json:"description,omitempty"`
	ImagePath     *string         `json:"image_path,omitempty"`
}

type updateProductRequest struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	SKU           *string          `json:"sku,omitempty" validate:"omitempty,max=64"`
	Barcode       *string          `json:"barcode,omitempty" validate:"omitempty,max=64"`
	CategoryID    *int64           `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	MinimumStock  *decimal.Decimal `json:"minimum_stock,omitempty"`
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty"`
	SalePrice     *decimal.Decimal `json:"sale_price,omitempty"`
	Description   *string          `json:"description,omitempty"`
	ImagePath     *string          `json:"image_path,omitempty"`
	Active        *bool            `json:"active,omitempty"`
}

// CreateProduct registers a product. Initial stock goes through the kardex.
func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), productsvc.CreateProductInput{
			Name:          payload.Name,
			SKU:           payload.SKU,
			Barcode:       payload.Barcode,
			CategoryID:    payload.CategoryID,
			MinimumStock:  payload.MinimumStock,
			PurchasePrice: payload.PurchasePrice,
			SalePrice:     payload.SalePrice,
			InitialStock:  payload.InitialStock,
			Description:   payload.Description,
			ImagePath:     payload.ImagePath,
			CreatedBy:     middleware.OperatorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toProductResponse(product))
	}
}

func UpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.PathID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), productID, productsvc.UpdateProductInput{
			Name:          payload.Name,
			SKU:           payload.SKU,
			Barcode:       payload.Barcode,
			CategoryID:    payload.CategoryID,
			MinimumStock:  payload.MinimumStock,
			PurchasePrice: payload.PurchasePrice,
			SalePrice:     payload.SalePrice,
			Description:   payload.Description,
			ImagePath:     payload.ImagePath,
			Active:        payload.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toProductResponse(product))
	}
}

// DeleteProduct deactivates the product; its kardex stays intact.
func DeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.PathID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.PathID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toProductResponse(product))
	}
}

// FindProductByCode resolves a scanned barcode or a typed SKU.
func FindProductByCode(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "code is required"))
			return
		}
		product, err := svc.FindByCode(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toProductResponse(product))
	}
}

func SearchProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lowStock, err := validators.ParseQueryBool(r, "low_stock")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categoryID, err := validators.ParseQueryID(r, "category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.SearchProducts(r.Context(), productsvc.SearchInput{
			Query:        r.URL.Query().Get("q"),
			CategoryID:   categoryID,
			LowStockOnly: lowStock,
			Limit:        limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toProductList(rows))
	}
}
