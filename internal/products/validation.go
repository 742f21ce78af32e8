package products

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
)

// productFields are the values shared by create and update checks.
type productFields struct {
	Name          string
	SKU           *string
	Barcode       *string
	CategoryID    *int64
	MinimumStock  decimal.Decimal
	PurchasePrice decimal.Decimal
	SalePrice     decimal.Decimal
}

func fieldError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).
		WithDetails(map[string]any{"field": field})
}

// validateFields runs the pure product rules.
func validateFields(f productFields) error {
	if strings.TrimSpace(f.Name) == "" {
		return fieldError("name", "product name is required")
	}
	if f.SalePrice.IsNegative() {
		return fieldError("sale_price", "sale price cannot be negative")
	}
	if f.PurchasePrice.IsNegative() {
		return fieldError("purchase_price", "purchase price cannot be negative")
	}
	if f.MinimumStock.IsNegative() {
		return fieldError("minimum_stock", "minimum stock cannot be negative")
	}
	return nil
}

// validateReferences checks SKU and barcode uniqueness and the category.
func validateReferences(ctx context.Context, repo *Repository, f productFields, excludeID int64) error {
	if f.SKU != nil {
		taken, err := repo.SKUTaken(ctx, *f.SKU, excludeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check sku")
		}
		if taken {
			return fieldError("sku", "sku already in use")
		}
	}
	if f.Barcode != nil {
		taken, err := repo.BarcodeTaken(ctx, *f.Barcode, excludeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check barcode")
		}
		if taken {
			return fieldError("barcode", "barcode already in use")
		}
	}
	if f.CategoryID != nil {
		ok, err := repo.CategoryExists(ctx, *f.CategoryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check category")
		}
		if !ok {
			return fieldError("category_id", "category not found")
		}
	}
	return nil
}

func normalizeCode(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
