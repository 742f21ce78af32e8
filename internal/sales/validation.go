package sales

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/internal/invoicing"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
)

// Totals are the sale aggregates recomputed from the items.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
	Lines    []decimal.Decimal
}

// ValidateSale checks the sale payload. Rules run in order and the first
// failure is returned:
//  1. at least one item
//  2. every item has a product, quantity > 0 and unit price >= 0
//  3. total > 0
//  4. tax and discount are not negative
//  5. a supplied invoice number has the YYYYMMDD-NNNN shape
//
// Line subtotals are rounded to cents, half away from zero, to match the
// stored precision. A negative discount raises the total, so rule 3 can pass
// and rule 4 rejects it.
func ValidateSale(input CreateSaleInput) (*Totals, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale must contain at least one item").
			WithDetails(map[string]any{"field": "items"})
	}

	totals := &Totals{
		Subtotal: decimal.Zero,
		Tax:      input.Tax,
		Discount: input.Discount,
		Lines:    make([]decimal.Decimal, len(input.Items)),
	}
	for i, item := range input.Items {
		if item.ProductID <= 0 {
			return nil, itemError(i, item.ProductID, "product_id", "item product is required")
		}
		if !item.Quantity.IsPositive() {
			return nil, itemError(i, item.ProductID, "quantity", "item quantity must be greater than zero")
		}
		if item.UnitPrice.IsNegative() {
			return nil, itemError(i, item.ProductID, "unit_price", "item unit price cannot be negative")
		}
		line := item.Quantity.Mul(item.UnitPrice).Round(2)
		totals.Lines[i] = line
		totals.Subtotal = totals.Subtotal.Add(line)
	}

	totals.Total = totals.Subtotal.Add(totals.Tax).Sub(totals.Discount)
	if !totals.Total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale total must be greater than zero").
			WithDetails(map[string]any{"field": "total", "total": totals.Total.String()})
	}
	if totals.Tax.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax cannot be negative").
			WithDetails(map[string]any{"field": "tax"})
	}
	if totals.Discount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount cannot be negative").
			WithDetails(map[string]any{"field": "discount"})
	}
	if invoice := strings.TrimSpace(input.InvoiceNumber); invoice != "" && !invoicing.Valid(invoice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice number must look like YYYYMMDD-NNNN").
			WithDetails(map[string]any{"field": "invoice_number", "invoice_number": invoice})
	}
	return totals, nil
}

func itemError(index int, productID int64, field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: %s", index+1, message)).
		WithDetails(map[string]any{
			"field":      field,
			"item_index": index,
			"product_id": productID,
		})
}
