package kardex

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
)

// InsufficientStock builds the error returned when a movement would drive the
// balance below zero.
func InsufficientStock(productID int64, current, requested decimal.Decimal) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock: current stock %s, requested %s", current.String(), requested.String()),
	).WithDetails(map[string]any{
		"product_id":    productID,
		"current_stock": current.String(),
		"requested":     requested.String(),
	})
}

// ProductNotFound is shared by the ledger and the stock gateway.
func ProductNotFound(productID int64) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %d not found", productID)).
		WithDetails(map[string]any{"product_id": productID})
}
