package sales

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
)

func saleNotFound(id int64) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("sale %d not found", id)).
		WithDetails(map[string]any{"sale_id": id})
}

func alreadyCancelled(sale *models.Sale) error {
	return pkgerrors.New(pkgerrors.CodeAlreadyCancelled, fmt.Sprintf("sale %s is already cancelled", sale.InvoiceNumber)).
		WithDetails(map[string]any{"sale_id": sale.ID, "invoice_number": sale.InvoiceNumber})
}

// annotateItem adds the offending item to stock and lookup errors so the
// caller can point at the line that failed.
func annotateItem(err error, index int, productID int64, productName string) error {
	typed := pkgerrors.As(err)
	if typed == nil {
		return err
	}
	switch typed.Code() {
	case pkgerrors.CodeInsufficientStock, pkgerrors.CodeNotFound:
	default:
		return err
	}
	details := map[string]any{}
	if existing, ok := typed.Details().(map[string]any); ok {
		for k, v := range existing {
			details[k] = v
		}
	}
	details["item_index"] = index
	details["product_id"] = productID
	message := typed.Message()
	if productName != "" {
		details["product_name"] = productName
		message = fmt.Sprintf("%s (%s)", message, productName)
	}
	return pkgerrors.Wrap(typed.Code(), err, message).WithDetails(details)
}

func codeOf(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
