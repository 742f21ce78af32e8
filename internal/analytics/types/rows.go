package types

import (
	"math/big"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
)

// SaleFactRow mirrors the sale_facts BigQuery schema. Completed and cancelled
// sales land in the same table, told apart by event_type.
type SaleFactRow struct {
	EventID       string               `bigquery:"event_id"`
	EventType     string               `bigquery:"event_type"`
	OccurredAt    time.Time            `bigquery:"occurred_at"`
	SaleID        int64                `bigquery:"sale_id"`
	InvoiceNumber string               `bigquery:"invoice_number"`
	CustomerID    cbigquery.NullInt64  `bigquery:"customer_id"`
	PaymentMethod cbigquery.NullString `bigquery:"payment_method"`
	Subtotal      *big.Rat             `bigquery:"subtotal"`
	Tax           *big.Rat             `bigquery:"tax"`
	Discount      *big.Rat             `bigquery:"discount"`
	Total         *big.Rat             `bigquery:"total"`
	ItemCount     int64                `bigquery:"item_count"`
	Items         cbigquery.NullJSON   `bigquery:"items"`
	Operator      cbigquery.NullString `bigquery:"operator"`
}

// MovementFactRow mirrors the stock_movement_facts BigQuery schema.
type MovementFactRow struct {
	EventID       string               `bigquery:"event_id"`
	OccurredAt    time.Time            `bigquery:"occurred_at"`
	MovementID    int64                `bigquery:"movement_id"`
	ProductID     int64                `bigquery:"product_id"`
	MovementCode  string               `bigquery:"movement_code"`
	Sign          int64                `bigquery:"sign"`
	Quantity      *big.Rat             `bigquery:"quantity"`
	PreviousStock *big.Rat             `bigquery:"previous_stock"`
	NewStock      *big.Rat             `bigquery:"new_stock"`
	Reference     cbigquery.NullString `bigquery:"reference"`
	Operator      cbigquery.NullString `bigquery:"operator"`
}

// Numeric converts a decimal into the *big.Rat BigQuery maps to NUMERIC.
func Numeric(value decimal.Decimal) *big.Rat {
	return value.Rat()
}

func NullString(value string) cbigquery.NullString {
	if value == "" {
		return cbigquery.NullString{}
	}
	return cbigquery.NullString{StringVal: value, Valid: true}
}
