package payloads

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/pkg/enums"
)

// SaleLine is the per-item snapshot carried by sale events.
type SaleLine struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// SaleCompletedEvent is emitted in the same unit of work that commits a sale.
type SaleCompletedEvent struct {
	SaleID            int64                    `json:"sale_id"`
	InvoiceNumber     string                   `json:"invoice_number"`
	CustomerID        *int64                   `json:"customer_id,omitempty"`
	PaymentMethodCode *enums.PaymentMethodCode `json:"payment_method_code,omitempty"`
	Subtotal          decimal.Decimal          `json:"subtotal"`
	Tax               decimal.Decimal          `json:"tax"`
	Discount          decimal.Decimal          `json:"discount"`
	Total             decimal.Decimal          `json:"total"`
	Items             []SaleLine               `json:"items"`
	CreatedAt         time.Time                `json:"created_at"`
	CreatedBy         string                   `json:"created_by,omitempty"`
}

// SaleCancelledEvent reports a reversed sale.
type SaleCancelledEvent struct {
	SaleID        int64           `json:"sale_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Total         decimal.Decimal `json:"total"`
	CancelledAt   time.Time       `json:"cancelled_at"`
	CancelledBy   string          `json:"cancelled_by,omitempty"`
}

// StockMovementRecordedEvent mirrors one kardex row.
type StockMovementRecordedEvent struct {
	MovementID    int64              `json:"movement_id"`
	ProductID     int64              `json:"product_id"`
	MovementCode  enums.MovementCode `json:"movement_code"`
	Quantity      decimal.Decimal    `json:"quantity"`
	PreviousStock decimal.Decimal    `json:"previous_stock"`
	NewStock      decimal.Decimal    `json:"new_stock"`
	Reference     string             `json:"reference,omitempty"`
	RecordedAt    time.Time          `json:"recorded_at"`
}

// StockLowEvent fires when a product reaches its minimum stock.
type StockLowEvent struct {
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	MinimumStock decimal.Decimal `json:"minimum_stock"`
}
