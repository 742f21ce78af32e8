package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/pkg/enums"
)

// Sale is the committed header of a POS transaction.
type Sale struct {
	ID              int64            `gorm:"column:id;primaryKey;autoIncrement"`
	InvoiceNumber   string           `gorm:"column:invoice_number;not null;uniqueIndex:idx_sales_invoice_number"`
	CustomerID      *int64           `gorm:"column:customer_id"`
	Subtotal        decimal.Decimal  `gorm:"column:subtotal;type:numeric(14,2);not null"`
	Tax             decimal.Decimal  `gorm:"column:tax;type:numeric(14,2);not null"`
	Discount        decimal.Decimal  `gorm:"column:discount;type:numeric(14,2);not null"`
	Total           decimal.Decimal  `gorm:"column:total;type:numeric(14,2);not null"`
	PaymentMethodID *int64           `gorm:"column:payment_method_id"`
	Status          enums.SaleStatus `gorm:"column:status;not null;index:idx_sales_status_created_at,priority:1"`
	Notes           *string          `gorm:"column:notes"`
	CreatedAt       time.Time        `gorm:"column:created_at;not null;index:idx_sales_status_created_at,priority:2"`
	CreatedBy       *string          `gorm:"column:created_by"`
	CancelledAt     *time.Time       `gorm:"column:cancelled_at"`
	CancelledBy     *string          `gorm:"column:cancelled_by"`
	Items           []SaleItem       `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

// SaleItem snapshots the product name and price at the time of sale.
type SaleItem struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	SaleID      int64           `gorm:"column:sale_id;not null;index:idx_sale_items_sale"`
	ProductID   int64           `gorm:"column:product_id;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(14,2);not null"`
}
