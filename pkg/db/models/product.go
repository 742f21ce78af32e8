package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item. CurrentStock is owned by the stock gateway and
// only changes alongside a stock_movements row.
type Product struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name          string          `gorm:"column:name;not null"`
	SKU           *string         `gorm:"column:sku;uniqueIndex:idx_products_sku"`
	Barcode       *string         `gorm:"column:barcode;uniqueIndex:idx_products_barcode"`
	CategoryID    *int64          `gorm:"column:category_id"`
	CurrentStock  decimal.Decimal `gorm:"column:current_stock;type:numeric(14,3);not null"`
	MinimumStock  decimal.Decimal `gorm:"column:minimum_stock;type:numeric(14,3);not null"`
	PurchasePrice decimal.Decimal `gorm:"column:purchase_price;type:numeric(14,2);not null"`
	SalePrice     decimal.Decimal `gorm:"column:sale_price;type:numeric(14,2);not null"`
	Description   *string         `gorm:"column:description"`
	ImagePath     *string         `gorm:"column:image_path"`
	Active        bool            `gorm:"column:active;not null;index"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// IsLowStock reports whether the product sits at or below its reorder point.
func (p Product) IsLowStock() bool {
	return p.CurrentStock.LessThanOrEqual(p.MinimumStock)
}
