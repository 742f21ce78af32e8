package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/pkg/enums"
)

// StockMovement is one append-only kardex entry. NewStock always equals
// PreviousStock + Quantity*sign of the movement type.
type StockMovement struct {
	ID             int64               `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID      int64               `gorm:"column:product_id;not null;index:idx_stock_movements_product"`
	MovementTypeID int64               `gorm:"column:movement_type_id;not null"`
	MovementCode   enums.MovementCode  `gorm:"column:movement_code;not null"`
	Quantity       decimal.Decimal     `gorm:"column:quantity;type:numeric(14,3);not null"`
	PreviousStock  decimal.Decimal     `gorm:"column:previous_stock;type:numeric(14,3);not null"`
	NewStock       decimal.Decimal     `gorm:"column:new_stock;type:numeric(14,3);not null"`
	UnitPrice      decimal.NullDecimal `gorm:"column:unit_price;type:numeric(14,2)"`
	Reference      *string             `gorm:"column:reference"`
	Notes          *string             `gorm:"column:notes"`
	CreatedAt      time.Time           `gorm:"column:created_at;not null;index:idx_stock_movements_created_at"`
	CreatedBy      *string             `gorm:"column:created_by"`
}
