package models

import "github.com/angelmondragon/kardex-pos/pkg/enums"

type PaymentMethod struct {
	ID     int64                   `gorm:"column:id;primaryKey;autoIncrement"`
	Code   enums.PaymentMethodCode `gorm:"column:code;not null;uniqueIndex:idx_payment_methods_code"`
	Name   string                  `gorm:"column:name;not null"`
	Active bool                    `gorm:"column:active;not null"`
}
