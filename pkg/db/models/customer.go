package models

import (
	"time"

	"github.com/angelmondragon/kardex-pos/pkg/enums"
)

type Customer struct {
	ID             int64               `gorm:"column:id;primaryKey;autoIncrement"`
	Name           string              `gorm:"column:name;not null"`
	DocumentType   *enums.DocumentType `gorm:"column:document_type"`
	DocumentNumber *string             `gorm:"column:document_number;uniqueIndex:idx_customers_document_number"`
	Email          *string             `gorm:"column:email"`
	Phone          *string             `gorm:"column:phone"`
	Address        *string             `gorm:"column:address"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
