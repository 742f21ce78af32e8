package invoicing

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/kardex-pos/pkg/db/models"
)

// Lookup reads issued invoice numbers inside the caller's transaction.
type Lookup interface {
	LatestWithPrefix(ctx context.Context, tx *gorm.DB, prefix string) (string, error)
	Exists(ctx context.Context, tx *gorm.DB, number string) (bool, error)
}

// SaleLookup reads invoice numbers from the sales table.
type SaleLookup struct{}

func NewSaleLookup() SaleLookup {
	return SaleLookup{}
}

// LatestWithPrefix returns the highest four-digit number issued for the
// prefix, or "" when none exists.
func (SaleLookup) LatestWithPrefix(ctx context.Context, tx *gorm.DB, prefix string) (string, error) {
	var sale models.Sale
	err := tx.WithContext(ctx).
		Select("invoice_number").
		Where("invoice_number LIKE ?", prefix+"____").
		Where("LENGTH(invoice_number) = ?", len(prefix)+4).
		Order("invoice_number DESC").
		Take(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sale.InvoiceNumber, nil
}

func (SaleLookup) Exists(ctx context.Context, tx *gorm.DB, number string) (bool, error) {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&models.Sale{}).
		Where("invoice_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
