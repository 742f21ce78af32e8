package paymentmethods

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context, activeOnly bool) ([]models.PaymentMethod, error) {
	query := r.db.WithContext(ctx).Order("id ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var rows []models.PaymentMethod
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) SetActive(ctx context.Context, code enums.PaymentMethodCode, active bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentMethod{}).
		Where("code = ?", code).
		Update("active", active)
	return res.RowsAffected, res.Error
}
