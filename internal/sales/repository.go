package sales

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/kardex-pos/pkg/db"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
)

// Repository persists sales, their items and the lookups a sale references.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the header and its items.
func (r *Repository) Create(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// FindByIDForUpdate locks the header on postgres before loading items.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Sale, error) {
	var sale models.Sale
	if err := db.LockForUpdate(r.db.WithContext(ctx)).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("sale_id = ?", id).
		Order("id ASC").
		Find(&sale.Items).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *Repository) FindByInvoice(ctx context.Context, invoice string) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		First(&sale, "invoice_number = ?", invoice).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *Repository) InvoiceExists(ctx context.Context, invoice string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Sale{}).Where("invoice_number = ?", invoice).Count(&count).Error
	return count > 0, err
}

// ListBetween returns sales created in [from, to), newest first.
func (r *Repository) ListBetween(ctx context.Context, from, to time.Time) ([]models.Sale, error) {
	var rows []models.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkCancelled moves a COMPLETED sale to CANCELLED. Zero rows means the sale
// was no longer COMPLETED.
func (r *Repository) MarkCancelled(ctx context.Context, id int64, at time.Time, by *string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ? AND status = ?", id, enums.SaleStatusCompleted).
		Updates(map[string]any{
			"status":       enums.SaleStatusCancelled,
			"cancelled_at": at,
			"cancelled_by": by,
		})
	return res.RowsAffected, res.Error
}

func (r *Repository) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Customer{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// FindPaymentMethod returns nil when the code is not seeded.
func (r *Repository) FindPaymentMethod(ctx context.Context, code enums.PaymentMethodCode) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := r.db.WithContext(ctx).First(&method, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &method, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
