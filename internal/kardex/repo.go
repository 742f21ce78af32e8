package kardex

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/pagination"
)

// Repository persists kardex rows. It only ever inserts and reads.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, movement *models.StockMovement) error
	ListByProduct(ctx context.Context, productID int64) ([]models.StockMovement, error)
	ListByProductPage(ctx context.Context, productID int64, limit int, cursor *pagination.Cursor) ([]models.StockMovement, error)
	LatestByProduct(ctx context.Context, productIDs []int64) (map[int64]models.StockMovement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a kardex repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListByProduct(ctx context.Context, productID int64) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByProductPage returns up to limit+1 movements after cursor, newest
// first.
func (r *repository) ListByProductPage(ctx context.Context, productID int64, limit int, cursor *pagination.Cursor) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	query := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if err := pagination.Scope(query, cursor, limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// LatestByProduct returns the newest movement per product. Products without
// movements are absent from the map.
func (r *repository) LatestByProduct(ctx context.Context, productIDs []int64) (map[int64]models.StockMovement, error) {
	out := make(map[int64]models.StockMovement, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	latest := r.db.
		Model(&models.StockMovement{}).
		Select("MAX(id)").
		Where("product_id IN ?", productIDs).
		Group("product_id")

	var rows []models.StockMovement
	if err := r.db.WithContext(ctx).Where("id IN (?)", latest).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ProductID] = row
	}
	return out, nil
}
