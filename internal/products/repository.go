package products

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/kardex-pos/pkg/db"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
)

// editableColumns are the columns product create/update may write.
// current_stock is deliberately absent; only the gateway writes it.
var editableColumns = []string{
	"name",
	"sku",
	"barcode",
	"category_id",
	"minimum_stock",
	"purchase_price",
	"sale_price",
	"description",
	"image_path",
	"active",
	"updated_at",
}

// Repository wires together product persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
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

// Create inserts the product with a zero balance.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	product.CurrentStock = decimal.Zero
	return r.db.WithContext(ctx).Create(product).Error
}

// Update writes the editable columns. It never touches current_stock.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(product).
		Select(editableColumns).
		Updates(product).Error
}

// FindByID loads the product regardless of its active flag.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate loads the product and locks the row on postgres.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := db.LockForUpdate(r.db.WithContext(ctx)).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindActiveByCode resolves a scanner code against SKU first, then barcode.
func (r *Repository) FindActiveByCode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("sku = ? OR barcode = ?", code, code).
		Order(clause.OrderBy{Expression: clause.Expr{SQL: "CASE WHEN sku = ? THEN 0 ELSE 1 END", Vars: []any{code}}}).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// SKUTaken reports whether another product already uses the SKU.
func (r *Repository) SKUTaken(ctx context.Context, sku string, excludeID int64) (bool, error) {
	return r.columnTaken(ctx, "sku", sku, excludeID)
}

// BarcodeTaken reports whether another product already uses the barcode.
func (r *Repository) BarcodeTaken(ctx context.Context, barcode string, excludeID int64) (bool, error) {
	return r.columnTaken(ctx, "barcode", barcode, excludeID)
}

func (r *Repository) columnTaken(ctx context.Context, column, value string, excludeID int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where(column+" = ?", value)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SearchFilter narrows Search. Zero fields do not filter.
type SearchFilter struct {
	Term         string
	CategoryID   *int64
	LowStockOnly bool
	Limit        int
}

// Search matches active products by name, SKU or barcode.
func (r *Repository) Search(ctx context.Context, f SearchFilter) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Where("active = ?", true)
	if term := strings.TrimSpace(f.Term); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(name) LIKE ? OR sku = ? OR barcode = ?", like, term, term)
	}
	if f.CategoryID != nil {
		query = query.Where("category_id = ?", *f.CategoryID)
	}
	if f.LowStockOnly {
		query = query.Where("current_stock <= minimum_stock")
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	var rows []models.Product
	if err := query.Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListLowStock returns active products at or below their minimum, lowest stock first.
func (r *Repository) ListLowStock(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("current_stock <= minimum_stock").
		Order("current_stock ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveAfter pages through active products by id.
func (r *Repository) ListActiveAfter(ctx context.Context, afterID int64, limit int) ([]models.Product, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Where("active = ? AND id > ?", true, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountActive counts active products.
func (r *Repository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("active = ?", true).Count(&count).Error
	return count, err
}

// CountLowStock counts active products at or below their minimum.
func (r *Repository) CountLowStock(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("active = ?", true).
		Where("current_stock <= minimum_stock").
		Count(&count).Error
	return count, err
}

// Deactivate soft-deletes the product.
func (r *Repository) Deactivate(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("active", false)
	return res.RowsAffected, res.Error
}

// UpdateStock writes the balance keyed by id. It is only called by Gateway.
func (r *Repository) UpdateStock(ctx context.Context, id int64, stock decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("current_stock", stock)
	return res.RowsAffected, res.Error
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// CategoryExists reports whether an active category with the id exists.
func (r *Repository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("id = ? AND active = ?", id, true).
		Count(&count).Error
	return count > 0, err
}
