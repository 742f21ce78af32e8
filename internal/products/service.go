package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/internal/kardex"
	"github.com/angelmondragon/kardex-pos/pkg/db"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/outbox"
)

const (
	initialStockNote = "initial stock"
	defaultListLimit = 200
)

// Service exposes product administration for the POS.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, productID int64, input UpdateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, productID int64) error
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	FindByCode(ctx context.Context, code string) (*models.Product, error)
	SearchProducts(ctx context.Context, input SearchInput) ([]models.Product, error)
	LowStockProducts(ctx context.Context) ([]models.Product, error)
}

// CreateProductInput holds the payload to create a product. InitialStock is
// recorded as a POSITIVE_ADJUSTMENT movement, never written directly.
type CreateProductInput struct {
	Name          string
	SKU           *string
	Barcode       *string
	CategoryID    *int64
	MinimumStock  decimal.Decimal
	PurchasePrice decimal.Decimal
	SalePrice     decimal.Decimal
	InitialStock  decimal.Decimal
	Description   *string
	ImagePath     *string
	CreatedBy     string
}

// UpdateProductInput holds optional mutation values. Stock is not editable here.
type UpdateProductInput struct {
	Name          *string
	SKU           *string
	Barcode       *string
	CategoryID    *int64
	MinimumStock  *decimal.Decimal
	PurchasePrice *decimal.Decimal
	SalePrice     *decimal.Decimal
	Description   *string
	ImagePath     *string
	Active        *bool
}

type SearchInput struct {
	Query        string
	CategoryID   *int64
	LowStockOnly bool
	Limit        int
}

type ServiceParams struct {
	Repository *Repository
	DB         *db.Client
	Ledger     kardex.Store
	Gateway    *Gateway
	Outbox     *outbox.Service
	Logger     *logger.Logger
}

type service struct {
	repo    *Repository
	db      *db.Client
	ledger  kardex.Store
	gateway *Gateway
	outbox  *outbox.Service
	logg    *logger.Logger
}

// NewService constructs a product service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("kardex store required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("stock gateway required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repository,
		db:      params.DB,
		ledger:  params.Ledger,
		gateway: params.Gateway,
		outbox:  params.Outbox,
		logg:    params.Logger,
	}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	fields := productFields{
		Name:          strings.TrimSpace(input.Name),
		SKU:           normalizeCode(input.SKU),
		Barcode:       normalizeCode(input.Barcode),
		CategoryID:    input.CategoryID,
		MinimumStock:  input.MinimumStock,
		PurchasePrice: input.PurchasePrice,
		SalePrice:     input.SalePrice,
	}
	if err := validateFields(fields); err != nil {
		return nil, err
	}
	if input.InitialStock.IsNegative() {
		return nil, fieldError("initial_stock", "initial stock cannot be negative")
	}

	product := &models.Product{
		Name:          fields.Name,
		SKU:           fields.SKU,
		Barcode:       fields.Barcode,
		CategoryID:    fields.CategoryID,
		MinimumStock:  fields.MinimumStock,
		PurchasePrice: fields.PurchasePrice,
		SalePrice:     fields.SalePrice,
		Description:   input.Description,
		ImagePath:     input.ImagePath,
		Active:        true,
	}

	err := s.db.Run(ctx, func(u *db.Unit) error {
		repo := s.repo.WithTx(u.Tx())
		if err := validateReferences(ctx, repo, fields, 0); err != nil {
			return err
		}
		if err := repo.Create(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku or barcode already in use")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
		}
		if !input.InitialStock.IsPositive() {
			return nil
		}
		movement, err := ApplyMovement(ctx, u, s.ledger, s.gateway, kardex.AppendInput{
			ProductID: product.ID,
			Code:      enums.MovementPositiveAdjustment,
			Quantity:  input.InitialStock,
			UnitPrice: decimal.NewNullDecimal(product.PurchasePrice),
			Notes:     initialStockNote,
			CreatedBy: input.CreatedBy,
		})
		if err != nil {
			return err
		}
		product.CurrentStock = movement.NewStock
		if s.outbox != nil {
			return s.outbox.Emit(ctx, u.Tx(), kardex.MovementRecordedEvent(movement, kardex.ActorFor(input.CreatedBy)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"product_id":    product.ID,
		"initial_stock": product.CurrentStock.String(),
	})
	s.logg.Info(logCtx, "product created")
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, productID int64, input UpdateProductInput) (*models.Product, error) {
	var product *models.Product
	err := s.db.Run(ctx, func(u *db.Unit) error {
		repo := s.repo.WithTx(u.Tx())
		existing, err := repo.FindByIDForUpdate(ctx, productID)
		if err != nil {
			if isNotFound(err) {
				return kardex.ProductNotFound(productID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}

		if input.Name != nil {
			existing.Name = strings.TrimSpace(*input.Name)
		}
		if input.SKU != nil {
			existing.SKU = normalizeCode(input.SKU)
		}
		if input.Barcode != nil {
			existing.Barcode = normalizeCode(input.Barcode)
		}
		if input.CategoryID != nil {
			existing.CategoryID = input.CategoryID
		}
		if input.MinimumStock != nil {
			existing.MinimumStock = *input.MinimumStock
		}
		if input.PurchasePrice != nil {
			existing.PurchasePrice = *input.PurchasePrice
		}
		if input.SalePrice != nil {
			existing.SalePrice = *input.SalePrice
		}
		if input.Description != nil {
			existing.Description = input.Description
		}
		if input.ImagePath != nil {
			existing.ImagePath = input.ImagePath
		}
		if input.Active != nil {
			existing.Active = *input.Active
		}

		fields := productFields{
			Name:          existing.Name,
			SKU:           existing.SKU,
			Barcode:       existing.Barcode,
			MinimumStock:  existing.MinimumStock,
			PurchasePrice: existing.PurchasePrice,
			SalePrice:     existing.SalePrice,
		}
		if input.CategoryID != nil {
			fields.CategoryID = input.CategoryID
		}
		if err := validateFields(fields); err != nil {
			return err
		}
		if err := validateReferences(ctx, repo, fields, productID); err != nil {
			return err
		}
		if err := repo.Update(ctx, existing); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku or barcode already in use")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
		}
		product = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct deactivates the product. Its ledger history stays intact.
func (s *service) DeleteProduct(ctx context.Context, productID int64) error {
	rows, err := s.repo.Deactivate(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate product")
	}
	if rows == 0 {
		return kardex.ProductNotFound(productID)
	}
	logCtx := s.logg.WithField(ctx, "product_id", productID)
	s.logg.Info(logCtx, "product deactivated")
	return nil
}

func (s *service) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if isNotFound(err) {
			return nil, kardex.ProductNotFound(productID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

// FindByCode resolves a scanned SKU or barcode to an active product.
func (s *service) FindByCode(ctx context.Context, code string) (*models.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fieldError("code", "code is required")
	}
	product, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"code": code})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find product by code")
	}
	return product, nil
}

func (s *service) SearchProducts(ctx context.Context, input SearchInput) ([]models.Product, error) {
	limit := input.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	rows, err := s.repo.Search(ctx, SearchFilter{
		Term:         input.Query,
		CategoryID:   input.CategoryID,
		LowStockOnly: input.LowStockOnly,
		Limit:        limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search products")
	}
	return rows, nil
}

func (s *service) LowStockProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.repo.ListLowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list low stock products")
	}
	return rows, nil
}
