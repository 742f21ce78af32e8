package kardex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/pkg/db"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/pagination"
)

// StockReader reads a product's balance inside an open unit of work, locking
// the row where the engine supports it.
type StockReader interface {
	CurrentStock(ctx context.Context, u *db.Unit, productID int64) (decimal.Decimal, error)
}

// Store is the append-only stock ledger.
type Store interface {
	Append(ctx context.Context, u *db.Unit, input AppendInput) (*models.StockMovement, error)
	History(ctx context.Context, productID int64) ([]models.StockMovement, error)
	HistoryPage(ctx context.Context, productID int64, params pagination.Params) (*HistoryPage, error)
	Catalog() *Catalog
}

// AppendInput describes one movement. Quantity is a magnitude; the movement
// type's sign decides the direction.
type AppendInput struct {
	ProductID int64
	Code      enums.MovementCode
	Quantity  decimal.Decimal
	UnitPrice decimal.NullDecimal
	Reference string
	Notes     string
	CreatedBy string
}

// HistoryPage is one cursor page of movements, newest first.
type HistoryPage struct {
	Movements  []models.StockMovement
	NextCursor string
}

type StoreParams struct {
	Repository Repository
	Catalog    *Catalog
	Stock      StockReader
	Logger     *logger.Logger
	Now        func() time.Time
}

type store struct {
	repo    Repository
	catalog *Catalog
	stock   StockReader
	logg    *logger.Logger
	now     func() time.Time
}

func NewStore(params StoreParams) (Store, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("kardex repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("movement catalog required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock reader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &store{
		repo:    params.Repository,
		catalog: params.Catalog,
		stock:   params.Stock,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *store) Catalog() *Catalog {
	return s.catalog
}

// Append validates the movement against the current balance and inserts one
// row. It never writes products.current_stock; the caller stores the returned
// NewStock through the stock gateway inside the same unit.
func (s *store) Append(ctx context.Context, u *db.Unit, input AppendInput) (*models.StockMovement, error) {
	tx, err := u.Require("kardex append")
	if err != nil {
		return nil, err
	}
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movement quantity must be greater than zero").
			WithDetails(map[string]any{"field": "quantity", "product_id": input.ProductID})
	}
	movementType, err := s.catalog.Lookup(input.Code)
	if err != nil {
		return nil, err
	}

	current, err := s.stock.CurrentStock(ctx, u, input.ProductID)
	if err != nil {
		return nil, err
	}

	delta := input.Quantity.Mul(decimal.NewFromInt(int64(movementType.Sign)))
	next := current.Add(delta)
	if next.IsNegative() {
		return nil, InsufficientStock(input.ProductID, current, input.Quantity)
	}

	movement := &models.StockMovement{
		ProductID:      input.ProductID,
		MovementTypeID: movementType.ID,
		MovementCode:   movementType.Code,
		Quantity:       input.Quantity,
		PreviousStock:  current,
		NewStock:       next,
		UnitPrice:      input.UnitPrice,
		Reference:      optional(input.Reference),
		Notes:          optional(input.Notes),
		CreatedAt:      s.now().UTC(),
		CreatedBy:      optional(input.CreatedBy),
	}
	if err := s.repo.WithTx(tx).Insert(ctx, movement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert stock movement")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"product_id":     movement.ProductID,
		"movement_code":  movement.MovementCode,
		"quantity":       movement.Quantity.String(),
		"previous_stock": movement.PreviousStock.String(),
		"new_stock":      movement.NewStock.String(),
	})
	s.logg.Debug(logCtx, "stock movement appended")
	return movement, nil
}

func (s *store) History(ctx context.Context, productID int64) ([]models.StockMovement, error) {
	rows, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stock movements")
	}
	return rows, nil
}

func (s *store) HistoryPage(ctx context.Context, productID int64, params pagination.Params) (*HistoryPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByProductPage(ctx, productID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stock movements")
	}

	page := &HistoryPage{}
	page.Movements, page.NextCursor = pagination.Trim(rows, params.Limit, func(m models.StockMovement) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return page, nil
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
