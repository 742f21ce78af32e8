package products

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/internal/kardex"
	"github.com/angelmondragon/kardex-pos/pkg/db"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
)

// Gateway is the only writer of products.current_stock. Every call runs inside
// a caller-supplied unit of work.
type Gateway struct {
	repo *Repository
}

func NewGateway(repo *Repository) *Gateway {
	return &Gateway{repo: repo}
}

// Product returns the locked product row inside the unit.
func (g *Gateway) Product(ctx context.Context, u *db.Unit, productID int64) (*models.Product, error) {
	tx, err := u.Require("product lookup")
	if err != nil {
		return nil, err
	}
	product, err := g.repo.WithTx(tx).FindByIDForUpdate(ctx, productID)
	if err != nil {
		if isNotFound(err) {
			return nil, kardex.ProductNotFound(productID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

// CurrentStock implements kardex.StockReader.
func (g *Gateway) CurrentStock(ctx context.Context, u *db.Unit, productID int64) (decimal.Decimal, error) {
	product, err := g.Product(ctx, u, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return product.CurrentStock, nil
}

// SetStock writes a balance already computed by the ledger and returns the
// number of rows affected.
func (g *Gateway) SetStock(ctx context.Context, u *db.Unit, productID int64, newStock decimal.Decimal) (int64, error) {
	tx, err := u.Require("set stock")
	if err != nil {
		return 0, err
	}
	if newStock.IsNegative() {
		return 0, kardex.InsufficientStock(productID, decimal.Zero, newStock.Neg())
	}
	rows, err := g.repo.WithTx(tx).UpdateStock(ctx, productID, newStock)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update current stock")
	}
	return rows, nil
}

// ApplyMovement appends a ledger row and stores the resulting balance. Zero
// affected rows surfaces as NOT_FOUND.
func ApplyMovement(ctx context.Context, u *db.Unit, ledger kardex.Store, gateway *Gateway, input kardex.AppendInput) (*models.StockMovement, error) {
	movement, err := ledger.Append(ctx, u, input)
	if err != nil {
		return nil, err
	}
	rows, err := gateway.SetStock(ctx, u, input.ProductID, movement.NewStock)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, kardex.ProductNotFound(input.ProductID)
	}
	return movement, nil
}
