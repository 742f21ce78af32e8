// Package dashboard aggregates the point-of-sale KPIs shown on the home screen.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

const salesWindowSQL = `
SELECT
  COALESCE(SUM(total), 0) AS amount,
  COUNT(*) AS transactions
FROM sales
WHERE status = ?
  AND created_at >= ?
  AND created_at < ?
`

// Stats is recomputed on every call.
type Stats struct {
	TodaySales        decimal.Decimal `json:"today_sales"`
	TodayTransactions int64           `json:"today_transactions"`
	MonthSales        decimal.Decimal `json:"month_sales"`
	MonthTransactions int64           `json:"month_transactions"`
	AverageTicket     decimal.Decimal `json:"average_ticket"`
	LowStockCount     int64           `json:"low_stock_count"`
	TotalProducts     int64           `json:"total_products"`
}

// ProductCounter is the read side of the product catalog the dashboard needs.
type ProductCounter interface {
	CountActive(ctx context.Context) (int64, error)
	CountLowStock(ctx context.Context) (int64, error)
	ListLowStock(ctx context.Context) ([]models.Product, error)
}

type Service interface {
	Stats(ctx context.Context) (*Stats, error)
	LowStockProducts(ctx context.Context) ([]models.Product, error)
	DailySales(ctx context.Context, from, to time.Time) ([]DaySales, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error)
}

type ServiceParams struct {
	DB       *gorm.DB
	Products ProductCounter
	Logger   *logger.Logger
	Location *time.Location
	Now      func() time.Time
}

type service struct {
	db       *gorm.DB
	products ProductCounter
	logg     *logger.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product counter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:       params.DB,
		products: params.Products,
		logg:     params.Logger,
		loc:      loc,
		now:      now,
	}, nil
}

type window struct {
	Amount       decimal.Decimal
	Transactions int64
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	local := s.now().In(s.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, s.loc)

	today, err := s.salesWindow(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	month, err := s.salesWindow(ctx, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}
	lowStock, err := s.products.CountLowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count low stock products")
	}
	total, err := s.products.CountActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count products")
	}

	stats := &Stats{
		TodaySales:        today.Amount.Round(2),
		TodayTransactions: today.Transactions,
		MonthSales:        month.Amount.Round(2),
		MonthTransactions: month.Transactions,
		AverageTicket:     AverageTicket(month.Amount, month.Transactions),
		LowStockCount:     lowStock,
		TotalProducts:     total,
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"today_transactions": stats.TodayTransactions,
		"month_transactions": stats.MonthTransactions,
		"low_stock":          stats.LowStockCount,
	})
	s.logg.Debug(logCtx, "dashboard stats computed")
	return stats, nil
}

// salesWindow sums COMPLETED sales in [from, to).
func (s *service) salesWindow(ctx context.Context, from, to time.Time) (window, error) {
	var out window
	err := s.db.WithContext(ctx).
		Raw(salesWindowSQL, enums.SaleStatusCompleted, from.UTC(), to.UTC()).
		Scan(&out).Error
	if err != nil {
		return window{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate sales")
	}
	return out, nil
}

func (s *service) LowStockProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.products.ListLowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list low stock products")
	}
	return rows, nil
}

// AverageTicket is amount / transactions rounded to cents, or zero without sales.
func AverageTicket(amount decimal.Decimal, transactions int64) decimal.Decimal {
	if transactions <= 0 {
		return decimal.Zero
	}
	return amount.Div(decimal.NewFromInt(transactions)).Round(2)
}
