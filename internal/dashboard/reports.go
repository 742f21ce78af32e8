package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
)

const (
	dayLayout       = "2006-01-02"
	maxReportDays   = 366
	DefaultTopLimit = 5
	MaxTopLimit     = 50
)

const topProductsSQL = `
SELECT
  si.product_id AS product_id,
  MAX(si.product_name) AS product_name,
  SUM(si.quantity) AS quantity,
  SUM(si.subtotal) AS revenue
FROM sale_items si
JOIN sales s ON s.id = si.sale_id
WHERE s.status = ?
  AND s.created_at >= ?
  AND s.created_at < ?
GROUP BY si.product_id
ORDER BY quantity DESC, revenue DESC, product_id ASC
LIMIT ?
`

// DaySales is one business day of completed sales.
type DaySales struct {
	Day          string          `json:"day"`
	Amount       decimal.Decimal `json:"amount"`
	Transactions int64           `json:"transactions"`
}

// TopProduct ranks a product by units sold in a range.
type TopProduct struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// DailySales returns one entry per business day in [from, to], both days
// inclusive, with days without sales reported as zero.
func (s *service) DailySales(ctx context.Context, from, to time.Time) ([]DaySales, error) {
	start, end, err := s.dayRange(from, to)
	if err != nil {
		return nil, err
	}

	var rows []models.Sale
	if err := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select("created_at, total").
		Where("status = ?", enums.SaleStatusCompleted).
		Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load sales for daily report")
	}

	byDay := make(map[string]*DaySales)
	var out []DaySales
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		out = append(out, DaySales{Day: day.Format(dayLayout), Amount: decimal.Zero})
	}
	for i := range out {
		byDay[out[i].Day] = &out[i]
	}
	for _, row := range rows {
		bucket, ok := byDay[row.CreatedAt.In(s.loc).Format(dayLayout)]
		if !ok {
			continue
		}
		bucket.Amount = bucket.Amount.Add(row.Total)
		bucket.Transactions++
	}
	for i := range out {
		out[i].Amount = out[i].Amount.Round(2)
	}
	return out, nil
}

// TopProducts ranks products by quantity sold in completed sales between the
// two business days, inclusive. limit falls back to DefaultTopLimit.
func (s *service) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	start, end, err := s.dayRange(from, to)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	if limit > MaxTopLimit {
		limit = MaxTopLimit
	}

	var rows []TopProduct
	if err := s.db.WithContext(ctx).
		Raw(topProductsSQL, enums.SaleStatusCompleted, start.UTC(), end.UTC(), limit).
		Scan(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rank products")
	}
	for i := range rows {
		rows[i].Quantity = rows[i].Quantity.Round(3)
		rows[i].Revenue = rows[i].Revenue.Round(2)
	}
	return rows, nil
}

// dayRange turns two calendar days into [midnight of from, midnight after to)
// in the business timezone.
func (s *service) dayRange(from, to time.Time) (time.Time, time.Time, error) {
	if from.IsZero() || to.IsZero() {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "from and to are required").
			WithDetails(map[string]any{"field": "from"})
	}
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, s.loc)
	last := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, s.loc)
	if last.Before(start) {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to").
			WithDetails(map[string]any{"field": "from"})
	}
	end := last.AddDate(0, 0, 1)
	if end.Sub(start) > maxReportDays*24*time.Hour+time.Hour {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("range cannot exceed %d days", maxReportDays)).
			WithDetails(map[string]any{"field": "to"})
	}
	return start, end, nil
}
