package sales

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/pkg/enums"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

// SaleNotice describes a committed sale state change.
type SaleNotice struct {
	SaleID        int64
	InvoiceNumber string
	Total         decimal.Decimal
}

// StockChange describes one committed ledger row.
type StockChange struct {
	ProductID     int64
	MovementCode  enums.MovementCode
	PreviousStock decimal.Decimal
	NewStock      decimal.Decimal
}

// LowStockAlert fires when a product ends a unit at or below its minimum.
type LowStockAlert struct {
	ProductID    int64
	ProductName  string
	CurrentStock decimal.Decimal
	MinimumStock decimal.Decimal
}

// Listener receives in-process notifications after a unit commits. Durable
// delivery goes through the outbox instead.
type Listener interface {
	SaleCompleted(ctx context.Context, notice SaleNotice)
	SaleCancelled(ctx context.Context, notice SaleNotice)
	StockChanged(ctx context.Context, change StockChange)
	LowStock(ctx context.Context, alert LowStockAlert)
}

// Listeners fans notifications out in order.
type Listeners []Listener

func (l Listeners) SaleCompleted(ctx context.Context, notice SaleNotice) {
	for _, listener := range l {
		listener.SaleCompleted(ctx, notice)
	}
}

func (l Listeners) SaleCancelled(ctx context.Context, notice SaleNotice) {
	for _, listener := range l {
		listener.SaleCancelled(ctx, notice)
	}
}

func (l Listeners) StockChanged(ctx context.Context, change StockChange) {
	for _, listener := range l {
		listener.StockChanged(ctx, change)
	}
}

func (l Listeners) LowStock(ctx context.Context, alert LowStockAlert) {
	for _, listener := range l {
		listener.LowStock(ctx, alert)
	}
}

type NopListener struct{}

func (NopListener) SaleCompleted(context.Context, SaleNotice) {}
func (NopListener) SaleCancelled(context.Context, SaleNotice) {}
func (NopListener) StockChanged(context.Context, StockChange) {}
func (NopListener) LowStock(context.Context, LowStockAlert) {}

// LogListener writes low stock alerts to the service log.
type LogListener struct {
	NopListener
	Logger *logger.Logger
}

func (l LogListener) LowStock(ctx context.Context, alert LowStockAlert) {
	if l.Logger == nil {
		return
	}
	logCtx := l.Logger.WithFields(ctx, map[string]any{
		"product_id":    alert.ProductID,
		"product_name":  alert.ProductName,
		"current_stock": alert.CurrentStock.String(),
		"minimum_stock": alert.MinimumStock.String(),
	})
	l.Logger.Warn(logCtx, "product reached minimum stock")
}
