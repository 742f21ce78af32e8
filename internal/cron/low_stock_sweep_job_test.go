package cron

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/internal/products"
	"github.com/angelmondragon/kardex-pos/pkg/db/dbtest"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/outbox"
)

func TestLowStockSweepEmitsOncePerDay(t *testing.T) {
	client := dbtest.New(t)
	conn := client.DB()
	seed := func(name, stock, minimum string, active bool) {
		product := models.Product{
			Name:          name,
			CurrentStock:  decimal.RequireFromString(stock),
			MinimumStock:  decimal.RequireFromString(minimum),
			PurchasePrice: decimal.NewFromInt(1),
			SalePrice:     decimal.NewFromInt(2),
			Active:        active,
		}
		if err := conn.Create(&product).Error; err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
	seed("low", "1", "3", true)
	seed("edge", "3", "3", true)
	seed("fine", "9", "3", true)
	seed("inactive", "0", "3", false)

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	job, err := NewLowStockSweepJob(LowStockSweepJobParams{
		Logger:   logger.Nop(),
		DB:       client,
		Products: products.NewRepository(conn),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewLowStockSweepJob: %v", err)
	}

	countLow := func() int64 {
		var n int64
		if err := conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventStockLow).Count(&n).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		return n
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if n := countLow(); n != 2 {
		t.Fatalf("expected 2 stock_low events, got %d", n)
	}

	now = now.Add(3 * time.Hour)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n := countLow(); n != 2 {
		t.Fatalf("same-day rerun must not duplicate, got %d", n)
	}

	now = now.Add(24 * time.Hour)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("next day run: %v", err)
	}
	if n := countLow(); n != 4 {
		t.Fatalf("expected fresh events on the next day, got %d", n)
	}
}
