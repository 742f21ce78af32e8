package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/kardex-pos/internal/kardex"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/outbox"
)

const LowStockSweepJobName = "low-stock-sweep"

type lowStockLister interface {
	ListLowStock(ctx context.Context) ([]models.Product, error)
}

type LowStockSweepJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Products lowStockLister
	Outbox   *outbox.Service
	Location *time.Location
	Now      func() time.Time
}

// LowStockSweepJob re-announces products sitting at or below their minimum,
// at most once per product per business day.
type LowStockSweepJob struct {
	logg     *logger.Logger
	db       txRunner
	products lowStockLister
	outbox   *outbox.Service
	loc      *time.Location
	now      func() time.Time
}

func NewLowStockSweepJob(params LowStockSweepJobParams) (*LowStockSweepJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product lister required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &LowStockSweepJob{
		logg:     params.Logger,
		db:       params.DB,
		products: params.Products,
		outbox:   params.Outbox,
		loc:      loc,
		now:      now,
	}, nil
}

func (j *LowStockSweepJob) Name() string { return LowStockSweepJobName }

func (j *LowStockSweepJob) Run(ctx context.Context) error {
	now := j.now()
	local := now.In(j.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, j.loc)

	products, err := j.products.ListLowStock(ctx)
	if err != nil {
		return fmt.Errorf("list low stock products: %w", err)
	}

	var (
		errs    error
		emitted int
	)
	for _, product := range products {
		event := kardex.LowStockEvent(product.ID, product.Name, product.CurrentStock, product.MinimumStock, nil)
		event.OccurredAt = now
		var written bool
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			written, err = j.outbox.EmitIfNotExists(ctx, tx, event, dayStart)
			return err
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("product %d: %w", product.ID, err))
			continue
		}
		if written {
			emitted++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"low_stock": len(products),
		"emitted":   emitted,
		"failed":    len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "low stock sweep complete")
	return errs
}
