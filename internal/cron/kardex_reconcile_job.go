package cron

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

const (
	KardexReconcileJobName = "kardex-reconciliation"

	defaultReconcileBatch = 200
)

type activeProductPager interface {
	ListActiveAfter(ctx context.Context, afterID int64, limit int) ([]models.Product, error)
}

type latestMovementReader interface {
	LatestByProduct(ctx context.Context, productIDs []int64) (map[int64]models.StockMovement, error)
}

type KardexReconcileJobParams struct {
	Logger    *logger.Logger
	Products  activeProductPager
	Movements latestMovementReader
	BatchSize int
}

// KardexReconcileJob checks that every active product's stock equals the
// new_stock of its latest ledger row. It reports drift and never repairs it.
type KardexReconcileJob struct {
	logg      *logger.Logger
	products  activeProductPager
	movements latestMovementReader
	batch     int
}

// StockDriftError describes a product whose stock disagrees with its ledger.
type StockDriftError struct {
	ProductID    int64
	CurrentStock decimal.Decimal
	LedgerStock  decimal.Decimal
}

func (e *StockDriftError) Error() string {
	return fmt.Sprintf("product %d: current stock %s, ledger says %s", e.ProductID, e.CurrentStock, e.LedgerStock)
}

func NewKardexReconcileJob(params KardexReconcileJobParams) (*KardexReconcileJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product pager required")
	}
	if params.Movements == nil {
		return nil, fmt.Errorf("movement reader required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &KardexReconcileJob{
		logg:      params.Logger,
		products:  params.Products,
		movements: params.Movements,
		batch:     batch,
	}, nil
}

func (j *KardexReconcileJob) Name() string { return KardexReconcileJobName }

func (j *KardexReconcileJob) Run(ctx context.Context) error {
	var (
		drift   error
		checked int
		afterID int64
	)
	for {
		page, err := j.products.ListActiveAfter(ctx, afterID, j.batch)
		if err != nil {
			return multierr.Append(drift, fmt.Errorf("list products after %d: %w", afterID, err))
		}
		if len(page) == 0 {
			break
		}
		ids := make([]int64, 0, len(page))
		for _, product := range page {
			ids = append(ids, product.ID)
		}
		latest, err := j.movements.LatestByProduct(ctx, ids)
		if err != nil {
			return multierr.Append(drift, fmt.Errorf("load latest movements: %w", err))
		}
		for _, product := range page {
			checked++
			if mismatch := compareLedger(product, latest); mismatch != nil {
				logCtx := j.logg.WithFields(ctx, map[string]any{
					"product_id":    mismatch.ProductID,
					"current_stock": mismatch.CurrentStock.String(),
					"ledger_stock":  mismatch.LedgerStock.String(),
				})
				j.logg.Warn(logCtx, "stock drift detected")
				drift = multierr.Append(drift, mismatch)
			}
		}
		afterID = page[len(page)-1].ID
		if len(page) < j.batch {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"checked": checked,
		"drift":   len(multierr.Errors(drift)),
	})
	j.logg.Info(logCtx, "kardex reconciliation complete")
	return drift
}

// compareLedger treats a product without movements as having a ledger balance of zero.
func compareLedger(product models.Product, latest map[int64]models.StockMovement) *StockDriftError {
	ledger := decimal.Zero
	if movement, ok := latest[product.ID]; ok {
		ledger = movement.NewStock
	}
	if product.CurrentStock.Equal(ledger) {
		return nil
	}
	return &StockDriftError{ProductID: product.ID, CurrentStock: product.CurrentStock, LedgerStock: ledger}
}
