package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

type fakeProductPager struct {
	products []models.Product
	calls    int
}

func (f *fakeProductPager) ListActiveAfter(_ context.Context, afterID int64, limit int) ([]models.Product, error) {
	f.calls++
	var page []models.Product
	for _, p := range f.products {
		if p.ID > afterID && len(page) < limit {
			page = append(page, p)
		}
	}
	return page, nil
}

type fakeLatest struct {
	rows map[int64]models.StockMovement
	err  error
}

func (f fakeLatest) LatestByProduct(_ context.Context, ids []int64) (map[int64]models.StockMovement, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[int64]models.StockMovement{}
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out[id] = row
		}
	}
	return out, nil
}

func stockProduct(id int64, stock string) models.Product {
	return models.Product{ID: id, CurrentStock: decimal.RequireFromString(stock)}
}

func ledgerRow(stock string) models.StockMovement {
	return models.StockMovement{NewStock: decimal.RequireFromString(stock)}
}

func TestKardexReconcileReportsEveryDrift(t *testing.T) {
	pager := &fakeProductPager{products: []models.Product{
		stockProduct(1, "5"),
		stockProduct(2, "4"),
		stockProduct(3, "0"),
		stockProduct(4, "2"),
		stockProduct(5, "7.5"),
	}}
	latest := fakeLatest{rows: map[int64]models.StockMovement{
		1: ledgerRow("5"),
		2: ledgerRow("3"),
		5: ledgerRow("7.500"),
	}}
	job, err := NewKardexReconcileJob(KardexReconcileJobParams{
		Logger:    logger.Nop(),
		Products:  pager,
		Movements: latest,
		BatchSize: 2,
	})
	if err != nil {
		t.Fatalf("NewKardexReconcileJob: %v", err)
	}

	err = job.Run(context.Background())
	drift := multierr.Errors(err)
	if len(drift) != 2 {
		t.Fatalf("expected 2 drifted products, got %v", err)
	}
	var first *StockDriftError
	if !errors.As(drift[0], &first) || first.ProductID != 2 {
		t.Fatalf("expected drift on product 2, got %v", drift[0])
	}
	var second *StockDriftError
	if !errors.As(drift[1], &second) || second.ProductID != 4 || !second.LedgerStock.IsZero() {
		t.Fatalf("expected product 4 without movements to drift from zero, got %v", drift[1])
	}
	if pager.calls != 3 {
		t.Fatalf("expected 3 pages, got %d", pager.calls)
	}
}

func TestKardexReconcileCleanLedger(t *testing.T) {
	job, err := NewKardexReconcileJob(KardexReconcileJobParams{
		Logger:    logger.Nop(),
		Products:  &fakeProductPager{products: []models.Product{stockProduct(1, "0")}},
		Movements: fakeLatest{},
	})
	if err != nil {
		t.Fatalf("NewKardexReconcileJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected clean run, got %v", err)
	}
}

func TestKardexReconcileLoaderFailure(t *testing.T) {
	job, err := NewKardexReconcileJob(KardexReconcileJobParams{
		Logger:    logger.Nop(),
		Products:  &fakeProductPager{products: []models.Product{stockProduct(1, "0")}},
		Movements: fakeLatest{err: errors.New("db gone")},
	})
	if err != nil {
		t.Fatalf("NewKardexReconcileJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected loader error")
	}
}
