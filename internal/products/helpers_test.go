package products

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/internal/kardex"
	"github.com/angelmondragon/kardex-pos/pkg/db"
	"github.com/angelmondragon/kardex-pos/pkg/db/dbtest"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/outbox"
)

type testEnv struct {
	db      *db.Client
	repo    *Repository
	gateway *Gateway
	ledger  kardex.Store
	outbox  *outbox.Service
	service Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	client := dbtest.New(t)
	logg := logger.Nop()

	catalog, err := kardex.LoadCatalog(context.Background(), client.DB())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	repo := NewRepository(client.DB())
	gateway := NewGateway(repo)
	ledger, err := kardex.NewStore(kardex.StoreParams{
		Repository: kardex.NewRepository(client.DB()),
		Catalog:    catalog,
		Stock:      gateway,
		Logger:     logg,
		Now:        func() time.Time { return time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	outboxSvc := outbox.NewService(outbox.NewRepository(client.DB()), logg)
	svc, err := NewService(ServiceParams{
		Repository: repo,
		DB:         client,
		Ledger:     ledger,
		Gateway:    gateway,
		Outbox:     outboxSvc,
		Logger:     logg,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &testEnv{db: client, repo: repo, gateway: gateway, ledger: ledger, outbox: outboxSvc, service: svc}
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func strPtr(value string) *string {
	return &value
}
