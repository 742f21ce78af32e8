package sales

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/internal/invoicing"
	"github.com/angelmondragon/kardex-pos/internal/kardex"
	"github.com/angelmondragon/kardex-pos/internal/products"
	"github.com/angelmondragon/kardex-pos/pkg/db"
	"github.com/angelmondragon/kardex-pos/pkg/db/dbtest"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/outbox"
)

var fixedNow = time.Date(2025, 1, 1, 15, 30, 0, 0, time.UTC)

type testEnv struct {
	db       *db.Client
	repo     *Repository
	ledger   kardex.Store
	products products.Service
	listener *recordingListener
	service  Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(t, dbtest.New(t))
}

func newTestEnvOn(t *testing.T, client *db.Client) *testEnv {
	t.Helper()
	logg := logger.Nop()
	now := func() time.Time { return fixedNow }

	catalog, err := kardex.LoadCatalog(context.Background(), client.DB())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	productRepo := products.NewRepository(client.DB())
	gateway := products.NewGateway(productRepo)
	ledger, err := kardex.NewStore(kardex.StoreParams{
		Repository: kardex.NewRepository(client.DB()),
		Catalog:    catalog,
		Stock:      gateway,
		Logger:     logg,
		Now:        now,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	outboxSvc := outbox.NewService(outbox.NewRepository(client.DB()), logg)
	productSvc, err := products.NewService(products.ServiceParams{
		Repository: productRepo,
		DB:         client,
		Ledger:     ledger,
		Gateway:    gateway,
		Outbox:     outboxSvc,
		Logger:     logg,
	})
	if err != nil {
		t.Fatalf("new product service: %v", err)
	}
	numberer, err := invoicing.NewService(invoicing.ServiceParams{
		Lookup: invoicing.NewSaleLookup(),
		Logger: logg,
	})
	if err != nil {
		t.Fatalf("new numberer: %v", err)
	}

	repo := NewRepository(client.DB())
	listener := &recordingListener{}
	svc, err := NewService(ServiceParams{
		DB:         client,
		Repository: repo,
		Ledger:     ledger,
		Gateway:    gateway,
		Numberer:   numberer,
		Outbox:     outboxSvc,
		Listener:   listener,
		Logger:     logg,
		Now:        now,
	})
	if err != nil {
		t.Fatalf("new sales service: %v", err)
	}
	return &testEnv{
		db:       client,
		repo:     repo,
		ledger:   ledger,
		products: productSvc,
		listener: listener,
		service:  svc,
	}
}

func (e *testEnv) product(t *testing.T, name, stock, minimum, price string) *models.Product {
	t.Helper()
	product, err := e.products.CreateProduct(context.Background(), products.CreateProductInput{
		Name:          name,
		MinimumStock:  dec(minimum),
		PurchasePrice: dec(price),
		SalePrice:     dec(price),
		InitialStock:  dec(stock),
	})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return product
}

func (e *testEnv) stockOf(t *testing.T, productID int64) decimal.Decimal {
	t.Helper()
	product, err := e.products.GetProduct(context.Background(), productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	return product.CurrentStock
}

func (e *testEnv) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := e.db.DB().Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func line(productID int64, quantity, price string) SaleItemInput {
	return SaleItemInput{ProductID: productID, Quantity: dec(quantity), UnitPrice: dec(price)}
}

type recordingListener struct {
	mu        sync.Mutex
	completed []SaleNotice
	cancelled []SaleNotice
	changes   []StockChange
	alerts    []LowStockAlert
}

func (l *recordingListener) SaleCompleted(_ context.Context, n SaleNotice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.completed = append(l.completed, n)
}

func (l *recordingListener) SaleCancelled(_ context.Context, n SaleNotice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelled = append(l.cancelled, n)
}

func (l *recordingListener) StockChanged(_ context.Context, c StockChange) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, c)
}

func (l *recordingListener) LowStock(_ context.Context, a LowStockAlert) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.alerts = append(l.alerts, a)
}
