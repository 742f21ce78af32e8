package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/kardex-pos/api/controllers"
	"github.com/angelmondragon/kardex-pos/api/middleware"
	"github.com/angelmondragon/kardex-pos/internal/customers"
	"github.com/angelmondragon/kardex-pos/internal/dashboard"
	"github.com/angelmondragon/kardex-pos/internal/paymentmethods"
	"github.com/angelmondragon/kardex-pos/internal/products"
	"github.com/angelmondragon/kardex-pos/internal/sales"
	"github.com/angelmondragon/kardex-pos/pkg/config"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

type idempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

type movementCatalog interface {
	Types() []models.MovementType
}

type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	Location       *time.Location
	Ready          map[string]controllers.Pinger
	Metrics        http.Handler
	Idempotency    idempotencyStore
	Products       products.Service
	Sales          sales.Service
	Dashboard      dashboard.Service
	Customers      customers.Service
	PaymentMethods paymentmethods.Service
	Catalog        movementCatalog
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Ready))
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics)
	}

	// A nil store disables replay protection; the handlers still run.
	idempotent := middleware.Idempotency(p.Idempotency, middleware.DefaultIdempotencyTTL, logg)
	critical := middleware.Idempotency(p.Idempotency, middleware.CriticalIdempotencyTTL, logg)
	adminOnly := middleware.RequireRoles(logg, enums.OperatorRoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, cfg.FeatureFlags.RequireAuth, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.SearchProducts(p.Products, logg))
			r.Get("/code/{code}", controllers.FindProductByCode(p.Products, logg))
			r.Get("/{productID}", controllers.GetProduct(p.Products, logg))
			r.Get("/{productID}/kardex", controllers.StockHistory(p.Sales, logg))

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.With(idempotent).Post("/", controllers.CreateProduct(p.Products, logg))
				r.Put("/{productID}", controllers.UpdateProduct(p.Products, logg))
				r.Delete("/{productID}", controllers.DeleteProduct(p.Products, logg))
				r.With(idempotent).Post("/{productID}/movements", controllers.RegisterStockMovement(p.Sales, logg))
				r.With(idempotent).Post("/{productID}/adjust", controllers.AdjustStock(p.Sales, logg))
			})
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", controllers.ListSales(p.Sales, loc, logg))
			r.Get("/invoice/{invoice}", controllers.GetSaleByInvoice(p.Sales, logg))
			r.Get("/{saleID}", controllers.GetSale(p.Sales, logg))
			r.With(critical).Post("/", controllers.CreateSale(p.Sales, logg))
			r.With(critical).Post("/{saleID}/cancel", controllers.CancelSale(p.Sales, logg))
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", controllers.DashboardStats(p.Dashboard, logg))
			r.Get("/low-stock", controllers.DashboardLowStock(p.Dashboard, logg))
			r.Get("/daily-sales", controllers.DashboardDailySales(p.Dashboard, loc, logg))
			r.Get("/top-products", controllers.DashboardTopProducts(p.Dashboard, loc, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.With(idempotent).Post("/", controllers.CreateCustomer(p.Customers, logg))
			r.Get("/document/{document}", controllers.FindCustomerByDocument(p.Customers, logg))
			r.Get("/{customerID}", controllers.GetCustomer(p.Customers, logg))
		})

		r.Get("/movement-types", controllers.MovementTypes(p.Catalog))
		r.Route("/payment-methods", func(r chi.Router) {
			r.Get("/", controllers.ListPaymentMethods(p.PaymentMethods, logg))
			r.With(adminOnly).Put("/{code}", controllers.SetPaymentMethodActive(p.PaymentMethods, logg))
		})
	})

	return r
}
