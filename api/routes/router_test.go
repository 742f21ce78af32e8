package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/api/controllers"
	"github.com/angelmondragon/kardex-pos/internal/sales"
	pkgauth "github.com/angelmondragon/kardex-pos/pkg/auth"
	"github.com/angelmondragon/kardex-pos/pkg/config"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

// stubSales embeds the interface so unexercised methods panic.
type stubSales struct {
	sales.Service
	created []sales.CreateSaleInput
	listed  [][2]time.Time
	err     error
}

func (s *stubSales) CreateSale(_ context.Context, input sales.CreateSaleInput) (*sales.CreateSaleResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, input)
	return &sales.CreateSaleResult{SaleID: int64(len(s.created)), InvoiceNumber: "20250101-0001", Total: decimal.RequireFromString("13.50")}, nil
}

func (s *stubSales) ListSales(_ context.Context, from, to time.Time) ([]models.Sale, error) {
	s.listed = append(s.listed, [2]time.Time{from, to})
	return nil, nil
}

type stubCatalog struct{}

func (stubCatalog) Types() []models.MovementType {
	return []models.MovementType{{Code: enums.MovementSale, Name: "Sale", Sign: -1}}
}

type memoryStore struct {
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key], _ = value.(string)
	return nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func testConfig(requireAuth bool) *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{Secret: "secret", Issuer: "kardex-pos", ExpirationMinutes: 60}
	cfg.FeatureFlags.RequireAuth = requireAuth
	return cfg
}

func newTestRouter(cfg *config.Config, salesSvc *stubSales, store idempotencyStore) http.Handler {
	lima, _ := time.LoadLocation("America/Lima")
	return NewRouter(RouterParams{
		Config:      cfg,
		Logger:      logger.Nop(),
		Location:    lima,
		Ready:       map[string]controllers.Pinger{"db": stubPinger{}},
		Idempotency: store,
		Sales:       salesSvc,
		Catalog:     stubCatalog{},
	})
}

func tokenFor(t *testing.T, cfg *config.Config, role enums.OperatorRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{OperatorID: "op-1", Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

const saleBody = `{"items":[{"product_id":1,"quantity":"3","unit_price":"4.50"}],"payment_method":"cash","tax":"0","discount":"0"}`

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(testConfig(false), &stubSales{}, nil)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
		if rec.Header().Get("X-Kardex-Env") != "test" {
			t.Fatalf("%s: missing env header", path)
		}
	}
}

func TestReadyReportsDependencyFailure(t *testing.T) {
	router := NewRouter(RouterParams{
		Config: testConfig(false),
		Logger: logger.Nop(),
		Ready:  map[string]controllers.Pinger{"redis": stubPinger{err: context.DeadlineExceeded}},
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestCreateSaleUsesOperatorHeaderWhenAuthOptional(t *testing.T) {
	svc := &stubSales{}
	router := newTestRouter(testConfig(false), svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(saleBody))
	req.Header.Set("X-Operator", "till-2")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.created) != 1 {
		t.Fatalf("expected one sale, got %d", len(svc.created))
	}
	input := svc.created[0]
	if input.CreatedBy != "till-2" {
		t.Fatalf("expected created_by from header, got %q", input.CreatedBy)
	}
	if input.PaymentMethod == nil || *input.PaymentMethod != enums.PaymentMethodCash {
		t.Fatalf("expected CASH payment method, got %v", input.PaymentMethod)
	}
	if len(input.Items) != 1 || !input.Items[0].Quantity.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected items %+v", input.Items)
	}

	var body struct {
		Data struct {
			InvoiceNumber string `json:"invoice_number"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.InvoiceNumber != "20250101-0001" {
		t.Fatalf("unexpected invoice %q", body.Data.InvoiceNumber)
	}
}

func TestCreateSaleRejectsUnknownPaymentMethod(t *testing.T) {
	svc := &stubSales{}
	router := newTestRouter(testConfig(false), svc, nil)

	body := strings.Replace(saleBody, `"cash"`, `"bitcoin"`, 1)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest || len(svc.created) != 0 {
		t.Fatalf("expected 400 without calling the service, got %d", rec.Code)
	}
}

func TestCreateSaleMapsInsufficientStock(t *testing.T) {
	svc := &stubSales{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for Milk")}
	router := newTestRouter(testConfig(false), svc, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(saleBody)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), string(pkgerrors.CodeInsufficientStock)) {
		t.Fatalf("expected error code in body, got %s", rec.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	cfg := testConfig(true)
	svc := &stubSales{}
	router := newTestRouter(cfg, svc, nil)

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(saleBody)))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 got %d", rec.Code)
		}
	})

	t.Run("cashier sells", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(saleBody))
		req.Header.Set("Authorization", tokenFor(t, cfg, enums.OperatorRoleCashier))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d", rec.Code)
		}
		if got := svc.created[len(svc.created)-1].CreatedBy; got != "op-1" {
			t.Fatalf("expected token operator, got %q", got)
		}
	})

	t.Run("cashier cannot move stock", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products/1/movements", strings.NewReader(`{"movement_code":"PURCHASE","quantity":"5"}`))
		req.Header.Set("Authorization", tokenFor(t, cfg, enums.OperatorRoleCashier))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 got %d", rec.Code)
		}
	})
}

func TestCreateSaleReplaysWithIdempotencyKey(t *testing.T) {
	svc := &stubSales{}
	router := newTestRouter(testConfig(false), svc, &memoryStore{data: map[string]string{}})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(saleBody))
		req.Header.Set("Idempotency-Key", "till-2-0001")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first, second := send(), send()
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("expected 201 twice, got %d and %d", first.Code, second.Code)
	}
	if len(svc.created) != 1 {
		t.Fatalf("expected a single sale, got %d", len(svc.created))
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replay body differs: %s vs %s", first.Body.String(), second.Body.String())
	}
}

func TestListSalesUsesInclusiveLocalDates(t *testing.T) {
	svc := &stubSales{}
	router := newTestRouter(testConfig(false), svc, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sales?from=2025-01-01&to=2025-01-31", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if len(svc.listed) != 1 {
		t.Fatalf("expected ListSales call")
	}
	from, to := svc.listed[0][0], svc.listed[0][1]
	if !from.Equal(time.Date(2025, 1, 1, 5, 0, 0, 0, time.UTC)) || !to.Equal(time.Date(2025, 2, 1, 5, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected range %s - %s", from.UTC(), to.UTC())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sales?from=2025-01-01", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for half-open range, got %d", rec.Code)
	}
}

func TestMovementTypes(t *testing.T) {
	router := newTestRouter(testConfig(false), &stubSales{}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/movement-types", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"SALE"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
