package router

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/internal/analytics/types"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/outbox/payloads"
	"github.com/angelmondragon/kardex-pos/pkg/outbox/registry"
)

type fakeWriter struct {
	sales     []types.SaleFactRow
	movements []types.MovementFactRow
}

func (f *fakeWriter) InsertSaleFact(_ context.Context, row types.SaleFactRow) error {
	f.sales = append(f.sales, row)
	return nil
}

func (f *fakeWriter) InsertMovementFact(_ context.Context, row types.MovementFactRow) error {
	f.movements = append(f.movements, row)
	return nil
}

func newTestRouter(t *testing.T) (*Router, *fakeWriter) {
	t.Helper()
	w := &fakeWriter{}
	r, err := NewRouter(registry.NewPayloadDecoders(), w, logger.Nop())
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return r, w
}

func envelopeFor(t *testing.T, eventType enums.OutboxEventType, data any) types.Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return types.Envelope{
		EventID:    "evt-1",
		EventType:  eventType,
		Version:    1,
		OccurredAt: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		Operator:   "cashier-1",
		Payload:    raw,
	}
}

func TestSaleCompletedBecomesSaleFact(t *testing.T) {
	r, w := newTestRouter(t)
	customer := int64(7)
	cash := enums.PaymentMethodCash
	env := envelopeFor(t, enums.EventSaleCompleted, payloads.SaleCompletedEvent{
		SaleID:            11,
		InvoiceNumber:     "20250101-0001",
		CustomerID:        &customer,
		PaymentMethodCode: &cash,
		Subtotal:          decimal.RequireFromString("13.50"),
		Tax:               decimal.Zero,
		Discount:          decimal.Zero,
		Total:             decimal.RequireFromString("13.50"),
		Items: []payloads.SaleLine{{
			ProductID: 1, ProductName: "Milk", Quantity: decimal.NewFromInt(3),
			UnitPrice: decimal.RequireFromString("4.50"), Subtotal: decimal.RequireFromString("13.50"),
		}},
	})

	if err := r.Handle(context.Background(), env); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(w.sales) != 1 {
		t.Fatalf("expected one sale fact, got %d", len(w.sales))
	}
	row := w.sales[0]
	if row.SaleID != 11 || row.ItemCount != 1 || !row.CustomerID.Valid || row.PaymentMethod.StringVal != "CASH" {
		t.Fatalf("unexpected row %+v", row)
	}
	if row.Total.FloatString(2) != "13.50" {
		t.Fatalf("unexpected total %s", row.Total.FloatString(2))
	}
	if !row.Items.Valid {
		t.Fatalf("expected items json")
	}
}

func TestSaleCancelledNegatesTotal(t *testing.T) {
	r, w := newTestRouter(t)
	env := envelopeFor(t, enums.EventSaleCancelled, payloads.SaleCancelledEvent{
		SaleID:        11,
		InvoiceNumber: "20250101-0001",
		Total:         decimal.RequireFromString("13.50"),
		CancelledBy:   "admin",
	})
	if err := r.Handle(context.Background(), env); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := w.sales[0].Total.FloatString(2); got != "-13.50" {
		t.Fatalf("expected negated total, got %s", got)
	}
	if w.sales[0].Operator.StringVal != "admin" {
		t.Fatalf("expected cancelling operator, got %+v", w.sales[0].Operator)
	}
}

func TestMovementRecordedBecomesMovementFact(t *testing.T) {
	r, w := newTestRouter(t)
	env := envelopeFor(t, enums.EventStockMovementRecorded, payloads.StockMovementRecordedEvent{
		MovementID:    5,
		ProductID:     1,
		MovementCode:  enums.MovementSale,
		Quantity:      decimal.NewFromInt(3),
		PreviousStock: decimal.NewFromInt(10),
		NewStock:      decimal.NewFromInt(7),
		Reference:     "20250101-0001",
	})
	if err := r.Handle(context.Background(), env); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(w.movements) != 1 {
		t.Fatalf("expected one movement fact, got %d", len(w.movements))
	}
	row := w.movements[0]
	if row.Sign != -1 || row.MovementCode != "SALE" || row.NewStock.FloatString(0) != "7" {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestStockLowWritesNothing(t *testing.T) {
	r, w := newTestRouter(t)
	env := envelopeFor(t, enums.EventStockLow, payloads.StockLowEvent{ProductID: 1})
	if err := r.Handle(context.Background(), env); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(w.sales)+len(w.movements) != 0 {
		t.Fatalf("expected no rows")
	}
}

func TestUnsupportedAndBrokenPayloads(t *testing.T) {
	r, _ := newTestRouter(t)
	err := r.Handle(context.Background(), types.Envelope{EventType: "price_changed", Payload: json.RawMessage(`{}`)})
	if !errors.Is(err, ErrUnsupportedEventType) {
		t.Fatalf("expected unsupported error, got %v", err)
	}
	err = r.Handle(context.Background(), types.Envelope{EventType: enums.EventSaleCompleted, Payload: json.RawMessage(`{"sale_id":"x"`)})
	if err == nil || errors.Is(err, ErrUnsupportedEventType) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
