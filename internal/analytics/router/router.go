package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/kardex-pos/internal/analytics/types"
	"github.com/angelmondragon/kardex-pos/internal/analytics/writer"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/outbox/payloads"
	"github.com/angelmondragon/kardex-pos/pkg/outbox/registry"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer stores the fact rows produced by the router.
type Writer interface {
	InsertSaleFact(ctx context.Context, row types.SaleFactRow) error
	InsertMovementFact(ctx context.Context, row types.MovementFactRow) error
}

type handlerFunc func(ctx context.Context, envelope types.Envelope, payload any) error

// Router decodes an envelope with the payload registry and turns it into fact rows.
type Router struct {
	decoders *registry.Decoders
	writer   Writer
	handlers map[enums.OutboxEventType]handlerFunc
	logg     *logger.Logger
}

func NewRouter(decoders *registry.Decoders, w Writer, logg *logger.Logger) (*Router, error) {
	if decoders == nil {
		return nil, errors.New("decoder registry is required")
	}
	if w == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	r := &Router{decoders: decoders, writer: w, logg: logg}
	r.handlers = map[enums.OutboxEventType]handlerFunc{
		enums.EventSaleCompleted:         r.saleCompleted,
		enums.EventSaleCancelled:         r.saleCancelled,
		enums.EventStockMovementRecorded: r.movementRecorded,
		enums.EventStockLow:              r.stockLow,
	}
	return r, nil
}

func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	handler, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	version := envelope.Version
	if version == 0 {
		version = 1
	}
	payload, err := r.decoders.Decode(envelope.EventType, version, envelope.Payload)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}
	return handler(ctx, envelope, payload)
}

func (r *Router) saleCompleted(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.SaleCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", payload, envelope.EventType)
	}
	items, err := writer.EncodeJSON(event.Items)
	if err != nil {
		return err
	}
	row := types.SaleFactRow{
		EventID:       envelope.EventID,
		EventType:     string(envelope.EventType),
		OccurredAt:    envelope.OccurredAt,
		SaleID:        event.SaleID,
		InvoiceNumber: event.InvoiceNumber,
		Subtotal:      types.Numeric(event.Subtotal),
		Tax:           types.Numeric(event.Tax),
		Discount:      types.Numeric(event.Discount),
		Total:         types.Numeric(event.Total),
		ItemCount:     int64(len(event.Items)),
		Items:         items,
		Operator:      types.NullString(envelope.Operator),
	}
	if event.CustomerID != nil {
		row.CustomerID.Int64 = *event.CustomerID
		row.CustomerID.Valid = true
	}
	if event.PaymentMethodCode != nil {
		row.PaymentMethod = types.NullString(string(*event.PaymentMethodCode))
	}
	return r.writer.InsertSaleFact(ctx, row)
}

// saleCancelled writes a row with negated amounts so sums over sale_facts net out.
func (r *Router) saleCancelled(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.SaleCancelledEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", payload, envelope.EventType)
	}
	return r.writer.InsertSaleFact(ctx, types.SaleFactRow{
		EventID:       envelope.EventID,
		EventType:     string(envelope.EventType),
		OccurredAt:    envelope.OccurredAt,
		SaleID:        event.SaleID,
		InvoiceNumber: event.InvoiceNumber,
		Total:         types.Numeric(event.Total.Neg()),
		Operator:      types.NullString(event.CancelledBy),
	})
}

func (r *Router) movementRecorded(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.StockMovementRecordedEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", payload, envelope.EventType)
	}
	return r.writer.InsertMovementFact(ctx, types.MovementFactRow{
		EventID:       envelope.EventID,
		OccurredAt:    envelope.OccurredAt,
		MovementID:    event.MovementID,
		ProductID:     event.ProductID,
		MovementCode:  string(event.MovementCode),
		Sign:          int64(event.MovementCode.Sign()),
		Quantity:      types.Numeric(event.Quantity),
		PreviousStock: types.Numeric(event.PreviousStock),
		NewStock:      types.Numeric(event.NewStock),
		Reference:     types.NullString(event.Reference),
		Operator:      types.NullString(envelope.Operator),
	})
}

// stockLow alerts carry no fact of their own; the movement that caused them does.
func (r *Router) stockLow(ctx context.Context, envelope types.Envelope, _ any) error {
	logCtx := r.logg.WithField(ctx, "aggregate_id", envelope.AggregateID)
	r.logg.Debug(logCtx, "stock_low has no analytics fact")
	return nil
}
