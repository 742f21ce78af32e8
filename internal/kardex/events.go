package kardex

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	"github.com/angelmondragon/kardex-pos/pkg/outbox"
	"github.com/angelmondragon/kardex-pos/pkg/outbox/payloads"
)

// MovementRecordedEvent builds the outbox event mirroring an appended row.
func MovementRecordedEvent(m *models.StockMovement, actor *outbox.ActorRef) outbox.DomainEvent {
	data := payloads.StockMovementRecordedEvent{
		MovementID:    m.ID,
		ProductID:     m.ProductID,
		MovementCode:  m.MovementCode,
		Quantity:      m.Quantity,
		PreviousStock: m.PreviousStock,
		NewStock:      m.NewStock,
		RecordedAt:    m.CreatedAt,
	}
	if m.Reference != nil {
		data.Reference = *m.Reference
	}
	return outbox.DomainEvent{
		EventType:     enums.EventStockMovementRecorded,
		AggregateType: enums.AggregateProduct,
		AggregateID:   strconv.FormatInt(m.ProductID, 10),
		Actor:         actor,
		Data:          data,
		OccurredAt:    m.CreatedAt,
	}
}

// LowStockEvent builds the stock_low outbox event for a product balance.
func LowStockEvent(productID int64, name string, current, minimum decimal.Decimal, actor *outbox.ActorRef) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventStockLow,
		AggregateType: enums.AggregateProduct,
		AggregateID:   strconv.FormatInt(productID, 10),
		Actor:         actor,
		Data: payloads.StockLowEvent{
			ProductID:    productID,
			ProductName:  name,
			CurrentStock: current,
			MinimumStock: minimum,
		},
	}
}

// ActorFor returns nil for anonymous operations.
func ActorFor(operator string) *outbox.ActorRef {
	if operator == "" {
		return nil
	}
	return &outbox.ActorRef{Operator: operator}
}
