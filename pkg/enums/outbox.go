package enums

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateSale    OutboxAggregateType = "sale"
	AggregateProduct OutboxAggregateType = "product"
)

var aggregateTypes = []OutboxAggregateType{AggregateSale, AggregateProduct}

func (a OutboxAggregateType) IsValid() bool { return member(a, aggregateTypes) }

func ParseOutboxAggregateType(raw string) (OutboxAggregateType, error) {
	return parseMember(raw, "aggregate type", aggregateTypes)
}

// OutboxEventType names a durable domain event. The string is the Pub/Sub
// event_type attribute, so values never change once published.
type OutboxEventType string

const (
	EventSaleCompleted         OutboxEventType = "sale_completed"
	EventSaleCancelled         OutboxEventType = "sale_cancelled"
	EventStockMovementRecorded OutboxEventType = "stock_movement_recorded"
	EventStockLow              OutboxEventType = "stock_low"
)

var eventTypes = []OutboxEventType{
	EventSaleCompleted,
	EventSaleCancelled,
	EventStockMovementRecorded,
	EventStockLow,
}

// OutboxEventTypes lists every event type in declaration order.
func OutboxEventTypes() []OutboxEventType {
	return append([]OutboxEventType(nil), eventTypes...)
}

func (e OutboxEventType) IsValid() bool { return member(e, eventTypes) }

func ParseOutboxEventType(raw string) (OutboxEventType, error) {
	return parseMember(raw, "event type", eventTypes)
}

// OutboxDLQErrorReason records why the publisher gave up on an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
