// Package registry knows every outbox event type: which aggregate emits it,
// which topic carries it and how its payload decodes.
package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/angelmondragon/kardex-pos/pkg/config"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	"github.com/angelmondragon/kardex-pos/pkg/outbox"
)

// ErrNonRetryable marks failures that will not improve with another attempt.
// The dispatcher dead-letters such rows immediately.
var ErrNonRetryable = errors.New("non-retryable")

// Permanent tags err with ErrNonRetryable.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrNonRetryable, err)
}

type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

type ResolvedEvent struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

type EventRegistry struct {
	routes   map[enums.OutboxEventType]Route
	decoders *Decoders
}

// NewEventRegistry sends sale events to the sales topic and stock events to
// the inventory topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.SalesTopic == "" {
		return nil, errors.New("sales topic is required")
	}
	if cfg.InventoryTopic == "" {
		return nil, errors.New("inventory topic is required")
	}
	routes := []Route{
		{enums.EventSaleCompleted, enums.AggregateSale, cfg.SalesTopic},
		{enums.EventSaleCancelled, enums.AggregateSale, cfg.SalesTopic},
		{enums.EventStockMovementRecorded, enums.AggregateProduct, cfg.InventoryTopic},
		{enums.EventStockLow, enums.AggregateProduct, cfg.InventoryTopic},
	}
	r := &EventRegistry{
		routes:   make(map[enums.OutboxEventType]Route, len(routes)),
		decoders: NewPayloadDecoders(),
	}
	for _, route := range routes {
		r.routes[route.EventType] = route
	}
	return r, nil
}

// Topics lists the distinct destination topics, sorted.
func (r *EventRegistry) Topics() []string {
	var topics []string
	for _, route := range r.routes {
		topics = append(topics, route.Topic)
	}
	slices.Sort(topics)
	return slices.Compact(topics)
}

// Resolve checks a stored row against its route and decodes the payload.
// Every error it returns is Permanent.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	route, ok := r.routes[row.EventType]
	switch {
	case !ok:
		return nil, Permanent(fmt.Errorf("unsupported event type %q", row.EventType))
	case route.AggregateType != row.AggregateType:
		return nil, Permanent(fmt.Errorf("%s belongs to %s, row says %s", row.EventType, route.AggregateType, row.AggregateType))
	case row.AggregateID == "":
		return nil, Permanent(errors.New("missing aggregate_id"))
	}

	env, err := outbox.DecodeEnvelope(row.Payload)
	if err != nil {
		return nil, Permanent(fmt.Errorf("%s: %w", row.EventType, err))
	}
	payload, err := r.decoders.Decode(row.EventType, env.Version, env.Data)
	if err != nil {
		return nil, Permanent(fmt.Errorf("decode %s payload: %w", row.EventType, err))
	}
	return &ResolvedEvent{Route: route, Envelope: env, Payload: payload}, nil
}
