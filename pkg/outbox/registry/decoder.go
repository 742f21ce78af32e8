package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/kardex-pos/pkg/enums"
	"github.com/angelmondragon/kardex-pos/pkg/outbox/payloads"
)

// ErrNoDecoder is returned for an event type and version nobody registered.
var ErrNoDecoder = errors.New("no payload decoder")

// Decoder turns the data of an envelope into its typed payload.
type Decoder func(data json.RawMessage) (any, error)

// Into decodes into a fresh *T. Unknown fields are ignored so producers can
// add fields without a version bump.
func Into[T any]() Decoder {
	return func(data json.RawMessage) (any, error) {
		out := new(T)
		if err := json.Unmarshal(data, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

type schema struct {
	eventType enums.OutboxEventType
	version   int
}

// Decoders maps an event type and payload version to its Decoder. Register
// everything before sharing it; lookups are safe for concurrent use after that.
type Decoders struct {
	bySchema map[schema]Decoder
}

func NewDecoders() *Decoders {
	return &Decoders{bySchema: map[schema]Decoder{}}
}

// NewPayloadDecoders knows version 1 of every event the outbox emits.
func NewPayloadDecoders() *Decoders {
	return NewDecoders().
		Register(enums.EventSaleCompleted, 1, Into[payloads.SaleCompletedEvent]()).
		Register(enums.EventSaleCancelled, 1, Into[payloads.SaleCancelledEvent]()).
		Register(enums.EventStockMovementRecorded, 1, Into[payloads.StockMovementRecordedEvent]()).
		Register(enums.EventStockLow, 1, Into[payloads.StockLowEvent]())
}

func (d *Decoders) Register(eventType enums.OutboxEventType, version int, dec Decoder) *Decoders {
	d.bySchema[schema{eventType, version}] = dec
	return d
}

func (d *Decoders) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	dec, ok := d.bySchema[schema{eventType, version}]
	if !ok {
		return nil, fmt.Errorf("%w for %s v%d", ErrNoDecoder, eventType, version)
	}
	return dec(data)
}
