package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kardex-pos/pkg/config"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	"github.com/angelmondragon/kardex-pos/pkg/outbox"
	"github.com/angelmondragon/kardex-pos/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{SalesTopic: "sales-topic", InventoryTopic: "inventory-topic"})
	require.NoError(t, err)
	return reg
}

func stored(t *testing.T, data any) json.RawMessage {
	t.Helper()
	raw, ok := data.(string)
	var body json.RawMessage
	if ok {
		body = json.RawMessage(raw)
	} else {
		encoded, err := json.Marshal(data)
		require.NoError(t, err)
		body = encoded
	}
	env, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       body,
	})
	require.NoError(t, err)
	return env
}

func TestResolveSaleCompleted(t *testing.T) {
	resolved, err := testRegistry(t).Resolve(models.OutboxEvent{
		EventType:     enums.EventSaleCompleted,
		AggregateType: enums.AggregateSale,
		AggregateID:   "11",
		Payload: stored(t, payloads.SaleCompletedEvent{
			SaleID:        11,
			InvoiceNumber: "20250101-0001",
			Total:         decimal.RequireFromString("30.00"),
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, "sales-topic", resolved.Route.Topic)
	payload, ok := resolved.Payload.(*payloads.SaleCompletedEvent)
	require.True(t, ok, "got %T", resolved.Payload)
	assert.Equal(t, "20250101-0001", payload.InvoiceNumber)
	assert.True(t, payload.Total.Equal(decimal.NewFromInt(30)))
	assert.NotEmpty(t, resolved.Envelope.EventID)
}

func TestResolveStockEventsGoToInventory(t *testing.T) {
	reg := testRegistry(t)
	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventStockLow,
		AggregateType: enums.AggregateProduct,
		AggregateID:   "3",
		Payload:       stored(t, `{"product_id":3,"product_name":"Rice","current_stock":"1","minimum_stock":"5"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "inventory-topic", resolved.Route.Topic)
	assert.Equal(t, []string{"inventory-topic", "sales-topic"}, reg.Topics())
}

func TestResolveFailuresArePermanent(t *testing.T) {
	reg := testRegistry(t)
	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType: "product_renamed", AggregateType: enums.AggregateProduct, AggregateID: "1", Payload: stored(t, `{}`),
		},
		"aggregate mismatch": {
			EventType: enums.EventSaleCompleted, AggregateType: enums.AggregateProduct, AggregateID: "1", Payload: stored(t, `{}`),
		},
		"missing aggregate id": {
			EventType: enums.EventSaleCompleted, AggregateType: enums.AggregateSale, Payload: stored(t, `{}`),
		},
		"null data": {
			EventType: enums.EventSaleCompleted, AggregateType: enums.AggregateSale, AggregateID: "1", Payload: stored(t, `null`),
		},
		"broken envelope": {
			EventType: enums.EventSaleCompleted, AggregateType: enums.AggregateSale, AggregateID: "1", Payload: json.RawMessage(`{"data":`),
		},
		"payload of wrong shape": {
			EventType: enums.EventSaleCompleted, AggregateType: enums.AggregateSale, AggregateID: "1", Payload: stored(t, `{"sale_id":"eleven"}`),
		},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(row)
			assert.ErrorIs(t, err, ErrNonRetryable)
		})
	}
}

func TestPermanentKeepsCause(t *testing.T) {
	cause := errors.New("topic deleted")
	err := Permanent(cause)
	assert.ErrorIs(t, err, ErrNonRetryable)
	assert.ErrorIs(t, err, cause)
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{InventoryTopic: "x"})
	assert.Error(t, err)
	_, err = NewEventRegistry(config.PubSubConfig{SalesTopic: "x"})
	assert.Error(t, err)
}
