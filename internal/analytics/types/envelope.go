package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/kardex-pos/pkg/enums"
	"github.com/angelmondragon/kardex-pos/pkg/outbox"
)

// Envelope is an outbox event as received from Pub/Sub.
type Envelope struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	Version       int
	OccurredAt    time.Time
	Operator      string
	Payload       json.RawMessage
}

// FromMessage rebuilds an Envelope from a message body and its attributes.
// Routing comes from the attributes; the body wins for id and time, with the
// attributes filling in for envelopes written before those fields existed.
func FromMessage(body []byte, attrs map[string]string) (Envelope, error) {
	var stored outbox.PayloadEnvelope
	if err := json.Unmarshal(body, &stored); err != nil {
		return Envelope{}, fmt.Errorf("decode payload envelope: %w", err)
	}
	attr := func(key string) string { return strings.TrimSpace(attrs[key]) }

	env := Envelope{
		EventID:     strings.TrimSpace(stored.EventID),
		AggregateID: attr(outbox.AttrAggregateID),
		Version:     stored.Version,
		OccurredAt:  stored.OccurredAt,
		Operator:    stored.Operator(),
		Payload:     stored.Data,
	}

	var err error
	if env.EventType, err = enums.ParseOutboxEventType(attr(outbox.AttrEventType)); err != nil {
		return Envelope{}, fmt.Errorf("%s: %w", outbox.AttrEventType, err)
	}
	if env.AggregateType, err = enums.ParseOutboxAggregateType(attr(outbox.AttrAggregateType)); err != nil {
		return Envelope{}, fmt.Errorf("%s: %w", outbox.AttrAggregateType, err)
	}
	if env.AggregateID == "" {
		return Envelope{}, errors.New("aggregate_id missing")
	}

	if env.EventID == "" {
		env.EventID = attr(outbox.AttrEventID)
	}
	if env.EventID == "" {
		return Envelope{}, errors.New("event_id missing")
	}
	if env.OccurredAt.IsZero() {
		if ts, err := time.Parse(time.RFC3339Nano, attr(outbox.AttrCreatedAt)); err == nil {
			env.OccurredAt = ts
		}
	}
	env.OccurredAt = env.OccurredAt.UTC()
	return env, nil
}
