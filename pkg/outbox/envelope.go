package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is the schema version written for new events.
const EnvelopeVersion = 1

// Pub/Sub message attributes set by the publisher. They repeat the routing
// fields of the row so subscribers can filter without decoding the body.
const (
	AttrEventID       = "event_id"
	AttrEventType     = "event_type"
	AttrAggregateType = "aggregate_type"
	AttrAggregateID   = "aggregate_id"
	AttrCreatedAt     = "created_at"
	AttrVersion       = "version"
	AttrOperator      = "operator"
)

// ActorRef names the operator whose request produced the event.
type ActorRef struct {
	Operator string `json:"operator"`
	Role     string `json:"role,omitempty"`
}

// PayloadEnvelope is what outbox_events.payload holds and what Pub/Sub
// consumers receive as the message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// NewEnvelope encodes event.Data under a fresh event id.
func NewEnvelope(event DomainEvent, id uuid.UUID, now time.Time) (PayloadEnvelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("encode %s payload: %w", event.EventType, err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	version := event.Version
	if version == 0 {
		version = EnvelopeVersion
	}
	return PayloadEnvelope{
		Version:    version,
		EventID:    id.String(),
		OccurredAt: occurred.UTC(),
		Actor:      event.Actor,
		Data:       data,
	}, nil
}

// DecodeEnvelope parses a stored payload and rejects envelopes without an id
// or body.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventID == "" {
		return PayloadEnvelope{}, errors.New("envelope missing eventId")
	}
	if trimmed := bytes.TrimSpace(env.Data); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return PayloadEnvelope{}, errors.New("envelope missing data")
	}
	if env.Version <= 0 {
		env.Version = EnvelopeVersion
	}
	return env, nil
}

// Operator returns the acting operator or "".
func (e PayloadEnvelope) Operator() string {
	if e.Actor == nil {
		return ""
	}
	return e.Actor.Operator
}
