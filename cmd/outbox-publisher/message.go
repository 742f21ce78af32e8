package main

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/outbox"
	"github.com/angelmondragon/kardex-pos/pkg/outbox/registry"
)

// buildMessage carries the stored envelope as the message body. Attributes
// duplicate the routing fields so consumers can filter without decoding.
func buildMessage(row models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	occurredAt := resolved.Envelope.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = row.CreatedAt
	}
	attrs := map[string]string{
		outbox.AttrEventID:       resolved.Envelope.EventID,
		outbox.AttrEventType:     string(row.EventType),
		outbox.AttrAggregateType: string(row.AggregateType),
		outbox.AttrAggregateID:   row.AggregateID,
		outbox.AttrCreatedAt:     occurredAt.UTC().Format(time.RFC3339Nano),
		outbox.AttrVersion:       strconv.Itoa(resolved.Envelope.Version),
	}
	if op := resolved.Envelope.Operator(); op != "" {
		attrs[outbox.AttrOperator] = op
	}
	return &gcppubsub.Message{
		Data:       row.Payload,
		Attributes: attrs,
	}
}

type topicClient interface {
	Publisher(name string) *gcppubsub.Publisher
}

// topicPublishers hands out one long-lived Publisher per topic so batching
// settings are shared across dispatch rounds.
type topicPublishers struct {
	client topicClient

	mu    sync.Mutex
	cache map[string]*gcppubsub.Publisher
}

func newTopicPublishers(client topicClient) *topicPublishers {
	return &topicPublishers{client: client, cache: map[string]*gcppubsub.Publisher{}}
}

func (t *topicPublishers) Publisher(topic string) publisher {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.cache[topic]; ok {
		return gcpPublisher{p}
	}
	p := t.client.Publisher(topic)
	if p == nil {
		return nil
	}
	t.cache[topic] = p
	return gcpPublisher{p}
}

// Stop flushes pending messages on every cached publisher.
func (t *topicPublishers) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for topic, p := range t.cache {
		p.Stop()
		delete(t.cache, topic)
	}
}

type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return gcpResult{g.p.Publish(ctx, msg)}
}

type gcpResult struct {
	r *gcppubsub.PublishResult
}

func (g gcpResult) Get(ctx context.Context) (string, error) {
	if g.r == nil {
		return "", errors.New("publish result is nil")
	}
	return g.r.Get(ctx)
}
