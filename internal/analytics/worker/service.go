// Package worker pulls outbox events off the analytics subscription and hands
// them to the fact router exactly once per event id.
package worker

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/kardex-pos/internal/analytics/router"
	"github.com/angelmondragon/kardex-pos/internal/analytics/types"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/metrics"
)

const consumerName = "analytics-worker"

// Handler processes a decoded analytics envelope.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

type dedupe interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type receiver interface {
	Receive(ctx context.Context, fn func(context.Context, *gcppubsub.Message)) error
}

// outcome is how a message was settled. Only retry nacks.
type outcome string

const (
	outcomeHandled     outcome = "handled"
	outcomeDuplicate   outcome = "duplicate"
	outcomeMalformed   outcome = "malformed"
	outcomeUnsupported outcome = "unsupported"
	outcomeRetry       outcome = "retry"
)

func (o outcome) ack() bool { return o != outcomeRetry }

type Params struct {
	Subscription *gcppubsub.Subscriber
	Handler      Handler
	Dedupe       dedupe
	Metrics      *metrics.ConsumerMetrics
	Logger       *logger.Logger
}

type Service struct {
	subscription receiver
	handler      Handler
	dedupe       dedupe
	metrics      *metrics.ConsumerMetrics
	logg         *logger.Logger
}

func NewService(p Params) (*Service, error) {
	switch {
	case p.Subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case p.Handler == nil:
		return nil, errors.New("analytics handler is required")
	case p.Dedupe == nil:
		return nil, errors.New("idempotency manager is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscription: p.Subscription,
		handler:      p.Handler,
		dedupe:       p.Dedupe,
		metrics:      p.Metrics,
		logg:         p.Logger,
	}, nil
}

// Run blocks until ctx is cancelled or the subscription fails.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		if s.settle(msgCtx, msg).ack() {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

func (s *Service) settle(ctx context.Context, msg *gcppubsub.Message) outcome {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	env, err := types.FromMessage(msg.Data, msg.Attributes)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping malformed analytics message")
		s.metrics.Observe("", string(outcomeMalformed))
		return outcomeMalformed
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":       env.EventID,
		"event_type":     env.EventType,
		"aggregate_type": env.AggregateType,
		"aggregate_id":   env.AggregateID,
	})

	result := s.apply(ctx, env)
	s.metrics.Observe(string(env.EventType), string(result))
	return result
}

func (s *Service) apply(ctx context.Context, env types.Envelope) outcome {
	eventID, err := uuid.Parse(env.EventID)
	if err != nil {
		s.logg.Warn(ctx, "dropping analytics message with non-uuid event id")
		return outcomeMalformed
	}

	seen, err := s.dedupe.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		s.logg.Error(ctx, "idempotency check failed", err)
		return outcomeRetry
	}
	if seen {
		s.logg.Info(ctx, "event already processed")
		return outcomeDuplicate
	}

	err = s.handler.Handle(ctx, env)
	switch {
	case err == nil:
		s.logg.Info(ctx, "analytics event handled")
		return outcomeHandled
	case errors.Is(err, router.ErrUnsupportedEventType):
		s.logg.Warn(ctx, "no analytics route for event")
		return outcomeUnsupported
	}

	s.logg.Error(ctx, "analytics handler failed", err)
	// Release the claim so the redelivery is not mistaken for a duplicate.
	if err := s.dedupe.Delete(ctx, consumerName, eventID); err != nil {
		s.logg.Error(ctx, "release idempotency key", err)
	}
	return outcomeRetry
}
