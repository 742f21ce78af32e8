package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/angelmondragon/kardex-pos/pkg/config"
	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
	"github.com/angelmondragon/kardex-pos/pkg/metrics"
	"github.com/angelmondragon/kardex-pos/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 15 * time.Second
	maxIdleBackoff        = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pinger interface {
	Ping(context.Context) error
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisherSource interface {
	Publisher(topic string) publisher
}

type DispatcherParams struct {
	Outbox     config.OutboxConfig
	Logger     *logger.Logger
	DB         txRunner
	PubSub     pinger
	Events     eventStore
	DeadLetter deadLetterStore
	Registry   eventResolver
	Publishers publisherSource
	Metrics    *metrics.OutboxMetrics
	Now        func() time.Time
}

// Dispatcher drains outbox_events to Pub/Sub. Rows are claimed with
// SKIP LOCKED inside one transaction per batch, so several dispatchers can run
// side by side.
type Dispatcher struct {
	logg         *logger.Logger
	db           txRunner
	pubsub       pinger
	events       eventStore
	deadLetter   deadLetterStore
	registry     eventResolver
	publishers   publisherSource
	metrics      *metrics.OutboxMetrics
	now          func() time.Time
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Events == nil:
		return nil, errors.New("outbox repository is required")
	case params.DeadLetter == nil:
		return nil, errors.New("dlq repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.Publishers == nil:
		return nil, errors.New("publisher source is required")
	}

	d := &Dispatcher{
		logg:         params.Logger,
		db:           params.DB,
		pubsub:       params.PubSub,
		events:       params.Events,
		deadLetter:   params.DeadLetter,
		registry:     params.Registry,
		publishers:   params.Publishers,
		metrics:      params.Metrics,
		now:          params.Now,
		batchSize:    params.Outbox.BatchSize,
		maxAttempts:  params.Outbox.MaxAttempts,
		pollInterval: time.Duration(params.Outbox.PollIntervalMS) * time.Millisecond,
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.batchSize <= 0 {
		d.batchSize = defaultBatchSize
	}
	if d.maxAttempts <= 0 {
		d.maxAttempts = defaultMaxAttempts
	}
	if d.pollInterval <= 0 {
		d.pollInterval = defaultPollInterval
	}
	return d, nil
}

// Run polls until ctx is cancelled. Full batches are followed immediately by
// another poll; errors back off exponentially up to maxIdleBackoff.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if d.pubsub != nil {
		if err := d.pubsub.Ping(ctx); err != nil {
			return fmt.Errorf("pubsub ping failed: %w", err)
		}
	}

	wait := d.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		count, err := d.processBatch(ctx)
		switch {
		case err != nil:
			d.logg.Error(ctx, "outbox batch failed", err)
			wait = min(wait*2, maxIdleBackoff)
		case count >= d.batchSize:
			wait = d.pollInterval
			continue
		default:
			wait = d.pollInterval
		}

		if err := sleep(ctx, wait+jitter()); err != nil {
			return err
		}
	}
}

// processBatch claims and dispatches one batch, returning how many rows it saw.
func (d *Dispatcher) processBatch(ctx context.Context) (int, error) {
	count := 0
	err := d.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := d.events.FetchUnpublishedForPublish(tx, d.batchSize, d.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox rows: %w", err)
		}
		count = len(rows)
		for _, row := range rows {
			if err := d.dispatch(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return count, err
}

// dispatch publishes one row and records the outcome. Only bookkeeping
// failures are returned; publish failures are recorded on the row.
func (d *Dispatcher) dispatch(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	logCtx := d.logg.WithFields(ctx, rowFields(row))

	resolved, err := d.registry.Resolve(row)
	if err != nil {
		return d.deadLetterRow(logCtx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	}
	logCtx = d.logg.WithFields(logCtx, map[string]any{
		"topic":    resolved.Route.Topic,
		"event_id": resolved.Envelope.EventID,
	})

	err = d.publish(ctx, row, resolved)
	if err == nil {
		if err := d.events.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		d.metrics.IncPublished(string(row.EventType))
		d.logg.Info(logCtx, "outbox event published")
		return nil
	}

	if errors.Is(err, registry.ErrNonRetryable) {
		return d.deadLetterRow(logCtx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	}
	if row.AttemptCount+1 >= d.maxAttempts {
		return d.deadLetterRow(logCtx, tx, row, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err))
	}

	d.logg.Warn(d.logg.WithFields(logCtx, map[string]any{
		"attempt_count": row.AttemptCount + 1,
		"error":         err.Error(),
	}), "outbox publish failed, will retry")
	if err := d.events.MarkFailedTx(tx, row.ID, err); err != nil {
		return fmt.Errorf("mark failed %s: %w", row.ID, err)
	}
	d.metrics.IncFailed(string(row.EventType))
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Route.Topic
	pub := d.publishers.Publisher(topic)
	if pub == nil {
		return registry.Permanent(fmt.Errorf("no publisher for topic %s", topic))
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, buildMessage(row, resolved))
	if result == nil {
		return registry.Permanent(fmt.Errorf("publisher returned no result for topic %s", topic))
	}
	if _, err := result.Get(publishCtx); err != nil {
		return classifyPublishError(err)
	}
	return nil
}

// classifyPublishError marks failures that retrying cannot fix, such as a
// deleted topic or a revoked publisher role.
func classifyPublishError(err error) error {
	switch status.Code(err) {
	case codes.NotFound, codes.PermissionDenied, codes.InvalidArgument:
		return registry.Permanent(err)
	}
	return err
}

func (d *Dispatcher) deadLetterRow(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	d.logg.Warn(d.logg.WithFields(ctx, map[string]any{
		"dlq_reason": reason,
		"error":      cause.Error(),
	}), "outbox event dead-lettered")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      d.now().UTC(),
	}
	if err := d.deadLetter.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := d.events.MarkTerminalTx(tx, row.ID, cause, d.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	d.metrics.IncDeadLettered(string(row.EventType), string(reason))
	return nil
}

func rowFields(row models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID,
		"attempt_count":  row.AttemptCount,
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func jitter() time.Duration {
	return time.Duration(rand.Int64N(int64(jitterWindow)))
}
