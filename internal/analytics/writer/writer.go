package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/kardex-pos/internal/analytics/types"
	pkgbigquery "github.com/angelmondragon/kardex-pos/pkg/bigquery"
)

const (
	defaultMaxAttempts    = 4
	defaultInitialBackoff = 200 * time.Millisecond
	defaultMaximumBackoff = 3 * time.Second
)

type Config struct {
	SaleFactsTable     string
	MovementFactsTable string
	RetryPolicy        RetryPolicy
}

// RetryPolicy bounds the exponential backoff applied to transient insert failures.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter streams fact rows into BigQuery. Every call inserts right
// away so the caller can ack the message only once the row is stored.
type BigQueryWriter struct {
	client        tableInserter
	saleTable     string
	movementTable string
	retry         RetryPolicy
	sleep         func(ctx context.Context, d time.Duration) error
}

// New builds a writer. Empty table names fall back to the client's configured tables.
func New(client *pkgbigquery.Client, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	defaults := client.Tables()
	sales := strings.TrimSpace(cfg.SaleFactsTable)
	if sales == "" {
		sales = defaults.SaleFacts
	}
	movements := strings.TrimSpace(cfg.MovementFactsTable)
	if movements == "" {
		movements = defaults.MovementFacts
	}
	if sales == "" || movements == "" {
		return nil, errors.New("sale and movement fact tables are required")
	}
	return &BigQueryWriter{
		client:        client,
		saleTable:     sales,
		movementTable: movements,
		retry:         cfg.RetryPolicy.withDefaults(),
		sleep:         sleepContext,
	}, nil
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = defaultInitialBackoff
	}
	if p.MaximumBackoff <= 0 {
		p.MaximumBackoff = defaultMaximumBackoff
	}
	if p.MaximumBackoff < p.InitialBackoff {
		p.MaximumBackoff = p.InitialBackoff
	}
	return p
}

func (w *BigQueryWriter) InsertSaleFact(ctx context.Context, row types.SaleFactRow) error {
	return w.insert(ctx, w.saleTable, []any{&row})
}

func (w *BigQueryWriter) InsertMovementFact(ctx context.Context, row types.MovementFactRow) error {
	return w.insert(ctx, w.movementTable, []any{&row})
}

func (w *BigQueryWriter) insert(ctx context.Context, table string, rows []any) error {
	backoff := w.retry.InitialBackoff
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := w.client.InsertRows(ctx, table, rows)
		if err == nil {
			return nil
		}
		if attempt >= w.retry.MaxAttempts || !Retryable(err) {
			return fmt.Errorf("insert %s rows after %d attempt(s): %w", table, attempt, err)
		}
		if err := w.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = min(backoff*2, w.retry.MaximumBackoff)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retryable reports whether a BigQuery failure is transient. Multi-row errors
// are retryable only when every inner error is.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		return allRetryable(len(multi), func(i int) error { return multi[i] })
	}

	var rows cbigquery.PutMultiError
	if errors.As(err, &rows) {
		return allRetryable(len(rows), func(i int) error { return rows[i].Errors })
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusRequestTimeout,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Aborted,
			codes.DeadlineExceeded,
			codes.Internal,
			codes.ResourceExhausted,
			codes.Unavailable:
			return true
		}
	}
	return false
}

func allRetryable(n int, at func(i int) error) bool {
	if n == 0 {
		return false
	}
	for i := 0; i < n; i++ {
		if !Retryable(at(i)) {
			return false
		}
	}
	return true
}

// EncodeJSON serializes payload for a BigQuery JSON column.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	switch value := payload.(type) {
	case nil:
		return cbigquery.NullJSON{}, nil
	case json.RawMessage:
		if len(value) == 0 {
			return cbigquery.NullJSON{}, nil
		}
		return cbigquery.NullJSON{Valid: true, JSONVal: string(value)}, nil
	}
	marshaled, err := json.Marshal(payload)
	if err != nil {
		return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(marshaled)}, nil
}
