package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/kardex-pos/pkg/config"
	"github.com/angelmondragon/kardex-pos/pkg/gcp"
)

func TestTablesFrom(t *testing.T) {
	tables, err := tablesFrom(config.BigQueryConfig{SaleFactsTable: " sale_facts ", MovementFactsTable: "stock_movement_facts"})
	if err != nil {
		t.Fatalf("tablesFrom: %v", err)
	}
	if tables.SaleFacts != "sale_facts" || tables.MovementFacts != "stock_movement_facts" {
		t.Fatalf("unexpected tables %+v", tables)
	}
	if _, err := tablesFrom(config.BigQueryConfig{SaleFactsTable: "sale_facts"}); !errors.Is(err, errTablesRequired) {
		t.Fatalf("expected missing movement table to fail, got %v", err)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	full := config.BigQueryConfig{Dataset: "kardex", SaleFactsTable: "s", MovementFactsTable: "m"}

	if _, err := NewClient(ctx, config.GCPConfig{}, full, nil); !errors.Is(err, gcp.ErrProjectIDRequired) {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{}, nil); !errors.Is(err, errDatasetRequired) {
		t.Fatalf("expected dataset error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{Dataset: "kardex"}, nil); !errors.Is(err, errTablesRequired) {
		t.Fatalf("expected table error, got %v", err)
	}
}

func TestNilClient(t *testing.T) {
	var c *Client
	if err := c.InsertRows(context.Background(), "sale_facts", []any{1}); !errors.Is(err, errClientNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := c.Ping(context.Background()); !errors.Is(err, errClientNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if (c.Tables() != Tables{}) {
		t.Fatalf("expected empty tables")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestDescribe(t *testing.T) {
	notFound := fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusNotFound})
	if got := describe("table", "sale_facts", notFound).Error(); got != `table "sale_facts" does not exist` {
		t.Fatalf("unexpected message %q", got)
	}
	denied := &googleapi.Error{Code: http.StatusForbidden}
	if err := describe("dataset", "kardex", denied); !errors.Is(err, denied) {
		t.Fatalf("expected cause to be kept, got %v", err)
	}
}
