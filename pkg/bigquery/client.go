// Package bigquery owns the BigQuery handle of the analytics worker: the
// dataset and the two fact tables it streams into.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/kardex-pos/pkg/config"
	"github.com/angelmondragon/kardex-pos/pkg/gcp"
	"github.com/angelmondragon/kardex-pos/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTablesRequired       = errors.New("sale and movement fact tables are required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// Tables names the fact tables inside the dataset.
type Tables struct {
	SaleFacts     string
	MovementFacts string
}

func tablesFrom(cfg config.BigQueryConfig) (Tables, error) {
	t := Tables{
		SaleFacts:     strings.TrimSpace(cfg.SaleFactsTable),
		MovementFacts: strings.TrimSpace(cfg.MovementFactsTable),
	}
	if t.SaleFacts == "" || t.MovementFacts == "" {
		return Tables{}, errTablesRequired
	}
	return t, nil
}

type Client struct {
	client  *bigquery.Client
	dataset *bigquery.Dataset
	tables  Tables
}

// NewClient opens the client and fails unless the dataset and both fact
// tables already exist. Tables are provisioned outside this service.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	project, err := gcp.ProjectID(gcpCfg)
	if err != nil {
		return nil, err
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	tables, err := tablesFrom(cfg)
	if err != nil {
		return nil, err
	}

	raw, err := bigquery.NewClient(ctx, project, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{client: raw, dataset: raw.Dataset(datasetID), tables: tables}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"gcp_project": project,
			"dataset":     datasetID,
		}), "bigquery client initialized")
	}
	return c, nil
}

// Ping reads dataset and table metadata.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return describe("dataset", c.dataset.DatasetID, err)
	}
	for _, name := range []string{c.tables.SaleFacts, c.tables.MovementFacts} {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			return describe("table", name, err)
		}
	}
	return nil
}

func (c *Client) Tables() Tables {
	if c == nil {
		return Tables{}
	}
	return c.tables
}

// InsertRows streams rows into table. Rows are ValueSavers or structs.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errors.New("bigquery table name is required")
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(table).Inserter().Put(ctx, rows)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func describe(kind, name string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
