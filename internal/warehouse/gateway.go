// Package warehouse owns all BigQuery access: dataset/table/view bootstrap,
// the staged-load + merge-upsert write path, range reads, the
// fallback-to-yesterday replay, and the daily summary.
package warehouse

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/schema"
)

// Gateway wraps a shared BigQuery client scoped to one project/dataset.
type Gateway struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	location  string
	log       zerolog.Logger

	mu    sync.Mutex
	ready map[schema.Kind]bool
}

// New creates a Gateway with its own BigQuery client. Credentials come from
// Application Default Credentials.
func New(ctx context.Context, projectID, datasetID, location string, log zerolog.Logger) (*Gateway, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("warehouse: creating bigquery client: %w", err)
	}
	return &Gateway{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
		location:  location,
		log:       log,
		ready:     make(map[schema.Kind]bool),
	}, nil
}

// Close releases the underlying client.
func (g *Gateway) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// tableID returns the fully qualified, backquoted table reference.
func (g *Gateway) tableID(table string) string {
	return fmt.Sprintf("`%s.%s.%s`", g.projectID, g.datasetID, table)
}

// runQuery executes a DDL/DML statement and waits for completion.
func (g *Gateway) runQuery(ctx context.Context, sql string, params []bigquery.QueryParameter) error {
	q := g.client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("warehouse: running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("warehouse: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("warehouse: job error: %w", err)
	}
	return nil
}
