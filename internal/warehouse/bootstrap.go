package warehouse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/dvloznov/finance-dashboard/internal/schema"
)

// EnsureReady makes sure the dataset and the table for the given kind
// exist. The first successful pass per kind is cached; later calls are
// no-ops, so writers can call this unconditionally.
func (g *Gateway) EnsureReady(ctx context.Context, kind schema.Kind) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ready[kind] {
		return nil
	}

	if err := g.ensureDataset(ctx); err != nil {
		return err
	}
	if err := g.ensureTable(ctx, kind); err != nil {
		return err
	}

	g.ready[kind] = true
	return nil
}

// EnsureAll bootstraps the dataset, every table kind and finally the total
// view. The view depends on all three tables, so it comes last.
func (g *Gateway) EnsureAll(ctx context.Context) error {
	for _, kind := range schema.Kinds() {
		if err := g.EnsureReady(ctx, kind); err != nil {
			return err
		}
	}
	return g.ensureTotalView(ctx)
}

func (g *Gateway) ensureDataset(ctx context.Context) error {
	ds := g.client.Dataset(g.datasetID)
	_, err := ds.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("warehouse: checking dataset %s: %w", g.datasetID, err)
	}

	g.log.Info().Str("dataset", g.datasetID).Msg("Creating dataset")
	if err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: g.location}); err != nil {
		return fmt.Errorf("warehouse: creating dataset %s: %w", g.datasetID, err)
	}
	return nil
}

func (g *Gateway) ensureTable(ctx context.Context, kind schema.Kind) error {
	table := g.client.Dataset(g.datasetID).Table(string(kind))
	_, err := table.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("warehouse: checking table %s: %w", kind, err)
	}

	tableSchema, err := schema.BigQuery(kind)
	if err != nil {
		return err
	}

	g.log.Info().Str("table", string(kind)).Msg("Creating table")
	md := &bigquery.TableMetadata{
		Schema:     tableSchema,
		Clustering: &bigquery.Clustering{Fields: []string{"date", "source"}},
	}
	if err := table.Create(ctx, md); err != nil {
		return fmt.Errorf("warehouse: creating table %s: %w", kind, err)
	}
	return nil
}

func (g *Gateway) ensureTotalView(ctx context.Context) error {
	view := g.client.Dataset(g.datasetID).Table(schema.TotalView)
	_, err := view.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("warehouse: checking view %s: %w", schema.TotalView, err)
	}

	g.log.Info().Str("view", schema.TotalView).Msg("Creating total view")
	md := &bigquery.TableMetadata{ViewQuery: totalViewQuery(g.projectID, g.datasetID)}
	if err := view.Create(ctx, md); err != nil {
		return fmt.Errorf("warehouse: creating view %s: %w", schema.TotalView, err)
	}
	return nil
}

// totalViewQuery unions per-(date, source) sums across all table kinds.
func totalViewQuery(projectID, datasetID string) string {
	var parts []string
	for _, kind := range schema.Kinds() {
		col, _ := schema.ValueColumn(kind)
		parts = append(parts, fmt.Sprintf(
			"SELECT date, source, SUM(%s) AS total_balance FROM `%s.%s.%s` GROUP BY date, source",
			col, projectID, datasetID, kind,
		))
	}
	return strings.Join(parts, "\nUNION ALL\n")
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
