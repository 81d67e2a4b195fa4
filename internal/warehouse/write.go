package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/finance-dashboard/internal/schema"
	"github.com/dvloznov/finance-dashboard/internal/snapshot"
)

// mergeKey is the natural key of every snapshot table.
var mergeKey = []string{"date", "source", "name"}

// Write lands a batch in the logical table via a uniquely named staging
// table and a single MERGE on (date, source, name). Re-running the same
// batch is safe: matched keys are updated, new keys inserted. The staging
// table is deleted whether or not the merge succeeds.
func (g *Gateway) Write(ctx context.Context, kind schema.Kind, batch []snapshot.Record) error {
	if len(batch) == 0 {
		return nil
	}

	if err := g.EnsureReady(ctx, kind); err != nil {
		return err
	}

	cols, err := mergeColumns(kind, batch)
	if err != nil {
		return err
	}
	stagingSchema, err := columnSchema(kind, cols)
	if err != nil {
		return err
	}

	stagingName := stagingTableName(kind)
	staging := g.client.Dataset(g.datasetID).Table(stagingName)

	// The expiration is a backstop: staging tables must never outlive the
	// write, even if this process dies before the deferred delete runs.
	md := &bigquery.TableMetadata{
		Schema:         stagingSchema,
		ExpirationTime: time.Now().Add(time.Hour),
	}
	if err := staging.Create(ctx, md); err != nil {
		return fmt.Errorf("warehouse: creating staging table %s: %w", stagingName, err)
	}
	defer func() {
		// Cleanup must also run when ctx was cancelled mid-write.
		if err := staging.Delete(context.WithoutCancel(ctx)); err != nil {
			g.log.Warn().Err(err).Str("table", stagingName).Msg("Failed to delete staging table")
		}
	}()

	if err := staging.Inserter().Put(ctx, projectBatch(batch, cols)); err != nil {
		return fmt.Errorf("warehouse: loading staging table %s: %w", stagingName, err)
	}

	sql := buildMergeQuery(g.tableID(string(kind)), g.tableID(stagingName), cols)
	if err := g.runQuery(ctx, sql, nil); err != nil {
		return fmt.Errorf("warehouse: merging %d rows into %s: %w", len(batch), kind, err)
	}

	g.log.Debug().Int("rows", len(batch)).Str("table", string(kind)).Msg("Batch merged")
	return nil
}

// stagingTableName returns a name unique per call so concurrent writers to
// the same logical table never collide.
func stagingTableName(kind schema.Kind) string {
	return fmt.Sprintf("%s_staging_%s", kind, strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// mergeColumns computes the merge column list: the target table's columns
// restricted to those actually present in the batch, in schema order.
// Columns the batch does not carry (typically optional original_* audit
// columns) are excluded, which on re-write leaves their previously stored
// values in place. The natural key columns must all be present.
func mergeColumns(kind schema.Kind, batch []snapshot.Record) ([]string, error) {
	tableCols, err := schema.Columns(kind)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool)
	for _, c := range snapshot.Columns(batch) {
		present[c] = true
	}
	for _, k := range mergeKey {
		if !present[k] {
			return nil, fmt.Errorf("warehouse: batch for %s is missing key column %q", kind, k)
		}
	}

	var cols []string
	for _, c := range tableCols {
		if present[c.Name] {
			cols = append(cols, c.Name)
		}
	}
	return cols, nil
}

// columnSchema builds the staging table schema for the given column subset.
func columnSchema(kind schema.Kind, cols []string) (bigquery.Schema, error) {
	tableCols, err := schema.Columns(kind)
	if err != nil {
		return nil, err
	}
	types := make(map[string]bigquery.FieldType, len(tableCols))
	for _, c := range tableCols {
		types[c.Name] = c.Type
	}

	s := make(bigquery.Schema, 0, len(cols))
	for _, c := range cols {
		s = append(s, &bigquery.FieldSchema{Name: c, Type: types[c]})
	}
	return s, nil
}

// projectBatch restricts every record to the staging column set, dropping
// any stray adapter columns the target table does not know about.
func projectBatch(batch []snapshot.Record, cols []string) []snapshot.Record {
	out := make([]snapshot.Record, 0, len(batch))
	for _, rec := range batch {
		p := make(snapshot.Record, len(cols))
		for _, c := range cols {
			if v, ok := rec[c]; ok {
				p[c] = v
			}
		}
		out = append(out, p)
	}
	return out
}

// buildMergeQuery renders the MERGE statement: match on the natural key,
// update every non-key merge column on match, insert the full merge column
// list otherwise.
func buildMergeQuery(targetID, stagingID string, cols []string) string {
	key := make(map[string]bool, len(mergeKey))
	var on []string
	for _, k := range mergeKey {
		key[k] = true
		on = append(on, fmt.Sprintf("target.%s = source.%s", k, k))
	}

	var assignments, insertCols, insertVals []string
	for _, c := range cols {
		insertCols = append(insertCols, c)
		insertVals = append(insertVals, "source."+c)
		if !key[c] {
			assignments = append(assignments, fmt.Sprintf("%s = source.%s", c, c))
		}
	}

	return fmt.Sprintf(`MERGE %s AS target
USING %s AS source
ON %s
WHEN MATCHED THEN
  UPDATE SET %s
WHEN NOT MATCHED THEN
  INSERT (%s)
  VALUES (%s)`,
		targetID,
		stagingID,
		strings.Join(on, " AND "),
		strings.Join(assignments, ", "),
		strings.Join(insertCols, ", "),
		strings.Join(insertVals, ", "),
	)
}
