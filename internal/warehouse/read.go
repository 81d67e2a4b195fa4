package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-dashboard/internal/schema"
	"github.com/dvloznov/finance-dashboard/internal/snapshot"
)

// ReadRange reads rows from a logical table or the total view, newest date
// first, sources alphabetical. Both bounds are independently optional.
func (g *Gateway) ReadRange(ctx context.Context, table string, start, end *civil.Date) ([]snapshot.Record, error) {
	var (
		where  []string
		params []bigquery.QueryParameter
	)
	if start != nil {
		where = append(where, "date >= @start_date")
		params = append(params, bigquery.QueryParameter{Name: "start_date", Value: *start})
	}
	if end != nil {
		where = append(where, "date <= @end_date")
		params = append(params, bigquery.QueryParameter{Name: "end_date", Value: *end})
	}

	sql := fmt.Sprintf("SELECT * FROM %s", g.tableID(table))
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY date DESC, source ASC"

	return g.queryRecords(ctx, sql, params)
}

// ReplayYesterday copies yesterday's rows for one source into today's date.
// This is the last-resort fallback after all collection attempts failed: the
// warehouse still gets a same-day row for the source, at the cost of
// staleness. The copy goes through Write, so replaying twice is safe.
func (g *Gateway) ReplayYesterday(ctx context.Context, kind schema.Kind, source string) error {
	sql := fmt.Sprintf(
		"SELECT * FROM %s WHERE date = DATE_SUB(CURRENT_DATE(), INTERVAL 1 DAY) AND source = @source",
		g.tableID(string(kind)),
	)
	rows, err := g.queryRecords(ctx, sql, []bigquery.QueryParameter{{Name: "source", Value: source}})
	if err != nil {
		return fmt.Errorf("warehouse: reading yesterday's rows for %s/%s: %w", kind, source, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("warehouse: no rows for %s/%s yesterday, nothing to replay", kind, source)
	}

	today := civil.DateOf(time.Now())
	for _, r := range rows {
		r["date"] = today
	}

	if err := g.Write(ctx, kind, rows); err != nil {
		return fmt.Errorf("warehouse: replaying yesterday for %s/%s: %w", kind, source, err)
	}
	g.log.Info().Str("table", string(kind)).Str("source", source).Int("rows", len(rows)).
		Msg("Replayed yesterday's rows under today's date")
	return nil
}

func (g *Gateway) queryRecords(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]snapshot.Record, error) {
	q := g.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("warehouse: reading query: %w", err)
	}

	var rows []snapshot.Record
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("warehouse: iterating rows: %w", err)
		}
		rows = append(rows, snapshot.Record(row))
	}
	return rows, nil
}
