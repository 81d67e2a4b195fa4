package warehouse

import (
	"context"
	"fmt"
	"math"
	"sort"

	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-dashboard/internal/schema"
)

// TotalRow is one row of the total view.
type TotalRow struct {
	Date         civil.Date `bigquery:"date"`
	Source       string     `bigquery:"source"`
	TotalBalance float64    `bigquery:"total_balance"`
}

// SourceDelta is the day-over-day movement of one source.
type SourceDelta struct {
	Name      string
	Today     float64
	Yesterday float64
	Change    float64
	ChangePct float64
}

// Summary is the day-over-day report derived from the total view.
type Summary struct {
	Date           civil.Date
	TotalToday     float64
	TotalYesterday float64
	TotalChange    float64
	TotalChangePct float64
	Sources        []SourceDelta
}

// DailySummary builds the day-over-day report from the two most recent
// distinct dates present in the total view. "Today" is the latest snapshot
/// date in the data, not the wall clock: if the pipeline has not run yet the
// summary describes the latest available day. Returns nil when the view is
// empty.
func (g *Gateway) DailySummary(ctx context.Context) (*Summary, error) {
	sql := fmt.Sprintf(`SELECT date, source, total_balance
FROM %[1]s
WHERE date IN (SELECT DISTINCT date FROM %[1]s ORDER BY date DESC LIMIT 2)`,
		g.tableID(schema.TotalView))

	q := g.client.Query(sql)
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("warehouse: reading total view: %w", err)
	}

	var rows []TotalRow
	for {
		var row TotalRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("warehouse: iterating total view: %w", err)
		}
		rows = append(rows, row)
	}

	return computeSummary(rows), nil
}

// computeSummary derives the report from total-view rows. The input is
// expected to span at most two distinct dates; with more, everything older
// than the two latest dates is ignored.
func computeSummary(rows []TotalRow) *Summary {
	if len(rows) == 0 {
		return nil
	}

	var today, yesterday civil.Date
	for _, r := range rows {
		switch {
		case r.Date.After(today):
			yesterday = today
			today = r.Date
		case r.Date != today && r.Date.After(yesterday):
			yesterday = r.Date
		}
	}

	todayBy := make(map[string]float64)
	yesterdayBy := make(map[string]float64)
	names := make(map[string]bool)
	for _, r := range rows {
		switch r.Date {
		case today:
			todayBy[r.Source] += r.TotalBalance
			names[r.Source] = true
		case yesterday:
			yesterdayBy[r.Source] += r.TotalBalance
			names[r.Source] = true
		}
	}

	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	s := &Summary{Date: today}
	for _, name := range sorted {
		t := todayBy[name]
		y := yesterdayBy[name]
		s.Sources = append(s.Sources, SourceDelta{
			Name:      name,
			Today:     t,
			Yesterday: y,
			Change:    round2(t - y),
			ChangePct: changePct(t, y),
		})
		s.TotalToday += t
		s.TotalYesterday += y
	}
	s.TotalChange = round2(s.TotalToday - s.TotalYesterday)
	s.TotalChangePct = changePct(s.TotalToday, s.TotalYesterday)
	return s
}

func changePct(today, yesterday float64) float64 {
	if yesterday <= 0 {
		return 0
	}
	return round2((today - yesterday) / yesterday * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
