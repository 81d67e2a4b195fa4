// Package snapshot defines the record shape flowing through the pipeline:
// one observation of one entity at one source on one day. Records carry a
// dynamic column set because the original_* audit columns only exist when a
// currency conversion actually happened.
package snapshot

import (
	"sort"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// Record is one snapshot row keyed by column name. It satisfies
// bigquery.ValueSaver so batches can be fed straight into an inserter.
type Record map[string]bigquery.Value

// Save implements bigquery.ValueSaver. The insert ID is left empty: the
// warehouse merge deduplicates on (date, source, name), so best-effort
// streaming dedup would only mask double-write bugs.
func (r Record) Save() (map[string]bigquery.Value, string, error) {
	return r, "", nil
}

// Clone returns a shallow copy. Values are scalars, so shallow is enough.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Currency returns the record's currency code, or "" when unset.
func (r Record) Currency() string {
	c, _ := r["currency"].(string)
	return c
}

// Float returns the numeric value of a column coerced to float64.
// Vendor payloads are inconsistent about numeric width; anything
// non-numeric (including an explicit null) reads as 0.
func (r Record) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Tag stamps every record in the batch with the snapshot date and the
// source label, completing the (date, source, name) natural key.
func Tag(records []Record, date civil.Date, source string) {
	for _, r := range records {
		r["date"] = date
		r["source"] = source
	}
}

// Columns returns the sorted union of column names across the batch.
// The warehouse intersects this with the target table's schema to build
// the staging table and the merge column list.
func Columns(records []Record) []string {
	seen := make(map[string]bool)
	for _, r := range records {
		for k := range r {
			seen[k] = true
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
