package schema

import (
	"errors"
	"testing"

	"cloud.google.com/go/bigquery"
)

func TestColumns_SharedColumns(t *testing.T) {
	// Every table kind carries the natural key plus the currency audit pair.
	shared := []string{"date", "source", "name", "currency", "original_currency"}

	for _, kind := range Kinds() {
		cols, err := Columns(kind)
		if err != nil {
			t.Fatalf("Columns(%s): %v", kind, err)
		}
		names := make(map[string]bool, len(cols))
		for _, c := range cols {
			names[c.Name] = true
		}
		for _, want := range shared {
			if !names[want] {
				t.Errorf("Columns(%s): missing shared column %q", kind, want)
			}
		}
	}
}

func TestColumns_UnknownKind(t *testing.T) {
	if _, err := Columns(Kind("gold")); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("Columns(gold) error = %v, want ErrUnknownKind", err)
	}
	if _, err := NumericColumns(Kind("")); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("NumericColumns(\"\") error = %v, want ErrUnknownKind", err)
	}
	if _, err := BigQuery(Kind("gold")); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("BigQuery(gold) error = %v, want ErrUnknownKind", err)
	}
	if _, err := ValueColumn(Kind("gold")); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("ValueColumn(gold) error = %v, want ErrUnknownKind", err)
	}
}

func TestNumericColumns(t *testing.T) {
	tests := []struct {
		kind Kind
		want []string
	}{
		{Bank, []string{"balance"}},
		{Stock, []string{"purchase_value", "current_value", "portfolio_value"}},
		{Crypto, []string{"current_value", "portfolio_value"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, err := NumericColumns(tt.kind)
			if err != nil {
				t.Fatalf("NumericColumns(%s): %v", tt.kind, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("NumericColumns(%s) = %v, want %v", tt.kind, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("NumericColumns(%s)[%d] = %q, want %q", tt.kind, i, got[i], tt.want[i])
				}
			}

			// Every numeric column must exist in the table's column set.
			cols, err := Columns(tt.kind)
			if err != nil {
				t.Fatal(err)
			}
			byName := make(map[string]Column)
			for _, c := range cols {
				byName[c.Name] = c
			}
			for _, n := range got {
				c, ok := byName[n]
				if !ok {
					t.Errorf("numeric column %q not in %s schema", n, tt.kind)
					continue
				}
				if c.Type != bigquery.FloatFieldType {
					t.Errorf("numeric column %q has type %s, want FLOAT", n, c.Type)
				}
				if _, ok := byName["original_"+n]; !ok {
					t.Errorf("numeric column %q has no original_%s audit column", n, n)
				}
			}
		})
	}
}

func TestBigQuery_MatchesColumnOrder(t *testing.T) {
	for _, kind := range Kinds() {
		cols, _ := Columns(kind)
		s, err := BigQuery(kind)
		if err != nil {
			t.Fatalf("BigQuery(%s): %v", kind, err)
		}
		if len(s) != len(cols) {
			t.Fatalf("BigQuery(%s) has %d fields, want %d", kind, len(s), len(cols))
		}
		for i, f := range s {
			if f.Name != cols[i].Name || f.Type != cols[i].Type {
				t.Errorf("BigQuery(%s)[%d] = %s %s, want %s %s", kind, i, f.Name, f.Type, cols[i].Name, cols[i].Type)
			}
		}
	}
}
