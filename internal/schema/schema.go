// Package schema is the registry of warehouse table kinds and their column
// sets. It is consulted both for BigQuery DDL and for computing the merge
// column list, so the column sets here are the single source of truth.
package schema

import (
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// Kind identifies one of the logical warehouse tables.
type Kind string

const (
	Bank   Kind = "bank"
	Stock  Kind = "stock"
	Crypto Kind = "crypto"
)

// TotalView is the name of the cross-table view of per-(date, source) sums.
const TotalView = "total"

// ErrUnknownKind is returned for any table kind outside bank/stock/crypto.
var ErrUnknownKind = errors.New("schema: unknown table kind")

// Column describes one warehouse column.
type Column struct {
	Name string
	Type bigquery.FieldType
}

// Kinds lists every registered table kind, in bootstrap order.
func Kinds() []Kind {
	return []Kind{Bank, Stock, Crypto}
}

// Columns returns the ordered column list for the given table kind.
// Order matters only for DDL readability; merge logic uses set membership.
func Columns(kind Kind) ([]Column, error) {
	switch kind {
	case Bank:
		return []Column{
			{Name: "date", Type: bigquery.DateFieldType},
			{Name: "source", Type: bigquery.StringFieldType},
			{Name: "name", Type: bigquery.StringFieldType},
			{Name: "iban", Type: bigquery.StringFieldType},
			{Name: "balance", Type: bigquery.FloatFieldType},
			{Name: "currency", Type: bigquery.StringFieldType},
			{Name: "original_balance", Type: bigquery.FloatFieldType},
			{Name: "original_currency", Type: bigquery.StringFieldType},
		}, nil
	case Stock:
		return []Column{
			{Name: "date", Type: bigquery.DateFieldType},
			{Name: "source", Type: bigquery.StringFieldType},
			{Name: "name", Type: bigquery.StringFieldType},
			{Name: "symbol", Type: bigquery.StringFieldType},
			{Name: "amount", Type: bigquery.IntegerFieldType},
			{Name: "purchase_value", Type: bigquery.FloatFieldType},
			{Name: "current_value", Type: bigquery.FloatFieldType},
			{Name: "portfolio_value", Type: bigquery.FloatFieldType},
			{Name: "currency", Type: bigquery.StringFieldType},
			{Name: "original_purchase_value", Type: bigquery.FloatFieldType},
			{Name: "original_current_value", Type: bigquery.FloatFieldType},
			{Name: "original_portfolio_value", Type: bigquery.FloatFieldType},
			{Name: "original_currency", Type: bigquery.StringFieldType},
		}, nil
	case Crypto:
		return []Column{
			{Name: "date", Type: bigquery.DateFieldType},
			{Name: "source", Type: bigquery.StringFieldType},
			{Name: "name", Type: bigquery.StringFieldType},
			{Name: "type", Type: bigquery.StringFieldType},
			{Name: "symbol", Type: bigquery.StringFieldType},
			{Name: "amount", Type: bigquery.FloatFieldType},
			{Name: "current_value", Type: bigquery.FloatFieldType},
			{Name: "portfolio_value", Type: bigquery.FloatFieldType},
			{Name: "currency", Type: bigquery.StringFieldType},
			{Name: "original_current_value", Type: bigquery.FloatFieldType},
			{Name: "original_portfolio_value", Type: bigquery.FloatFieldType},
			{Name: "original_currency", Type: bigquery.StringFieldType},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// NumericColumns returns the monetary columns of a table kind, i.e. the
// columns the currency normalizer rewrites. The stock "amount" column is a
// share count and the crypto "amount" a token count; neither is monetary.
func NumericColumns(kind Kind) ([]string, error) {
	switch kind {
	case Bank:
		return []string{"balance"}, nil
	case Stock:
		return []string{"purchase_value", "current_value", "portfolio_value"}, nil
	case Crypto:
		return []string{"current_value", "portfolio_value"}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// BigQuery returns the table schema used for DDL.
func BigQuery(kind Kind) (bigquery.Schema, error) {
	cols, err := Columns(kind)
	if err != nil {
		return nil, err
	}
	s := make(bigquery.Schema, 0, len(cols))
	for _, c := range cols {
		s = append(s, &bigquery.FieldSchema{Name: c.Name, Type: c.Type})
	}
	return s, nil
}

// ValueColumn returns the column the total view sums for a table kind.
func ValueColumn(kind Kind) (string, error) {
	switch kind {
	case Bank:
		return "balance", nil
	case Stock, Crypto:
		return "portfolio_value", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
