// Package convert normalizes the monetary columns of snapshot batches into
// one preferred currency, keeping the pre-conversion values for audit.
package convert

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/snapshot"
)

// Normalizer rewrites monetary columns into the target currency.
type Normalizer struct {
	rates  RateSource
	target string
	log    zerolog.Logger
}

// NewNormalizer creates a normalizer converting into target.
func NewNormalizer(rates RateSource, target string, log zerolog.Logger) *Normalizer {
	return &Normalizer{rates: rates, target: target, log: log}
}

// Target returns the preferred currency.
func (n *Normalizer) Target() string {
	return n.target
}

// Normalize converts the given numeric columns of every record into the
// target currency. Records already in the target currency pass through
// untouched, with no original_* columns added. A failed rate lookup leaves
// the whole record in its native currency but still populates the
// original_* columns as no-op copies so the batch's column shape stays
// uniform; lookup failures are logged, never returned. An empty batch
// yields an empty result without any lookups.
func (n *Normalizer) Normalize(ctx context.Context, records []snapshot.Record, numericColumns []string) []snapshot.Record {
	out := make([]snapshot.Record, 0, len(records))

	for _, rec := range records {
		currency := rec.Currency()
		if currency == n.target {
			out = append(out, rec)
			continue
		}

		clone := rec.Clone()
		rate, err := n.rates.Rate(ctx, currency, n.target)
		if err != nil {
			// Unsupported pair: keep the native currency and values.
			for _, col := range numericColumns {
				if v, ok := clone[col]; ok {
					clone["original_"+col] = v
				}
			}
			clone["original_currency"] = currency
			n.log.Warn().
				Err(err).
				Str("currency", currency).
				Str("target", n.target).
				Msg("Currency not convertible, storing unconverted")
			out = append(out, clone)
			continue
		}

		for _, col := range numericColumns {
			v, ok := clone[col]
			if !ok {
				continue
			}
			converted := decimal.NewFromFloat(clone.Float(col)).Mul(rate).Round(2)
			// The original value is recorded exactly, never rounded.
			clone["original_"+col] = v
			clone[col] = converted.InexactFloat64()
		}
		clone["original_currency"] = currency
		clone["currency"] = n.target
		out = append(out, clone)
	}

	return out
}
