package convert

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// RateSource supplies instantaneous currency conversion rates.
type RateSource interface {
	// Rate returns the multiplier converting one unit of from into to.
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Static is a fixed rate table keyed by "FROM:TO". Used in tests and for
// offline runs; lookups for missing pairs fail like any unsupported currency.
type Static map[string]decimal.Decimal

func (s Static) Rate(_ context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	r, ok := s[from+":"+to]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("convert: no rate for %s->%s", from, to)
	}
	return r, nil
}
