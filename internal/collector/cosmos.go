package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/snapshot"
)

// Built-in adapter for Cosmos-ecosystem wallets on the Osmosis chain. It is
// the reference Adapter implementation: secretless, two plain JSON GETs
// (LCD balances + imperator token prices).
const (
	osmosisLCDURL   = "https://lcd.osmosis.zone"
	osmosisPriceURL = "https://api-osmosis.imperator.co"
)

// denomInfo maps a native denom to its display symbol and exponent.
var osmosisDenoms = map[string]struct {
	Symbol   string
	Exponent int
}{
	"uosmo": {Symbol: "OSMO", Exponent: 6},
	"uion":  {Symbol: "ION", Exponent: 6},
}

type cosmosAdapter struct {
	address  string
	lcdURL   string
	priceURL string
	httpc    *http.Client
	deps     Deps
}

func newCosmosAdapter(account config.Account, deps Deps) (Adapter, error) {
	address := account.WalletAddress()
	if address == "" {
		return nil, ErrDisabled
	}
	network := strings.ToLower(account.Network)
	if network == "" {
		network = "osmosis"
	}
	if network != "osmosis" {
		return nil, fmt.Errorf("collector: unsupported cosmos network %q", account.Network)
	}
	return &cosmosAdapter{
		address:  address,
		lcdURL:   osmosisLCDURL,
		priceURL: osmosisPriceURL,
		httpc:    deps.HTTP,
		deps:     deps,
	}, nil
}

type lcdBalancesResponse struct {
	Balances []struct {
		Denom  string `json:"denom"`
		Amount string `json:"amount"`
	} `json:"balances"`
}

type imperatorToken struct {
	Price float64 `json:"price"`
}

// Fetch reads the wallet's bank balances and prices each known denom in
// USD. Unknown denoms (IBC hashes and LP shares) are skipped with a debug
// log rather than stored unpriced.
func (c *cosmosAdapter) Fetch(ctx context.Context) ([]snapshot.Record, error) {
	var balances lcdBalancesResponse
	u := fmt.Sprintf("%s/cosmos/bank/v1beta1/balances/%s", c.lcdURL, url.PathEscape(c.address))
	if err := c.getJSON(ctx, u, &balances); err != nil {
		return nil, fmt.Errorf("collector: fetching cosmos balances: %w", err)
	}

	var records []snapshot.Record
	for _, b := range balances.Balances {
		info, ok := osmosisDenoms[b.Denom]
		if !ok {
			c.deps.Log.Debug().Str("denom", b.Denom).Msg("Skipping unknown denom")
			continue
		}

		raw, err := strconv.ParseFloat(b.Amount, 64)
		if err != nil {
			// A vendor null or junk amount reads as 0, per input defaulting.
			c.deps.Log.Warn().Str("denom", b.Denom).Str("amount", b.Amount).
				Msg("Unparseable balance amount, treating as 0")
			raw = 0
		}
		amount := raw / pow10(info.Exponent)

		price, err := c.tokenPrice(ctx, info.Symbol)
		if err != nil {
			return nil, fmt.Errorf("collector: pricing %s: %w", info.Symbol, err)
		}

		records = append(records, snapshot.Record{
			"name":            info.Symbol,
			"type":            "wallet",
			"symbol":          info.Symbol,
			"amount":          amount,
			"current_value":   price,
			"portfolio_value": amount * price,
			"currency":        "USD",
		})
	}
	return records, nil
}

func (c *cosmosAdapter) tokenPrice(ctx context.Context, symbol string) (float64, error) {
	var tokens []imperatorToken
	u := fmt.Sprintf("%s/tokens/v2/%s", c.priceURL, url.PathEscape(symbol))
	if err := c.getJSON(ctx, u, &tokens); err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, fmt.Errorf("no price data for %s", symbol)
	}
	return tokens[0].Price, nil
}

func (c *cosmosAdapter) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", u, resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func pow10(n int) float64 {
	v := 1.0
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}
