package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/config"
)

func TestNewCosmosAdapter_DisabledWithoutAddress(t *testing.T) {
	_, err := newCosmosAdapter(config.Account{Name: "Keplr", Type: "cosmos"}, Deps{})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestNewCosmosAdapter_UnsupportedNetwork(t *testing.T) {
	t.Setenv("COSMOS_ADDR", "osmo1xyz")
	_, err := newCosmosAdapter(config.Account{
		Name: "Keplr", Type: "cosmos",
		WalletAddressEnv: "COSMOS_ADDR",
		Network:          "juno",
	}, Deps{})
	if err == nil || errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want hard error for unsupported network", err)
	}
}

func TestCosmosAdapter_Fetch(t *testing.T) {
	lcd := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cosmos/bank/v1beta1/balances/osmo1xyz" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"balances":[
			{"denom":"uosmo","amount":"2500000"},
			{"denom":"ibc/DEADBEEF","amount":"1"}
		]}`))
	}))
	defer lcd.Close()

	prices := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tokens/v2/OSMO" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"price":0.5}]`))
	}))
	defer prices.Close()

	a := &cosmosAdapter{
		address:  "osmo1xyz",
		lcdURL:   lcd.URL,
		priceURL: prices.URL,
		httpc:    http.DefaultClient,
		deps:     Deps{Log: zerolog.Nop()},
	}

	records, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// The unknown IBC denom is skipped, leaving one priced OSMO record.
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1: %v", len(records), records)
	}
	r := records[0]
	if r["symbol"] != "OSMO" || r["type"] != "wallet" || r["currency"] != "USD" {
		t.Errorf("record = %v", r)
	}
	if got := r.Float("amount"); got != 2.5 {
		t.Errorf("amount = %v, want 2.5", got)
	}
	if got := r.Float("current_value"); got != 0.5 {
		t.Errorf("current_value = %v, want 0.5", got)
	}
	if got := r.Float("portfolio_value"); got != 1.25 {
		t.Errorf("portfolio_value = %v, want 1.25", got)
	}
}

func TestCosmosAdapter_LCDError(t *testing.T) {
	lcd := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer lcd.Close()

	a := &cosmosAdapter{
		address: "osmo1xyz",
		lcdURL:  lcd.URL,
		httpc:   http.DefaultClient,
		deps:    Deps{Log: zerolog.Nop()},
	}

	if _, err := a.Fetch(context.Background()); err == nil {
		t.Fatal("expected error from failing LCD")
	}
}
