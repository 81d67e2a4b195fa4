package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const frankfurterBaseURL = "https://api.frankfurter.dev/v1"

// HTTPClient describes the HTTP client used by the rate source.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Frankfurter fetches ECB reference rates from the frankfurter API.
// Rates refresh daily, matching this pipeline's cadence, so a fetched rate
// is cached for the remainder of the run (keyed by pair).
type Frankfurter struct {
	baseURL    string
	httpClient HTTPClient

	mu    sync.Mutex
	cache map[string]decimal.Decimal
}

// FrankfurterOption configures the rate source.
type FrankfurterOption func(*Frankfurter)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) FrankfurterOption {
	return func(f *Frankfurter) {
		f.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c HTTPClient) FrankfurterOption {
	return func(f *Frankfurter) {
		f.httpClient = c
	}
}

// NewFrankfurter creates a frankfurter-backed rate source.
func NewFrankfurter(options ...FrankfurterOption) *Frankfurter {
	f := &Frankfurter{
		baseURL:    frankfurterBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      make(map[string]decimal.Decimal),
	}
	for _, option := range options {
		option(f)
	}
	return f
}

type frankfurterResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// Rate implements RateSource.
func (f *Frankfurter) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	key := from + ":" + to
	f.mu.Lock()
	if r, ok := f.cache[key]; ok {
		f.mu.Unlock()
		return r, nil
	}
	f.mu.Unlock()

	u := fmt.Sprintf("%s/latest?base=%s&symbols=%s", f.baseURL, url.QueryEscape(from), url.QueryEscape(to))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("convert: building rate request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("convert: fetching rate %s->%s: %w", from, to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Decimal{}, fmt.Errorf("convert: rate %s->%s: status %d: %s", from, to, resp.StatusCode, body)
	}

	var parsed frankfurterResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return decimal.Decimal{}, fmt.Errorf("convert: decoding rate response: %w", err)
	}

	v, ok := parsed.Rates[to]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("convert: no rate for %s->%s in response", from, to)
	}

	rate := decimal.NewFromFloat(v)
	f.mu.Lock()
	f.cache[key] = rate
	f.mu.Unlock()
	return rate, nil
}
