package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/omartood/somalia-ex-rate/internal/rates"
)

const frankfurterDefaultURL = "https://api.frankfurter.dev/v1"

// Frankfurter fetches current and historical tables from frankfurter.dev.
// The API omits the base currency from its rates map, so the pivot entry
// is restored before validation.
type Frankfurter struct {
	baseURL string
	client  *http.Client
}

type frankfurterResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func NewFrankfurter(baseURL string) *Frankfurter {
	if baseURL == "" {
		baseURL = frankfurterDefaultURL
	}
	return &Frankfurter{baseURL: baseURL, client: newHTTPClient()}
}

func (p *Frankfurter) Key() string  { return "frankfurter" }
func (p *Frankfurter) Name() string { return "Frankfurter" }

func (p *Frankfurter) FetchCurrent(ctx context.Context) (rates.RateTable, error) {
	return p.fetch(ctx, fmt.Sprintf("%s/latest?base=%s", p.baseURL, rates.Pivot))
}

func (p *Frankfurter) FetchHistorical(ctx context.Context, date time.Time) (rates.RateTable, error) {
	return p.fetch(ctx, fmt.Sprintf("%s/%s?base=%s", p.baseURL, date.Format("2006-01-02"), rates.Pivot))
}

func (p *Frankfurter) fetch(ctx context.Context, url string) (rates.RateTable, error) {
	var resp frankfurterResponse
	if err := getJSON(ctx, p.client, url, &resp); err != nil {
		return nil, err
	}
	if resp.Base != rates.Pivot {
		return nil, fmt.Errorf("frankfurter returned base %q, want %s", resp.Base, rates.Pivot)
	}
	table := make(map[string]float64, len(resp.Rates)+1)
	for code, rate := range resp.Rates {
		table[code] = rate
	}
	table[rates.Pivot] = 1
	return normalize(table)
}
