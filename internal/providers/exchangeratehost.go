package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/omartood/somalia-ex-rate/internal/rates"
)

const exhostDefaultURL = "https://api.exchangerate.host"

// ExchangerateHost fetches current and date-keyed historical tables from
// exchangerate.host.
type ExchangerateHost struct {
	baseURL string
	client  *http.Client
}

type exhostResponse struct {
	Success bool               `json:"success"`
	Base    string             `json:"base"`
	Rates   map[string]float64 `json:"rates"`
}

func NewExchangerateHost(baseURL string) *ExchangerateHost {
	if baseURL == "" {
		baseURL = exhostDefaultURL
	}
	return &ExchangerateHost{baseURL: baseURL, client: newHTTPClient()}
}

func (p *ExchangerateHost) Key() string  { return "exchangeratehost" }
func (p *ExchangerateHost) Name() string { return "exchangerate.host" }

func (p *ExchangerateHost) FetchCurrent(ctx context.Context) (rates.RateTable, error) {
	return p.fetch(ctx, fmt.Sprintf("%s/latest?base=%s", p.baseURL, rates.Pivot))
}

func (p *ExchangerateHost) FetchHistorical(ctx context.Context, date time.Time) (rates.RateTable, error) {
	return p.fetch(ctx, fmt.Sprintf("%s/%s?base=%s", p.baseURL, date.Format("2006-01-02"), rates.Pivot))
}

func (p *ExchangerateHost) fetch(ctx context.Context, url string) (rates.RateTable, error) {
	var resp exhostResponse
	if err := getJSON(ctx, p.client, url, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("exchangerate.host reported failure")
	}
	if resp.Base != rates.Pivot {
		return nil, fmt.Errorf("exchangerate.host returned base %q, want %s", resp.Base, rates.Pivot)
	}
	return normalize(resp.Rates)
}
