package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/omartood/somalia-ex-rate/internal/rates"
)

const erapiDefaultURL = "https://open.er-api.com/v6"

// ERAPI fetches current rates from open.er-api.com. The API serves the
// latest table only, so this provider has no historical capability.
type ERAPI struct {
	baseURL string
	client  *http.Client
}

type erapiResponse struct {
	Result    string             `json:"result"`
	ErrorType string             `json:"error-type"`
	BaseCode  string             `json:"base_code"`
	Rates     map[string]float64 `json:"rates"`
}

func NewERAPI(baseURL string) *ERAPI {
	if baseURL == "" {
		baseURL = erapiDefaultURL
	}
	return &ERAPI{baseURL: baseURL, client: newHTTPClient()}
}

func (p *ERAPI) Key() string  { return "erapi" }
func (p *ERAPI) Name() string { return "Open Exchange Rate API" }

func (p *ERAPI) FetchCurrent(ctx context.Context) (rates.RateTable, error) {
	url := fmt.Sprintf("%s/latest/%s", p.baseURL, rates.Pivot)
	var resp erapiResponse
	if err := getJSON(ctx, p.client, url, &resp); err != nil {
		return nil, err
	}
	if resp.Result != "success" {
		return nil, fmt.Errorf("er-api result=%q error=%q", resp.Result, resp.ErrorType)
	}
	if resp.BaseCode != rates.Pivot {
		return nil, fmt.Errorf("er-api returned base %q, want %s", resp.BaseCode, rates.Pivot)
	}
	return normalize(resp.Rates)
}
