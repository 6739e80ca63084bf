package rates

import (
	"context"
	"time"
)

// Provider fetches a current rate table pivoted on SOS.
type Provider interface {
	// Key returns the unique identifier for the provider (e.g. "erapi").
	Key() string
	// Name returns the human-readable name of the rate source.
	Name() string
	// FetchCurrent fetches the latest rate table. Implementations must
	// validate the response shape and reject tables missing the pivot key.
	FetchCurrent(ctx context.Context) (RateTable, error)
}

// HistoricalProvider is implemented by providers that can also serve a rate
// table for a past calendar date.
type HistoricalProvider interface {
	Provider
	FetchHistorical(ctx context.Context, date time.Time) (RateTable, error)
}

// Descriptor holds provider chain metadata. Priority orders the fallback
// list ascending; a nil priority sorts last.
type Descriptor struct {
	Key                string        `json:"key"`
	Name               string        `json:"name"`
	Priority           *int          `json:"priority,omitempty"`
	Timeout            time.Duration `json:"timeout,omitempty"`
	SupportsHistorical bool          `json:"supportsHistorical"`
}
