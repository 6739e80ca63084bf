package providers

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/omartood/somalia-ex-rate/internal/rates"
)

const descriptorsEnv = "SOSRATES_PROVIDERS_JSON"

func intPtr(v int) *int { return &v }

// defaultDescriptors is the built-in provider chain, most preferred first.
func defaultDescriptors() []rates.Descriptor {
	return []rates.Descriptor{
		{Key: "erapi", Name: "Open Exchange Rate API", Priority: intPtr(1)},
		{Key: "exchangeratehost", Name: "exchangerate.host", Priority: intPtr(2), SupportsHistorical: true},
		{Key: "frankfurter", Name: "Frankfurter", Priority: intPtr(3), SupportsHistorical: true},
	}
}

// Descriptors returns the configured provider chain, honoring a JSON
// override in the environment. A malformed or empty override falls back to
// the defaults.
func Descriptors() []rates.Descriptor {
	raw := os.Getenv(descriptorsEnv)
	if raw == "" {
		return defaultDescriptors()
	}
	var out []rates.Descriptor
	if err := json.Unmarshal([]byte(raw), &out); err != nil || len(out) == 0 {
		return defaultDescriptors()
	}
	return out
}

// New instantiates the provider for a descriptor key.
func New(desc rates.Descriptor) (rates.Provider, error) {
	switch desc.Key {
	case "erapi":
		return NewERAPI(""), nil
	case "exchangeratehost":
		return NewExchangerateHost(""), nil
	case "frankfurter":
		return NewFrankfurter(""), nil
	default:
		return nil, fmt.Errorf("%w: %s", rates.ErrUnknownProvider, desc.Key)
	}
}

// BuildManager constructs the failover manager from a descriptor list: the
// most preferred descriptor becomes the primary, the rest are fallbacks
// ordered ascending by priority.
func BuildManager(cfg rates.ManagerConfig, descs []rates.Descriptor) (*rates.Manager, error) {
	if len(descs) == 0 {
		descs = defaultDescriptors()
	}
	sorted := make([]rates.Descriptor, len(descs))
	copy(sorted, descs)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := sorted[i].Priority, sorted[j].Priority
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return *pi < *pj
		}
	})

	primary, err := New(sorted[0])
	if err != nil {
		return nil, err
	}
	manager := rates.NewManager(cfg, rates.Entry{
		Provider: primary,
		Priority: sorted[0].Priority,
		Timeout:  sorted[0].Timeout,
	})
	for _, desc := range sorted[1:] {
		p, err := New(desc)
		if err != nil {
			return nil, err
		}
		manager.AddFallbackProvider(rates.Entry{
			Provider: p,
			Priority: desc.Priority,
			Timeout:  desc.Timeout,
		})
	}
	return manager, nil
}

// normalize validates a raw provider payload into a RateTable, rejecting
// tables that are missing the pivot key or carry non-positive rates.
func normalize(raw map[string]float64) (rates.RateTable, error) {
	table := rates.RateTable(raw)
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}
