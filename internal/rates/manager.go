package rates

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/omartood/somalia-ex-rate/internal/metrics"
)

const (
	// DefaultMaxRetries is the number of attempts made on one provider
	// before control moves to the next one in the chain.
	DefaultMaxRetries = 3
	// DefaultAttemptTimeout bounds a single provider attempt.
	DefaultAttemptTimeout = 10 * time.Second
)

// Entry is one slot in the provider chain.
type Entry struct {
	Provider Provider
	// Priority orders fallbacks ascending; nil means least preferred.
	Priority *int
	// Timeout overrides the manager's per-attempt timeout when set.
	Timeout time.Duration
}

// Manager produces one rate table by walking an ordered provider chain,
// retrying each provider with exponential backoff before advancing.
// Traversal is strictly sequential; providers are never raced against each
// other, only against the per-attempt timer.
type Manager struct {
	primary    Entry
	fallbacks  []Entry
	maxRetries int
	timeout    time.Duration

	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// ManagerConfig carries the retry knobs. Zero values select the defaults.
type ManagerConfig struct {
	MaxRetries     int
	AttemptTimeout time.Duration
}

// NewManager builds a manager with the given primary provider.
func NewManager(cfg ManagerConfig, primary Entry) *Manager {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	return &Manager{
		primary:    primary,
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.AttemptTimeout,
		sleep:      sleepCtx,
	}
}

// AddFallbackProvider appends a fallback and re-sorts the fallback list
// ascending by priority, with absent priorities last.
func (m *Manager) AddFallbackProvider(e Entry) {
	m.fallbacks = append(m.fallbacks, e)
	sort.SliceStable(m.fallbacks, func(i, j int) bool {
		pi, pj := m.fallbacks[i].Priority, m.fallbacks[j].Priority
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return *pi < *pj
		}
	})
}

// Restricted returns a manager whose chain contains only the provider with
// the given key, sharing the retry configuration. The second return is
// false when no such provider exists in the chain.
func (m *Manager) Restricted(key string) (*Manager, bool) {
	for _, e := range m.Chain() {
		if e.Provider.Key() == key {
			return &Manager{
				primary:    e,
				maxRetries: m.maxRetries,
				timeout:    m.timeout,
				sleep:      m.sleep,
			}, true
		}
	}
	return nil, false
}

// Chain returns the traversal order: primary first, then fallbacks by
// priority.
func (m *Manager) Chain() []Entry {
	out := make([]Entry, 0, 1+len(m.fallbacks))
	out = append(out, m.primary)
	out = append(out, m.fallbacks...)
	return out
}

// FetchCurrent walks the chain until one provider yields a table. Each
// provider gets up to maxRetries attempts with 2^(attempt-1) seconds of
// backoff between attempts; exhausting one provider advances to the next.
func (m *Manager) FetchCurrent(ctx context.Context) (RateTable, error) {
	var last error
	for _, e := range m.Chain() {
		key := e.Provider.Key()
		for attempt := 1; attempt <= m.maxRetries; attempt++ {
			table, err := m.attempt(ctx, e, func(actx context.Context) (RateTable, error) {
				return e.Provider.FetchCurrent(actx)
			})
			if err == nil {
				metrics.FetchesTotal.WithLabelValues(key, "ok").Inc()
				return table, nil
			}
			last = err
			metrics.FetchesTotal.WithLabelValues(key, "error").Inc()
			log.Printf("rates: provider %s attempt %d/%d failed: %v", key, attempt, m.maxRetries, err)
			if attempt < m.maxRetries {
				delay := time.Duration(1<<uint(attempt-1)) * time.Second
				if err := m.sleep(ctx, delay); err != nil {
					return nil, err
				}
			}
		}
	}
	return nil, &ExhaustedError{Last: last}
}

// FetchHistorical walks the same chain restricted to providers with
// historical capability. First success wins; no retry loop is layered on
// top of a provider's own fetch.
func (m *Manager) FetchHistorical(ctx context.Context, date time.Time) (RateTable, error) {
	var last error
	for _, e := range m.Chain() {
		hp, ok := e.Provider.(HistoricalProvider)
		if !ok {
			continue
		}
		table, err := m.attempt(ctx, e, func(actx context.Context) (RateTable, error) {
			return hp.FetchHistorical(actx, date)
		})
		if err == nil {
			return table, nil
		}
		last = err
		log.Printf("rates: provider %s historical fetch for %s failed: %v",
			e.Provider.Key(), date.Format(dateLayout), err)
	}
	if last == nil {
		last = errors.New("no provider supports historical rates")
	}
	return nil, &ExhaustedError{Last: last}
}

// attempt races one provider call against the per-attempt timer. The
// attempt context is cancelled when the timer fires, so a cooperative
// provider stops its transport work; a late reply from a non-cooperative
// one is simply discarded.
func (m *Manager) attempt(ctx context.Context, e Entry, fetch func(context.Context) (RateTable, error)) (RateTable, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = m.timeout
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		table RateTable
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		table, err := fetch(actx)
		ch <- result{table, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, &ProviderError{Provider: e.Provider.Key(), Err: r.err}
		}
		return r.table, nil
	case <-actx.Done():
		err := actx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrProviderTimeout
		}
		return nil, &ProviderError{Provider: e.Provider.Key(), Err: err}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
