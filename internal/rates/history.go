package rates

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"
)

const dateLayout = "2006-01-02"

// DefaultRetentionDays is the historical cache retention window.
const DefaultRetentionDays = 90

// HistoryStore is the durable tier of the historical cache, keyed by ISO
// calendar date. Implementations return a nil table (and nil error) on a
// miss.
type HistoryStore interface {
	Get(ctx context.Context, date string) (RateTable, error)
	Put(ctx context.Context, date string, table RateTable) error
	Prune(ctx context.Context, before string) error
}

// RatePoint is one day of a rate history series.
type RatePoint struct {
	Date time.Time `json:"date"`
	Rate float64   `json:"rate"`
}

// HistoricalService supplies rate tables for past dates and derives
// time-series statistics from them. It shares the provider manager with the
// current-rate service for cache misses.
type HistoricalService struct {
	manager       *Manager
	store         HistoryStore
	retentionDays int

	mu      sync.Mutex
	entries map[string]RateTable

	now func() time.Time
}

// NewHistoricalService builds a historical service. store may be nil for a
// memory-only cache; retentionDays <= 0 selects the default window.
func NewHistoricalService(manager *Manager, store HistoryStore, retentionDays int) *HistoricalService {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &HistoricalService{
		manager:       manager,
		store:         store,
		retentionDays: retentionDays,
		entries:       make(map[string]RateTable),
		now:           time.Now,
	}
}

// HistoricalRates returns the rate table for a past calendar date, fetching
// and caching it on first request.
func (h *HistoricalService) HistoricalRates(ctx context.Context, date time.Time) (RateTable, error) {
	key := date.Format(dateLayout)

	h.mu.Lock()
	table, ok := h.entries[key]
	h.mu.Unlock()
	if ok {
		return table.Clone(), nil
	}

	if h.store != nil {
		stored, err := h.store.Get(ctx, key)
		if err != nil {
			log.Printf("rates: historical store read for %s failed: %v", key, err)
		} else if stored != nil {
			h.mu.Lock()
			h.entries[key] = stored
			h.mu.Unlock()
			return stored.Clone(), nil
		}
	}

	table, err := h.manager.FetchHistorical(ctx, date)
	if err != nil {
		return nil, err
	}
	h.write(ctx, key, table)
	return table.Clone(), nil
}

// write stores a dated table in both tiers and applies the retention
// window. Pruning runs on every write, never on a timer.
func (h *HistoricalService) write(ctx context.Context, key string, table RateTable) {
	cutoff := h.now().AddDate(0, 0, -h.retentionDays).Format(dateLayout)

	h.mu.Lock()
	h.entries[key] = table
	for d := range h.entries {
		if d < cutoff {
			delete(h.entries, d)
		}
	}
	h.mu.Unlock()

	if h.store == nil {
		return
	}
	if err := h.store.Prune(ctx, cutoff); err != nil {
		log.Printf("rates: historical prune before %s failed: %v", cutoff, err)
	}
	if err := h.store.Put(ctx, key, table); err != nil {
		log.Printf("rates: historical store write for %s failed: %v", key, err)
	}
}

// RateHistory walks every day in the inclusive range and produces an
// ascending series of pivot rates for the currency. Days whose fetch fails
// are skipped rather than failing the range. An empty or pivot base quotes
// the rate as pivot→currency; a non-pivot base inverts it.
func (h *HistoricalService) RateHistory(ctx context.Context, currency, base string, from, to time.Time) ([]RatePoint, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s is after %s", from.Format(dateLayout), to.Format(dateLayout))
	}

	invert := base != "" && base != Pivot
	var points []RatePoint
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		table, err := h.HistoricalRates(ctx, day)
		if err != nil {
			log.Printf("rates: skipping %s in history range: %v", day.Format(dateLayout), err)
			continue
		}
		rate, ok := table[currency]
		if !ok {
			log.Printf("rates: no %s entry on %s, skipping", currency, day.Format(dateLayout))
			continue
		}
		if invert {
			rate = 1 / rate
		}
		points = append(points, RatePoint{Date: day, Rate: rate})
	}
	return points, nil
}

// Volatility returns the annualized deviation of daily simple returns over
// the trailing window of the given number of days. Fewer than two data
// points yields 0.
func (h *HistoricalService) Volatility(ctx context.Context, currency string, days int) (float64, error) {
	if days <= 0 {
		days = 30
	}
	to := h.now()
	from := to.AddDate(0, 0, -days)
	points, err := h.RateHistory(ctx, currency, "", from, to)
	if err != nil {
		return 0, err
	}
	if len(points) < 2 {
		return 0, nil
	}

	var sumSq float64
	n := 0
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Rate
		if prev == 0 {
			continue
		}
		r := (points[i].Rate - prev) / prev
		sumSq += r * r
		n++
	}
	if n == 0 {
		return 0, nil
	}
	// Daily-return deviation about zero, annualized over 365 days.
	return math.Sqrt(sumSq/float64(n)) * math.Sqrt(365), nil
}
