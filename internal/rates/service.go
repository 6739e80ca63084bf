package rates

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DefaultTTL is the freshness window for the current-rate cache.
const DefaultTTL = 6 * time.Hour

// ServiceConfig carries the service-wide defaults; per-query Options can
// override each of them.
type ServiceConfig struct {
	TTL       time.Duration
	Offline   bool
	CachePath string
}

// Options tunes a single query.
type Options struct {
	// Provider restricts the fetch to one provider key instead of the
	// default chain.
	Provider string
	// TTL overrides the freshness window.
	TTL time.Duration
	// PersistPath overrides the durable cache file for this query.
	PersistPath string
	// Offline skips the network entirely: stale cache or seed data.
	Offline bool
}

// Service is the authoritative entry point for current rates. It owns the
// cache and the provider manager; both are constructed once at the entry
// point and passed in, never shared through package state.
type Service struct {
	cfg     ServiceConfig
	cache   *CacheStore
	manager *Manager
}

// NewService builds a rate service over an already-constructed manager.
func NewService(cfg ServiceConfig, manager *Manager) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Service{
		cfg:     cfg,
		cache:   NewCacheStore(cfg.CachePath),
		manager: manager,
	}
}

// GetRates resolves a current rate table. Resolution order: fresh cache,
// offline fallback (stale cache then seed), live fetch with cache
// write-back, stale cache, seed. Provider failures never surface here;
// the only possible error is an unknown provider override.
func (s *Service) GetRates(ctx context.Context, opts Options) (RateTable, error) {
	cache := s.cache
	if opts.PersistPath != "" && opts.PersistPath != s.cfg.CachePath {
		cache = NewCacheStore(opts.PersistPath)
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = s.cfg.TTL
	}

	snap := cache.Read()
	if cache.Fresh(snap, ttl) {
		return snap.Rates.Clone(), nil
	}

	if opts.Offline || s.cfg.Offline {
		if snap != nil {
			return snap.Rates.Clone(), nil
		}
		return Seed(), nil
	}

	manager := s.manager
	if opts.Provider != "" {
		restricted, ok := s.manager.Restricted(opts.Provider)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, opts.Provider)
		}
		manager = restricted
	}

	table, err := manager.FetchCurrent(ctx)
	if err == nil {
		cache.Write(Snapshot{CapturedAt: time.Now(), Rates: table})
		return table.Clone(), nil
	}
	log.Printf("rates: live fetch failed, falling back: %v", err)

	if snap != nil {
		return snap.Rates.Clone(), nil
	}
	return Seed(), nil
}

// Refresh bypasses the freshness check and forces a live fetch, writing
// the result through the cache. Used by the background worker.
func (s *Service) Refresh(ctx context.Context) (RateTable, error) {
	table, err := s.manager.FetchCurrent(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Write(Snapshot{CapturedAt: time.Now(), Rates: table})
	return table, nil
}

// GetRate returns the pivot rate for one currency.
func (s *Service) GetRate(ctx context.Context, code string, opts Options) (float64, error) {
	table, err := s.GetRates(ctx, opts)
	if err != nil {
		return 0, err
	}
	return table.Rate(code)
}

// Convert converts an amount between two supported currencies. A
// same-currency conversion returns the amount unchanged without resolving
// a table at all.
func (s *Service) Convert(ctx context.Context, amount float64, from, to string, opts Options) (float64, error) {
	if from == to {
		return amount, nil
	}
	table, err := s.GetRates(ctx, opts)
	if err != nil {
		return 0, err
	}
	return table.Convert(amount, from, to)
}
