package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests
// and simple single-process deployments.
type MemoryStorage struct {
	mu         sync.RWMutex
	latest     *RateSnapshot
	historical map[string]HistoricalRate
	settings   map[string]string
	jobs       map[string]ScheduledJob
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		historical: make(map[string]HistoricalRate),
		settings:   make(map[string]string),
		jobs:       make(map[string]ScheduledJob),
	}
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) LatestSnapshot(ctx context.Context) (*RateSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return nil, nil
	}
	snap := *m.latest
	return &snap, nil
}

func (m *MemoryStorage) SaveSnapshot(ctx context.Context, snap RateSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = &snap
	return nil
}

func (m *MemoryStorage) GetHistoricalRate(ctx context.Context, date string) (*HistoricalRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.historical[date]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStorage) SaveHistoricalRate(ctx context.Context, rec HistoricalRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historical[rec.Date] = rec
	return nil
}

func (m *MemoryStorage) PruneHistoricalRates(ctx context.Context, before string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for date := range m.historical {
		if date < before {
			delete(m.historical, date)
		}
	}
	return nil
}

func (m *MemoryStorage) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key], nil
}

func (m *MemoryStorage) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *MemoryStorage) UpdateScheduledJob(ctx context.Context, name string, runAt time.Time, dur time.Duration, success bool, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok := 0
	if success {
		ok = 1
	}
	m.jobs[name] = ScheduledJob{
		Name:           name,
		LastRunAt:      runAt,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    ok,
		LastError:      errMsg,
	}
	return nil
}
