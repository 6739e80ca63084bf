package storage

import (
	"context"
	"time"
)

// Storage abstracts persistence for rate snapshots, the historical cache,
// worker settings, and scheduled-job bookkeeping.
type Storage interface {
	// Current snapshots
	LatestSnapshot(ctx context.Context) (*RateSnapshot, error)
	SaveSnapshot(ctx context.Context, snap RateSnapshot) error

	// Historical cache, keyed by ISO date
	GetHistoricalRate(ctx context.Context, date string) (*HistoricalRate, error)
	SaveHistoricalRate(ctx context.Context, rec HistoricalRate) error
	PruneHistoricalRates(ctx context.Context, before string) error

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Scheduled job bookkeeping
	UpdateScheduledJob(ctx context.Context, name string, runAt time.Time, dur time.Duration, success bool, errMsg string) error

	// Close releases any resources (no-op for in-memory).
	Close() error
}
