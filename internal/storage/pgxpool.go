package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPoolStorage is a pgxpool-backed Storage used by the refresh
// worker; the pool gives access to PostgreSQL advisory locks so only one
// worker instance runs a job at a time.
type PostgresPoolStorage struct {
	pool *pgxpool.Pool
}

func OpenPostgresPool(ctx context.Context, dsn string) (*PostgresPoolStorage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &PostgresPoolStorage{pool: pool}, nil
}

func (s *PostgresPoolStorage) Close() error {
	s.pool.Close()
	return nil
}

// AcquireAdvisoryLock attempts a non-blocking session advisory lock.
func (s *PostgresPoolStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var acquired bool
	err := s.pool.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&acquired)
	return acquired, err
}

func (s *PostgresPoolStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var released bool
	err := s.pool.QueryRow(ctx, `SELECT pg_advisory_unlock($1)`, key).Scan(&released)
	return released, err
}

func (s *PostgresPoolStorage) LatestSnapshot(ctx context.Context) (*RateSnapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, base, payload, captured_at FROM rate_snapshots
		ORDER BY captured_at DESC LIMIT 1`)
	var snap RateSnapshot
	if err := row.Scan(&snap.ID, &snap.Base, &snap.Payload, &snap.CapturedAt); err != nil {
		return nil, nil
	}
	return &snap, nil
}

func (s *PostgresPoolStorage) SaveSnapshot(ctx context.Context, snap RateSnapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rate_snapshots (id, base, payload, captured_at)
		VALUES ($1,$2,$3,$4)`,
		snap.ID, snap.Base, snap.Payload, snap.CapturedAt)
	return err
}

func (s *PostgresPoolStorage) GetHistoricalRate(ctx context.Context, date string) (*HistoricalRate, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT date, payload, fetched_at FROM historical_rates WHERE date=$1`, date)
	var rec HistoricalRate
	if err := row.Scan(&rec.Date, &rec.Payload, &rec.FetchedAt); err != nil {
		return nil, nil
	}
	return &rec, nil
}

func (s *PostgresPoolStorage) SaveHistoricalRate(ctx context.Context, rec HistoricalRate) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO historical_rates (date, payload, fetched_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (date) DO UPDATE SET
			payload=EXCLUDED.payload,
			fetched_at=EXCLUDED.fetched_at`,
		rec.Date, rec.Payload, rec.FetchedAt)
	return err
}

func (s *PostgresPoolStorage) PruneHistoricalRates(ctx context.Context, before string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM historical_rates WHERE date < $1`, before)
	return err
}

func (s *PostgresPoolStorage) GetSetting(ctx context.Context, key string) (string, error) {
	row := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key=$1`, key)
	var value string
	if err := row.Scan(&value); err != nil {
		return "", nil
	}
	return value, nil
}

func (s *PostgresPoolStorage) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1,$2,NOW())
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`,
		key, value)
	return err
}

func (s *PostgresPoolStorage) UpdateScheduledJob(ctx context.Context, name string, runAt time.Time, dur time.Duration, success bool, errMsg string) error {
	ok := 0
	if success {
		ok = 1
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scheduled_jobs (name, last_run_at, last_duration_ms, last_success, last_error)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (name) DO UPDATE SET
			last_run_at=EXCLUDED.last_run_at,
			last_duration_ms=EXCLUDED.last_duration_ms,
			last_success=EXCLUDED.last_success,
			last_error=EXCLUDED.last_error`,
		name, runAt, dur.Milliseconds(), ok, errMsg)
	return err
}
