package cron

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omartood/somalia-ex-rate/internal/metrics"
	"github.com/omartood/somalia-ex-rate/internal/rates"
	"github.com/omartood/somalia-ex-rate/internal/storage"
)

const (
	jobName         = "refresh_rates"
	intervalSetting = "refresh_interval_seconds"
	// Advisory lock key shared by all worker instances.
	lockKey int64 = 4217
)

// Worker periodically refreshes the current snapshot and the current day's
// historical entry. The interval setting is either integer seconds or a
// cron expression and is re-read from storage on every control tick, so it
// can be changed at runtime without a restart.
type Worker struct {
	svc      *rates.Service
	hist     *rates.HistoricalService
	st       storage.Storage
	interval string
}

// New builds a worker. st may be nil, in which case the worker keeps its
// initial interval and skips job bookkeeping.
func New(svc *rates.Service, hist *rates.HistoricalService, st storage.Storage, interval string) *Worker {
	if interval == "" {
		interval = "300"
	}
	return &Worker{svc: svc, hist: hist, st: st, interval: interval}
}

// Run drives the control loop until the context is cancelled. When the
// storage backend is Postgres-pooled, an advisory lock ensures only one
// instance in a multi-instance deployment executes the job.
func (w *Worker) Run(ctx context.Context) error {
	setting := w.interval
	if w.st != nil {
		if val, err := w.st.GetSetting(ctx, intervalSetting); err == nil && val != "" {
			setting = val
		}
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	nextRun := time.Now()
	log.Printf("cron worker starting, initial setting=%q", setting)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if w.st != nil {
				if val, err := w.st.GetSetting(ctx, intervalSetting); err == nil && val != "" && val != setting {
					log.Printf("cron: interval updated from %q to %q", setting, val)
					setting = val
					nextRun = nextRunAfter(setting, time.Now())
				}
			}

			if time.Now().Before(nextRun) {
				continue
			}

			started := time.Now()
			runErr := w.runOnce(ctx, started)
			metrics.UpdateJobMetrics(jobName, started, runErr)

			dur := time.Since(started)
			if w.st != nil {
				errMsg := ""
				if runErr != nil {
					errMsg = runErr.Error()
				}
				if err := w.st.UpdateScheduledJob(ctx, jobName, started, dur, runErr == nil, errMsg); err != nil {
					log.Printf("cron: update scheduled_jobs failed: %v", err)
				}
			}

			if runErr != nil {
				log.Printf("cron: job %s completed with error: %v (duration=%s)", jobName, runErr, dur)
			} else {
				log.Printf("cron: job %s completed successfully (duration=%s)", jobName, dur)
			}

			nextRun = nextRunAfter(setting, time.Now())
		}
	}
}

// runOnce executes one refresh under the advisory lock when available.
func (w *Worker) runOnce(ctx context.Context, started time.Time) error {
	pg, locked := w.st.(*storage.PostgresPoolStorage)
	if locked {
		ok, err := pg.AcquireAdvisoryLock(ctx, lockKey)
		if err != nil {
			log.Printf("cron: acquire advisory lock failed: %v", err)
			return err
		}
		if !ok {
			log.Printf("cron: advisory lock held by another worker, skipping run")
			return nil
		}
		defer func() {
			if _, err := pg.ReleaseAdvisoryLock(ctx, lockKey); err != nil {
				log.Printf("cron: release advisory lock failed: %v", err)
			}
		}()
	}

	table, err := w.svc.Refresh(ctx)
	if err != nil {
		return err
	}
	if w.st != nil {
		if err := storage.RecordSnapshot(ctx, w.st, table, started); err != nil {
			log.Printf("cron: record snapshot failed: %v", err)
		}
	}

	// Pull today's entry into the historical cache while providers are warm.
	if w.hist != nil {
		if _, err := w.hist.HistoricalRates(ctx, started); err != nil {
			log.Printf("cron: historical refresh for %s failed: %v", started.Format("2006-01-02"), err)
		}
	}
	return nil
}

// nextRunAfter parses the interval setting as integer seconds first, then
// as a cron expression, falling back to five minutes.
func nextRunAfter(setting string, lastRun time.Time) time.Time {
	if v, err := strconv.Atoi(setting); err == nil && v > 0 {
		return lastRun.Add(time.Duration(v) * time.Second)
	}
	if sched, err := cron.ParseStandard(setting); err == nil {
		return sched.Next(lastRun)
	}
	return lastRun.Add(5 * time.Minute)
}
