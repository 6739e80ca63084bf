package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/omartood/somalia-ex-rate/internal/rates"
)

// HistoryAdapter exposes a Storage backend as the historical service's
// durable tier, handling the payload encoding at the boundary.
type HistoryAdapter struct {
	st Storage
}

func NewHistoryAdapter(st Storage) *HistoryAdapter {
	return &HistoryAdapter{st: st}
}

func (a *HistoryAdapter) Get(ctx context.Context, date string) (rates.RateTable, error) {
	rec, err := a.st.GetHistoricalRate(ctx, date)
	if err != nil || rec == nil {
		return nil, err
	}
	var table rates.RateTable
	if err := json.Unmarshal(rec.Payload, &table); err != nil {
		// Corrupt payload behaves like a miss.
		return nil, nil
	}
	return table, nil
}

func (a *HistoryAdapter) Put(ctx context.Context, date string, table rates.RateTable) error {
	payload, err := json.Marshal(table)
	if err != nil {
		return err
	}
	return a.st.SaveHistoricalRate(ctx, HistoricalRate{
		Date:      date,
		Payload:   payload,
		FetchedAt: time.Now(),
	})
}

func (a *HistoryAdapter) Prune(ctx context.Context, before string) error {
	return a.st.PruneHistoricalRates(ctx, before)
}

// RecordSnapshot persists a captured rate table as an audit row.
func RecordSnapshot(ctx context.Context, st Storage, table rates.RateTable, capturedAt time.Time) error {
	payload, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return st.SaveSnapshot(ctx, RateSnapshot{
		ID:         uuid.NewString(),
		Base:       rates.Pivot,
		Payload:    payload,
		CapturedAt: capturedAt,
	})
}
