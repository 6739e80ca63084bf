package storage

import (
	"context"
	"testing"
	"time"

	"github.com/omartood/somalia-ex-rate/internal/rates"
)

func TestMemoryStorage_HistoricalRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	if rec, err := st.GetHistoricalRate(ctx, "2026-08-01"); err != nil || rec != nil {
		t.Fatalf("expected a clean miss, got rec=%v err=%v", rec, err)
	}
	if err := st.SaveHistoricalRate(ctx, HistoricalRate{Date: "2026-08-01", Payload: []byte(`{"SOS":1}`)}); err != nil {
		t.Fatal(err)
	}
	rec, err := st.GetHistoricalRate(ctx, "2026-08-01")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || string(rec.Payload) != `{"SOS":1}` {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestMemoryStorage_PruneHistoricalRates(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()
	for _, date := range []string{"2026-05-01", "2026-06-01", "2026-08-01"} {
		if err := st.SaveHistoricalRate(ctx, HistoricalRate{Date: date, Payload: []byte(`{}`)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.PruneHistoricalRates(ctx, "2026-06-02"); err != nil {
		t.Fatal(err)
	}
	if rec, _ := st.GetHistoricalRate(ctx, "2026-05-01"); rec != nil {
		t.Error("2026-05-01 should have been pruned")
	}
	if rec, _ := st.GetHistoricalRate(ctx, "2026-06-01"); rec != nil {
		t.Error("2026-06-01 should have been pruned")
	}
	if rec, _ := st.GetHistoricalRate(ctx, "2026-08-01"); rec == nil {
		t.Error("2026-08-01 should have survived the prune")
	}
}

func TestMemoryStorage_Settings(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	if v, err := st.GetSetting(ctx, "refresh_interval_seconds"); err != nil || v != "" {
		t.Fatalf("expected empty value for unset key, got %q err=%v", v, err)
	}
	if err := st.SetSetting(ctx, "refresh_interval_seconds", "600"); err != nil {
		t.Fatal(err)
	}
	if v, _ := st.GetSetting(ctx, "refresh_interval_seconds"); v != "600" {
		t.Errorf("got %q, want 600", v)
	}
}

func TestMemoryStorage_SnapshotLatestWins(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	if snap, err := st.LatestSnapshot(ctx); err != nil || snap != nil {
		t.Fatalf("expected a clean miss, got %v err=%v", snap, err)
	}
	first := RateSnapshot{ID: "a", Base: rates.Pivot, Payload: []byte(`{}`), CapturedAt: time.Now().Add(-time.Hour)}
	second := RateSnapshot{ID: "b", Base: rates.Pivot, Payload: []byte(`{}`), CapturedAt: time.Now()}
	if err := st.SaveSnapshot(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveSnapshot(ctx, second); err != nil {
		t.Fatal(err)
	}
	snap, err := st.LatestSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap == nil || snap.ID != "b" {
		t.Errorf("unexpected latest snapshot: %+v", snap)
	}
}

func TestHistoryAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	adapter := NewHistoryAdapter(NewMemory())

	table := rates.RateTable{"SOS": 1, "USD": 0.002}
	if err := adapter.Put(ctx, "2026-08-15", table); err != nil {
		t.Fatal(err)
	}
	got, err := adapter.Get(ctx, "2026-08-15")
	if err != nil {
		t.Fatal(err)
	}
	if got["USD"] != 0.002 {
		t.Errorf("unexpected table: %v", got)
	}
	if missing, err := adapter.Get(ctx, "2026-08-16"); err != nil || missing != nil {
		t.Errorf("expected a miss, got %v err=%v", missing, err)
	}
}

func TestHistoryAdapter_CorruptPayloadIsMiss(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()
	if err := st.SaveHistoricalRate(ctx, HistoricalRate{Date: "2026-08-15", Payload: []byte(`not json`)}); err != nil {
		t.Fatal(err)
	}
	table, err := NewHistoryAdapter(st).Get(ctx, "2026-08-15")
	if err != nil {
		t.Fatalf("corrupt payload must not error: %v", err)
	}
	if table != nil {
		t.Errorf("corrupt payload must read as a miss, got %v", table)
	}
}

func TestRecordSnapshot(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()
	captured := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	if err := RecordSnapshot(ctx, st, rates.RateTable{"SOS": 1, "USD": 0.002}, captured); err != nil {
		t.Fatal(err)
	}
	snap, err := st.LatestSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap == nil {
		t.Fatal("expected a stored snapshot")
	}
	if snap.Base != rates.Pivot || snap.ID == "" || !snap.CapturedAt.Equal(captured) {
		t.Errorf("unexpected snapshot row: %+v", snap)
	}
}
