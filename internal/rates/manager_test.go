package rates

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeProvider replays a scripted sequence of results; the final step
// repeats once the script is exhausted.
type fakeProvider struct {
	key    string
	script []fakeResult
	calls  int
	block  bool // never return until the attempt context is cancelled
}

type fakeResult struct {
	table RateTable
	err   error
}

func (f *fakeProvider) Key() string  { return f.key }
func (f *fakeProvider) Name() string { return f.key }

func (f *fakeProvider) FetchCurrent(ctx context.Context) (RateTable, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	i := f.calls - 1
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	r := f.script[i]
	return r.table, r.err
}

// fakeHistProvider adds scripted per-date historical tables.
type fakeHistProvider struct {
	fakeProvider
	histTables map[string]RateTable
	histCalls  int
}

func (f *fakeHistProvider) FetchHistorical(ctx context.Context, date time.Time) (RateTable, error) {
	f.histCalls++
	table, ok := f.histTables[date.Format("2006-01-02")]
	if !ok {
		return nil, errors.New("no data for date")
	}
	return table, nil
}

// newTestManager builds a manager whose backoff sleeps are recorded
// instead of waited out.
func newTestManager(cfg ManagerConfig, primary Entry, delays *[]time.Duration) *Manager {
	m := NewManager(cfg, primary)
	m.sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return m
}

func sampleTable() RateTable {
	return RateTable{"SOS": 1, "USD": 0.002}
}

func TestFetchCurrent_RetriesWithExponentialBackoff(t *testing.T) {
	boom := errors.New("boom")
	p := &fakeProvider{key: "p1", script: []fakeResult{
		{err: boom},
		{err: boom},
		{table: sampleTable()},
	}}
	var delays []time.Duration
	m := newTestManager(ManagerConfig{MaxRetries: 3}, Entry{Provider: p}, &delays)

	table, err := m.FetchCurrent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table["USD"] != 0.002 {
		t.Errorf("unexpected table: %v", table)
	}
	if p.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", p.calls)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected %d backoff delays, got %d (%v)", len(want), len(delays), delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d: got %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestFetchCurrent_FailingPrimaryFallsBack(t *testing.T) {
	p1 := &fakeProvider{key: "p1", script: []fakeResult{{err: errors.New("down")}}}
	p2 := &fakeProvider{key: "p2", script: []fakeResult{{table: sampleTable()}}}
	var delays []time.Duration
	m := newTestManager(ManagerConfig{MaxRetries: 2}, Entry{Provider: p1}, &delays)
	m.AddFallbackProvider(Entry{Provider: p2})

	table, err := m.FetchCurrent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table["SOS"] != 1 || table["USD"] != 0.002 {
		t.Errorf("unexpected table: %v", table)
	}
	if p1.calls != 2 {
		t.Errorf("expected exactly 2 failed attempts on p1, got %d", p1.calls)
	}
	if p2.calls != 1 {
		t.Errorf("expected exactly 1 attempt on p2, got %d", p2.calls)
	}
}

func TestFetchCurrent_SuccessStopsChain(t *testing.T) {
	p1 := &fakeProvider{key: "p1", script: []fakeResult{{table: sampleTable()}}}
	p2 := &fakeProvider{key: "p2", script: []fakeResult{{table: sampleTable()}}}
	var delays []time.Duration
	m := newTestManager(ManagerConfig{}, Entry{Provider: p1}, &delays)
	m.AddFallbackProvider(Entry{Provider: p2})

	if _, err := m.FetchCurrent(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p2.calls != 0 {
		t.Errorf("fallback should not be called after primary success, got %d calls", p2.calls)
	}
	if len(delays) != 0 {
		t.Errorf("no backoff expected, got %v", delays)
	}
}

func TestFetchCurrent_AllProvidersExhausted(t *testing.T) {
	last := errors.New("final failure")
	p1 := &fakeProvider{key: "p1", script: []fakeResult{{err: errors.New("first")}}}
	p2 := &fakeProvider{key: "p2", script: []fakeResult{{err: last}}}
	var delays []time.Duration
	m := newTestManager(ManagerConfig{MaxRetries: 2}, Entry{Provider: p1}, &delays)
	m.AddFallbackProvider(Entry{Provider: p2})

	_, err := m.FetchCurrent(context.Background())
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if !errors.Is(err, last) {
		t.Errorf("exhausted error should carry the last failure, got %v", exhausted.Last)
	}
}

func TestFetchCurrent_TimeoutAdvancesToFallback(t *testing.T) {
	slow := &fakeProvider{key: "slow", block: true}
	fast := &fakeProvider{key: "fast", script: []fakeResult{{table: sampleTable()}}}
	var delays []time.Duration
	m := newTestManager(ManagerConfig{MaxRetries: 1, AttemptTimeout: 20 * time.Millisecond},
		Entry{Provider: slow}, &delays)
	m.AddFallbackProvider(Entry{Provider: fast})

	table, err := m.FetchCurrent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table["USD"] != 0.002 {
		t.Errorf("unexpected table: %v", table)
	}
	if slow.calls != 1 || fast.calls != 1 {
		t.Errorf("unexpected call counts: slow=%d fast=%d", slow.calls, fast.calls)
	}
}

func TestFetchCurrent_TimeoutErrorKind(t *testing.T) {
	slow := &fakeProvider{key: "slow", block: true}
	var delays []time.Duration
	m := newTestManager(ManagerConfig{MaxRetries: 1, AttemptTimeout: 20 * time.Millisecond},
		Entry{Provider: slow}, &delays)

	_, err := m.FetchCurrent(context.Background())
	if !errors.Is(err, ErrProviderTimeout) {
		t.Fatalf("expected provider timeout in chain, got %v", err)
	}
}

func TestAddFallbackProvider_SortsByPriority(t *testing.T) {
	one, two := 1, 2
	primary := &fakeProvider{key: "primary"}
	var delays []time.Duration
	m := newTestManager(ManagerConfig{}, Entry{Provider: primary}, &delays)
	m.AddFallbackProvider(Entry{Provider: &fakeProvider{key: "none"}})
	m.AddFallbackProvider(Entry{Provider: &fakeProvider{key: "two"}, Priority: &two})
	m.AddFallbackProvider(Entry{Provider: &fakeProvider{key: "one"}, Priority: &one})

	var keys []string
	for _, e := range m.Chain() {
		keys = append(keys, e.Provider.Key())
	}
	want := []string{"primary", "one", "two", "none"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("chain order %v, want %v", keys, want)
		}
	}
}

func TestFetchHistorical_SkipsIncapableProviders(t *testing.T) {
	date := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	plain := &fakeProvider{key: "plain", script: []fakeResult{{table: sampleTable()}}}
	hist := &fakeHistProvider{
		fakeProvider: fakeProvider{key: "hist"},
		histTables:   map[string]RateTable{"2026-08-01": sampleTable()},
	}
	var delays []time.Duration
	m := newTestManager(ManagerConfig{}, Entry{Provider: plain}, &delays)
	m.AddFallbackProvider(Entry{Provider: hist})

	table, err := m.FetchHistorical(context.Background(), date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table["USD"] != 0.002 {
		t.Errorf("unexpected table: %v", table)
	}
	if plain.calls != 0 {
		t.Errorf("non-historical provider must not be called, got %d", plain.calls)
	}
	if hist.histCalls != 1 {
		t.Errorf("expected a single historical fetch, got %d", hist.histCalls)
	}
}

func TestFetchHistorical_NoRetryPerProvider(t *testing.T) {
	date := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	failing := &fakeHistProvider{fakeProvider: fakeProvider{key: "h1"}} // no data -> error
	working := &fakeHistProvider{
		fakeProvider: fakeProvider{key: "h2"},
		histTables:   map[string]RateTable{"2026-08-02": sampleTable()},
	}
	var delays []time.Duration
	m := newTestManager(ManagerConfig{MaxRetries: 3}, Entry{Provider: failing}, &delays)
	m.AddFallbackProvider(Entry{Provider: working})

	if _, err := m.FetchHistorical(context.Background(), date); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failing.histCalls != 1 {
		t.Errorf("historical traversal must not retry a provider, got %d calls", failing.histCalls)
	}
	if len(delays) != 0 {
		t.Errorf("no backoff expected on historical traversal, got %v", delays)
	}
}

func TestRestricted(t *testing.T) {
	p1 := &fakeProvider{key: "p1", script: []fakeResult{{err: errors.New("down")}}}
	p2 := &fakeProvider{key: "p2", script: []fakeResult{{table: sampleTable()}}}
	var delays []time.Duration
	m := newTestManager(ManagerConfig{MaxRetries: 1}, Entry{Provider: p1}, &delays)
	m.AddFallbackProvider(Entry{Provider: p2})

	restricted, ok := m.Restricted("p2")
	if !ok {
		t.Fatal("expected to find p2 in the chain")
	}
	if _, err := restricted.FetchCurrent(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p1.calls != 0 {
		t.Errorf("restricted manager must not touch other providers, p1 calls=%d", p1.calls)
	}

	if _, ok := m.Restricted("nope"); ok {
		t.Error("expected lookup miss for unknown key")
	}
}
