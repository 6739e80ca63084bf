package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/omartood/somalia-ex-rate/internal/rates"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func jsonServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestERAPI_FetchCurrent(t *testing.T) {
	srv := jsonServer(t, http.StatusOK,
		`{"result":"success","base_code":"SOS","rates":{"SOS":1,"USD":0.00175,"KES":0.226}}`)
	p := NewERAPI(srv.URL)

	table, err := p.FetchCurrent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table["USD"] != 0.00175 {
		t.Errorf("unexpected table: %v", table)
	}
	if table[rates.Pivot] != 1 {
		t.Errorf("pivot entry missing or wrong: %v", table)
	}
}

func TestERAPI_ErrorResult(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"result":"error","error-type":"invalid-key"}`)
	if _, err := NewERAPI(srv.URL).FetchCurrent(context.Background()); err == nil {
		t.Fatal("expected an error for a non-success result")
	}
}

func TestERAPI_WrongBaseRejected(t *testing.T) {
	srv := jsonServer(t, http.StatusOK,
		`{"result":"success","base_code":"USD","rates":{"USD":1,"SOS":571}}`)
	if _, err := NewERAPI(srv.URL).FetchCurrent(context.Background()); err == nil {
		t.Fatal("expected an error for a mismatched base")
	}
}

func TestERAPI_Non200(t *testing.T) {
	srv := jsonServer(t, http.StatusBadGateway, `upstream down`)
	if _, err := NewERAPI(srv.URL).FetchCurrent(context.Background()); err == nil {
		t.Fatal("expected an error for a non-200 status")
	}
}

func TestERAPI_NonPositiveRateRejected(t *testing.T) {
	srv := jsonServer(t, http.StatusOK,
		`{"result":"success","base_code":"SOS","rates":{"SOS":1,"USD":-0.002}}`)
	_, err := NewERAPI(srv.URL).FetchCurrent(context.Background())
	if !errors.Is(err, rates.ErrBadRateTable) {
		t.Fatalf("expected a rate-table validation error, got %v", err)
	}
}

func TestExchangerateHost_Historical(t *testing.T) {
	var gotPath, gotBase string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBase = r.URL.Query().Get("base")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"base":"SOS","rates":{"SOS":1,"USD":0.002}}`))
	}))
	defer srv.Close()

	p := NewExchangerateHost(srv.URL)
	date := mustDate(t, "2026-08-01")
	table, err := p.FetchHistorical(context.Background(), date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/2026-08-01" {
		t.Errorf("unexpected request path %q", gotPath)
	}
	if gotBase != rates.Pivot {
		t.Errorf("unexpected base query %q", gotBase)
	}
	if table["USD"] != 0.002 {
		t.Errorf("unexpected table: %v", table)
	}
}

func TestExchangerateHost_FailureFlag(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"success":false}`)
	if _, err := NewExchangerateHost(srv.URL).FetchCurrent(context.Background()); err == nil {
		t.Fatal("expected an error when the API reports failure")
	}
}

func TestFrankfurter_RestoresPivotEntry(t *testing.T) {
	// Frankfurter omits the base currency from its rates map.
	srv := jsonServer(t, http.StatusOK, `{"base":"SOS","rates":{"USD":0.00175,"EUR":0.0016}}`)
	table, err := NewFrankfurter(srv.URL).FetchCurrent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table[rates.Pivot] != 1 {
		t.Errorf("expected a restored pivot entry, got %v", table)
	}
	if table["EUR"] != 0.0016 {
		t.Errorf("unexpected table: %v", table)
	}
}

func TestDescriptors_Defaults(t *testing.T) {
	t.Setenv(descriptorsEnv, "")
	descs := Descriptors()
	if len(descs) != 3 {
		t.Fatalf("expected 3 default descriptors, got %d", len(descs))
	}
	if descs[0].Key != "erapi" {
		t.Errorf("unexpected first descriptor %q", descs[0].Key)
	}
}

func TestDescriptors_EnvOverride(t *testing.T) {
	t.Setenv(descriptorsEnv, `[{"key":"frankfurter","name":"Frankfurter","priority":1,"supportsHistorical":true}]`)
	descs := Descriptors()
	if len(descs) != 1 || descs[0].Key != "frankfurter" {
		t.Fatalf("override not honored: %+v", descs)
	}
}

func TestDescriptors_MalformedOverrideFallsBack(t *testing.T) {
	t.Setenv(descriptorsEnv, `{not json`)
	if descs := Descriptors(); len(descs) != 3 {
		t.Fatalf("malformed override must fall back to defaults, got %+v", descs)
	}
}

func TestBuildManager_OrdersByPriority(t *testing.T) {
	one, three := 1, 3
	descs := []rates.Descriptor{
		{Key: "frankfurter", Priority: &three},
		{Key: "erapi", Priority: &one},
	}
	m, err := BuildManager(rates.ManagerConfig{}, descs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chain := m.Chain()
	if len(chain) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(chain))
	}
	if chain[0].Provider.Key() != "erapi" || chain[1].Provider.Key() != "frankfurter" {
		t.Errorf("chain not ordered by priority: %s, %s",
			chain[0].Provider.Key(), chain[1].Provider.Key())
	}
}

func TestBuildManager_UnknownKey(t *testing.T) {
	_, err := BuildManager(rates.ManagerConfig{}, []rates.Descriptor{{Key: "nope"}})
	if !errors.Is(err, rates.ErrUnknownProvider) {
		t.Fatalf("expected unknown-provider error, got %v", err)
	}
}
