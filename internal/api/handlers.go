package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/omartood/somalia-ex-rate/internal/metrics"
	"github.com/omartood/somalia-ex-rate/internal/rates"
	"github.com/omartood/somalia-ex-rate/internal/storage"
)

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, path string, status int, msg string) {
	metrics.RequestErrorsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryOptions maps per-request query parameters onto service options.
func queryOptions(r *http.Request) rates.Options {
	q := r.URL.Query()
	opts := rates.Options{Provider: q.Get("provider")}
	if raw := q.Get("ttl"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			opts.TTL = d
		}
	}
	if raw := q.Get("offline"); raw == "1" || raw == "true" {
		opts.Offline = true
	}
	return opts
}

func statusFor(err error) int {
	if errors.Is(err, rates.ErrUnknownProvider) || errors.Is(err, rates.ErrUnsupportedCurrency) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.descs)
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	table, err := s.svc.GetRates(r.Context(), queryOptions(r))
	if err != nil {
		writeError(w, "/api/rates", statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"base": rates.Pivot, "rates": table})
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	rate, err := s.svc.GetRate(r.Context(), code, queryOptions(r))
	if err != nil {
		writeError(w, "/api/rates/:code", statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"base": rates.Pivot, "currency": code, "rate": rate})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil {
		writeError(w, "/api/convert", http.StatusBadRequest, "invalid amount")
		return
	}
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeError(w, "/api/convert", http.StatusBadRequest, "from and to are required")
		return
	}
	result, err := s.svc.Convert(r.Context(), amount, from, to, queryOptions(r))
	if err != nil {
		writeError(w, "/api/convert", statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"amount": amount, "from": from, "to": to, "result": result,
	})
}

func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(dateLayout, r.PathValue("date"))
	if err != nil {
		writeError(w, "/api/historical/:date", http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}
	table, err := s.hist.HistoricalRates(r.Context(), date)
	if err != nil {
		writeError(w, "/api/historical/:date", http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"base": rates.Pivot, "date": date.Format(dateLayout), "rates": table,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	currency := q.Get("currency")
	if currency == "" {
		writeError(w, "/api/history", http.StatusBadRequest, "currency is required")
		return
	}
	from, err := time.Parse(dateLayout, q.Get("from"))
	if err != nil {
		writeError(w, "/api/history", http.StatusBadRequest, "invalid from date")
		return
	}
	to, err := time.Parse(dateLayout, q.Get("to"))
	if err != nil {
		writeError(w, "/api/history", http.StatusBadRequest, "invalid to date")
		return
	}
	points, err := s.hist.RateHistory(r.Context(), currency, q.Get("base"), from, to)
	if err != nil {
		writeError(w, "/api/history", http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"currency": currency, "points": points})
}

func (s *Server) handleVolatility(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	currency := q.Get("currency")
	if currency == "" {
		writeError(w, "/api/volatility", http.StatusBadRequest, "currency is required")
		return
	}
	days := 30
	if raw := q.Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, "/api/volatility", http.StatusBadRequest, "invalid days")
			return
		}
		days = v
	}
	vol, err := s.hist.Volatility(r.Context(), currency, days)
	if err != nil {
		writeError(w, "/api/volatility", http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"currency": currency, "days": days, "volatility": vol,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	table, err := s.svc.Refresh(r.Context())
	if err != nil {
		writeError(w, "/api/refresh", http.StatusBadGateway, err.Error())
		return
	}
	if s.st != nil {
		if err := storage.RecordSnapshot(r.Context(), s.st, table, time.Now()); err != nil {
			log.Printf("api: record snapshot failed: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"base": rates.Pivot, "rates": table})
}
