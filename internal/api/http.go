package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omartood/somalia-ex-rate/internal/metrics"
	"github.com/omartood/somalia-ex-rate/internal/rates"
	"github.com/omartood/somalia-ex-rate/internal/storage"
)

// Server bundles the services the HTTP layer exposes.
type Server struct {
	svc   *rates.Service
	hist  *rates.HistoricalService
	st    storage.Storage
	descs []rates.Descriptor
}

// NewServer wires the rate services into an HTTP server. st may be nil.
func NewServer(svc *rates.Service, hist *rates.HistoricalService, st storage.Storage, descs []rates.Descriptor) *Server {
	return &Server{svc: svc, hist: hist, st: st, descs: descs}
}

// Mux constructs the HTTP mux with the API, metrics, and health endpoints.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.st != nil {
			if _, err := s.st.GetSetting(r.Context(), "readyz_probe"); err != nil {
				http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("GET /api/providers", s.instrument("/api/providers", s.handleProviders))
	mux.HandleFunc("GET /api/rates", s.instrument("/api/rates", s.handleRates))
	mux.HandleFunc("GET /api/rates/{code}", s.instrument("/api/rates/:code", s.handleRate))
	mux.HandleFunc("GET /api/convert", s.instrument("/api/convert", s.handleConvert))
	mux.HandleFunc("GET /api/historical/{date}", s.instrument("/api/historical/:date", s.handleHistorical))
	mux.HandleFunc("GET /api/history", s.instrument("/api/history", s.handleHistory))
	mux.HandleFunc("GET /api/volatility", s.instrument("/api/volatility", s.handleVolatility))
	mux.HandleFunc("POST /api/refresh", s.instrument("/api/refresh", s.handleRefresh))

	return mux
}

// instrument records request duration per path.
func (s *Server) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		metrics.RequestDurationSeconds.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}
}
