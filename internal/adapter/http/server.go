package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/taf-data-etl/internal/adapter/redis"
	"github.com/couchcryptid/taf-data-etl/internal/domain"
	"github.com/couchcryptid/taf-data-etl/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxParseBody = 4 << 20

// ForecastReader looks up the latest stored forecast for a station.
type ForecastReader interface {
	Get(ctx context.Context, station string) ([]byte, error)
}

// Server exposes health, readiness, metrics, and forecast HTTP endpoints.
type Server struct {
	httpServer *http.Server
	store      ForecastReader
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 forecast routes. store may be nil when no forecast store is configured.
func NewServer(addr string, ready sharedobs.ReadinessChecker, store ForecastReader, logger *slog.Logger, metrics *observability.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:   store,
		logger:  logger,
		metrics: metrics,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/forecasts/{station}", s.handleForecast)
	mux.HandleFunc("POST /v1/parse", s.handleParse)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	station := strings.ToUpper(r.PathValue("station"))
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "forecast store is not configured")
		return
	}

	data, err := s.store.Get(r.Context(), station)
	switch {
	case err == nil:
		s.metrics.StoreOperations.WithLabelValues("get", "success").Inc()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data) //nolint:errcheck // client may have gone away
	case errors.Is(err, redis.ErrNotFound):
		s.metrics.StoreOperations.WithLabelValues("get", "not_found").Inc()
		writeError(w, http.StatusNotFound, "no forecast for "+station)
	case errors.Is(err, redis.ErrUnavailable):
		s.metrics.StoreOperations.WithLabelValues("get", "rejected").Inc()
		writeError(w, http.StatusServiceUnavailable, "forecast store unavailable")
	default:
		s.metrics.StoreOperations.WithLabelValues("get", "error").Inc()
		s.logger.Error("forecast lookup failed", "station", station, "error", err)
		writeError(w, http.StatusBadGateway, "forecast lookup failed")
	}
}

type parseResponse struct {
	Entries          int                   `json:"entries"`
	MalformedHeaders int                   `json:"malformed_headers"`
	Forecasts        []domain.Forecast     `json:"forecasts"`
	Failures         []domain.EntryFailure `json:"failures"`
}

// handleParse parses a request body holding either a whole cycle file or a
// single bulletin. The reference query parameter (RFC 3339) anchors day
// resolution for a bulletin; cycle entries use their own headers.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var reference time.Time
	if v := r.URL.Query().Get("reference"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "reference must be an RFC 3339 timestamp")
			return
		}
		reference = t
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxParseBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	text := string(body)
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, "request body is empty")
		return
	}

	resp := parseResponse{Forecasts: []domain.Forecast{}, Failures: []domain.EntryFailure{}}
	source := r.URL.Query().Get("source")

	if cycle := domain.SplitCycle(text); len(cycle.Entries) > 0 || cycle.MalformedHeaders > 0 {
		result := domain.ParseCycle(source, text)
		resp.Entries = result.Entries
		resp.MalformedHeaders = result.MalformedHeaders
		for _, f := range result.Forecasts {
			resp.Forecasts = append(resp.Forecasts, domain.EnrichForecast(f))
		}
		resp.Failures = append(resp.Failures, result.Failures...)
	} else {
		resp.Entries = 1
		f, err := domain.ParseBulletin(reference, text)
		if err != nil {
			entry := domain.CycleEntry{Lines: strings.Split(strings.TrimSpace(text), "\n")}
			resp.Failures = append(resp.Failures, domain.NewEntryFailure(source, 0, entry, err))
		} else {
			resp.Forecasts = append(resp.Forecasts, domain.EnrichForecast(f))
		}
	}

	for _, failure := range resp.Failures {
		s.metrics.EntryFailures.WithLabelValues(failure.Kind()).Inc()
	}
	s.metrics.EntriesParsed.Add(float64(len(resp.Forecasts)))

	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
