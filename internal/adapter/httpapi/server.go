// Package httpapi exposes the dispatch decision pipeline over HTTP, plus the
// usual health, readiness, and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/aerial-dispatch-service/internal/domain"
	"github.com/couchcryptid/aerial-dispatch-service/internal/pipeline"
	"github.com/couchcryptid/aerial-dispatch-service/internal/validator"
)

// DecisionEngine is the pipeline surface the API serves.
type DecisionEngine interface {
	Decide(ctx context.Context, req pipeline.Request) (domain.DispatchDecision, error)
	CheckReadiness(ctx context.Context) error
}

// Server exposes the decision API and operational endpoints.
type Server struct {
	httpServer *http.Server
	engine     DecisionEngine
	tables     pipeline.TableProvider
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the decision routes and /healthz,
// /readyz, /metrics.
func NewServer(addr string, engine DecisionEngine, tables pipeline.TableProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		engine: engine,
		tables: tables,
		logger: logger,
	}

	mux.HandleFunc("POST /v1/decide", s.handleDecide)
	mux.HandleFunc("POST /v1/validate", s.handleValidate)
	mux.HandleFunc("GET /v1/zones", s.handleZones)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

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

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body: "+err.Error()))
		return
	}

	decision, err := s.engine.Decide(r.Context(), req)
	if err != nil {
		s.writeDecisionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var records []validator.Record
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid corpus body: "+err.Error()))
		return
	}

	report, err := validator.Run(r.Context(), s.engine.Decide, records)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleZones lists operational landing zones ranked by distance from the
// target coordinate, or from lat/lon query parameters when given.
func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	snapshot := s.tables.Snapshot()
	if snapshot == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("reference data not loaded yet"))
		return
	}

	from := snapshot.Target.Coordinate()
	q := r.URL.Query()
	if q.Has("lat") || q.Has("lon") {
		lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
		lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
		if errLat != nil || errLon != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("lat and lon must both be valid numbers"))
			return
		}
		from = domain.Coordinate{Lat: lat, Lon: lon}
		if !from.Valid() {
			writeJSON(w, http.StatusBadRequest, errorBody("lat/lon out of range"))
			return
		}
	}

	ranked := domain.RankZones(from, snapshot.Zones, snapshot.Target.DroneSpeedKMH)
	writeJSON(w, http.StatusOK, map[string]any{
		"from":  from,
		"zones": ranked,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.engine.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeDecisionError maps the domain error taxonomy onto HTTP statuses:
// unusable input is 400, a well-formed request the engine cannot act on is
// 422.
func (s *Server) writeDecisionError(w http.ResponseWriter, err error) {
	var (
		malformed    *domain.MalformedInputError
		unrecognized *domain.UnrecognizedLabelError
		incomplete   *domain.IncompleteDecisionInputError
		unresolved   *domain.UnresolvedCaseError
		noZone       *domain.NoAvailableZoneError
	)

	switch {
	case errors.As(err, &malformed), errors.As(err, &unrecognized), errors.As(err, &incomplete):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.As(err, &unresolved):
		body := errorBody(err.Error())
		body["alternatives"] = unresolved.Alternatives
		writeJSON(w, http.StatusUnprocessableEntity, body)
	case errors.As(err, &noZone):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		s.logger.Error("decision failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func errorBody(msg string) map[string]any {
	return map[string]any{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
