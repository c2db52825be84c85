// Package http exposes the operational endpoints and the read-only query
// API over stored alerts and sensor readings.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/cap-alert-pipeline/internal/domain"
	"github.com/couchcryptid/cap-alert-pipeline/internal/store"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// AlertQuerier serves stored alerts for the query API.
type AlertQuerier interface {
	ListAlerts(ctx context.Context, limit int) ([]store.StoredAlert, error)
}

// SensorQuerier serves sensor readings for the query API.
type SensorQuerier interface {
	LatestSensorReadings(ctx context.Context, topic string) ([]domain.SensorReading, error)
	SensorsInPolygon(ctx context.Context, ring []domain.LonLat) ([]domain.SensorReading, error)
}

// Server exposes health, readiness, metrics, and query HTTP endpoints.
// alerts and sensors may be nil when no database is configured; their
// routes then answer 503.
type Server struct {
	httpServer *http.Server
	alerts     AlertQuerier
	sensors    SensorQuerier
	logger     *slog.Logger
}

// NewServer creates the HTTP server and wires all routes.
func NewServer(addr string, ready ReadinessChecker, alerts AlertQuerier, sensors SensorQuerier, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		alerts:  alerts,
		sensors: sensors,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/alerts/latest", s.handleLatestAlerts)
	mux.HandleFunc("GET /api/sensors", s.handleSensors)
	mux.HandleFunc("POST /api/sensors/in-polygon", s.handleSensorsInPolygon)

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleLatestAlerts(w http.ResponseWriter, r *http.Request) {
	if s.alerts == nil {
		writeError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	alerts, err := s.alerts.ListAlerts(r.Context(), 100)
	if err != nil {
		s.logger.Error("list alerts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	if s.sensors == nil {
		writeError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	readings, err := s.sensors.LatestSensorReadings(r.Context(), r.URL.Query().Get("topic"))
	if err != nil {
		s.logger.Error("list sensors failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(readings),
		"sensors": readings,
	})
}

// polygonRequest carries one closed ring as [lon, lat] pairs.
type polygonRequest struct {
	Polygon [][2]float64 `json:"polygon"`
}

func (s *Server) handleSensorsInPolygon(w http.ResponseWriter, r *http.Request) {
	if s.sensors == nil {
		writeError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	var req polygonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ring := make([]domain.LonLat, len(req.Polygon))
	for i, pair := range req.Polygon {
		ring[i] = domain.LonLat{Lon: pair[0], Lat: pair[1]}
	}

	readings, err := s.sensors.SensorsInPolygon(r.Context(), ring)
	if err != nil {
		if errors.Is(err, domain.ErrOpenRing) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("sensors in polygon failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(readings),
		"sensors": readings,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
