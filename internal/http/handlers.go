package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/dashboard-segments/internal/lifecycle"
	"github.com/kjstillabower/dashboard-segments/internal/observability"
	"github.com/kjstillabower/dashboard-segments/internal/traffic"
)

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	// DegradedWindow is the lookback for the refresh error rate. Zero disables the check.
	DegradedWindow   time.Duration
	DegradedErrorPct int
	Version          string
}

// Handler serves the status endpoints.
type Handler struct {
	healthConfig     HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(healthConfig HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{healthConfig: healthConfig, logger: logger}
}

// NewRouter wires the status routes and middleware.
func NewRouter(h *Handler, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	return router
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

type sourceCheck struct {
	Status      string `json:"status"`
	LastRefresh string `json:"lastRefresh"`
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]sourceCheck)
	for _, o := range traffic.LastOutcomes() {
		c := sourceCheck{Status: "healthy", LastRefresh: o.At.UTC().Format(time.RFC3339)}
		if !o.OK {
			c.Status = "unhealthy"
		}
		checks[o.Source] = c
	}
	version := h.healthConfig.Version
	if version == "" {
		version = "dev"
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "dashboard-segments",
		"version":   version,
		"uptime":    lifecycle.Uptime().Round(time.Second).String(),
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates, in order: shutting-down, degraded refresh error rate, ok.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		errors, total := traffic.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 && float64(errors)*100/float64(total) >= float64(h.healthConfig.DegradedErrorPct) {
			// Segments still render N/A, so the process stays up.
			return healthResult{"degraded", http.StatusOK, "error_rate_breach"}
		}
	}
	return healthResult{"ok", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
