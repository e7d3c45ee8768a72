// Package api exposes the analysis pipeline over HTTP for the dashboard
// front end: single-battery assessment, fleet simulation, CSV uploads,
// report downloads, and trend charts.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cellguard-data/cellguard.report/internal/config"
	"github.com/cellguard-data/cellguard.report/internal/monitoring"
	"github.com/cellguard-data/cellguard.report/internal/telemetry"
)

// ANSI escape codes for request logging.
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server serves the dashboard API. Each request runs the pipeline from
// scratch over a fresh table; the server carries no per-request state
// beyond the simulator and tuning defaults.
type Server struct {
	sim    *telemetry.Simulator
	tuning *config.TuningConfig
}

// NewServer creates a Server backed by the given simulator and tuning
// defaults. A nil tuning config means all defaults.
func NewServer(sim *telemetry.Simulator, tuning *config.TuningConfig) *Server {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	return &Server{sim: sim, tuning: tuning}
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/battery", s.handleBattery)
	mux.HandleFunc("/battery/report.csv", s.handleBatteryReport)
	mux.HandleFunc("/battery/upload", s.handleUpload)
	mux.HandleFunc("/fleet", s.handleFleet)
	mux.HandleFunc("/fleet/report.csv", s.handleFleetReport)
	mux.HandleFunc("/scenarios", s.handleScenarios)
	mux.HandleFunc("/charts/health", s.chartHandler(chartHealth))
	mux.HandleFunc("/charts/cell_diff", s.chartHandler(chartCellDiff))
	mux.HandleFunc("/charts/temp_max", s.chartHandler(chartTempMax))
	return mux
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, query, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("failed to encode JSON response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
