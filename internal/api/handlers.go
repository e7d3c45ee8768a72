package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cellguard-data/cellguard.report/internal/monitoring"
	"github.com/cellguard-data/cellguard.report/internal/pipeline"
	"github.com/cellguard-data/cellguard.report/internal/pipeline/features"
	"github.com/cellguard-data/cellguard.report/internal/pipeline/predict"
	"github.com/cellguard-data/cellguard.report/internal/report"
	"github.com/cellguard-data/cellguard.report/internal/telemetry"
	"github.com/cellguard-data/cellguard.report/internal/units"
)

// analysisOptions builds pipeline options from query parameters, falling
// back to the server's tuning defaults for anything not supplied.
func (s *Server) analysisOptions(q url.Values) (pipeline.Options, error) {
	scenario, err := predict.LookupScenario(q.Get("scenario"))
	if err != nil {
		return pipeline.Options{}, err
	}

	cfg := predict.Config{
		Scenario:              scenario,
		Window:                s.tuning.GetWindow(),
		RateFloor:             s.tuning.GetRateFloor(),
		SafetyFloor:           s.tuning.GetSafetyFloorScore(),
		ConfidenceHighBelow:   s.tuning.GetConfidenceHighBelow(),
		ConfidenceMediumBelow: s.tuning.GetConfidenceMediumBelow(),
	}
	if v := q.Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return pipeline.Options{}, fmt.Errorf("invalid window %q", v)
		}
		cfg.Window = n
	}
	if cfg.ChargeReductionPct, err = parsePct(q, "charge_reduction"); err != nil {
		return pipeline.Options{}, err
	}
	if cfg.CoolingImprovementPct, err = parsePct(q, "cooling_improvement"); err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{Range: q.Get("range"), Scoring: cfg}, nil
}

func parsePct(q url.Values, key string) (float64, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	pct, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	if pct < 0 || pct > 50 {
		return 0, fmt.Errorf("%s must be in [0,50], got %g", key, pct)
	}
	return pct, nil
}

// displayUnits validates the display-unit query parameters. Empty values
// mean the native units (mV, °C).
func displayUnits(q url.Values) (tempUnit, voltUnit string, err error) {
	tempUnit = q.Get("temp_units")
	if tempUnit != "" && !units.IsValidTemperature(tempUnit) {
		return "", "", fmt.Errorf("invalid temp_units %q (valid: %v)", tempUnit, units.ValidTemperatureUnits)
	}
	voltUnit = q.Get("cell_units")
	if voltUnit != "" && !units.IsValidVoltage(voltUnit) {
		return "", "", fmt.Errorf("invalid cell_units %q (valid: %v)", voltUnit, units.ValidVoltageUnits)
	}
	return tempUnit, voltUnit, nil
}

// latestMetrics is the minimum output surface the dashboard depends on,
// taken from the last row of the analysis window. Temperatures and cell
// spreads honor the display-unit query parameters.
type latestMetrics struct {
	Timestamp     string        `json:"timestamp"`
	HealthScore   predict.Float `json:"health_score"`
	CellDiff      predict.Float `json:"cell_diff"`
	TempMax       predict.Float `json:"temp_max"`
	WeakestCell   string        `json:"weakest_cell"`
	CapacityRatio predict.Float `json:"capacity_ratio"`
}

type batteryResponse struct {
	Latest     latestMetrics      `json:"latest"`
	Assessment predict.Assessment `json:"assessment"`
	Alerts     []predict.Alert    `json:"alerts"`
	Warnings   []string           `json:"warnings,omitempty"`
}

func (s *Server) latestMetrics(tempUnit, voltUnit string, a pipeline.Analysis) latestMetrics {
	m := latestMetrics{
		HealthScore:   predict.Float(a.Table.Last(features.ColHealthScore)),
		CellDiff:      predict.Float(units.ConvertVoltage(a.Table.Last(features.ColCellDiff), voltUnit)),
		TempMax:       predict.Float(units.ConvertTemperature(a.Table.Last(features.ColTempMax), tempUnit)),
		WeakestCell:   a.Assessment.WeakestCell,
		CapacityRatio: predict.Float(a.Table.Last(features.ColCapacityRatio)),
	}
	if ts, ok := a.Table.Timestamps(); ok && len(ts) > 0 {
		m.Timestamp = ts[len(ts)-1].UTC().Format("2006-01-02T15:04:05Z")
	}
	return m
}

// analyzeSimulated runs the pipeline over a fresh synthetic history using
// the request's options.
func (s *Server) analyzeSimulated(q url.Values) (pipeline.Analysis, error) {
	opts, err := s.analysisOptions(q)
	if err != nil {
		return pipeline.Analysis{}, err
	}
	return pipeline.Analyze(s.sim.History(s.tuning.GetHistoryRows()), opts)
}

func (s *Server) handleBattery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	tempUnit, voltUnit, err := displayUnits(r.URL.Query())
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	analysis, err := s.analyzeSimulated(r.URL.Query())
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, batteryResponse{
		Latest:     s.latestMetrics(tempUnit, voltUnit, analysis),
		Assessment: analysis.Assessment,
		Alerts:     analysis.Alerts,
		Warnings:   analysis.Warnings,
	})
}

// handleUpload analyzes a caller-supplied CSV instead of synthetic
// telemetry. The CSV travels as the request body (or the "file" part of a
// multipart form) and is read exactly once.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	body := r.Body
	if file, _, err := r.FormFile("file"); err == nil {
		body = file
	}
	defer body.Close()

	tempUnit, voltUnit, err := displayUnits(r.URL.Query())
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	raw, err := telemetry.ReadCSV(body)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid CSV upload: "+err.Error())
		return
	}
	opts, err := s.analysisOptions(r.URL.Query())
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	analysis, err := pipeline.Analyze(raw, opts)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, batteryResponse{
		Latest:     s.latestMetrics(tempUnit, voltUnit, analysis),
		Assessment: analysis.Assessment,
		Alerts:     analysis.Alerts,
		Warnings:   analysis.Warnings,
	})
}

func (s *Server) handleBatteryReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	analysis, err := s.analyzeSimulated(r.URL.Query())
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="battery_report.csv"`)
	if err := report.NewCSVWriter(w).WriteBatteryReport(report.NewRunID(), analysis); err != nil {
		monitoring.Logf("failed to write battery report: %v", err)
	}
}

func (s *Server) handleFleet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	entries, err := s.simulateFleet(r.URL.Query())
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"fleet": entries})
}

func (s *Server) handleFleetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	entries, err := s.simulateFleet(r.URL.Query())
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="fleet_report.csv"`)
	if err := report.NewCSVWriter(w).WriteFleetReport(report.NewRunID(), entries); err != nil {
		monitoring.Logf("failed to write fleet report: %v", err)
	}
}

func (s *Server) simulateFleet(q url.Values) ([]pipeline.FleetEntry, error) {
	opts, err := s.analysisOptions(q)
	if err != nil {
		return nil, err
	}
	cfg := opts.Scoring
	cfg.Window = 5
	cfg.RateFloor = s.tuning.GetFleetRateFloor()
	n := s.tuning.GetFleetSize()
	if v := q.Get("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 || size > 256 {
			return nil, fmt.Errorf("invalid fleet size %q", v)
		}
		n = size
	}
	return pipeline.SimulateFleet(s.sim, n, cfg)
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"scenarios": predict.Presets,
		"names":     predict.PresetNames(),
	})
}
