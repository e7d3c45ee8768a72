// Package predict extrapolates a failure window from engineered battery
// features, labels the confidence of that estimate, attributes the likely
// cause of degradation, and classifies risk with its recommended action.
//
// The failure window is a trend extrapolation, not an electrochemical
// model: estimated operating cycles until the health score crosses the
// critical safety floor under the configured stress scenario.
package predict

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/cellguard-data/cellguard.report/internal/pipeline/features"
	"github.com/cellguard-data/cellguard.report/internal/telemetry"
)

// SafetyFloorScore is the health score below which the battery is
// considered critically degraded; the failure window counts cycles until
// the score reaches it.
const SafetyFloorScore = 55.0

// DefaultRateFloor is the minimum degradation rate assumed when the
// observed rate is undefined, zero, or negative. It prevents division by
// zero and "infinite life" extrapolations for single-battery analysis.
const DefaultRateFloor = 0.15

// FleetRateFloor is the more conservative floor used by the fleet
// simulation's shorter look-back window.
const FleetRateFloor = 0.2

// Confidence-band multipliers around the point estimate.
const (
	bandLowFactor  = 0.75
	bandHighFactor = 1.30
)

// Volatility thresholds for the confidence label, applied to the rolling
// standard deviation of recent health-score deltas.
const (
	confidenceHighBelow   = 0.05
	confidenceMediumBelow = 0.15
)

// confidenceWindow is the rolling width over health-score deltas used for
// the volatility proxy.
const confidenceWindow = 5

// causeEpsilon keeps the attribution denominator nonzero when every stress
// factor is exactly zero.
const causeEpsilon = 1e-6

// Risk levels and the qualitative confidence labels.
const (
	RiskHigh   = "HIGH"
	RiskMedium = "MEDIUM"
	RiskLow    = "LOW"

	ConfidenceHigh    = "HIGH"
	ConfidenceMedium  = "MEDIUM"
	ConfidenceLow     = "LOW"
	ConfidenceUnknown = "UNKNOWN"
)

// Recommended maintenance actions, in the presentation wording.
const (
	ActionImmediate  = "Immediate inspection required"
	ActionSchedule   = "Schedule maintenance"
	ActionPreventive = "Preventive action advised"
	ActionNone       = "No action required"
)

// System status banner wording.
const (
	StatusHighRisk = "DEGRADATION FORMING — HIGH RISK"
	StatusMonitor  = "DEGRADATION DETECTED — MONITOR"
	StatusStable   = "SYSTEM STABLE"
)

// Config selects the look-back window, stress scenario, and what-if
// reductions for an assessment. The zero value is completed by
// Normalize: baseline scenario, 10-row window, DefaultRateFloor.
type Config struct {
	Scenario Scenario `json:"scenario"`

	// What-if stress reductions, each a percentage in [0,50].
	ChargeReductionPct    float64 `json:"charge_reduction_pct"`
	CoolingImprovementPct float64 `json:"cooling_improvement_pct"`

	// Window is the look-back row count for the degradation rate
	// (commonly 5 or 10).
	Window int `json:"window"`

	// RateFloor is the minimum assumed degradation rate.
	RateFloor float64 `json:"rate_floor"`

	// SafetyFloor is the critical health score; zero means
	// SafetyFloorScore.
	SafetyFloor float64 `json:"safety_floor"`

	// Confidence label thresholds; zero means the package defaults.
	ConfidenceHighBelow   float64 `json:"confidence_high_below"`
	ConfidenceMediumBelow float64 `json:"confidence_medium_below"`
}

// Normalize fills zero-value fields with defaults and validates ranges.
func (c Config) Normalize() (Config, error) {
	if c.Scenario == (Scenario{}) {
		c.Scenario = Presets["baseline"]
	}
	if c.Window == 0 {
		c.Window = 10
	}
	if c.RateFloor == 0 {
		c.RateFloor = DefaultRateFloor
	}
	if c.SafetyFloor == 0 {
		c.SafetyFloor = SafetyFloorScore
	}
	if c.ConfidenceHighBelow == 0 {
		c.ConfidenceHighBelow = confidenceHighBelow
	}
	if c.ConfidenceMediumBelow == 0 {
		c.ConfidenceMediumBelow = confidenceMediumBelow
	}
	if c.ConfidenceHighBelow >= c.ConfidenceMediumBelow {
		return c, fmt.Errorf("confidence thresholds out of order: %g >= %g",
			c.ConfidenceHighBelow, c.ConfidenceMediumBelow)
	}
	if c.Window < 2 {
		return c, fmt.Errorf("window must be at least 2, got %d", c.Window)
	}
	for _, pct := range []float64{c.ChargeReductionPct, c.CoolingImprovementPct} {
		if pct < 0 || pct > 50 {
			return c, fmt.Errorf("what-if reduction must be in [0,50], got %g", pct)
		}
	}
	if c.Scenario.Charge <= 0 || c.Scenario.Thermal <= 0 {
		return c, fmt.Errorf("scenario multipliers must be positive, got %+v", c.Scenario)
	}
	return c, nil
}

// Float marshals like float64 but encodes NaN as JSON null, so missing
// values reach the presentation layer distinguishable from zeros instead
// of failing the encoder.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

// CauseBreakdown attributes current degradation across the three stress
// factors as percentages summing to 100.
type CauseBreakdown struct {
	CellImbalancePct Float `json:"cell_imbalance_pct"`
	ThermalPct       Float `json:"thermal_pct"`
	CapacityFadePct  Float `json:"capacity_fade_pct"`
}

// Assessment is the scored outcome for one battery's analysis window.
type Assessment struct {
	Health          Float          `json:"health"`
	DegradationRate Float          `json:"degradation_rate"`
	RateFloored     bool           `json:"rate_floored"`
	FailureWindow   Float          `json:"failure_window_cycles"`
	WindowLow       Float          `json:"failure_window_low"`
	WindowHigh      Float          `json:"failure_window_high"`
	Confidence      string         `json:"confidence"`
	Risk            string         `json:"risk"`
	Action          string         `json:"action"`
	Status          string         `json:"status"`
	WeakestCell     string         `json:"weakest_cell"`
	Causes          CauseBreakdown `json:"causes"`
}

// Assess scores a feature-engineered table under the given configuration.
// The table must carry the columns produced by features.Engineer; the
// minimum it reads is health_score, cell_diff, temp_max, temp_diff,
// capacity_ratio, and weakest_cell.
func Assess(t *telemetry.Table, cfg Config) (Assessment, error) {
	cfg, err := cfg.Normalize()
	if err != nil {
		return Assessment{}, err
	}
	if t.Len() == 0 {
		return Assessment{}, fmt.Errorf("cannot assess an empty table")
	}
	health, ok := t.Floats(features.ColHealthScore)
	if !ok {
		return Assessment{}, fmt.Errorf("table has no %s column; run the feature engine first", features.ColHealthScore)
	}

	current := health[len(health)-1]
	a := Assessment{Health: Float(current)}

	rate := windowedRate(health, cfg.Window)
	if math.IsNaN(rate) || rate < cfg.RateFloor {
		rate = cfg.RateFloor
		a.RateFloored = true
	}
	rate *= cfg.Scenario.Charge * cfg.Scenario.Thermal
	rate *= (1 - cfg.ChargeReductionPct/100) * (1 - cfg.CoolingImprovementPct/100)
	a.DegradationRate = Float(rate)

	fw := math.Max((current-cfg.SafetyFloor)/rate, 0)
	a.FailureWindow = Float(fw)
	a.WindowLow = Float(fw * bandLowFactor)
	a.WindowHigh = Float(fw * bandHighFactor)

	a.Confidence = confidenceLabel(health, cfg)
	a.Risk = riskLevel(fw)
	a.Action = RecommendedAction(fw, t.Last(features.ColTempMax), t.Last(features.ColCellDiff))
	a.Status = systemStatus(fw)
	a.Causes = attributeCauses(t)

	if names, ok := t.Strings(features.ColWeakestCell); ok && len(names) > 0 {
		a.WeakestCell = names[len(names)-1]
	}
	return a, nil
}

// windowedRate is the look-back degradation rate: the mean of the last
// `window` first-differences of (100 - health_score). NaN when the history
// is too short.
func windowedRate(health []float64, window int) float64 {
	deltas := features.Diff(invert(health))
	if len(deltas) < window+1 {
		return math.NaN()
	}
	sum := 0.0
	for _, d := range deltas[len(deltas)-window:] {
		if math.IsNaN(d) {
			return math.NaN()
		}
		sum += d
	}
	return sum / float64(window)
}

func invert(health []float64) []float64 {
	out := make([]float64, len(health))
	for i, v := range health {
		out[i] = 100 - v
	}
	return out
}

// confidenceLabel is a volatility proxy, not a statistical interval: the
// rolling standard deviation of recent health-score deltas, thresholded.
func confidenceLabel(health []float64, cfg Config) string {
	deltas := features.Diff(health)
	stds := features.RollingStd(deltas, confidenceWindow)
	if len(stds) == 0 {
		return ConfidenceUnknown
	}
	v := stds[len(stds)-1]
	switch {
	case math.IsNaN(v):
		return ConfidenceUnknown
	case v < cfg.ConfidenceHighBelow:
		return ConfidenceHigh
	case v < cfg.ConfidenceMediumBelow:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func riskLevel(failureWindow float64) string {
	switch {
	case failureWindow < 50:
		return RiskHigh
	case failureWindow < 150:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RecommendedAction applies the shared maintenance decision table. The
// thermal/imbalance override outranks MEDIUM-range windows but not an
// immediate-inspection window.
func RecommendedAction(failureWindow, tempMax, cellDiff float64) string {
	switch {
	case failureWindow < 50:
		return ActionImmediate
	case tempMax > 55 || cellDiff > 100:
		return ActionSchedule
	case failureWindow < 150:
		return ActionPreventive
	default:
		return ActionNone
	}
}

func systemStatus(failureWindow float64) string {
	switch {
	case failureWindow < 50:
		return StatusHighRisk
	case failureWindow < 150:
		return StatusMonitor
	default:
		return StatusStable
	}
}

// attributeCauses normalizes the three current stress factors into
// percentages summing to 100: cell spread as a fraction of the window's
// maximum spread, max temperature as a fraction of the window's maximum,
// and capacity loss.
func attributeCauses(t *telemetry.Table) CauseBreakdown {
	cell := fraction(t.Last(features.ColCellDiff), t.Max(features.ColCellDiff))
	temp := fraction(t.Last(features.ColTempMax), t.Max(features.ColTempMax))
	fade := 1 - t.Last(features.ColCapacityRatio)
	if math.IsNaN(fade) || fade < 0 {
		fade = 0
	}
	total := cell + temp + fade + causeEpsilon
	return CauseBreakdown{
		CellImbalancePct: Float(100 * cell / total),
		ThermalPct:       Float(100 * temp / total),
		CapacityFadePct:  Float(100 * fade / total),
	}
}

func fraction(v, max float64) float64 {
	if math.IsNaN(v) || math.IsNaN(max) || max == 0 {
		return 0
	}
	return v / max
}
