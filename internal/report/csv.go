// Package report renders the latest computed metrics as downloadable
// artifacts: delimited metric/value exports for a single battery, tabular
// fleet exports, and offline PNG trend plots.
package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/cellguard-data/cellguard.report/internal/pipeline"
)

// CSVWriter wraps csv.Writer with methods for report output.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter creates a CSVWriter over the given writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// NewRunID returns a fresh identifier stamped on exported reports so a
// downloaded artifact can be traced back to one analysis run.
func NewRunID() string {
	return uuid.NewString()
}

// WriteBatteryReport writes the single-battery metric/value export: one
// row per headline metric from the assessment.
func (c *CSVWriter) WriteBatteryReport(runID string, a pipeline.Analysis) error {
	records := [][]string{
		{"metric", "value"},
		{"run_id", runID},
		{"health", fmt.Sprintf("%.1f", a.Assessment.Health)},
		{"failure_window_cycles", fmt.Sprintf("%.0f", a.Assessment.FailureWindow)},
		{"failure_window_low", fmt.Sprintf("%.0f", a.Assessment.WindowLow)},
		{"failure_window_high", fmt.Sprintf("%.0f", a.Assessment.WindowHigh)},
		{"confidence", a.Assessment.Confidence},
		{"risk", a.Assessment.Risk},
		{"action", a.Assessment.Action},
		{"weakest_cell", a.Assessment.WeakestCell},
		{"cell_imbalance_pct", fmt.Sprintf("%.1f", a.Assessment.Causes.CellImbalancePct)},
		{"thermal_pct", fmt.Sprintf("%.1f", a.Assessment.Causes.ThermalPct)},
		{"capacity_fade_pct", fmt.Sprintf("%.1f", a.Assessment.Causes.CapacityFadePct)},
	}
	for _, warning := range a.Warnings {
		records = append(records, []string{"warning", warning})
	}
	if err := c.w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write battery report: %w", err)
	}
	return nil
}

// WriteFleetReport writes the fleet risk ranking, one row per battery in
// the order given (callers pass the urgency-sorted fleet).
func (c *CSVWriter) WriteFleetReport(runID string, entries []pipeline.FleetEntry) error {
	records := [][]string{
		{"battery_id", "health", "failure_window_cycles", "risk", "action", "run_id"},
	}
	for _, e := range entries {
		records = append(records, []string{
			e.BatteryID,
			fmt.Sprintf("%.1f", e.Health),
			fmt.Sprintf("%d", e.FailureWindow),
			e.Risk,
			e.Action,
			runID,
		})
	}
	if err := c.w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write fleet report: %w", err)
	}
	return nil
}
