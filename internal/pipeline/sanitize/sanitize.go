// Package sanitize normalizes raw telemetry tables: it derives a
// monotonically increasing timestamp column, strips percentage suffixes
// from state-of-charge values, coerces every measurement column to numeric,
// and fills gaps from neighboring rows.
//
// The stage is fail-soft by design: malformed cells become missing values
// and are resolved by the fill policy; it never returns an error for data
// quality problems. A column with no parseable value anywhere stays missing
// and is reported as a warning so callers can surface it instead of
// computing a misleading score from it.
package sanitize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cellguard-data/cellguard.report/internal/telemetry"
)

// syntheticEpoch is the start of the artificial 1-second-cadence timestamp
// sequence used when no usable Date/Time columns exist.
var syntheticEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// timestampLayouts are tried in order when parsing Date+Time concatenations.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"01-02-2006 15:04:05",
	"2006-01-02 15:04",
}

// Result is the sanitized table plus data-quality warnings accumulated
// while producing it.
type Result struct {
	Table    *telemetry.Table
	Warnings []string
}

// Sanitize returns a clean copy of the raw table. The input is not
// modified. Every output column other than the original Date/Time text is
// numeric, and any gap with at least one valid neighbor in the column has
// been filled.
func Sanitize(raw *telemetry.Table) Result {
	out := telemetry.NewTable()
	var warnings []string

	n := raw.Len()
	_, passthrough := raw.Timestamps()
	ts, parsed := deriveTimestamps(raw)
	if !parsed && !passthrough {
		warnings = append(warnings, "no usable Date/Time columns; synthesized 1s-cadence timestamps")
	}

	for _, name := range raw.ColumnNames() {
		if name == telemetry.ColDate || name == telemetry.ColTime {
			// Preserved untouched for traceability.
			if s, ok := raw.Strings(name); ok {
				_ = out.SetStrings(name, append([]string(nil), s...))
			}
			continue
		}
		vals := coerceColumn(raw, name)
		filled, resolved := fill(vals)
		if !resolved {
			warnings = append(warnings, fmt.Sprintf("column %q has no parseable values", name))
		}
		if err := out.SetFloats(name, filled); err != nil {
			warnings = append(warnings, fmt.Sprintf("dropped column %q: %v", name, err))
		}
	}

	if n > 0 || len(ts) > 0 {
		_ = out.SetTimestamps(ts, parsed)
	}
	return Result{Table: out, Warnings: warnings}
}

// deriveTimestamps builds the timestamp column. When Date and Time columns
// are both present and at least one row parses, the parsed values are used
// and unparsable rows are filled from neighbors. Otherwise an artificial
// 1-second-cadence sequence is synthesized from the fixed epoch.
func deriveTimestamps(raw *telemetry.Table) ([]time.Time, bool) {
	n := raw.Len()
	if ts, ok := raw.Timestamps(); ok {
		// Already sanitized once; re-sanitizing must not drift the
		// values or their provenance flag.
		return append([]time.Time(nil), ts...), raw.TimestampsParsed()
	}
	dates, okD := raw.Strings(telemetry.ColDate)
	times, okT := raw.Strings(telemetry.ColTime)
	if okD && okT {
		parsed := make([]time.Time, n)
		any := false
		for i := 0; i < n; i++ {
			if t, ok := parseTimestamp(dates[i], times[i]); ok {
				parsed[i] = t
				any = true
			}
		}
		if any {
			fillTimes(parsed)
			return parsed, true
		}
	}
	ts := make([]time.Time, n)
	for i := range ts {
		ts[i] = syntheticEpoch.Add(time.Duration(i) * time.Second)
	}
	return ts, false
}

func parseTimestamp(date, clock string) (time.Time, bool) {
	s := strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// fillTimes forward- then backward-fills zero timestamps in place,
// mirroring the numeric fill policy.
func fillTimes(ts []time.Time) {
	var last time.Time
	for i := range ts {
		if ts[i].IsZero() {
			ts[i] = last
		} else {
			last = ts[i]
		}
	}
	var next time.Time
	for i := len(ts) - 1; i >= 0; i-- {
		if ts[i].IsZero() {
			ts[i] = next
		} else {
			next = ts[i]
		}
	}
}

// coerceColumn parses the named column to float64, NaN marking unparsable
// cells. Already-numeric columns pass through as a copy. SOC values get a
// "%"-suffix strip before parsing.
func coerceColumn(raw *telemetry.Table, name string) []float64 {
	if f, ok := raw.Floats(name); ok {
		return append([]float64(nil), f...)
	}
	s, _ := raw.Strings(name)
	vals := make([]float64, len(s))
	for i, cell := range s {
		vals[i] = parseCell(name, cell)
	}
	return vals
}

func parseCell(name, cell string) float64 {
	cell = strings.TrimSpace(cell)
	if name == telemetry.ColSOC {
		cell = strings.TrimSuffix(cell, "%")
		cell = strings.TrimSpace(cell)
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// fill applies forward- then backward-fill and reports whether the column
// ended fully resolved. A column with no valid value anywhere stays NaN.
func fill(vals []float64) ([]float64, bool) {
	out := append([]float64(nil), vals...)
	last := math.NaN()
	for i := range out {
		if math.IsNaN(out[i]) {
			out[i] = last
		} else {
			last = out[i]
		}
	}
	next := math.NaN()
	for i := len(out) - 1; i >= 0; i-- {
		if math.IsNaN(out[i]) {
			out[i] = next
		} else {
			next = out[i]
		}
	}
	resolved := true
	for _, v := range out {
		if math.IsNaN(v) {
			resolved = false
			break
		}
	}
	return out, resolved || len(out) == 0
}
