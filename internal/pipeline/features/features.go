// Package features derives the analysis columns from a sanitized
// observation table: power and energy throughput, cell-imbalance and
// thermal statistics, the capacity ratio, and the composite health score
// the predictive stage extrapolates from.
//
// Health scores are window-relative: the penalty for cell and temperature
// spread is normalized by the maximum spread observed in the table itself,
// so the worst row in the analysis window defines 100% penalty for that
// term. Scores from two different analysis windows are therefore not
// directly comparable.
package features

import (
	"math"

	"github.com/cellguard-data/cellguard.report/internal/telemetry"
	"gonum.org/v1/gonum/stat"
)

// Derived column names added by Engineer.
const (
	ColDt               = "dt"
	ColPower            = "power"
	ColEnergyWh         = "energy_wh"
	ColEnergyThroughput = "energy_throughput"
	ColCellMin          = "cell_min"
	ColCellMax          = "cell_max"
	ColCellDiff         = "cell_diff"
	ColCellStd          = "cell_std"
	ColWeakestCell      = "weakest_cell"
	ColTempMean         = "temp_mean"
	ColTempMax          = "temp_max"
	ColTempDiff         = "temp_diff"
	ColCapacityRatio    = "capacity_ratio"
	ColHealthScore      = "health_score"
	ColRULEstimate      = "rul_estimate"
)

// Health score penalty model: baseline 100 minus fixed-weight penalties for
// normalized cell spread, normalized temperature spread, and capacity loss.
const (
	cellSpreadWeight   = 35.0
	tempSpreadWeight   = 35.0
	capacityLossWeight = 30.0
)

// degradationWindow is the look-back used for the sequence-level
// degradation estimate: the rolling mean width over (100 - health_score)
// before differencing. Below this many rows the estimate is undefined.
const degradationWindow = 10

// rulFloorScore is the health score at which the remaining-useful-life
// proxy reaches zero.
const rulFloorScore = 60.0

// Result carries the feature-augmented table, the sequence-level
// degradation-rate estimate (NaN when undefined; callers supply their own
// floor), and data-quality warnings.
type Result struct {
	Table           *telemetry.Table
	Schema          telemetry.Schema
	DegradationRate float64
	Warnings        []string
}

// Engineer augments a sanitized table with the derived columns. The input
// is not modified. Channel counts are discovered from column names, so the
// same code serves 24-cell and 4-cell packs.
func Engineer(in *telemetry.Table) Result {
	t := in.Clone()
	schema := telemetry.DiscoverSchema(t)
	res := Result{Table: t, Schema: schema, DegradationRate: math.NaN()}

	n := t.Len()
	dt := elapsed(t)
	_ = t.SetFloats(ColDt, dt)

	addPowerEnergy(t, dt, schema, &res)
	addCellFeatures(t, schema, &res)
	addThermalFeatures(t, schema, &res)
	addCapacityRatio(t, schema)
	addHealthScore(t)

	res.DegradationRate = degradationRate(t)
	rul := make([]float64, n)
	health, _ := t.Floats(ColHealthScore)
	for i := 0; i < n; i++ {
		if math.IsNaN(res.DegradationRate) || res.DegradationRate <= 0 {
			rul[i] = math.NaN()
			continue
		}
		rul[i] = (health[i] - rulFloorScore) / res.DegradationRate
	}
	_ = t.SetFloats(ColRULEstimate, rul)

	return res
}

// elapsed computes per-row elapsed seconds from consecutive timestamps,
// floor-clamped to 1 so near-zero intervals cannot blow up power/energy
// figures. The first row and tables without timestamps default to 1.
func elapsed(t *telemetry.Table) []float64 {
	n := t.Len()
	dt := make([]float64, n)
	ts, ok := t.Timestamps()
	for i := 0; i < n; i++ {
		v := 1.0
		if ok && i > 0 {
			v = ts[i].Sub(ts[i-1]).Seconds()
		}
		if v < 1 {
			v = 1
		}
		dt[i] = v
	}
	return dt
}

func addPowerEnergy(t *telemetry.Table, dt []float64, schema telemetry.Schema, res *Result) {
	n := t.Len()
	power := make([]float64, n)
	energy := make([]float64, n)
	throughput := make([]float64, n)

	if !schema.HasPower {
		res.Warnings = append(res.Warnings, "pack voltage/current columns absent; power and energy undefined")
		for i := range power {
			power[i] = math.NaN()
			energy[i] = math.NaN()
			throughput[i] = math.NaN()
		}
	} else {
		packV, _ := t.Floats(telemetry.ColPackVoltage)
		current, _ := t.Floats(telemetry.ColPackCurrent)
		sum := 0.0
		for i := 0; i < n; i++ {
			power[i] = packV[i] * current[i]
			energy[i] = power[i] * dt[i] / 3600
			sum += math.Abs(energy[i])
			throughput[i] = sum
		}
	}
	_ = t.SetFloats(ColPower, power)
	_ = t.SetFloats(ColEnergyWh, energy)
	_ = t.SetFloats(ColEnergyThroughput, throughput)
}

func addCellFeatures(t *telemetry.Table, schema telemetry.Schema, res *Result) {
	n := t.Len()
	cellMin := make([]float64, n)
	cellMax := make([]float64, n)
	cellDiff := make([]float64, n)
	cellStd := make([]float64, n)
	weakest := make([]string, n)

	if len(schema.CellChannels) == 0 {
		res.Warnings = append(res.Warnings, "no cell-voltage channels discovered")
		for i := 0; i < n; i++ {
			cellMin[i] = math.NaN()
			cellMax[i] = math.NaN()
			cellDiff[i] = math.NaN()
			cellStd[i] = math.NaN()
		}
	} else {
		cols := channelColumns(t, schema.CellChannels)
		row := make([]float64, len(cols))
		for i := 0; i < n; i++ {
			lo, hi := math.NaN(), math.NaN()
			loName := ""
			for c, col := range cols {
				v := col[i]
				row[c] = v
				if math.IsNaN(v) {
					continue
				}
				if math.IsNaN(lo) || v < lo {
					lo = v
					loName = schema.CellChannels[c]
				}
				if math.IsNaN(hi) || v > hi {
					hi = v
				}
			}
			cellMin[i] = lo
			cellMax[i] = hi
			cellDiff[i] = hi - lo
			cellStd[i] = sampleStd(row)
			weakest[i] = loName
		}
	}
	_ = t.SetFloats(ColCellMin, cellMin)
	_ = t.SetFloats(ColCellMax, cellMax)
	_ = t.SetFloats(ColCellDiff, cellDiff)
	_ = t.SetFloats(ColCellStd, cellStd)
	_ = t.SetStrings(ColWeakestCell, weakest)
}

func addThermalFeatures(t *telemetry.Table, schema telemetry.Schema, res *Result) {
	n := t.Len()
	tempMean := make([]float64, n)
	tempMax := make([]float64, n)
	tempDiff := make([]float64, n)

	if len(schema.TempChannels) == 0 {
		res.Warnings = append(res.Warnings, "no temperature channels discovered")
		for i := 0; i < n; i++ {
			tempMean[i] = math.NaN()
			tempMax[i] = math.NaN()
			tempDiff[i] = math.NaN()
		}
	} else {
		cols := channelColumns(t, schema.TempChannels)
		row := make([]float64, 0, len(cols))
		for i := 0; i < n; i++ {
			row = row[:0]
			lo, hi := math.NaN(), math.NaN()
			for _, col := range cols {
				v := col[i]
				if math.IsNaN(v) {
					continue
				}
				row = append(row, v)
				if math.IsNaN(lo) || v < lo {
					lo = v
				}
				if math.IsNaN(hi) || v > hi {
					hi = v
				}
			}
			if len(row) == 0 {
				tempMean[i] = math.NaN()
			} else {
				tempMean[i] = stat.Mean(row, nil)
			}
			tempMax[i] = hi
			tempDiff[i] = hi - lo
		}
	}
	_ = t.SetFloats(ColTempMean, tempMean)
	_ = t.SetFloats(ColTempMax, tempMax)
	_ = t.SetFloats(ColTempDiff, tempDiff)
}

// addCapacityRatio computes remaining/full capacity, defaulting to exactly
// 1.0 when either capacity column is absent. The default is a neutral
// value, not a "perfect health" signal.
func addCapacityRatio(t *telemetry.Table, schema telemetry.Schema) {
	n := t.Len()
	ratio := make([]float64, n)
	if !schema.HasCapacity {
		for i := range ratio {
			ratio[i] = 1.0
		}
	} else {
		rem, _ := t.Floats(telemetry.ColRemainingAh)
		full, _ := t.Floats(telemetry.ColFullCap)
		for i := 0; i < n; i++ {
			ratio[i] = rem[i] / full[i]
		}
	}
	_ = t.SetFloats(ColCapacityRatio, ratio)
}

// addHealthScore applies the fixed-weight linear penalty model and clamps
// to [0,100]. Spread penalties are normalized by the table's own maximum
// spread; a window whose spreads are all zero contributes no penalty.
func addHealthScore(t *telemetry.Table) {
	n := t.Len()
	cellDiff, _ := t.Floats(ColCellDiff)
	tempDiff, _ := t.Floats(ColTempDiff)
	ratio, _ := t.Floats(ColCapacityRatio)

	maxCell := t.Max(ColCellDiff)
	maxTemp := t.Max(ColTempDiff)

	health := make([]float64, n)
	for i := 0; i < n; i++ {
		score := 100.0
		score -= cellSpreadWeight * normalizedPenalty(cellDiff[i], maxCell)
		score -= tempSpreadWeight * normalizedPenalty(tempDiff[i], maxTemp)
		score -= capacityLossWeight * (1 - ratio[i])
		health[i] = clamp(score, 0, 100)
	}
	_ = t.SetFloats(ColHealthScore, health)
}

func normalizedPenalty(v, max float64) float64 {
	if math.IsNaN(v) || math.IsNaN(max) || max == 0 {
		return 0
	}
	return v / max
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Min(math.Max(v, lo), hi)
}

// degradationRate estimates the sequence-level decline rate: rolling-10
// mean of (100 - health_score), first-differenced, zero-or-negative deltas
// dropped as noise, remainder averaged. NaN when fewer than
// degradationWindow rows exist or no positive delta survives; callers
// apply their own fallback floor.
func degradationRate(t *telemetry.Table) float64 {
	health, ok := t.Floats(ColHealthScore)
	if !ok {
		return math.NaN()
	}
	means := RollingMean(complement(health), degradationWindow)
	var deltas []float64
	for i := 1; i < len(means); i++ {
		if math.IsNaN(means[i]) || math.IsNaN(means[i-1]) {
			continue
		}
		d := means[i] - means[i-1]
		if d <= 0 {
			continue
		}
		deltas = append(deltas, d)
	}
	if len(deltas) == 0 {
		return math.NaN()
	}
	return stat.Mean(deltas, nil)
}

func complement(health []float64) []float64 {
	out := make([]float64, len(health))
	for i, v := range health {
		out[i] = 100 - v
	}
	return out
}

// RollingMean returns the trailing mean over the given window, NaN for the
// first window-1 positions where insufficient history exists.
func RollingMean(vals []float64, window int) []float64 {
	out := make([]float64, len(vals))
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.Mean(vals[i-window+1:i+1], nil)
	}
	return out
}

// RollingStd returns the trailing sample standard deviation over the given
// window, NaN where insufficient history exists.
func RollingStd(vals []float64, window int) []float64 {
	out := make([]float64, len(vals))
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.StdDev(vals[i-window+1:i+1], nil)
	}
	return out
}

// Diff returns first differences with NaN in position zero.
func Diff(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i := range out {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = vals[i] - vals[i-1]
	}
	return out
}

// sampleStd computes the sample standard deviation of a row of channel
// readings, skipping NaN cells.
func sampleStd(row []float64) float64 {
	valid := make([]float64, 0, len(row))
	for _, v := range row {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) < 2 {
		return math.NaN()
	}
	return stat.StdDev(valid, nil)
}

func channelColumns(t *telemetry.Table, names []string) [][]float64 {
	cols := make([][]float64, len(names))
	for i, name := range names {
		f, ok := t.Floats(name)
		if !ok {
			f = nanColumn(t.Len())
		}
		cols[i] = f
	}
	return cols
}

func nanColumn(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
