package pipeline

import (
	"fmt"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellguard-data/cellguard.report/internal/pipeline/features"
	"github.com/cellguard-data/cellguard.report/internal/pipeline/predict"
	"github.com/cellguard-data/cellguard.report/internal/telemetry"
)

// uniformPackCSVTable builds the raw-string form of a 20-row pack with 24
// cells at exactly 3500 and 4 temps at exactly 30, capacity columns absent.
func uniformPackCSVTable(t *testing.T) *telemetry.Table {
	t.Helper()
	tbl := telemetry.NewTable()
	for i := 0; i < 20; i++ {
		row := map[string]string{}
		for c := 1; c <= 24; c++ {
			row[fmt.Sprintf("Cell%d", c)] = "3500"
		}
		for c := 1; c <= 4; c++ {
			row[fmt.Sprintf("Temp%d", c)] = "30"
		}
		require.NoError(t, tbl.AddRow(row))
	}
	return tbl
}

func TestAnalyzeUniformPack(t *testing.T) {
	t.Parallel()

	analysis, err := Analyze(uniformPackCSVTable(t), Options{})
	require.NoError(t, err)

	tbl := analysis.Table
	cellDiff, _ := tbl.Floats(features.ColCellDiff)
	tempDiff, _ := tbl.Floats(features.ColTempDiff)
	ratio, _ := tbl.Floats(features.ColCapacityRatio)
	health, _ := tbl.Floats(features.ColHealthScore)
	for i := 0; i < tbl.Len(); i++ {
		assert.Equal(t, 0.0, cellDiff[i], "row %d", i)
		assert.Equal(t, 0.0, tempDiff[i], "row %d", i)
		assert.Equal(t, 1.0, ratio[i], "row %d", i)
		assert.Equal(t, 100.0, health[i], "row %d", i)
	}

	// No decline anywhere: the scorer must fall back to its rate floor
	// instead of dividing by zero.
	a := analysis.Assessment
	assert.True(t, a.RateFloored)
	assert.False(t, math.IsNaN(float64(a.FailureWindow)))
	assert.Greater(t, float64(a.FailureWindow), 0.0)
	assert.Empty(t, analysis.Alerts)
}

func TestAnalyzeRangeSelection(t *testing.T) {
	t.Parallel()

	t.Run("full keeps every row", func(t *testing.T) {
		t.Parallel()
		analysis, err := Analyze(uniformPackCSVTable(t), Options{Range: RangeFull})
		require.NoError(t, err)
		assert.Equal(t, 20, analysis.Table.Len())
	})

	t.Run("unknown range errors", func(t *testing.T) {
		t.Parallel()
		_, err := Analyze(uniformPackCSVTable(t), Options{Range: "fortnight"})
		assert.Error(t, err)
	})

	t.Run("cutoffs larger than the table are harmless", func(t *testing.T) {
		t.Parallel()
		analysis, err := Analyze(uniformPackCSVTable(t), Options{Range: Range24h})
		require.NoError(t, err)
		assert.Equal(t, 20, analysis.Table.Len())
	})
}

func TestSimulateFleet(t *testing.T) {
	t.Parallel()

	sim := telemetry.NewSimulator(11)
	entries, err := SimulateFleet(sim, 0, predict.Config{})
	require.NoError(t, err)
	require.Len(t, entries, FleetSize)

	t.Run("ids are stable and formatted", func(t *testing.T) {
		ids := map[string]bool{}
		for _, e := range entries {
			ids[e.BatteryID] = true
		}
		assert.True(t, ids["BAT-01"])
		assert.True(t, ids["BAT-08"])
	})

	t.Run("sorted ascending by failure window", func(t *testing.T) {
		assert.True(t, sort.SliceIsSorted(entries, func(i, j int) bool {
			return entries[i].FailureWindow < entries[j].FailureWindow
		}))
	})

	t.Run("every entry carries a risk and action", func(t *testing.T) {
		for _, e := range entries {
			assert.NotEmpty(t, e.Risk)
			assert.NotEmpty(t, e.Action)
			assert.GreaterOrEqual(t, e.FailureWindow, 0)
		}
	})

	t.Run("explicit size wins", func(t *testing.T) {
		entries, err := SimulateFleet(sim, 3, predict.Config{})
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})
}
