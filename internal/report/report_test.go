package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellguard-data/cellguard.report/internal/pipeline"
	"github.com/cellguard-data/cellguard.report/internal/pipeline/predict"
	"github.com/cellguard-data/cellguard.report/internal/telemetry"
)

func sampleAnalysis(t *testing.T) pipeline.Analysis {
	t.Helper()
	sim := telemetry.NewSimulator(5)
	analysis, err := pipeline.Analyze(sim.History(20), pipeline.Options{})
	require.NoError(t, err)
	return analysis
}

func TestWriteBatteryReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	runID := NewRunID()
	require.NoError(t, NewCSVWriter(&buf).WriteBatteryReport(runID, sampleAnalysis(t)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, []string{"metric", "value"}, records[0])
	assert.Equal(t, []string{"run_id", runID}, records[1])

	metrics := map[string]string{}
	for _, rec := range records[1:] {
		metrics[rec[0]] = rec[1]
	}
	for _, key := range []string{"health", "failure_window_cycles", "confidence", "risk", "action", "weakest_cell"} {
		assert.Contains(t, metrics, key)
	}
}

func TestWriteFleetReport(t *testing.T) {
	t.Parallel()

	sim := telemetry.NewSimulator(6)
	entries, err := pipeline.SimulateFleet(sim, 4, predict.Config{})
	require.NoError(t, err)

	var buf bytes.Buffer
	runID := NewRunID()
	require.NoError(t, NewCSVWriter(&buf).WriteFleetReport(runID, entries))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5) // header + 4 batteries
	assert.Equal(t, "battery_id", records[0][0])
	assert.Equal(t, runID, records[1][5])
}

func TestRunIDsAreUnique(t *testing.T) {
	t.Parallel()
	assert.NotEqual(t, NewRunID(), NewRunID())
}

func TestSaveTrendPlots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files, err := SaveTrendPlots(sampleAnalysis(t).Table, dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	for _, file := range files {
		info, err := os.Stat(file)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
		assert.Equal(t, ".png", filepath.Ext(file))
	}
}

func TestSaveTrendPlotsSkipsMissingColumns(t *testing.T) {
	t.Parallel()

	tbl := telemetry.NewTable()
	require.NoError(t, tbl.SetFloats("unrelated", []float64{1, 2}))
	files, err := SaveTrendPlots(tbl, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}
