package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cellguard-data/cellguard.report/internal/monitoring"
	"github.com/cellguard-data/cellguard.report/internal/pipeline/features"
	"github.com/cellguard-data/cellguard.report/internal/telemetry"
)

// trendSpec names one trend plot: the column rendered and the titles.
type trendSpec struct {
	column string
	title  string
	yLabel string
	file   string
}

var trendSpecs = []trendSpec{
	{features.ColHealthScore, "Health Trajectory", "health score", "health_score.png"},
	{features.ColCellDiff, "Cell Imbalance Growth", "cell spread (mV)", "cell_diff.png"},
	{features.ColTempMax, "Thermal Stress Trend", "max temperature (°C)", "temp_max.png"},
}

// SaveTrendPlots renders the failure-formation trend plots for an
// engineered table into outputDir and returns the written file paths.
// Missing columns are skipped with a log line rather than failing the
// whole report.
func SaveTrendPlots(t *telemetry.Table, outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	var written []string
	for _, spec := range trendSpecs {
		vals, ok := t.Floats(spec.column)
		if !ok {
			monitoring.Logf("trend plot %s skipped: column %q absent", spec.file, spec.column)
			continue
		}

		p := plot.New()
		p.Title.Text = spec.title
		p.X.Label.Text = "sample"
		p.Y.Label.Text = spec.yLabel

		pts := make(plotter.XYs, 0, len(vals))
		for i, v := range vals {
			if math.IsNaN(v) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(i), Y: v})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return written, fmt.Errorf("failed to build %s line: %w", spec.column, err)
		}
		line.Width = vg.Points(1)
		p.Add(line)

		file := filepath.Join(outputDir, spec.file)
		if err := p.Save(10*vg.Inch, 4*vg.Inch, file); err != nil {
			return written, fmt.Errorf("failed to save %s: %w", file, err)
		}
		written = append(written, file)
	}
	return written, nil
}
