package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/cellguard-data/cellguard.report/internal/pipeline/features"
)

// chartSpec names one failure-formation trend chart.
type chartSpec struct {
	column   string
	title    string
	subtitle string
}

var (
	chartHealth   = chartSpec{features.ColHealthScore, "Health Trajectory", "composite health score, 0-100"}
	chartCellDiff = chartSpec{features.ColCellDiff, "Cell Imbalance Growth", "cell spread (mV)"}
	chartTempMax  = chartSpec{features.ColTempMax, "Thermal Stress Trend", "max temperature (°C)"}
)

// chartHandler renders one trend column of a fresh analysis window as a
// standalone go-echarts line chart (HTML). These endpoints let the
// dashboard embed trends without re-running the pipeline client-side.
func (s *Server) chartHandler(spec chartSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
			return
		}
		analysis, err := s.analyzeSimulated(r.URL.Query())
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		vals, ok := analysis.Table.Floats(spec.column)
		if !ok {
			s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("column %q not available", spec.column))
			return
		}

		xAxis := make([]string, 0, len(vals))
		data := make([]opts.LineData, 0, len(vals))
		for i, v := range vals {
			xAxis = append(xAxis, fmt.Sprintf("%d", i))
			if math.IsNaN(v) {
				data = append(data, opts.LineData{Value: nil})
				continue
			}
			data = append(data, opts.LineData{Value: v})
		}

		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: spec.title, Theme: "dark", Width: "900px", Height: "400px"}),
			charts.WithTitleOpts(opts.Title{Title: spec.title, Subtitle: spec.subtitle}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Name: "sample"}),
		)
		line.SetXAxis(xAxis)
		line.AddSeries(spec.column, data, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

		var buf bytes.Buffer
		if err := line.Render(&buf); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	}
}
