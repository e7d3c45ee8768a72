package predict

import (
	"github.com/cellguard-data/cellguard.report/internal/pipeline/features"
	"github.com/cellguard-data/cellguard.report/internal/telemetry"
)

// Alert event thresholds.
const (
	alertHealthBelow   = 60.0
	alertTempAbove     = 60.0
	alertCellDiffAbove = 120.0
)

// Alert event wording.
const (
	EventHealthMargin  = "Health below safe margin"
	EventThermalStress = "Thermal stress event"
	EventCellImbalance = "Severe cell imbalance"
)

// Alert records one threshold crossing at a specific row of the analysis
// window.
type Alert struct {
	Event string `json:"event"`
	Row   int    `json:"row"`
}

// Alerts scans an engineered table and returns the timeline of threshold
// crossings in row order. A row can raise several events.
func Alerts(t *telemetry.Table) []Alert {
	health, _ := t.Floats(features.ColHealthScore)
	tempMax, _ := t.Floats(features.ColTempMax)
	cellDiff, _ := t.Floats(features.ColCellDiff)

	var events []Alert
	for i := 0; i < t.Len(); i++ {
		if i < len(health) && health[i] < alertHealthBelow {
			events = append(events, Alert{Event: EventHealthMargin, Row: i})
		}
		if i < len(tempMax) && tempMax[i] > alertTempAbove {
			events = append(events, Alert{Event: EventThermalStress, Row: i})
		}
		if i < len(cellDiff) && cellDiff[i] > alertCellDiffAbove {
			events = append(events, Alert{Event: EventCellImbalance, Row: i})
		}
	}
	return events
}
