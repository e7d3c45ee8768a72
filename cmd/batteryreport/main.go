// Command batteryreport runs the analysis pipeline once, offline, and
// writes the report artifacts to disk: a metric/value CSV and optional
// trend plots. Telemetry comes from a BMS CSV export, or from the
// synthetic generator when no file is given.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cellguard-data/cellguard.report/internal/config"
	"github.com/cellguard-data/cellguard.report/internal/pipeline"
	"github.com/cellguard-data/cellguard.report/internal/pipeline/predict"
	"github.com/cellguard-data/cellguard.report/internal/report"
	"github.com/cellguard-data/cellguard.report/internal/security"
	"github.com/cellguard-data/cellguard.report/internal/telemetry"
	"github.com/cellguard-data/cellguard.report/internal/version"
)

var (
	csvPath     = flag.String("csv", "", "BMS telemetry CSV to analyze (synthetic history when empty)")
	batteryID   = flag.String("battery-id", "battery", "Identifier embedded in output file names")
	outDir      = flag.String("out-dir", ".", "Directory for report artifacts")
	scenario    = flag.String("scenario", "", "Stress scenario preset (default baseline)")
	rangeName   = flag.String("range", "", "Analysis range: full, 24h, or 7d")
	configPath  = flag.String("config", "", "Path to tuning config JSON (optional)")
	plots       = flag.Bool("plots", false, "Also write PNG trend plots")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("batteryreport %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	raw, err := loadTelemetry(tuning)
	if err != nil {
		log.Fatalf("failed to load telemetry: %v", err)
	}

	sc, err := predict.LookupScenario(*scenario)
	if err != nil {
		log.Fatal(err)
	}
	analysis, err := pipeline.Analyze(raw, pipeline.Options{
		Range: *rangeName,
		Scoring: predict.Config{
			Scenario:    sc,
			Window:      tuning.GetWindow(),
			RateFloor:   tuning.GetRateFloor(),
			SafetyFloor: tuning.GetSafetyFloorScore(),
		},
	})
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	reportPath := filepath.Join(*outDir, security.SanitizeFilename(*batteryID)+"_report.csv")
	if err := security.ValidateExportPath(reportPath); err != nil {
		log.Fatalf("refusing report path: %v", err)
	}
	if err := writeReport(reportPath, analysis); err != nil {
		log.Fatalf("failed to write report: %v", err)
	}
	log.Printf("wrote %s", reportPath)

	if *plots {
		if err := security.ValidateExportPath(*outDir); err != nil {
			log.Fatalf("refusing plot directory: %v", err)
		}
		files, err := report.SaveTrendPlots(analysis.Table, *outDir)
		if err != nil {
			log.Fatalf("failed to write plots: %v", err)
		}
		for _, f := range files {
			log.Printf("wrote %s", f)
		}
	}

	a := analysis.Assessment
	fmt.Printf("health %.1f  failure window %.0f cycles (%.0f-%.0f)  confidence %s\n",
		float64(a.Health), float64(a.FailureWindow), float64(a.WindowLow), float64(a.WindowHigh), a.Confidence)
	fmt.Printf("risk %s: %s\n", a.Risk, a.Action)
	for _, alert := range analysis.Alerts {
		fmt.Printf("alert: %s (row %d)\n", alert.Event, alert.Row)
	}
	for _, w := range analysis.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
}

func loadTelemetry(tuning *config.TuningConfig) (*telemetry.Table, error) {
	if *csvPath == "" {
		seed := tuning.GetSimulatorSeed()
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		sim := telemetry.NewSimulatorWithLayout(seed, tuning.GetSimulatorCells(), tuning.GetSimulatorTemps())
		return sim.History(tuning.GetHistoryRows()), nil
	}
	f, err := os.Open(*csvPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return telemetry.ReadCSV(f)
}

func writeReport(path string, analysis pipeline.Analysis) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.NewCSVWriter(f).WriteBatteryReport(report.NewRunID(), analysis)
}
