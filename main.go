// Command cellguard.report serves the battery-health analytics API: it
// ingests BMS telemetry (synthetic or uploaded CSV), derives health scores
// and failure-window estimates, and exposes reports, alerts, and trend
// charts for the dashboard front end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cellguard-data/cellguard.report/internal/api"
	"github.com/cellguard-data/cellguard.report/internal/config"
	"github.com/cellguard-data/cellguard.report/internal/pipeline"
	"github.com/cellguard-data/cellguard.report/internal/pipeline/predict"
	"github.com/cellguard-data/cellguard.report/internal/report"
	"github.com/cellguard-data/cellguard.report/internal/telemetry"
	"github.com/cellguard-data/cellguard.report/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "Listen address")
	configPath  = flag.String("config", "", "Path to tuning config JSON (optional)")
	plotDir     = flag.String("plot-dir", "", "Write startup trend plots (PNG) to this directory and continue serving")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("cellguard.report %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	seed := tuning.GetSimulatorSeed()
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sim := telemetry.NewSimulatorWithLayout(seed, tuning.GetSimulatorCells(), tuning.GetSimulatorTemps())

	server := api.NewServer(sim, tuning)

	if *plotDir != "" {
		if err := writeStartupPlots(sim, tuning, *plotDir); err != nil {
			log.Printf("failed to write startup plots: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", server.ServeMux()))

	httpServer := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(mux),
	}

	go func() {
		log.Printf("listening on %s", *listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Printf("graceful shutdown complete")
}

// writeStartupPlots runs one analysis over a synthetic history and saves
// the trend plots, giving operators an offline snapshot next to the
// running service.
func writeStartupPlots(sim *telemetry.Simulator, tuning *config.TuningConfig, dir string) error {
	analysis, err := pipeline.Analyze(sim.History(tuning.GetHistoryRows()), pipeline.Options{
		Scoring: predict.Config{
			Window:      tuning.GetWindow(),
			RateFloor:   tuning.GetRateFloor(),
			SafetyFloor: tuning.GetSafetyFloorScore(),
		},
	})
	if err != nil {
		return err
	}
	files, err := report.SaveTrendPlots(analysis.Table, dir)
	if err != nil {
		return err
	}
	log.Printf("wrote %d trend plots to %s", len(files), dir)
	return nil
}
