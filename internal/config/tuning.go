package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig holds the adjustable analysis parameters. Fields are
// pointers so a partial JSON file overrides only what it names; the Get*
// accessors supply defaults for everything else.
type TuningConfig struct {
	// Scoring params
	RateFloor        *float64 `json:"rate_floor,omitempty"`
	FleetRateFloor   *float64 `json:"fleet_rate_floor,omitempty"`
	SafetyFloorScore *float64 `json:"safety_floor_score,omitempty"`
	Window           *int     `json:"window,omitempty"`

	// Confidence label thresholds (volatility of health deltas)
	ConfidenceHighBelow   *float64 `json:"confidence_high_below,omitempty"`
	ConfidenceMediumBelow *float64 `json:"confidence_medium_below,omitempty"`

	// Fleet params
	FleetSize *int `json:"fleet_size,omitempty"`

	// Simulator params
	SimulatorSeed  *int64 `json:"simulator_seed,omitempty"`
	SimulatorCells *int   `json:"simulator_cells,omitempty"`
	SimulatorTemps *int   `json:"simulator_temps,omitempty"`
	HistoryRows    *int   `json:"history_rows,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the file retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are in range.
func (c *TuningConfig) Validate() error {
	if c.RateFloor != nil && *c.RateFloor <= 0 {
		return fmt.Errorf("rate_floor must be positive, got %f", *c.RateFloor)
	}
	if c.FleetRateFloor != nil && *c.FleetRateFloor <= 0 {
		return fmt.Errorf("fleet_rate_floor must be positive, got %f", *c.FleetRateFloor)
	}
	if c.SafetyFloorScore != nil {
		if *c.SafetyFloorScore < 0 || *c.SafetyFloorScore >= 100 {
			return fmt.Errorf("safety_floor_score must be in [0,100), got %f", *c.SafetyFloorScore)
		}
	}
	if c.Window != nil && *c.Window < 2 {
		return fmt.Errorf("window must be at least 2, got %d", *c.Window)
	}
	if c.ConfidenceHighBelow != nil && c.ConfidenceMediumBelow != nil {
		if *c.ConfidenceHighBelow >= *c.ConfidenceMediumBelow {
			return fmt.Errorf("confidence_high_below (%f) must be below confidence_medium_below (%f)",
				*c.ConfidenceHighBelow, *c.ConfidenceMediumBelow)
		}
	}
	if c.FleetSize != nil && *c.FleetSize < 1 {
		return fmt.Errorf("fleet_size must be at least 1, got %d", *c.FleetSize)
	}
	if c.SimulatorCells != nil && *c.SimulatorCells < 1 {
		return fmt.Errorf("simulator_cells must be at least 1, got %d", *c.SimulatorCells)
	}
	if c.SimulatorTemps != nil && *c.SimulatorTemps < 1 {
		return fmt.Errorf("simulator_temps must be at least 1, got %d", *c.SimulatorTemps)
	}
	if c.HistoryRows != nil && *c.HistoryRows < 1 {
		return fmt.Errorf("history_rows must be at least 1, got %d", *c.HistoryRows)
	}
	return nil
}

// GetRateFloor returns the rate_floor value or the default.
func (c *TuningConfig) GetRateFloor() float64 {
	if c.RateFloor == nil {
		return 0.15
	}
	return *c.RateFloor
}

// GetFleetRateFloor returns the fleet_rate_floor value or the default.
func (c *TuningConfig) GetFleetRateFloor() float64 {
	if c.FleetRateFloor == nil {
		return 0.2
	}
	return *c.FleetRateFloor
}

// GetSafetyFloorScore returns the safety_floor_score value or the default.
func (c *TuningConfig) GetSafetyFloorScore() float64 {
	if c.SafetyFloorScore == nil {
		return 55
	}
	return *c.SafetyFloorScore
}

// GetWindow returns the window value or the default.
func (c *TuningConfig) GetWindow() int {
	if c.Window == nil {
		return 10
	}
	return *c.Window
}

// GetConfidenceHighBelow returns the confidence_high_below value or the default.
func (c *TuningConfig) GetConfidenceHighBelow() float64 {
	if c.ConfidenceHighBelow == nil {
		return 0.05
	}
	return *c.ConfidenceHighBelow
}

// GetConfidenceMediumBelow returns the confidence_medium_below value or the default.
func (c *TuningConfig) GetConfidenceMediumBelow() float64 {
	if c.ConfidenceMediumBelow == nil {
		return 0.15
	}
	return *c.ConfidenceMediumBelow
}

// GetFleetSize returns the fleet_size value or the default.
func (c *TuningConfig) GetFleetSize() int {
	if c.FleetSize == nil {
		return 8
	}
	return *c.FleetSize
}

// GetSimulatorSeed returns the simulator_seed value or the default.
// Zero means derive the seed from the wall clock.
func (c *TuningConfig) GetSimulatorSeed() int64 {
	if c.SimulatorSeed == nil {
		return 0
	}
	return *c.SimulatorSeed
}

// GetSimulatorCells returns the simulator_cells value or the default.
func (c *TuningConfig) GetSimulatorCells() int {
	if c.SimulatorCells == nil {
		return 24
	}
	return *c.SimulatorCells
}

// GetSimulatorTemps returns the simulator_temps value or the default.
func (c *TuningConfig) GetSimulatorTemps() int {
	if c.SimulatorTemps == nil {
		return 4
	}
	return *c.SimulatorTemps
}

// GetHistoryRows returns the history_rows value or the default. This is
// the synthetic look-back depth for single-battery analysis.
func (c *TuningConfig) GetHistoryRows() int {
	if c.HistoryRows == nil {
		return 60
	}
	return *c.HistoryRows
}
