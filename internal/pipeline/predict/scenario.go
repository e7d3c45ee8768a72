package predict

import (
	"fmt"
	"sort"
)

// Scenario holds the operating-stress multipliers applied to the
// degradation rate. Values above 1 accelerate degradation, below 1 slow it.
type Scenario struct {
	Charge  float64 `json:"charge"`
	Thermal float64 `json:"thermal"`
}

// Presets are the recognized named operating scenarios.
var Presets = map[string]Scenario{
	"baseline":            {Charge: 1.0, Thermal: 1.0},
	"aggressive_charging": {Charge: 1.4, Thermal: 1.1},
	"high_ambient":        {Charge: 1.1, Thermal: 1.5},
	"conservative":        {Charge: 0.8, Thermal: 0.8},
}

// PresetNames returns the recognized scenario names, sorted for stable
// error messages and API listings.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupScenario resolves a preset name, defaulting to baseline for the
// empty string.
func LookupScenario(name string) (Scenario, error) {
	if name == "" {
		return Presets["baseline"], nil
	}
	s, ok := Presets[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario %q (valid: %v)", name, PresetNames())
	}
	return s, nil
}
