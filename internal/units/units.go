// Package units provides shared constants and conversion for the display
// units used by the API layer.
package units

// Voltage unit constants. Cell channels arrive in millivolts.
const (
	MV = "mv"
	V  = "v"
)

// Temperature unit constants. Sensors report Celsius.
const (
	Celsius    = "c"
	Fahrenheit = "f"
)

// ValidVoltageUnits contains all valid voltage display units.
var ValidVoltageUnits = []string{MV, V}

// ValidTemperatureUnits contains all valid temperature display units.
var ValidTemperatureUnits = []string{Celsius, Fahrenheit}

// IsValidVoltage checks if the given unit is a valid voltage unit.
func IsValidVoltage(unit string) bool {
	for _, u := range ValidVoltageUnits {
		if unit == u {
			return true
		}
	}
	return false
}

// IsValidTemperature checks if the given unit is a valid temperature unit.
func IsValidTemperature(unit string) bool {
	for _, u := range ValidTemperatureUnits {
		if unit == u {
			return true
		}
	}
	return false
}

// ConvertVoltage converts a millivolt reading to the target units.
// Cell channels are stored in mV.
func ConvertVoltage(mv float64, targetUnits string) float64 {
	switch targetUnits {
	case V:
		return mv / 1000
	case MV:
		return mv
	default:
		return mv // default to mV if unknown unit
	}
}

// ConvertTemperature converts a Celsius reading to the target units.
func ConvertTemperature(c float64, targetUnits string) float64 {
	switch targetUnits {
	case Fahrenheit:
		return c*9/5 + 32
	case Celsius:
		return c
	default:
		return c // default to °C if unknown unit
	}
}
