package telemetry

import "strings"

// Schema describes the channel layout discovered from a table's column
// names. Cell and temperature channels are identified by name prefix so the
// pipeline works for any channel count (24-cell packs and 4-cell packs
// alike).
type Schema struct {
	CellChannels []string
	TempChannels []string
	HasCapacity  bool
	HasPower     bool
}

// DiscoverSchema scans the table's column names and returns the channel
// layout. Channel order follows column insertion order.
func DiscoverSchema(t *Table) Schema {
	var s Schema
	for _, name := range t.ColumnNames() {
		switch {
		case name == CellPrefix || name == TempPrefix:
			// A bare prefix is not a channel.
		case strings.HasPrefix(name, CellPrefix):
			s.CellChannels = append(s.CellChannels, name)
		case strings.HasPrefix(name, TempPrefix):
			s.TempChannels = append(s.TempChannels, name)
		}
	}
	s.HasCapacity = t.Has(ColRemainingAh) && t.Has(ColFullCap)
	s.HasPower = t.Has(ColPackVoltage) && t.Has(ColPackCurrent)
	return s
}
