// Package telemetry defines the observation table that flows through the
// analysis pipeline, plus the ways tables come into existence: CSV upload
// and the synthetic single-row generator.
//
// A Table is column-oriented. Row order is time order; the pipeline never
// reorders or drops rows. Numeric cells use NaN as the missing-value marker.
// Raw input columns start life as strings and are coerced to numeric by the
// sanitize stage.
package telemetry

import (
	"fmt"
	"math"
	"time"
)

// Well-known raw column names. These match the header conventions of BMS
// CSV exports; "Curent" is misspelled in the export format itself.
const (
	ColDate        = "Date"
	ColTime        = "Time"
	ColTimestamp   = "timestamp"
	ColSOC         = "Soc"
	ColPackVoltage = "Pack Vol"
	ColPackCurrent = "Curent"
	ColRemainingAh = "Rem. Ah"
	ColFullCap     = "Full Cap"
	ColCycleCount  = "Cycle"
)

// Channel name prefixes used for dynamic schema discovery.
const (
	CellPrefix = "Cell"
	TempPrefix = "Temp"
)

// Column holds one named column of the table. A column is either numeric
// (F populated, NaN = missing) or string-valued (S populated).
type Column struct {
	Name    string
	Numeric bool
	F       []float64
	S       []string
}

// Table is an ordered collection of equally-sized columns plus an optional
// timestamp column managed separately so stages can test for its presence.
type Table struct {
	order []string
	cols  map[string]*Column

	ts       []time.Time
	tsParsed bool // true when timestamps were parsed from Date/Time input
	rows     int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{cols: make(map[string]*Column)}
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// ColumnNames returns column names in insertion order. The timestamp column
// is not included; use Timestamps.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Strings returns the named string column, or false if the column is absent
// or numeric.
func (t *Table) Strings(name string) ([]string, bool) {
	c, ok := t.cols[name]
	if !ok || c.Numeric {
		return nil, false
	}
	return c.S, true
}

// Floats returns the named numeric column, or false if the column is absent
// or string-valued.
func (t *Table) Floats(name string) ([]float64, bool) {
	c, ok := t.cols[name]
	if !ok || !c.Numeric {
		return nil, false
	}
	return c.F, true
}

// SetStrings stores a string column, replacing any column with the same
// name. The first column stored fixes the table's row count.
func (t *Table) SetStrings(name string, vals []string) error {
	if err := t.checkLen(name, len(vals)); err != nil {
		return err
	}
	if _, ok := t.cols[name]; !ok {
		t.order = append(t.order, name)
	}
	t.cols[name] = &Column{Name: name, S: vals}
	return nil
}

// SetFloats stores a numeric column, replacing any column with the same
// name. The first column stored fixes the table's row count.
func (t *Table) SetFloats(name string, vals []float64) error {
	if err := t.checkLen(name, len(vals)); err != nil {
		return err
	}
	if _, ok := t.cols[name]; !ok {
		t.order = append(t.order, name)
	}
	t.cols[name] = &Column{Name: name, Numeric: true, F: vals}
	return nil
}

func (t *Table) checkLen(name string, n int) error {
	if len(t.cols) == 0 && t.ts == nil {
		t.rows = n
		return nil
	}
	if n != t.rows {
		return fmt.Errorf("column %q has %d rows, table has %d", name, n, t.rows)
	}
	return nil
}

// SetTimestamps stores the timestamp column. parsed indicates whether the
// values were parsed from Date/Time input rather than synthesized.
func (t *Table) SetTimestamps(ts []time.Time, parsed bool) error {
	if err := t.checkLen(ColTimestamp, len(ts)); err != nil {
		return err
	}
	t.ts = ts
	t.tsParsed = parsed
	return nil
}

// Timestamps returns the timestamp column and whether it has been set.
func (t *Table) Timestamps() ([]time.Time, bool) {
	return t.ts, t.ts != nil
}

// TimestampsParsed reports whether the timestamp column came from real
// Date/Time input. Synthesized timestamps run at an assumed 1s cadence.
func (t *Table) TimestampsParsed() bool { return t.tsParsed }

// AddRow appends one row built from a name→value map. Columns named in the
// map but absent from the table are created; existing columns missing from
// the map receive an empty cell. Only string columns participate; tables
// built row-wise are raw input tables.
func (t *Table) AddRow(row map[string]string) error {
	for _, c := range t.cols {
		if c.Numeric {
			return fmt.Errorf("cannot AddRow to table with numeric column %q", c.Name)
		}
	}
	if t.ts != nil {
		return fmt.Errorf("cannot AddRow to table with timestamps")
	}
	for name := range row {
		if _, ok := t.cols[name]; !ok {
			empty := make([]string, t.rows)
			t.order = append(t.order, name)
			t.cols[name] = &Column{Name: name, S: empty}
		}
	}
	for _, name := range t.order {
		c := t.cols[name]
		c.S = append(c.S, row[name])
	}
	t.rows++
	return nil
}

// Tail returns a deep copy of the last n rows. If n is zero or exceeds the
// row count the whole table is copied.
func (t *Table) Tail(n int) *Table {
	start := 0
	if n > 0 && n < t.rows {
		start = t.rows - n
	}
	out := NewTable()
	out.rows = t.rows - start
	for _, name := range t.order {
		c := t.cols[name]
		nc := &Column{Name: name, Numeric: c.Numeric}
		if c.Numeric {
			nc.F = append([]float64(nil), c.F[start:]...)
		} else {
			nc.S = append([]string(nil), c.S[start:]...)
		}
		out.order = append(out.order, name)
		out.cols[name] = nc
	}
	if t.ts != nil {
		out.ts = append([]time.Time(nil), t.ts[start:]...)
		out.tsParsed = t.tsParsed
	}
	return out
}

// Clone returns a deep copy of the whole table.
func (t *Table) Clone() *Table { return t.Tail(0) }

// Last returns the final value of a numeric column, or NaN when the column
// is absent or the table is empty.
func (t *Table) Last(name string) float64 {
	f, ok := t.Floats(name)
	if !ok || len(f) == 0 {
		return math.NaN()
	}
	return f[len(f)-1]
}

// Max returns the maximum non-NaN value of a numeric column, or NaN when no
// such value exists.
func (t *Table) Max(name string) float64 {
	f, ok := t.Floats(name)
	if !ok {
		return math.NaN()
	}
	max := math.NaN()
	for _, v := range f {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(max) || v > max {
			max = v
		}
	}
	return max
}
