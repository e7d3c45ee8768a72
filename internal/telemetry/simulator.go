package telemetry

import (
	"fmt"
	"math/rand"
	"sync"
)

// Simulator generates synthetic BMS observations. Each sample is drawn
// independently from fixed distributions; no temporal correlation is
// modeled between successive calls. It stands in for live telemetry when
// no upload is provided.
//
// Safe for concurrent use: one Simulator backs every HTTP handler, and the
// underlying rand.Rand is not goroutine-safe on its own.
type Simulator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	cells int
	temps int
}

// NewSimulator returns a simulator for a 24-cell, 4-sensor pack. The seed
// makes runs reproducible in tests; pass a time-derived seed in production.
func NewSimulator(seed int64) *Simulator {
	return &Simulator{
		rng:   rand.New(rand.NewSource(seed)),
		cells: 24,
		temps: 4,
	}
}

// NewSimulatorWithLayout returns a simulator for an arbitrary channel
// layout.
func NewSimulatorWithLayout(seed int64, cells, temps int) *Simulator {
	s := NewSimulator(seed)
	s.cells = cells
	s.temps = temps
	return s
}

// Row produces a single-row observation table with all raw input columns
// populated.
func (s *Simulator) Row() *Table {
	return s.History(1)
}

// History produces n independent observation rows in one table. The rows
// share no temporal correlation; they model repeated snapshots of a healthy
// pack.
func (s *Simulator) History(n int) *Table {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := NewTable()

	packV := make([]float64, n)
	current := make([]float64, n)
	soc := make([]float64, n)
	remAh := make([]float64, n)
	fullCap := make([]float64, n)
	cycle := make([]float64, n)
	for i := 0; i < n; i++ {
		packV[i] = 48 + s.rng.NormFloat64()*0.05
		current[i] = 5 + s.rng.NormFloat64()*0.3
		soc[i] = 40 + s.rng.Float64()*50
		remAh[i] = 30000 + s.rng.Float64()*15000
		fullCap[i] = 54000
		cycle[i] = float64(1 + s.rng.Intn(299))
	}
	_ = t.SetFloats(ColPackVoltage, packV)
	_ = t.SetFloats(ColPackCurrent, current)
	_ = t.SetFloats(ColSOC, soc)
	_ = t.SetFloats(ColRemainingAh, remAh)
	_ = t.SetFloats(ColFullCap, fullCap)
	_ = t.SetFloats(ColCycleCount, cycle)

	for c := 1; c <= s.cells; c++ {
		col := make([]float64, n)
		for i := range col {
			col[i] = 3500 + s.rng.NormFloat64()*6 // millivolts
		}
		_ = t.SetFloats(fmt.Sprintf("%s%d", CellPrefix, c), col)
	}
	for c := 1; c <= s.temps; c++ {
		col := make([]float64, n)
		for i := range col {
			col[i] = 30 + s.rng.NormFloat64()*1.2 // °C
		}
		_ = t.SetFloats(fmt.Sprintf("%s%d", TempPrefix, c), col)
	}
	return t
}
