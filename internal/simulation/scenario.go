package simulation

import (
	"github.com/nvandessel/biolattice/internal/config"
	"github.com/nvandessel/biolattice/internal/engine"
	"github.com/nvandessel/biolattice/internal/lattice"
)

// Scenario defines one simulation experiment.
type Scenario struct {
	Name    string
	Shape   lattice.Shape
	Seed    uint64
	Steps   int
	Workers int // 0 = configured default

	// Configure, when non-nil, adjusts the default configuration after the
	// shape, seed and step count have been applied.
	Configure func(c *config.Config)

	// Fill, when non-nil, builds the step-0 state by hand and the run starts
	// from a restore. Otherwise the state is drawn from Seed.
	Fill FillFunc

	// Persist records frames into a SQLite run instead of memory.
	Persist bool
}

// FillFunc writes an initial state into freshly zeroed fields.
type FillFunc func(shape lattice.Shape, f lattice.Fields)

// Uniform sets every cell to the same values.
func Uniform(voltage, phase float64, spin, state uint8) FillFunc {
	return func(shape lattice.Shape, f lattice.Fields) {
		for i := range shape.Len() {
			f.Voltage[i] = voltage
			f.Phase[i] = phase
			f.Spin[i] = spin
			f.State[i] = state
		}
	}
}

// Checkerboard sets spin up on cells whose coordinate sum is even.
func Checkerboard() FillFunc {
	return func(shape lattice.Shape, f lattice.Fields) {
		for i := range shape.Len() {
			x, y, z := shape.Coord(i)
			f.Spin[i] = uint8(1 - (x+y+z)%2)
		}
	}
}

// Each applies fills in order.
func Each(fills ...FillFunc) FillFunc {
	return func(shape lattice.Shape, f lattice.Fields) {
		for _, fill := range fills {
			fill(shape, f)
		}
	}
}

// Quiescent disables every voltage source so the voltage field stays at its
// initial value: no diffusion, decay, stimulus or feedback.
func Quiescent(c *config.Config) {
	c.Voltage.DiffusionRate = 0
	c.Voltage.DecayRate = 0
	c.Voltage.StimulusProbability = 0
	c.Voltage.FeedbackStrength = 0
}

// Result captures every recorded frame and the per-step counters.
type Result struct {
	Scenario string
	RunID    string
	Frames   []lattice.Snapshot
	Stats    []engine.Stats
	Final    lattice.Snapshot
}

// Frame returns the recorded frame for step. ok is false when that step
// was not recorded.
func (r Result) Frame(step int) (lattice.Snapshot, bool) {
	for _, f := range r.Frames {
		if f.Step == step {
			return f, true
		}
	}
	return lattice.Snapshot{}, false
}
