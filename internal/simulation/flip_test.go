package simulation_test

import (
	"math"
	"slices"
	"testing"

	"github.com/nvandessel/biolattice/internal/config"
	"github.com/nvandessel/biolattice/internal/lattice"
	"github.com/nvandessel/biolattice/internal/simulation"
)

// TestAllFlipAtInfiniteTemperature: with kT = +Inf every tunneling barrier
// collapses, so every interior spin flips on the first step and the frozen
// boundary keeps its value.
func TestAllFlipAtInfiniteTemperature(t *testing.T) {
	r := simulation.NewRunner(t)
	shape := lattice.Shape{X: 4, Y: 4, Z: 4}

	result := r.Run(simulation.Scenario{
		Name:  "infinite-temperature",
		Shape: shape,
		Steps: 1,
		Fill:  simulation.Uniform(0.5, 0.5, 0, 0),
		Configure: func(c *config.Config) {
			c.Voltage.StimulusProbability = 0
			c.Spin.Model = "tunneling"
			c.Spin.KT = math.Inf(1)
		},
	})

	if got := result.Stats[0].Flips; got != shape.InteriorLen() {
		t.Errorf("flips = %d, want %d", got, shape.InteriorLen())
	}
	for i, s := range result.Final.Spin {
		x, y, z := shape.Coord(i)
		want := uint8(0)
		if shape.Interior(x, y, z) {
			want = 1
		}
		if s != want {
			t.Errorf("spin(%d,%d,%d) = %d, want %d", x, y, z, s, want)
		}
	}
	simulation.AssertBoundaryFrozen(t, result)
}

// TestFlipsIgnoreNeighborsWithoutCoupling: with both couplings at zero the
// flip probability depends only on the local voltage, so two lattices with
// different spin patterns flip exactly the same cells under the same seed.
func TestFlipsIgnoreNeighborsWithoutCoupling(t *testing.T) {
	r := simulation.NewRunner(t)
	shape := lattice.Shape{X: 8, Y: 8, Z: 8}
	configure := func(c *config.Config) {
		simulation.Quiescent(c)
		c.Spin.Model = "tunneling"
		c.Spin.CouplingStrength = 0
		c.Spin.LongRangeStrength = 0
		c.Spin.KT = 0.05
	}

	aligned := r.Run(simulation.Scenario{
		Name:      "aligned",
		Shape:     shape,
		Seed:      7,
		Steps:     1,
		Fill:      simulation.Uniform(0.55, 0.5, 0, 0),
		Configure: configure,
	})
	mixed := r.Run(simulation.Scenario{
		Name:      "checkerboard",
		Shape:     shape,
		Seed:      7,
		Steps:     1,
		Fill:      simulation.Each(simulation.Uniform(0.55, 0.5, 0, 0), simulation.Checkerboard()),
		Configure: configure,
	})

	frame := func(res simulation.Result, step int) lattice.Snapshot {
		t.Helper()
		f, ok := res.Frame(step)
		if !ok {
			t.Fatalf("%s: step %d not recorded", res.Scenario, step)
		}
		return f
	}
	a := simulation.FlipMask(frame(aligned, 0), frame(aligned, 1))
	b := simulation.FlipMask(frame(mixed, 0), frame(mixed, 1))
	if !slices.Equal(a, b) {
		t.Error("flip decisions depend on neighbor spins with zero coupling")
	}

	flipped := 0
	for _, f := range a {
		if f {
			flipped++
		}
	}
	// p = exp(-0.05/0.05) ≈ 0.37 over 216 cells.
	if flipped == 0 || flipped == len(a) {
		t.Errorf("flipped %d of %d cells, want a partial flip", flipped, len(a))
	}
}
