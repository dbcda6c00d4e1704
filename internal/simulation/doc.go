// Package simulation provides a scenario harness for validating the emergent
// behavior of the lattice stepper.
//
// The harness drives the real Stepper and records every frame, either in
// memory or in an isolated SQLite database under t.TempDir(). Scenarios are
// Go values that fix a shape, a configuration and optionally a hand-built
// initial state; assertions then check properties over the recorded frames.
//
// Usage:
//
//	func TestAllFlipAtInfiniteTemperature(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:  "hot",
//	        Shape: lattice.Shape{X: 4, Y: 4, Z: 4},
//	        Steps: 1,
//	        Fill:  simulation.Uniform(0.5, 0.5, 0, 0),
//	        Configure: func(c *config.Config) {
//	            c.Spin.KT = math.Inf(1)
//	        },
//	    })
//	    simulation.AssertBinaryFields(t, result)
//	}
package simulation
