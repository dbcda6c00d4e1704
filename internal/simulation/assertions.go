package simulation

import (
	"math"
	"slices"
	"testing"

	"github.com/nvandessel/biolattice/internal/lattice"
)

// AssertVoltageInRange asserts that every recorded voltage lies in [0, 1].
func AssertVoltageInRange(t *testing.T, result Result) {
	t.Helper()
	for _, f := range result.Frames {
		for i, v := range f.Voltage {
			if !(v >= 0 && v <= 1) {
				x, y, z := f.Shape.Coord(i)
				t.Errorf("AssertVoltageInRange: step %d: voltage(%d,%d,%d) = %v", f.Step, x, y, z, v)
				return
			}
		}
	}
}

// AssertPhaseFinite asserts that no recorded phase is NaN or infinite.
func AssertPhaseFinite(t *testing.T, result Result) {
	t.Helper()
	for _, f := range result.Frames {
		for i, p := range f.Phase {
			if math.IsNaN(p) || math.IsInf(p, 0) {
				t.Errorf("AssertPhaseFinite: step %d: phase[%d] = %v", f.Step, i, p)
				return
			}
		}
	}
}

// AssertBinaryFields asserts that spin and state only ever hold 0 or 1.
func AssertBinaryFields(t *testing.T, result Result) {
	t.Helper()
	for _, f := range result.Frames {
		for i := range f.Spin {
			if f.Spin[i] > 1 || f.State[i] > 1 {
				t.Errorf("AssertBinaryFields: step %d: cell %d has spin %d, state %d", f.Step, i, f.Spin[i], f.State[i])
				return
			}
		}
	}
}

// AssertBoundaryFrozen asserts that boundary voltage, spin and state never
// move from their first recorded values.
func AssertBoundaryFrozen(t *testing.T, result Result) {
	t.Helper()
	if len(result.Frames) == 0 {
		t.Fatal("AssertBoundaryFrozen: no frames")
	}
	first := result.Frames[0]
	shape := first.Shape
	for _, f := range result.Frames[1:] {
		for i := range shape.Len() {
			x, y, z := shape.Coord(i)
			if shape.Interior(x, y, z) {
				continue
			}
			if f.Voltage[i] != first.Voltage[i] || f.Spin[i] != first.Spin[i] || f.State[i] != first.State[i] {
				t.Errorf("AssertBoundaryFrozen: step %d: boundary cell (%d,%d,%d) changed", f.Step, x, y, z)
				return
			}
		}
	}
}

// AssertStepsRecorded asserts that exactly the given steps were recorded,
// in order.
func AssertStepsRecorded(t *testing.T, result Result, steps ...int) {
	t.Helper()
	got := make([]int, len(result.Frames))
	for i, f := range result.Frames {
		got[i] = f.Step
	}
	if !slices.Equal(got, steps) {
		t.Errorf("AssertStepsRecorded: recorded steps %v, want %v", got, steps)
	}
}

// AssertSnapshotsEqual asserts that two snapshots are bit-for-bit identical.
func AssertSnapshotsEqual(t *testing.T, got, want lattice.Snapshot) {
	t.Helper()
	if got.Step != want.Step || got.Shape != want.Shape {
		t.Errorf("AssertSnapshotsEqual: step/shape %d %s, want %d %s", got.Step, got.Shape, want.Step, want.Shape)
		return
	}
	switch {
	case !slices.Equal(got.Voltage, want.Voltage):
		t.Errorf("AssertSnapshotsEqual: step %d: voltage differs", got.Step)
	case !slices.Equal(got.Phase, want.Phase):
		t.Errorf("AssertSnapshotsEqual: step %d: phase differs", got.Step)
	case !slices.Equal(got.Spin, want.Spin):
		t.Errorf("AssertSnapshotsEqual: step %d: spin differs", got.Step)
	case !slices.Equal(got.State, want.State):
		t.Errorf("AssertSnapshotsEqual: step %d: state differs", got.Step)
	}
}

// AssertRunsEqual asserts that two results recorded identical trajectories.
func AssertRunsEqual(t *testing.T, got, want Result) {
	t.Helper()
	if len(got.Frames) != len(want.Frames) {
		t.Fatalf("AssertRunsEqual: %d frames, want %d", len(got.Frames), len(want.Frames))
	}
	for i := range got.Frames {
		AssertSnapshotsEqual(t, got.Frames[i], want.Frames[i])
	}
}

// interiorSpins returns the interior spins of snap in scan order.
func interiorSpins(snap lattice.Snapshot) []uint8 {
	idx := snap.Shape.InteriorIndices()
	out := make([]uint8, len(idx))
	for k, i := range idx {
		out[k] = snap.Spin[i]
	}
	return out
}

// FlipMask reports, per interior cell in scan order, whether the spin
// changed between two snapshots.
func FlipMask(before, after lattice.Snapshot) []bool {
	a, b := interiorSpins(before), interiorSpins(after)
	out := make([]bool, len(a))
	for k := range a {
		out[k] = a[k] != b[k]
	}
	return out
}
