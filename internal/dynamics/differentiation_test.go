package dynamics

import (
	"slices"
	"testing"

	"github.com/nvandessel/biolattice/internal/lattice"
)

func TestNextState(t *testing.T) {
	const threshold = 0.6

	tests := []struct {
		name    string
		state   uint8
		voltage float64
		want    uint8
	}{
		{"rises above threshold", 0, 0.7, 1},
		{"stays differentiated above threshold", 1, 0.9, 1},
		{"at threshold keeps undifferentiated", 0, 0.6, 0},
		{"at threshold keeps differentiated", 1, 0.6, 1},
		{"dead zone keeps differentiated", 1, 0.4, 1},
		{"dead zone keeps undifferentiated", 0, 0.4, 0},
		{"at half threshold keeps state", 1, 0.3, 1},
		{"falls below half threshold", 1, 0.2, 0},
		{"stays undifferentiated when low", 0, 0.1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextState(tt.state, tt.voltage, threshold); got != tt.want {
				t.Errorf("NextState(%d, %v) = %d, want %d", tt.state, tt.voltage, got, tt.want)
			}
		})
	}
}

func TestNextState_Hysteresis(t *testing.T) {
	// Up to 0.7, down to 0.4: the cell must remember it was differentiated.
	state := uint8(0)
	for _, v := range []float64{0.2, 0.5, 0.7, 0.5, 0.4, 0.35} {
		state = NextState(state, v, 0.6)
	}
	if state != 1 {
		t.Fatalf("state after dip into dead zone = %d, want 1", state)
	}
	state = NextState(state, 0.29, 0.6)
	if state != 0 {
		t.Errorf("state after falling below half threshold = %d, want 0", state)
	}
}

func TestStepDifferentiation_InteriorOnly(t *testing.T) {
	shape := lattice.Shape{X: 5, Y: 4, Z: 3}
	voltage := filled(shape.Len(), 0.9)
	src := make([]uint8, shape.Len())
	dst := make([]uint8, shape.Len())

	n := StepDifferentiation(dst, src, voltage, shape, 0.6, Sweep{Workers: 2})

	if n != shape.InteriorLen() {
		t.Errorf("differentiated = %d, want %d", n, shape.InteriorLen())
	}
	for i, s := range dst {
		x, y, z := shape.Coord(i)
		want := uint8(0)
		if shape.Interior(x, y, z) {
			want = 1
		}
		if s != want {
			t.Errorf("state(%d,%d,%d) = %d, want %d", x, y, z, s, want)
		}
	}
}

func TestStepDifferentiation_CountsPersistentCells(t *testing.T) {
	shape := lattice.Shape{X: 4, Y: 4, Z: 4}
	voltage := filled(shape.Len(), 0.45)
	src := make([]uint8, shape.Len())
	interior := shape.InteriorIndices()
	src[interior[0]] = 1
	dst := make([]uint8, shape.Len())

	n := StepDifferentiation(dst, src, voltage, shape, 0.6, Sweep{})
	if n != 1 {
		t.Errorf("differentiated = %d, want 1", n)
	}
	if !slices.Equal(dst, src) {
		t.Error("dead-zone voltage changed differentiation state")
	}
}

func TestStepDifferentiation_WorkerCountInvariant(t *testing.T) {
	shape := lattice.Shape{X: 10, Y: 7, Z: 5}
	voltage := randomField(shape, 41, 1)
	src := randomSpins(shape, 42)

	want := make([]uint8, shape.Len())
	wantN := StepDifferentiation(want, src, voltage, shape, 0.6, Sweep{Workers: 1})
	for _, workers := range []int{3, 10, 64} {
		got := make([]uint8, shape.Len())
		gotN := StepDifferentiation(got, src, voltage, shape, 0.6, Sweep{Workers: workers})
		if !slices.Equal(got, want) || gotN != wantN {
			t.Errorf("workers=%d: result differs from single-threaded sweep", workers)
		}
	}
}
