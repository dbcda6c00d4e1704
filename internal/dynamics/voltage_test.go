package dynamics

import (
	"math"
	"slices"
	"testing"

	"github.com/nvandessel/biolattice/internal/lattice"
	"github.com/nvandessel/biolattice/internal/rng"
)

func randomField(shape lattice.Shape, seed uint64, scale float64) []float64 {
	s := rng.New(seed).Stream(0, rng.StreamInitVoltage)
	out := make([]float64, shape.Len())
	for i := range out {
		out[i] = scale * s.Float64(i)
	}
	return out
}

func randomSpins(shape lattice.Shape, seed uint64) []uint8 {
	s := rng.New(seed).Stream(0, rng.StreamInitSpin)
	out := make([]uint8, shape.Len())
	for i := range out {
		out[i] = s.Bit(i)
	}
	return out
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func defaultVoltageParams() VoltageParams {
	return VoltageParams{
		DiffusionRate:       0.2,
		DecayRate:           0.05,
		StimulusStrength:    1.0,
		StimulusProbability: 0.01,
		DT:                  0.1,
	}
}

func TestStepVoltage_BoundaryUnchanged(t *testing.T) {
	shape := lattice.Shape{X: 8, Y: 7, Z: 6}
	src := randomField(shape, 1, 1)
	dst := make([]float64, shape.Len())
	p := defaultVoltageParams()
	p.StimulusProbability = 0.5

	for step := 0; step < 5; step++ {
		StepVoltage(dst, src, nil, shape, p, rng.New(3).Stream(step, rng.StreamStimulus), Sweep{})
		for i := range src {
			x, y, z := shape.Coord(i)
			if !shape.Interior(x, y, z) && dst[i] != src[i] {
				t.Fatalf("step %d: boundary cell (%d,%d,%d) changed %v -> %v", step, x, y, z, src[i], dst[i])
			}
		}
		src, dst = dst, src
	}
}

func TestStepVoltage_Range(t *testing.T) {
	shape := lattice.Shape{X: 6, Y: 6, Z: 6}
	src := randomField(shape, 2, 1)
	dst := make([]float64, shape.Len())
	p := defaultVoltageParams()
	p.StimulusProbability = 0.3
	p.StimulusStrength = 5
	p.FeedbackStrength = -40
	phase := randomField(shape, 4, 3)

	for step := 0; step < 10; step++ {
		StepVoltage(dst, src, phase, shape, p, rng.New(9).Stream(step, rng.StreamStimulus), Sweep{Workers: 3})
		for i, v := range dst {
			if v < 0 || v > 1 {
				t.Fatalf("step %d: voltage[%d] = %v outside [0,1]", step, i, v)
			}
		}
		src, dst = dst, src
	}
}

func TestStepVoltage_ZeroCouplingIsIdentity(t *testing.T) {
	shape := lattice.Shape{X: 5, Y: 6, Z: 7}
	src := randomField(shape, 5, 1)
	dst := make([]float64, shape.Len())
	p := VoltageParams{StimulusProbability: 0.5}

	n := StepVoltage(dst, src, nil, shape, p, rng.New(1).Stream(0, rng.StreamStimulus), Sweep{})
	if !slices.Equal(dst, src) {
		t.Error("voltage changed with zero diffusion, decay and stimulus")
	}
	if n == 0 {
		t.Error("expected stimulus draws to fire even with zero strength")
	}
}

func TestStepVoltage_Stencil(t *testing.T) {
	tests := []struct {
		name       string
		shape      lattice.Shape
		wantCenter float64
	}{
		{"volumetric", lattice.Shape{X: 5, Y: 5, Z: 5}, 1 + 0.1*-6},
		{"planar", lattice.Shape{X: 5, Y: 5, Z: 1}, 1 + 0.1*-4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape := tt.shape
			src := make([]float64, shape.Len())
			zc := shape.Z / 2
			center := shape.Index(2, 2, zc)
			src[center] = 1
			dst := make([]float64, shape.Len())
			p := VoltageParams{DiffusionRate: 0.1}

			StepVoltage(dst, src, nil, shape, p, rng.Stream{}, Sweep{Workers: 1})

			if math.Abs(dst[center]-tt.wantCenter) > 1e-12 {
				t.Errorf("center = %v, want %v", dst[center], tt.wantCenter)
			}
			neighbor := shape.Index(1, 2, zc)
			if math.Abs(dst[neighbor]-0.1) > 1e-12 {
				t.Errorf("neighbor = %v, want 0.1", dst[neighbor])
			}
			diagonal := shape.Index(1, 1, zc)
			if dst[diagonal] != 0 {
				t.Errorf("diagonal = %v, want 0", dst[diagonal])
			}
		})
	}
}

func TestStepVoltage_PhaseFeedback(t *testing.T) {
	shape := lattice.Shape{X: 4, Y: 4, Z: 4}
	src := filled(shape.Len(), 0.5)
	phase := filled(shape.Len(), 1)
	dst := make([]float64, shape.Len())
	p := VoltageParams{FeedbackStrength: 0.4, DT: 0.1}

	StepVoltage(dst, src, phase, shape, p, rng.Stream{}, Sweep{})

	for _, i := range shape.InteriorIndices() {
		if math.Abs(dst[i]-0.52) > 1e-12 {
			t.Fatalf("voltage[%d] = %v, want 0.52", i, dst[i])
		}
	}

	StepVoltage(dst, src, nil, shape, p, rng.Stream{}, Sweep{})
	if !slices.Equal(dst, src) {
		t.Error("nil phase should disable feedback")
	}
}

func TestStepVoltage_EmptyInteriorIsCopy(t *testing.T) {
	shape := lattice.Shape{X: 2, Y: 5, Z: 5}
	src := randomField(shape, 6, 1)
	dst := make([]float64, shape.Len())
	p := defaultVoltageParams()
	p.StimulusProbability = 1

	n := StepVoltage(dst, src, nil, shape, p, rng.New(1).Stream(0, rng.StreamStimulus), Sweep{})
	if n != 0 {
		t.Errorf("stimulated = %d, want 0", n)
	}
	if !slices.Equal(dst, src) {
		t.Error("degenerate lattice was modified")
	}
}

func TestStepVoltage_WorkerCountInvariant(t *testing.T) {
	shape := lattice.Shape{X: 13, Y: 9, Z: 7}
	src := randomField(shape, 7, 1)
	phase := randomField(shape, 8, 1)
	p := defaultVoltageParams()
	p.FeedbackStrength = 0.4
	draws := rng.New(11).Stream(4, rng.StreamStimulus)

	want := make([]float64, shape.Len())
	wantN := StepVoltage(want, src, phase, shape, p, draws, Sweep{Workers: 1})

	for _, workers := range []int{2, 3, 8, 32} {
		got := make([]float64, shape.Len())
		gotN := StepVoltage(got, src, phase, shape, p, draws, Sweep{Workers: workers})
		if !slices.Equal(got, want) || gotN != wantN {
			t.Errorf("workers=%d: result differs from single-threaded sweep", workers)
		}
	}
}
