package dynamics

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/nvandessel/biolattice/internal/lattice"
	"github.com/nvandessel/biolattice/internal/rng"
)

func TestParseSpinModel(t *testing.T) {
	tests := []struct {
		input   string
		want    SpinModel
		wantErr bool
	}{
		{"tunneling", Tunneling, false},
		{"Tunneling", Tunneling, false},
		{"ising_thermal", IsingThermal, false},
		{"ising", IsingThermal, false},
		{" ising-thermal ", IsingThermal, false},
		{"metropolis", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSpinModel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSpinModel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrUnknownSpinModel) {
					t.Errorf("error = %v, want ErrUnknownSpinModel", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseSpinModel(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if parsed, _ := ParseSpinModel(got.String()); parsed != got {
				t.Errorf("String() %q does not parse back", got.String())
			}
		})
	}
}

func TestTunnelingProbabilityBounds(t *testing.T) {
	p := SpinParams{CouplingStrength: 0.1, LongRangeStrength: 0.05, LongRangeRadius: 3}
	draws := rng.New(17).Stream(0, rng.StreamSpinFlip)

	for _, kT := range []float64{1e-6, 0.05, 1, 1e6} {
		p.KT = kT
		for i := 0; i < 2000; i++ {
			spin := draws.Bit(4 * i)
			neighbor := draws.Float64(4*i + 1)
			longRange := draws.Float64(4*i + 2)
			voltage := draws.Float64(4*i + 3)
			prob := TunnelingProbability(spin, neighbor, longRange, voltage, p)
			if !(prob > 0 && prob <= 1) {
				t.Fatalf("kT=%v: probability %v outside (0,1]", kT, prob)
			}
		}
	}
}

func TestTunnelingProbabilityCases(t *testing.T) {
	tests := []struct {
		name     string
		spin     uint8
		neighbor float64
		voltage  float64
		p        SpinParams
		want     float64
	}{
		{
			name: "midpoint voltage has no barrier",
			spin: 0, neighbor: 1, voltage: 0.5,
			p:    SpinParams{KT: 0.05},
			want: 1,
		},
		{
			name: "barrier from voltage offset",
			spin: 0, neighbor: 1, voltage: 0.9,
			p:    SpinParams{KT: 0.1},
			want: math.Exp(-0.4 / 0.1),
		},
		{
			name: "aligned neighbors lower the barrier",
			spin: 1, neighbor: 1, voltage: 0.9,
			p:    SpinParams{CouplingStrength: 0.1, KT: 0.1},
			want: math.Exp(-0.3 / 0.1),
		},
		{
			name: "influence larger than offset clamps barrier to zero",
			spin: 1, neighbor: 1, voltage: 0.55,
			p:    SpinParams{CouplingStrength: 0.1, KT: 0.1},
			want: 1,
		},
		{
			name: "infinite temperature always flips",
			spin: 0, neighbor: 0, voltage: 0,
			p:    SpinParams{KT: math.Inf(1)},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TunnelingProbability(tt.spin, tt.neighbor, 0, tt.voltage, tt.p)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("TunnelingProbability = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTunnelingProbabilityIgnoresNeighborsWithoutCoupling(t *testing.T) {
	p := SpinParams{KT: 0.05}
	for _, voltage := range []float64{0, 0.3, 0.5, 0.62, 1} {
		want := math.Exp(-math.Abs(0.5-voltage) / p.KT)
		for _, spin := range []uint8{0, 1} {
			for _, neighbor := range []float64{0, 1.0 / 6, 0.5, 1} {
				got := TunnelingProbability(spin, neighbor, neighbor, voltage, p)
				if math.Abs(got-math.Max(want, minFlipProbability)) > 1e-15 {
					t.Errorf("v=%v spin=%d neighbor=%v: got %v, want %v", voltage, spin, neighbor, got, want)
				}
			}
		}
	}
}

func TestIsingProbabilityBounds(t *testing.T) {
	tests := []struct {
		name        string
		spin        uint8
		field       int
		phase       float64
		temperature float64
	}{
		{"aligned cold", 1, 6, 1, 1e-6},
		{"anti-aligned cold", 1, -6, 0, 1e-6},
		{"aligned warm", 0, -6, 0.5, 0.1},
		{"neutral", 1, 0, 0.5, 0.1},
		{"hot", 0, 6, 3, 1e9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prob := IsingProbability(tt.spin, tt.field, tt.phase, tt.temperature)
			if !(prob > 0 && prob < 1) {
				t.Errorf("IsingProbability = %v, want strictly inside (0,1)", prob)
			}
		})
	}

	if got := IsingProbability(1, 0, 0.5, 0.1); got != 0.5 {
		t.Errorf("zero energy probability = %v, want 0.5", got)
	}
	// energy_diff = -2*(2s-1)*field, so a field matching the spin drives the flip.
	if IsingProbability(1, 6, 0.5, 1) <= IsingProbability(1, -6, 0.5, 1) {
		t.Error("flip probability should grow with a local field of the spin's own sign")
	}
	if IsingProbability(1, 0, 1, 1) >= IsingProbability(1, 0, 0, 1) {
		t.Error("flip probability should fall as phase rises above 0.5")
	}
}

func TestStepSpin_AllFlipAtInfiniteTemperature(t *testing.T) {
	shape := lattice.Shape{X: 4, Y: 4, Z: 4}
	src := make([]uint8, shape.Len())
	voltage := filled(shape.Len(), 0.5)
	phase := filled(shape.Len(), 0.5)
	dst := make([]uint8, shape.Len())
	p := SpinParams{Model: Tunneling, CouplingStrength: 0.1, KT: math.Inf(1)}

	flips := StepSpin(dst, src, voltage, phase, shape, p, rng.New(1).Stream(0, rng.StreamSpinFlip), Sweep{})

	if flips != shape.InteriorLen() {
		t.Errorf("flips = %d, want %d", flips, shape.InteriorLen())
	}
	for i := range dst {
		x, y, z := shape.Coord(i)
		want := uint8(0)
		if shape.Interior(x, y, z) {
			want = 1
		}
		if dst[i] != want {
			t.Errorf("spin(%d,%d,%d) = %d, want %d", x, y, z, dst[i], want)
		}
	}
}

func TestStepSpin_SynchronousAndOrderIndependent(t *testing.T) {
	for _, model := range []SpinModel{Tunneling, IsingThermal} {
		t.Run(model.String(), func(t *testing.T) {
			shape := lattice.Shape{X: 12, Y: 8, Z: 6}
			src := randomSpins(shape, 21)
			before := slices.Clone(src)
			voltage := randomField(shape, 22, 1)
			phase := randomField(shape, 23, 1)
			p := SpinParams{
				Model:             model,
				CouplingStrength:  0.1,
				LongRangeStrength: 0.05,
				LongRangeRadius:   3,
				KT:                0.05,
				Temperature:       0.5,
			}
			draws := rng.New(24).Stream(1, rng.StreamSpinFlip)

			want := make([]uint8, shape.Len())
			wantFlips := StepSpin(want, src, voltage, phase, shape, p, draws, Sweep{Workers: 1})
			if !slices.Equal(src, before) {
				t.Fatal("StepSpin mutated its source buffer")
			}

			for _, workers := range []int{2, 4, 7} {
				got := make([]uint8, shape.Len())
				gotFlips := StepSpin(got, src, voltage, phase, shape, p, draws, Sweep{Workers: workers})
				if !slices.Equal(got, want) || gotFlips != wantFlips {
					t.Errorf("workers=%d: result differs from single-threaded sweep", workers)
				}
			}

			for i, s := range want {
				if s > 1 {
					t.Fatalf("spin[%d] = %d", i, s)
				}
				x, y, z := shape.Coord(i)
				if !shape.Interior(x, y, z) && s != src[i] {
					t.Errorf("boundary spin (%d,%d,%d) changed", x, y, z)
				}
			}
		})
	}
}

func TestBoxSumsMatchBruteForce(t *testing.T) {
	tests := []struct {
		name   string
		shape  lattice.Shape
		radius int
	}{
		{"volumetric r3", lattice.Shape{X: 9, Y: 7, Z: 5}, 3},
		{"volumetric r0", lattice.Shape{X: 4, Y: 4, Z: 4}, 0},
		{"planar r2", lattice.Shape{X: 8, Y: 6, Z: 1}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape := tt.shape
			spin := randomSpins(shape, 31)
			sums := newBoxSums(spin, shape)
			r := tt.radius

			for i := range spin {
				x, y, z := shape.Coord(i)
				total, count := 0, 0
				for dx := -r; dx <= r; dx++ {
					for dy := -r; dy <= r; dy++ {
						for dz := -r; dz <= r; dz++ {
							if shape.InBounds(x+dx, y+dy, z+dz) {
								total += int(spin[shape.Index(x+dx, y+dy, z+dz)])
								count++
							}
						}
					}
				}
				want := float64(total) / float64(count)
				if got := sums.mean(shape, x, y, z, r); math.Abs(got-want) > 1e-12 {
					t.Fatalf("mean at (%d,%d,%d) = %v, want %v", x, y, z, got, want)
				}
			}
		})
	}
}
