package dynamics

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nvandessel/biolattice/internal/lattice"
	"github.com/nvandessel/biolattice/internal/rng"
)

// ErrUnknownSpinModel is returned by ParseSpinModel for unrecognized names.
var ErrUnknownSpinModel = errors.New("unknown spin model")

// SpinModel selects the flip-probability rule for a whole run.
type SpinModel int

const (
	// Tunneling flips with exp(-barrier/kT), where the barrier is the
	// voltage offset from 0.5 reduced by neighbor alignment.
	Tunneling SpinModel = iota
	// IsingThermal flips with the heat-bath probability of the
	// nearest-neighbor alignment energy shifted by the phase field.
	IsingThermal
)

func (m SpinModel) String() string {
	switch m {
	case Tunneling:
		return "tunneling"
	case IsingThermal:
		return "ising_thermal"
	default:
		return fmt.Sprintf("spin_model(%d)", int(m))
	}
}

// ParseSpinModel maps a configuration name to a SpinModel.
func ParseSpinModel(s string) (SpinModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tunneling", "tunnelling", "qtm":
		return Tunneling, nil
	case "ising_thermal", "ising-thermal", "ising":
		return IsingThermal, nil
	default:
		return 0, fmt.Errorf("%w: %q (valid: tunneling, ising_thermal)", ErrUnknownSpinModel, s)
	}
}

// SpinParams configures the stochastic spin update.
type SpinParams struct {
	Model SpinModel

	// Tunneling model.
	CouplingStrength  float64
	LongRangeStrength float64
	LongRangeRadius   int
	KT                float64

	// Ising-thermal model.
	Temperature float64
}

// LongRangeEnabled reports whether the tunneling influence includes the
// long-range neighborhood average.
func (p SpinParams) LongRangeEnabled() bool {
	return p.LongRangeStrength != 0
}

// Probabilities are kept strictly inside the ranges the models promise even
// when exp under- or overflows.
var (
	minFlipProbability  = math.SmallestNonzeroFloat64
	maxIsingProbability = math.Nextafter(1, 0)
)

// TunnelingProbability returns the flip probability of a spin in (0, 1].
// longRangeAvg is ignored unless long-range coupling is enabled.
func TunnelingProbability(spin uint8, neighborAvg, longRangeAvg, voltage float64, p SpinParams) float64 {
	s := float64(spin)
	influence := p.CouplingStrength * (1 - math.Abs(s-neighborAvg))
	if p.LongRangeEnabled() {
		influence += p.LongRangeStrength * (1 - math.Abs(s-longRangeAvg))
	}
	barrier := math.Max(math.Abs(0.5-voltage)-influence, 0)
	prob := math.Exp(-barrier / p.KT)
	if prob < minFlipProbability {
		return minFlipProbability
	}
	return prob
}

// IsingProbability returns the heat-bath flip probability in (0, 1).
// localField is the sum of ±1 over the axis neighbors.
func IsingProbability(spin uint8, localField int, phase, temperature float64) float64 {
	sign := 2*float64(spin) - 1
	energy := -2*sign*float64(localField) + 2*(phase-0.5)
	prob := 1 / (1 + math.Exp(energy/temperature))
	switch {
	case prob < minFlipProbability:
		return minFlipProbability
	case prob > maxIsingProbability:
		return maxIsingProbability
	}
	return prob
}

// StepSpin writes the next spin field into dst and returns the number of
// flips. Only interior cells are candidates; every decision reads the
// pre-step spins in src.
func StepSpin(dst, src []uint8, voltage, phase []float64, shape lattice.Shape, p SpinParams, draws rng.Stream, sw Sweep) int {
	copy(dst, src)
	if shape.InteriorLen() == 0 {
		return 0
	}

	var sums *boxSums
	if p.Model == Tunneling && p.LongRangeEnabled() {
		sums = newBoxSums(src, shape)
	}

	offsets := shape.NeighborOffsets()
	degree := float64(len(offsets))
	zlo, zhi := shape.ZRange()

	return sw.Sum(shape.X, func(lo, hi int) int {
		flips := 0
		for x := max(lo, 1); x < min(hi, shape.X-1); x++ {
			for y := 1; y < shape.Y-1; y++ {
				for z := zlo; z < zhi; z++ {
					i := shape.Index(x, y, z)
					s := src[i]

					up := 0
					for _, off := range offsets {
						up += int(src[i+off])
					}

					var prob float64
					switch p.Model {
					case IsingThermal:
						field := 2*up - len(offsets)
						prob = IsingProbability(s, field, phase[i], p.Temperature)
					default:
						longRange := 0.0
						if sums != nil {
							longRange = sums.mean(shape, x, y, z, p.LongRangeRadius)
						}
						prob = TunnelingProbability(s, float64(up)/degree, longRange, voltage[i], p)
					}

					if draws.Bernoulli(i, prob) {
						dst[i] = 1 - s
						flips++
					}
				}
			}
		}
		return flips
	})
}

// boxSums is a summed-volume table over a spin field, used for the
// long-range neighborhood averages.
type boxSums struct {
	ny, nz int
	c      []int32
}

func newBoxSums(spin []uint8, shape lattice.Shape) *boxSums {
	b := &boxSums{ny: shape.Y + 1, nz: shape.Z + 1}
	b.c = make([]int32, (shape.X+1)*b.ny*b.nz)
	for x := 0; x < shape.X; x++ {
		for y := 0; y < shape.Y; y++ {
			for z := 0; z < shape.Z; z++ {
				b.c[b.at(x+1, y+1, z+1)] = int32(spin[shape.Index(x, y, z)]) +
					b.c[b.at(x, y+1, z+1)] + b.c[b.at(x+1, y, z+1)] + b.c[b.at(x+1, y+1, z)] -
					b.c[b.at(x, y, z+1)] - b.c[b.at(x, y+1, z)] - b.c[b.at(x+1, y, z)] +
					b.c[b.at(x, y, z)]
			}
		}
	}
	return b
}

func (b *boxSums) at(x, y, z int) int {
	return (x*b.ny+y)*b.nz + z
}

// sum returns the total over the half-open box [x0,x1)×[y0,y1)×[z0,z1).
func (b *boxSums) sum(x0, x1, y0, y1, z0, z1 int) int32 {
	return b.c[b.at(x1, y1, z1)] -
		b.c[b.at(x0, y1, z1)] - b.c[b.at(x1, y0, z1)] - b.c[b.at(x1, y1, z0)] +
		b.c[b.at(x0, y0, z1)] + b.c[b.at(x0, y1, z0)] + b.c[b.at(x1, y0, z0)] -
		b.c[b.at(x0, y0, z0)]
}

// mean averages the Chebyshev cube of radius r around (x, y, z), clipped to
// the lattice. The cell itself is included. Planar lattices use a square.
func (b *boxSums) mean(shape lattice.Shape, x, y, z, r int) float64 {
	x0, x1 := max(x-r, 0), min(x+r+1, shape.X)
	y0, y1 := max(y-r, 0), min(y+r+1, shape.Y)
	z0, z1 := max(z-r, 0), min(z+r+1, shape.Z)
	volume := (x1 - x0) * (y1 - y0) * (z1 - z0)
	return float64(b.sum(x0, x1, y0, y1, z0, z1)) / float64(volume)
}
