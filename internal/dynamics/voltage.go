package dynamics

import (
	"github.com/nvandessel/biolattice/internal/lattice"
	"github.com/nvandessel/biolattice/internal/rng"
)

// VoltageParams configures the reaction-diffusion voltage update.
type VoltageParams struct {
	DiffusionRate       float64
	DecayRate           float64
	StimulusStrength    float64
	StimulusProbability float64

	// FeedbackStrength couples the previous phase field back into voltage.
	// Zero disables the feedback term.
	FeedbackStrength float64
	DT               float64
}

// FeedbackActive reports whether the phase feedback term is applied.
func (p VoltageParams) FeedbackActive() bool {
	return p.FeedbackStrength != 0
}

// StepVoltage writes the next voltage field into dst and returns the number
// of cells that received a stimulus.
//
// Boundary cells are copied from src untouched. phase is the phase field from
// before this step and may be nil when feedback is inactive. Results are
// clipped to [0, 1]. When the lattice has no interior the update is a copy.
func StepVoltage(dst, src, phase []float64, shape lattice.Shape, p VoltageParams, draws rng.Stream, sw Sweep) int {
	copy(dst, src)
	if shape.InteriorLen() == 0 {
		return 0
	}

	offsets := shape.NeighborOffsets()
	degree := float64(len(offsets))
	feedback := p.FeedbackActive() && phase != nil
	zlo, zhi := shape.ZRange()

	return sw.Sum(shape.X, func(lo, hi int) int {
		stimulated := 0
		for x := max(lo, 1); x < min(hi, shape.X-1); x++ {
			for y := 1; y < shape.Y-1; y++ {
				for z := zlo; z < zhi; z++ {
					i := shape.Index(x, y, z)
					v := src[i]

					lap := -degree * v
					for _, off := range offsets {
						lap += src[i+off]
					}

					next := v + p.DiffusionRate*lap - p.DecayRate*v
					if draws.Bernoulli(i, p.StimulusProbability) {
						next += p.StimulusStrength
						stimulated++
					}
					if feedback {
						next += p.DT * p.FeedbackStrength * (phase[i] - 0.5)
					}
					dst[i] = clamp01(next)
				}
			}
		}
		return stimulated
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
