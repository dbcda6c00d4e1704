package dynamics

import (
	"github.com/nvandessel/biolattice/internal/lattice"
)

// PhaseParams configures the Ginzburg-Landau phase update.
type PhaseParams struct {
	BioelectricCoupling float64
	Diffusion           float64
	PotentialStrength   float64
	DT                  float64
}

// TripleWell is the derivative of the triple-well potential. It vanishes at
// 0, 0.5 and 1.
func TripleWell(phi float64) float64 {
	return phi * (1 - phi) * (phi - 0.5)
}

// PhaseLaplacian returns the discrete Laplacian of field at (x, y, z),
// reading out-of-range neighbors as zero. Unlike the voltage stencil it is
// defined on boundary cells too.
func PhaseLaplacian(field []float64, shape lattice.Shape, x, y, z int) float64 {
	i := shape.Index(x, y, z)
	sx, sy, sz := shape.Strides()
	lap := -float64(shape.Degree()) * field[i]
	if x > 0 {
		lap += field[i-sx]
	}
	if x < shape.X-1 {
		lap += field[i+sx]
	}
	if y > 0 {
		lap += field[i-sy]
	}
	if y < shape.Y-1 {
		lap += field[i+sy]
	}
	if !shape.Planar() {
		if z > 0 {
			lap += field[i-sz]
		}
		if z < shape.Z-1 {
			lap += field[i+sz]
		}
	}
	return lap
}

// StepPhase writes the next phase field into dst. Every cell is updated and
// the result is not clipped.
func StepPhase(dst, phase, voltage []float64, spin []uint8, shape lattice.Shape, p PhaseParams, sw Sweep) {
	sw.Each(shape.X, func(lo, hi int) {
		for x := lo; x < hi; x++ {
			for y := 0; y < shape.Y; y++ {
				for z := 0; z < shape.Z; z++ {
					i := shape.Index(x, y, z)
					phi := phase[i]
					sign := 2*float64(spin[i]) - 1
					coupling := p.BioelectricCoupling * (voltage[i] - 0.5) * sign
					dphi := -p.PotentialStrength*TripleWell(phi) +
						p.Diffusion*PhaseLaplacian(phase, shape, x, y, z) +
						coupling
					dst[i] = phi + p.DT*dphi
				}
			}
		}
	})
}
