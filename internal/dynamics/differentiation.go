package dynamics

import (
	"github.com/nvandessel/biolattice/internal/lattice"
)

// NextState applies the hysteresis rule: a cell differentiates above
// threshold, reverts below threshold/2, and keeps its state in between.
func NextState(state uint8, voltage, threshold float64) uint8 {
	switch {
	case voltage > threshold:
		return 1
	case voltage < threshold/2:
		return 0
	default:
		return state
	}
}

// StepDifferentiation writes the next differentiation state into dst and
// returns the number of differentiated interior cells. Boundary cells are
// copied unchanged.
func StepDifferentiation(dst, src []uint8, voltage []float64, shape lattice.Shape, threshold float64, sw Sweep) int {
	copy(dst, src)
	if shape.InteriorLen() == 0 {
		return 0
	}

	zlo, zhi := shape.ZRange()
	return sw.Sum(shape.X, func(lo, hi int) int {
		differentiated := 0
		for x := max(lo, 1); x < min(hi, shape.X-1); x++ {
			for y := 1; y < shape.Y-1; y++ {
				for z := zlo; z < zhi; z++ {
					i := shape.Index(x, y, z)
					dst[i] = NextState(src[i], voltage[i], threshold)
					differentiated += int(dst[i])
				}
			}
		}
		return differentiated
	})
}
