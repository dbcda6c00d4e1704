// Package rng provides the counter-based random source used by every
// stochastic rule of the lattice.
//
// A draw is a pure function of (seed, step, stream, cell). Nothing is
// consumed sequentially, so parallel sweeps produce the same values as a
// single-threaded scan regardless of how cells are partitioned.
package rng

// StreamID separates independent uses of randomness within one step.
type StreamID uint64

const (
	StreamInitVoltage StreamID = iota + 1
	StreamInitPhase
	StreamInitSpin
	StreamStimulus
	StreamSpinFlip
)

// Source is a seeded family of streams. The zero value is a valid source
// seeded with 0.
type Source struct {
	seed uint64
}

// New returns a Source for seed.
func New(seed uint64) Source {
	return Source{seed: seed}
}

// Seed returns the seed the source was created with.
func (s Source) Seed() uint64 {
	return s.seed
}

// Stream returns the draws for one (step, stream) pair.
func (s Source) Stream(step int, id StreamID) Stream {
	key := mix(s.seed ^ 0x6a09e667f3bcc909)
	key = mix(key ^ uint64(step))
	key = mix(key ^ uint64(id)*0x9e3779b97f4a7c15)
	return Stream{key: key}
}

// Stream yields per-cell draws.
type Stream struct {
	key uint64
}

// Uint64 returns the raw 64-bit draw for cell.
func (s Stream) Uint64(cell int) uint64 {
	return mix(s.key + uint64(cell)*0x9e3779b97f4a7c15)
}

// Float64 returns a uniform draw in [0, 1) for cell.
func (s Stream) Float64(cell int) float64 {
	return float64(s.Uint64(cell)>>11) * 0x1p-53
}

// Bit returns a fair coin flip for cell.
func (s Stream) Bit(cell int) uint8 {
	return uint8(s.Uint64(cell) >> 63)
}

// Bernoulli reports whether the draw for cell falls below p.
func (s Stream) Bernoulli(cell int, p float64) bool {
	return s.Float64(cell) < p
}

// mix is the splitmix64 finalizer.
func mix(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
