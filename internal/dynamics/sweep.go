// Package dynamics implements the per-timestep field updates of the lattice:
// reaction-diffusion voltage, Ginzburg-Landau phase, stochastic spin flips and
// hysteretic differentiation.
//
// Every update reads only its source buffers and writes a distinct
// destination buffer. The caller swaps buffers once the whole field is done,
// so no cell ever observes a neighbor's value from the same update.
package dynamics

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Sweep partitions the x axis of a field update across goroutines.
type Sweep struct {
	// Workers caps the number of concurrent slabs. Zero or negative uses
	// GOMAXPROCS.
	Workers int
}

func (s Sweep) workers() int {
	if s.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return s.Workers
}

// Sum runs fn over contiguous slabs covering [0, n) and returns the sum of
// the slab results. fn must only write cells inside its slab.
func (s Sweep) Sum(n int, fn func(lo, hi int) int) int {
	if n <= 0 {
		return 0
	}
	w := min(s.workers(), n)
	if w == 1 {
		return fn(0, n)
	}

	chunk := (n + w - 1) / w
	partial := make([]int, w)
	var g errgroup.Group
	g.SetLimit(w)
	for k := 0; k < w; k++ {
		lo := k * chunk
		hi := min(lo+chunk, n)
		if lo >= hi {
			break
		}
		g.Go(func() error {
			partial[k] = fn(lo, hi)
			return nil
		})
	}
	// Slab callbacks cannot fail; Wait is only the join barrier.
	_ = g.Wait()

	total := 0
	for _, p := range partial {
		total += p
	}
	return total
}

// Each runs fn over contiguous slabs covering [0, n).
func (s Sweep) Each(n int, fn func(lo, hi int)) {
	s.Sum(n, func(lo, hi int) int {
		fn(lo, hi)
		return 0
	})
}
