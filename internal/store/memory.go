package store

import (
	"context"
	"sync"

	"github.com/nvandessel/biolattice/internal/lattice"
)

// MemoryRecorder implements Recorder in process memory.
type MemoryRecorder struct {
	mu     sync.RWMutex
	frames []lattice.Snapshot
}

// NewMemoryRecorder creates an empty in-memory time series.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Append stores a deep copy of snap.
func (r *MemoryRecorder) Append(ctx context.Context, snap lattice.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var shape lattice.Shape
	last := 0
	if n := len(r.frames); n > 0 {
		shape, last = r.frames[0].Shape, r.frames[n-1].Step
	}
	if err := checkNext(len(r.frames), shape, last, snap); err != nil {
		return err
	}

	r.frames = append(r.frames, lattice.NewSnapshot(snap.Step, snap.Shape, snap.Fields))
	return nil
}

// Frames returns deep copies of every recorded frame.
func (r *MemoryRecorder) Frames(ctx context.Context) ([]lattice.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]lattice.Snapshot, len(r.frames))
	for i, f := range r.frames {
		out[i] = lattice.NewSnapshot(f.Step, f.Shape, f.Fields)
	}
	return out, nil
}

// Len returns the number of recorded frames.
func (r *MemoryRecorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.frames)
}

// Reset discards every frame.
func (r *MemoryRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = nil
}
