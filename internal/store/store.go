// Package store defines the Recorder interface for persisting the lattice
// time series, with in-memory and SQLite implementations.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nvandessel/biolattice/internal/lattice"
)

var (
	// ErrNotFound is returned when a run does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrShapeMismatch is returned when a frame does not match the shape
	// of the series it is appended to.
	ErrShapeMismatch = errors.New("store: frame shape does not match series")

	// ErrOutOfOrder is returned when a frame's step does not follow the
	// last recorded step.
	ErrOutOfOrder = errors.New("store: frame step out of order")
)

// Recorder is an append-only time series of snapshots.
type Recorder interface {
	// Append stores a copy of snap. Steps must be strictly increasing and
	// every frame must share the first frame's shape.
	Append(ctx context.Context, snap lattice.Snapshot) error

	// Frames returns every recorded snapshot in step order. The caller
	// owns the returned slices.
	Frames(ctx context.Context) ([]lattice.Snapshot, error)

	// Len returns the number of recorded frames.
	Len() int
}

// Run describes a recorded simulation run.
type Run struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Shape     lattice.Shape `json:"shape"`
	Seed      uint64        `json:"seed"`
	SpinModel string        `json:"spin_model"`

	// Config is the effective YAML configuration of the run.
	Config string `json:"config,omitempty"`

	// Frames is filled by ListRuns and GetRun.
	Frames int `json:"frames"`
}

// checkNext validates that snap may follow a series whose first frame has
// shape and whose last step is last. n is the current frame count.
func checkNext(n int, shape lattice.Shape, last int, snap lattice.Snapshot) error {
	if err := snap.Fields.Check(snap.Shape); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if snap.Shape != shape {
		return fmt.Errorf("%w: got %s, series is %s", ErrShapeMismatch, snap.Shape, shape)
	}
	if snap.Step <= last {
		return fmt.Errorf("%w: step %d after step %d", ErrOutOfOrder, snap.Step, last)
	}
	return nil
}
