package store

import (
	"context"
	"errors"
	"testing"

	"github.com/nvandessel/biolattice/internal/lattice"
)

var (
	_ Recorder = (*MemoryRecorder)(nil)
	_ Recorder = (*RunRecorder)(nil)
)

func testSnapshot(step int, shape lattice.Shape) lattice.Snapshot {
	fields := lattice.NewFields(shape)
	for i := range fields.Voltage {
		fields.Voltage[i] = float64(i%7) / 7
		fields.Phase[i] = float64(step) + float64(i)/10
		fields.Spin[i] = uint8((i + step) % 2)
		fields.State[i] = uint8(i % 3 / 2)
	}
	return lattice.Snapshot{Step: step, Shape: shape, Fields: fields}
}

func TestMemoryRecorder_AppendAndFrames(t *testing.T) {
	ctx := context.Background()
	shape := lattice.Shape{X: 4, Y: 3, Z: 3}
	r := NewMemoryRecorder()

	for _, step := range []int{0, 1, 3} {
		if err := r.Append(ctx, testSnapshot(step, shape)); err != nil {
			t.Fatalf("Append(%d) error = %v", step, err)
		}
	}
	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}

	frames, err := r.Frames(ctx)
	if err != nil {
		t.Fatalf("Frames() error = %v", err)
	}
	for i, want := range []int{0, 1, 3} {
		if frames[i].Step != want {
			t.Errorf("frames[%d].Step = %d, want %d", i, frames[i].Step, want)
		}
	}
}

func TestMemoryRecorder_CopiesOnAppendAndRead(t *testing.T) {
	ctx := context.Background()
	shape := lattice.Shape{X: 3, Y: 3, Z: 3}
	r := NewMemoryRecorder()

	snap := testSnapshot(0, shape)
	if err := r.Append(ctx, snap); err != nil {
		t.Fatal(err)
	}
	snap.Voltage[0] = 42

	frames, _ := r.Frames(ctx)
	if frames[0].Voltage[0] == 42 {
		t.Error("recorder aliased the caller's slice")
	}

	frames[0].Spin[0] = 9
	again, _ := r.Frames(ctx)
	if again[0].Spin[0] == 9 {
		t.Error("Frames returned an alias of the stored frame")
	}
}

func TestMemoryRecorder_Rejects(t *testing.T) {
	ctx := context.Background()
	shape := lattice.Shape{X: 3, Y: 3, Z: 3}

	tests := []struct {
		name    string
		snap    lattice.Snapshot
		wantErr error
	}{
		{"repeated step", testSnapshot(2, shape), ErrOutOfOrder},
		{"earlier step", testSnapshot(1, shape), ErrOutOfOrder},
		{"different shape", testSnapshot(5, lattice.Shape{X: 4, Y: 3, Z: 3}), ErrShapeMismatch},
		{"short field", func() lattice.Snapshot {
			s := testSnapshot(6, shape)
			s.Phase = s.Phase[:3]
			return s
		}(), lattice.ErrShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewMemoryRecorder()
			if err := r.Append(ctx, testSnapshot(2, shape)); err != nil {
				t.Fatal(err)
			}
			err := r.Append(ctx, tt.snap)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Append() error = %v, want %v", err, tt.wantErr)
			}
			if r.Len() != 1 {
				t.Errorf("Len() = %d after rejected append", r.Len())
			}
		})
	}
}

func TestMemoryRecorder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewMemoryRecorder()
	if err := r.Append(ctx, testSnapshot(0, lattice.Shape{X: 3, Y: 3, Z: 3})); !errors.Is(err, context.Canceled) {
		t.Errorf("Append() error = %v, want context.Canceled", err)
	}
	if _, err := r.Frames(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Frames() error = %v, want context.Canceled", err)
	}
}

func TestMemoryRecorder_Reset(t *testing.T) {
	ctx := context.Background()
	shape := lattice.Shape{X: 3, Y: 3, Z: 3}
	r := NewMemoryRecorder()
	_ = r.Append(ctx, testSnapshot(4, shape))
	r.Reset()

	if r.Len() != 0 {
		t.Errorf("Len() = %d after Reset", r.Len())
	}
	if err := r.Append(ctx, testSnapshot(0, shape)); err != nil {
		t.Errorf("Append after Reset error = %v", err)
	}
}
