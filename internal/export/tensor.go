package export

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/nvandessel/biolattice/internal/lattice"
)

// ErrNoFrames is returned when a tensor is requested from an empty series.
var ErrNoFrames = errors.New("export: no frames")

// Tensor is a dense (frame, channel, x, y, z) array of a time series with
// channels voltage, phase and spin.
type Tensor struct {
	steps []int
	shape lattice.Shape
	data  []float64
}

// NewTensor stacks frames into a dense tensor. Every frame must share the
// first frame's shape.
func NewTensor(frames []lattice.Snapshot) (*Tensor, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	shape := frames[0].Shape
	n := shape.Len()
	channels := len(lattice.Channels)

	t := &Tensor{
		steps: make([]int, len(frames)),
		shape: shape,
		data:  make([]float64, len(frames)*channels*n),
	}
	for k, f := range frames {
		if f.Shape != shape {
			return nil, fmt.Errorf("%w: frame %d is %s, series is %s", lattice.ErrShape, k, f.Shape, shape)
		}
		if err := f.Fields.Check(shape); err != nil {
			return nil, fmt.Errorf("frame %d: %w", k, err)
		}
		t.steps[k] = f.Step
		for c, ch := range lattice.Channels {
			dst := t.data[(k*channels+c)*n : (k*channels+c+1)*n]
			for i := range dst {
				dst[i] = f.Value(ch, i)
			}
		}
	}
	return t, nil
}

// Dims returns (frames, channels, X, Y, Z).
func (t *Tensor) Dims() [5]int {
	return [5]int{len(t.steps), len(lattice.Channels), t.shape.X, t.shape.Y, t.shape.Z}
}

// Steps returns the simulation step of each frame.
func (t *Tensor) Steps() []int {
	return append([]int(nil), t.steps...)
}

// Shape returns the lattice shape of every frame.
func (t *Tensor) Shape() lattice.Shape {
	return t.shape
}

// At returns the value of channel c at (x, y, z) in frame k.
func (t *Tensor) At(k int, c lattice.Channel, x, y, z int) float64 {
	return t.data[(k*len(lattice.Channels)+int(c))*t.shape.Len()+t.shape.Index(x, y, z)]
}

// Data returns the backing array in row-major (frame, channel, x, y, z)
// order. It aliases the tensor.
func (t *Tensor) Data() []float64 {
	return t.data
}

// Metadata keys attached to the Arrow schema.
const (
	MetaShape  = "biolattice.shape"
	MetaFrames = "biolattice.frames"
)

// Schema is the long-format layout produced by Record.
func (t *Tensor) Schema() *arrow.Schema {
	md := arrow.NewMetadata(
		[]string{MetaShape, MetaFrames},
		[]string{t.shape.String(), strconv.Itoa(len(t.steps))},
	)
	return arrow.NewSchema([]arrow.Field{
		{Name: "step", Type: arrow.PrimitiveTypes.Int32},
		{Name: "channel", Type: arrow.BinaryTypes.String},
		{Name: "x", Type: arrow.PrimitiveTypes.Int32},
		{Name: "y", Type: arrow.PrimitiveTypes.Int32},
		{Name: "z", Type: arrow.PrimitiveTypes.Int32},
		{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	}, &md)
}

// Record returns the tensor as an Arrow record with one row per
// (frame, channel, cell), in the same order as Data. The caller must
// Release it.
func (t *Tensor) Record(mem memory.Allocator) arrow.Record {
	b := array.NewRecordBuilder(mem, t.Schema())
	defer b.Release()

	rows := len(t.data)
	steps := make([]int32, 0, rows)
	channels := make([]string, 0, rows)
	xs := make([]int32, 0, rows)
	ys := make([]int32, 0, rows)
	zs := make([]int32, 0, rows)

	n := t.shape.Len()
	for _, step := range t.steps {
		for _, ch := range lattice.Channels {
			name := ch.String()
			for i := 0; i < n; i++ {
				x, y, z := t.shape.Coord(i)
				steps = append(steps, int32(step))
				channels = append(channels, name)
				xs = append(xs, int32(x))
				ys = append(ys, int32(y))
				zs = append(zs, int32(z))
			}
		}
	}

	b.Field(0).(*array.Int32Builder).AppendValues(steps, nil)
	b.Field(1).(*array.StringBuilder).AppendValues(channels, nil)
	b.Field(2).(*array.Int32Builder).AppendValues(xs, nil)
	b.Field(3).(*array.Int32Builder).AppendValues(ys, nil)
	b.Field(4).(*array.Int32Builder).AppendValues(zs, nil)
	b.Field(5).(*array.Float64Builder).AppendValues(t.data, nil)

	return b.NewRecord()
}
