package export

import (
	"errors"
	"strconv"
	"testing"

	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/nvandessel/biolattice/internal/lattice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(shape lattice.Shape, steps ...int) []lattice.Snapshot {
	out := make([]lattice.Snapshot, len(steps))
	for k, step := range steps {
		snap := rampSnapshot(shape)
		snap.Step = step
		for i := range snap.Phase {
			snap.Phase[i] += float64(1000 * step)
		}
		out[k] = snap
	}
	return out
}

func TestNewTensor(t *testing.T) {
	shape := lattice.Shape{X: 4, Y: 3, Z: 2}
	frames := series(shape, 0, 5, 10)

	tensor, err := NewTensor(frames)
	require.NoError(t, err)
	assert.Equal(t, [5]int{3, 3, 4, 3, 2}, tensor.Dims())
	assert.Equal(t, []int{0, 5, 10}, tensor.Steps())
	assert.Equal(t, shape, tensor.Shape())
	assert.Len(t, tensor.Data(), 3*3*shape.Len())

	for k, f := range frames {
		for i := 0; i < shape.Len(); i++ {
			x, y, z := shape.Coord(i)
			assert.Equal(t, f.Voltage[i], tensor.At(k, lattice.ChannelVoltage, x, y, z))
			assert.Equal(t, f.Phase[i], tensor.At(k, lattice.ChannelPhase, x, y, z))
			assert.Equal(t, float64(f.Spin[i]), tensor.At(k, lattice.ChannelSpin, x, y, z))
		}
	}
}

func TestNewTensor_Errors(t *testing.T) {
	_, err := NewTensor(nil)
	assert.True(t, errors.Is(err, ErrNoFrames))

	frames := append(series(lattice.Shape{X: 3, Y: 3, Z: 3}, 0), series(lattice.Shape{X: 4, Y: 3, Z: 3}, 1)...)
	_, err = NewTensor(frames)
	assert.ErrorIs(t, err, lattice.ErrShape)
}

func TestTensorRecord(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	shape := lattice.Shape{X: 3, Y: 3, Z: 2}
	tensor, err := NewTensor(series(shape, 2, 4))
	require.NoError(t, err)

	rec := tensor.Record(mem)
	defer rec.Release()

	require.EqualValues(t, len(tensor.Data()), rec.NumRows())
	require.EqualValues(t, 6, rec.NumCols())

	md := rec.Schema().Metadata()
	shapeIdx := md.FindKey(MetaShape)
	require.GreaterOrEqual(t, shapeIdx, 0)
	assert.Equal(t, "3x3x2", md.Values()[shapeIdx])
	framesIdx := md.FindKey(MetaFrames)
	require.GreaterOrEqual(t, framesIdx, 0)
	assert.Equal(t, strconv.Itoa(2), md.Values()[framesIdx])

	steps := rec.Column(0).(*array.Int32)
	channels := rec.Column(1).(*array.String)
	xs := rec.Column(2).(*array.Int32)
	ys := rec.Column(3).(*array.Int32)
	zs := rec.Column(4).(*array.Int32)
	values := rec.Column(5).(*array.Float64)

	for row := 0; row < int(rec.NumRows()); row++ {
		k := row / (3 * shape.Len())
		c := lattice.Channel(row / shape.Len() % 3)
		assert.Equal(t, int32(tensor.Steps()[k]), steps.Value(row))
		assert.Equal(t, c.String(), channels.Value(row))
		x, y, z := int(xs.Value(row)), int(ys.Value(row)), int(zs.Value(row))
		assert.Equal(t, tensor.At(k, c, x, y, z), values.Value(row))
	}
}
