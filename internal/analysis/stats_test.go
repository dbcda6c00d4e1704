package analysis

import (
	"testing"

	"github.com/nvandessel/biolattice/internal/export"
	"github.com/nvandessel/biolattice/internal/lattice"
	"github.com/stretchr/testify/assert"
)

func TestFrameStats(t *testing.T) {
	shape := lattice.Shape{X: 3, Y: 3, Z: 3}
	fields := lattice.NewFields(shape)
	for i := range fields.Voltage {
		fields.Voltage[i] = 0.4
	}
	for i := 0; i < 9; i++ {
		fields.Spin[i] = 1
	}
	fields.State[13] = 1
	fields.State[0] = 1

	got := FrameStats(lattice.Snapshot{Step: 4, Shape: shape, Fields: fields})
	assert.Equal(t, 4, got.Step)
	assert.InDelta(t, 0.4, got.AvgVoltage, 1e-12)
	assert.InDelta(t, 9.0/27, got.SpinRatio, 1e-12)
	assert.Equal(t, 2, got.Differentiated, "boundary cells count toward whole-lattice stats")

	rows := TrackStats([]lattice.Snapshot{{Step: 1, Shape: shape, Fields: fields}, {Step: 2, Shape: shape, Fields: fields}})
	assert.Len(t, rows, 2)
	assert.Equal(t, 2, rows[1].Step)

	assert.Equal(t, StepStats{Step: 9}, FrameStats(lattice.Snapshot{Step: 9}))
}

func TestSummarize(t *testing.T) {
	shape := lattice.Shape{X: 4, Y: 4, Z: 3}
	fields := lattice.NewFields(shape)
	interior := shape.InteriorIndices()
	for k, i := range interior {
		fields.Voltage[i] = 0.2 * float64(k+1)
		fields.Spin[i] = uint8(k % 2)
	}
	fields.State[interior[0]] = 1
	// Boundary values never reach the graph.
	fields.Voltage[0] = 1
	fields.Spin[0] = 1
	fields.State[0] = 1

	got := Summarize(export.BuildGraph(lattice.Snapshot{Step: 3, Shape: shape, Fields: fields}))

	assert.Equal(t, Summary{
		Step:           3,
		Nodes:          4,
		AvgVoltage:     0.5,
		SpinDown:       2,
		SpinUp:         2,
		Differentiated: 1,
		Coherence:      0.5,
	}, roundSummary(got))
}

func roundSummary(s Summary) Summary {
	s.AvgVoltage = float64(int(s.AvgVoltage*1e9+0.5)) / 1e9
	return s
}
