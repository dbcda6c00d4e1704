package lattice

import (
	"fmt"
	"slices"
)

// Channel names the fields stacked in dense exports.
type Channel int

const (
	ChannelVoltage Channel = iota
	ChannelPhase
	ChannelSpin
)

// Channels lists the exported channels in stacking order.
var Channels = []Channel{ChannelVoltage, ChannelPhase, ChannelSpin}

func (c Channel) String() string {
	switch c {
	case ChannelVoltage:
		return "voltage"
	case ChannelPhase:
		return "phase"
	case ChannelSpin:
		return "spin"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// Fields holds the four lattice fields over one Shape.
type Fields struct {
	Voltage []float64
	Phase   []float64
	Spin    []uint8
	State   []uint8
}

// NewFields allocates zeroed fields for shape.
func NewFields(shape Shape) Fields {
	n := shape.Len()
	return Fields{
		Voltage: make([]float64, n),
		Phase:   make([]float64, n),
		Spin:    make([]uint8, n),
		State:   make([]uint8, n),
	}
}

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	return Fields{
		Voltage: slices.Clone(f.Voltage),
		Phase:   slices.Clone(f.Phase),
		Spin:    slices.Clone(f.Spin),
		State:   slices.Clone(f.State),
	}
}

// CopyFrom overwrites f with src. Both must have the same length.
func (f Fields) CopyFrom(src Fields) {
	copy(f.Voltage, src.Voltage)
	copy(f.Phase, src.Phase)
	copy(f.Spin, src.Spin)
	copy(f.State, src.State)
}

// Check verifies that every field matches shape.
func (f Fields) Check(shape Shape) error {
	n := shape.Len()
	for name, got := range map[string]int{
		"voltage": len(f.Voltage),
		"phase":   len(f.Phase),
		"spin":    len(f.Spin),
		"state":   len(f.State),
	} {
		if got != n {
			return fmt.Errorf("%w: %s field has %d cells, shape %s needs %d", ErrShape, name, got, shape, n)
		}
	}
	return nil
}

// Snapshot is an immutable point-in-time copy of all fields. Consumers own
// the slices they receive; no snapshot aliases the stepper's buffers.
type Snapshot struct {
	Step  int   `json:"step"`
	Shape Shape `json:"shape"`
	Fields
}

// NewSnapshot copies fields into a snapshot taken at step.
func NewSnapshot(step int, shape Shape, fields Fields) Snapshot {
	return Snapshot{Step: step, Shape: shape, Fields: fields.Clone()}
}

// Cell is the per-cell view used by graph projections.
type Cell struct {
	X, Y, Z int
	Voltage float64
	Phase   float64
	Spin    uint8
	State   uint8
}

// Cell returns the values stored at flat index i.
func (s Snapshot) Cell(i int) Cell {
	x, y, z := s.Shape.Coord(i)
	return Cell{
		X: x, Y: y, Z: z,
		Voltage: s.Voltage[i],
		Phase:   s.Phase[i],
		Spin:    s.Spin[i],
		State:   s.State[i],
	}
}

// Value returns channel c at flat index i as a float.
func (s Snapshot) Value(c Channel, i int) float64 {
	switch c {
	case ChannelVoltage:
		return s.Voltage[i]
	case ChannelPhase:
		return s.Phase[i]
	case ChannelSpin:
		return float64(s.Spin[i])
	default:
		return 0
	}
}

// ChannelValues returns a float copy of channel c.
func (s Snapshot) ChannelValues(c Channel) []float64 {
	out := make([]float64, s.Shape.Len())
	for i := range out {
		out[i] = s.Value(c, i)
	}
	return out
}

// InteriorIndices returns the flat indices of interior cells in scan order.
func (s Shape) InteriorIndices() []int {
	out := make([]int, 0, s.InteriorLen())
	zlo, zhi := s.ZRange()
	for x := 1; x < s.X-1; x++ {
		for y := 1; y < s.Y-1; y++ {
			for z := zlo; z < zhi; z++ {
				out = append(out, s.Index(x, y, z))
			}
		}
	}
	return out
}
