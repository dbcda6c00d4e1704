package analysis

import (
	"github.com/nvandessel/biolattice/internal/export"
	"github.com/nvandessel/biolattice/internal/lattice"
	"gonum.org/v1/gonum/stat"
)

// StepStats are whole-lattice aggregates of one frame.
type StepStats struct {
	Step           int     `json:"step"`
	AvgVoltage     float64 `json:"avg_voltage"`
	SpinRatio      float64 `json:"spin_ratio"`
	Differentiated int     `json:"differentiated"`
}

// FrameStats aggregates every cell of snap, boundary included.
func FrameStats(snap lattice.Snapshot) StepStats {
	up, differentiated := 0, 0
	for i := range snap.Spin {
		up += int(snap.Spin[i])
		differentiated += int(snap.State[i])
	}
	s := StepStats{Step: snap.Step, Differentiated: differentiated}
	if n := len(snap.Spin); n > 0 {
		s.AvgVoltage = stat.Mean(snap.Voltage, nil)
		s.SpinRatio = float64(up) / float64(n)
	}
	return s
}

// TrackStats returns FrameStats for every frame.
func TrackStats(frames []lattice.Snapshot) []StepStats {
	out := make([]StepStats, len(frames))
	for i, f := range frames {
		out[i] = FrameStats(f)
	}
	return out
}

// Summary describes the interior cells of one graph projection.
type Summary struct {
	Step           int     `json:"step"`
	Nodes          int     `json:"nodes"`
	AvgVoltage     float64 `json:"avg_voltage"`
	SpinDown       int     `json:"spin_down"`
	SpinUp         int     `json:"spin_up"`
	Differentiated int     `json:"differentiated"`

	// Coherence is the fraction of nodes with spin up.
	Coherence float64 `json:"coherence"`
}

// Summarize reports node counts and averages over g. An empty graph yields
// zero averages.
func Summarize(g *export.Graph) Summary {
	s := Summary{Step: g.Step(), Nodes: g.Len()}
	if s.Nodes == 0 {
		return s
	}

	voltages := make([]float64, s.Nodes)
	for id := range s.Nodes {
		n := g.NodeAt(int64(id))
		voltages[id] = n.Voltage
		s.SpinUp += int(n.Spin)
		s.Differentiated += int(n.State)
	}
	s.SpinDown = s.Nodes - s.SpinUp
	s.AvgVoltage = stat.Mean(voltages, nil)
	s.Coherence = float64(s.SpinUp) / float64(s.Nodes)
	return s
}
