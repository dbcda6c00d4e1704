// Package analysis computes post-run diagnostics over recorded snapshots:
// histogram entropy, per-step statistics, graph summaries and spin domains.
package analysis

import (
	"math"

	"github.com/nvandessel/biolattice/internal/constants"
	"github.com/nvandessel/biolattice/internal/lattice"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Histogram counts values into bins equal-width bins spanning [min, max].
// The last bin is closed on the right. A constant input spans
// [v-0.5, v+0.5] instead. It also returns the bin width.
func Histogram(values []float64, bins int) (counts []float64, width float64) {
	counts = make([]float64, bins)
	if len(values) == 0 || bins < 1 {
		return counts, 0
	}

	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width = (hi - lo) / float64(bins)
	scale := float64(bins) / (hi - lo)

	for _, v := range values {
		b := int((v - lo) * scale)
		if b >= bins {
			b = bins - 1
		}
		if b < 0 {
			b = 0
		}
		counts[b]++
	}
	return counts, width
}

// Entropy returns the base-2 Shannon entropy of the histogram density of
// values. Every bin density is smoothed by constants.EntropySmoothing
// before normalising.
func Entropy(values []float64, bins int) float64 {
	counts, width := Histogram(values, bins)
	if width == 0 {
		return 0
	}

	total := float64(len(values)) * width
	p := make([]float64, len(counts))
	for i, c := range counts {
		p[i] = c/total + constants.EntropySmoothing
	}
	floats.Scale(1/floats.Sum(p), p)
	return stat.Entropy(p) / math.Ln2
}

// EntropyRow is one channel of one frame in an entropy track.
type EntropyRow struct {
	Step     int             `json:"step"`
	Channel  lattice.Channel `json:"-"`
	Name     string          `json:"channel"`
	Entropy  float64         `json:"entropy"`
	Mean     float64         `json:"mean"`
	Variance float64         `json:"variance"`
}

// TrackEntropy returns, for every frame and channel, the histogram entropy
// together with the population mean and variance. Rows are ordered by
// frame, then channel.
func TrackEntropy(frames []lattice.Snapshot, bins int) []EntropyRow {
	if bins < 1 {
		bins = constants.DefaultEntropyBins
	}
	rows := make([]EntropyRow, 0, len(frames)*len(lattice.Channels))
	for _, f := range frames {
		for _, ch := range lattice.Channels {
			values := f.ChannelValues(ch)
			mean, variance := stat.PopMeanVariance(values, nil)
			rows = append(rows, EntropyRow{
				Step:     f.Step,
				Channel:  ch,
				Name:     ch.String(),
				Entropy:  Entropy(values, bins),
				Mean:     mean,
				Variance: variance,
			})
		}
	}
	return rows
}

// ByChannel splits an entropy track into one series per channel.
func ByChannel(rows []EntropyRow) map[lattice.Channel][]EntropyRow {
	out := make(map[lattice.Channel][]EntropyRow, len(lattice.Channels))
	for _, r := range rows {
		out[r.Channel] = append(out[r.Channel], r)
	}
	return out
}
