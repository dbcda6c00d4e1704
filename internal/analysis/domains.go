package analysis

import (
	"cmp"
	"slices"

	"github.com/nvandessel/biolattice/internal/export"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Domain is a connected set of same-spin nodes, listed by ascending ID.
type Domain []int64

// SpinDomains returns the connected components of the nodes of g whose
// spin equals spin, largest first. Ties are ordered by smallest node ID.
func SpinDomains(g *export.Graph, spin uint8) []Domain {
	sub := simple.NewUndirectedGraph()
	for id := range g.Len() {
		if n := g.NodeAt(int64(id)); n.Spin == spin {
			sub.AddNode(n)
		}
	}

	idx := g.EdgeIndex()
	for k := 0; k < g.NumEdges(); k++ {
		u, v := g.NodeAt(idx[0][k]), g.NodeAt(idx[1][k])
		if u.Spin == spin && v.Spin == spin {
			sub.SetEdge(sub.NewEdge(u, v))
		}
	}

	components := topo.ConnectedComponents(sub)
	domains := make([]Domain, len(components))
	for i, c := range components {
		d := make(Domain, len(c))
		for j, n := range c {
			d[j] = n.ID()
		}
		slices.Sort(d)
		domains[i] = d
	}

	slices.SortFunc(domains, func(a, b Domain) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return cmp.Compare(a[0], b[0])
	})
	return domains
}

// LargestDomain returns the largest spin domain, or nil when no node has
// the given spin.
func LargestDomain(g *export.Graph, spin uint8) Domain {
	domains := SpinDomains(g, spin)
	if len(domains) == 0 {
		return nil
	}
	return domains[0]
}
