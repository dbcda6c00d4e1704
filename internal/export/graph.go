// Package export projects lattice snapshots into in-memory structures for
// downstream consumers: a weighted cell graph and a dense time-lapse tensor.
package export

import (
	"math"

	"github.com/nvandessel/biolattice/internal/lattice"
	"gonum.org/v1/gonum/graph/simple"
)

// Node is an interior cell in a Graph. IDs are assigned in interior scan
// order starting at zero.
type Node struct {
	id int64

	// Index is the flat lattice index of the cell.
	Index int
	lattice.Cell
}

// ID implements graph.Node.
func (n Node) ID() int64 { return n.id }

// Graph is the cell graph of one snapshot: interior cells joined to their
// axis-aligned interior neighbors, weighted by the voltage gradient.
type Graph struct {
	*simple.WeightedUndirectedGraph

	step  int
	shape lattice.Shape
	nodes []Node
	ids   map[int]int64
	edges [][2]int64
}

// BuildGraph projects snap onto its interior cell graph.
func BuildGraph(snap lattice.Snapshot) *Graph {
	shape := snap.Shape
	interior := shape.InteriorIndices()

	g := &Graph{
		WeightedUndirectedGraph: simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
		step:                    snap.Step,
		shape:                   shape,
		nodes:                   make([]Node, len(interior)),
		ids:                     make(map[int]int64, len(interior)),
	}

	for id, i := range interior {
		n := Node{id: int64(id), Index: i, Cell: snap.Cell(i)}
		g.nodes[id] = n
		g.ids[i] = n.id
		g.AddNode(n)
	}

	sx, sy, sz := shape.Strides()
	forward := []int{sx, sy}
	if !shape.Planar() {
		forward = append(forward, sz)
	}
	for _, u := range g.nodes {
		for _, off := range forward {
			// A forward step from the last interior cell of a row lands on
			// a boundary cell, so interior membership rules out wrapping.
			vid, ok := g.ids[u.Index+off]
			if !ok {
				continue
			}
			v := g.nodes[vid]
			g.SetWeightedEdge(g.NewWeightedEdge(u, v, math.Abs(u.Voltage-v.Voltage)))
			g.edges = append(g.edges, [2]int64{u.id, v.id})
		}
	}
	return g
}

// Step returns the step of the projected snapshot.
func (g *Graph) Step() int { return g.step }

// Shape returns the lattice shape of the projected snapshot.
func (g *Graph) Shape() lattice.Shape { return g.shape }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// NumEdges returns the number of undirected edges.
func (g *Graph) NumEdges() int { return len(g.edges) }

// NodeAt returns the node with the given ID.
func (g *Graph) NodeAt(id int64) Node { return g.nodes[id] }

// NodeOf returns the node for lattice coordinates, if the cell is interior.
func (g *Graph) NodeOf(x, y, z int) (Node, bool) {
	if !g.shape.InBounds(x, y, z) {
		return Node{}, false
	}
	id, ok := g.ids[g.shape.Index(x, y, z)]
	if !ok {
		return Node{}, false
	}
	return g.nodes[id], true
}

// Features returns one row per node in ID order: voltage, state, spin.
func (g *Graph) Features() [][3]float64 {
	out := make([][3]float64, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = [3]float64{n.Voltage, float64(n.State), float64(n.Spin)}
	}
	return out
}

// EdgeIndex returns the directed edge list in COO layout: every undirected
// edge as (u, v), followed by every edge reversed as (v, u).
func (g *Graph) EdgeIndex() [2][]int64 {
	m := len(g.edges)
	src := make([]int64, 2*m)
	dst := make([]int64, 2*m)
	for k, e := range g.edges {
		src[k], dst[k] = e[0], e[1]
		src[m+k], dst[m+k] = e[1], e[0]
	}
	return [2][]int64{src, dst}
}

// Gradient is the voltage difference across one edge.
type Gradient struct {
	U, V     int64
	VoltageU float64
	VoltageV float64
	Gradient float64
}

// Gradients lists every edge with its endpoint voltages and |Δv|.
func (g *Graph) Gradients() []Gradient {
	out := make([]Gradient, len(g.edges))
	for k, e := range g.edges {
		u, v := g.nodes[e[0]], g.nodes[e[1]]
		out[k] = Gradient{
			U:        u.id,
			V:        v.id,
			VoltageU: u.Voltage,
			VoltageV: v.Voltage,
			Gradient: math.Abs(u.Voltage - v.Voltage),
		}
	}
	return out
}
