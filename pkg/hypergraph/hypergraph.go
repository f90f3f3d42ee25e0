// Package hypergraph provides a compact weighted hypergraph view of a netlist
// and the heavy-edge coarsening used by the multilevel placement and
// partitioning strategies.
//
// Nodes are integers. Each node carries a weight (the number of original cells
// it stands for) and an area. Each hyperedge is a sorted set of distinct nodes
// with a weight. Edges that touch fewer than two nodes are dropped on
// construction because they can never be cut and exert no force.
package hypergraph

import (
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/chipforge/pkg/model"
)

// Graph is a weighted hypergraph.
type Graph struct {
	Weights     []int     // node weight: count of original cells
	Areas       []float64 // node area
	Edges       [][]int   // hyperedges: sorted distinct node indices
	EdgeWeights []float64 // hyperedge weight
	NodeEdges   [][]int   // edges incident to each node, ascending
}

// FromIndex builds the hypergraph of a netlist. Node i is cells[i]; edge
// weights are effective net weights.
func FromIndex(ix *model.Index, cells []model.Cell) *Graph {
	g := &Graph{
		Weights: make([]int, len(cells)),
		Areas:   make([]float64, len(cells)),
	}
	for i, c := range cells {
		g.Weights[i] = 1
		g.Areas[i] = c.Area()
	}
	for n, members := range ix.NetCells {
		if len(members) < 2 {
			continue
		}
		g.Edges = append(g.Edges, slices.Clone(members))
		g.EdgeWeights = append(g.EdgeWeights, ix.Weights[n])
	}
	g.link()
	return g
}

func (g *Graph) link() {
	g.NodeEdges = make([][]int, len(g.Weights))
	for e, members := range g.Edges {
		for _, v := range members {
			g.NodeEdges[v] = append(g.NodeEdges[v], e)
		}
	}
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.Weights) }

// TotalWeight returns the sum of node weights.
func (g *Graph) TotalWeight() int {
	total := 0
	for _, w := range g.Weights {
		total += w
	}
	return total
}

// Cut returns Σ weight of hyperedges whose nodes lie in two or more parts.
func (g *Graph) Cut(part []int) float64 {
	var cut float64
	for e, members := range g.Edges {
		p := part[members[0]]
		for _, v := range members[1:] {
			if part[v] != p {
				cut += g.EdgeWeights[e]
				break
			}
		}
	}
	return cut
}

// Connectivity returns the clique-model connection strength between v and
// every node sharing an edge with it, Σ w/(|e|-1).
func (g *Graph) Connectivity(v int) map[int]float64 {
	conn := make(map[int]float64)
	for _, e := range g.NodeEdges[v] {
		members := g.Edges[e]
		w := g.EdgeWeights[e] / float64(len(members)-1)
		for _, u := range members {
			if u != v {
				conn[u] += w
			}
		}
	}
	return conn
}

// Contract merges nodes according to mapping (fine node -> coarse node, with
// coarse nodes numbered 0..k-1). Parallel hyperedges are merged by summing
// their weights.
func (g *Graph) Contract(mapping []int, k int) *Graph {
	c := &Graph{
		Weights: make([]int, k),
		Areas:   make([]float64, k),
	}
	for v, cv := range mapping {
		c.Weights[cv] += g.Weights[v]
		c.Areas[cv] += g.Areas[v]
	}

	seen := make(map[string]int)
	var sb strings.Builder
	for e, members := range g.Edges {
		mapped := make([]int, 0, len(members))
		for _, v := range members {
			mapped = append(mapped, mapping[v])
		}
		slices.Sort(mapped)
		mapped = slices.Compact(mapped)
		if len(mapped) < 2 {
			continue
		}

		sb.Reset()
		for _, v := range mapped {
			sb.WriteString(strconv.Itoa(v))
			sb.WriteByte(',')
		}
		key := sb.String()
		if idx, ok := seen[key]; ok {
			c.EdgeWeights[idx] += g.EdgeWeights[e]
			continue
		}
		seen[key] = len(c.Edges)
		c.Edges = append(c.Edges, mapped)
		c.EdgeWeights = append(c.EdgeWeights, g.EdgeWeights[e])
	}
	c.link()
	return c
}
