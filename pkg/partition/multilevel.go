package partition

import (
	"cmp"
	"slices"

	"github.com/matzehuels/chipforge/pkg/hypergraph"
)

// multilevel coarsens g by heavy-edge matching, seeds the coarsest graph with
// a greedy weight-balanced assignment and refines with FM on every level
// while projecting back to g. Each level is rebalanced before refinement.
// Merged nodes are capped at a quarter of the average part weight so the
// coarse levels can still be balanced.
func (j *job) multilevel(g *hypergraph.Graph, k, lo, hi int) *state {
	levels := hypergraph.Coarsen(g, j.rng, hypergraph.CoarsenOptions{
		Threshold:     j.opts.CoarsenThreshold,
		MaxNodeWeight: max(2, g.TotalWeight()/(4*k)),
	})
	j.log.Debug("coarsened", "levels", len(levels), "nodes", g.Len())

	graph := g
	if len(levels) > 0 {
		graph = levels[len(levels)-1].Graph
	}
	s := newState(graph, k, j.greedy(graph, k), lo, hi)
	s.rebalance()
	j.refine(s, s.fmPass)

	for i := len(levels) - 1; i >= 0; i-- {
		finer := g
		if i > 0 {
			finer = levels[i-1].Graph
		}
		part := hypergraph.Project(s.part, levels[i].Map)
		s = newState(finer, k, part, lo, hi)
		s.rebalance()
		if !j.stopped {
			j.refine(s, s.fmPass)
		}
	}
	return s
}

// greedy assigns nodes, heaviest first, to the currently lightest part. Equal
// weights keep a seeded random order.
func (j *job) greedy(g *hypergraph.Graph, k int) []int {
	order := j.rng.Perm(g.Len())
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(g.Weights[b], g.Weights[a]) })

	part := make([]int, g.Len())
	size := make([]int, k)
	for _, v := range order {
		p := 0
		for q := 1; q < k; q++ {
			if size[q] < size[p] {
				p = q
			}
		}
		part[v] = p
		size[p] += g.Weights[v]
	}
	return part
}
