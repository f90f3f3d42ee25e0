package place

import (
	"cmp"
	"slices"

	"github.com/matzehuels/chipforge/pkg/hypergraph"
	"github.com/matzehuels/chipforge/pkg/model"
)

// multilevel clusters the netlist by heavy-edge matching until at most
// ClusterThreshold clusters remain, solves the quadratic placement of the
// clusters, and then walks back down the hierarchy. At every level cluster
// members start at their parent's position plus a small seeded offset and
// are re-solved with anchors to those positions. The finest level is spread
// and legalized like the flat quadratic strategy.
func multilevel(r *run) placement {
	rng := newRNG(r.opts.Seed)
	g := hypergraph.FromIndex(r.ix, r.cells)
	levels := hypergraph.Coarsen(g, rng, hypergraph.CoarsenOptions{
		Threshold:     r.opts.ClusterThreshold,
		MaxNodeWeight: max(2, len(r.cells)/max(r.opts.ClusterThreshold, 1)),
	})

	graphs := []*hypergraph.Graph{g}
	for _, lv := range levels {
		graphs = append(graphs, lv.Graph)
	}
	r.log.Debug("clustered netlist", "levels", len(levels), "coarsest", graphs[len(graphs)-1].Len())

	// Coarsest level: weak anchors to a jittered center.
	top := graphs[len(graphs)-1]
	adj := graphAdjacency(top)
	deg := meanDegree(adj)
	cx, cy := make([]float64, top.Len()), make([]float64, top.Len())
	for i := range cx {
		cx[i] = r.w/2 + (rng.Float64()-0.5)*0.2*r.w
		cy[i] = r.h/2 + (rng.Float64()-0.5)*0.2*r.h
	}
	solveAnchored(adj, 1e-2*deg, cx, cy)

	for l := len(levels) - 1; l >= 0; l-- {
		cx = hypergraph.Project(cx, levels[l].Map)
		cy = hypergraph.Project(cy, levels[l].Map)
		if r.cancelled() {
			continue
		}
		jitter := 0.5 * r.binSize
		for i := range cx {
			cx[i] += (rng.Float64() - 0.5) * jitter
			cy[i] += (rng.Float64() - 0.5) * jitter
		}
		adj = graphAdjacency(graphs[l])
		solveAnchored(adj, 0.5*meanDegree(adj), cx, cy)
	}

	xs, ys := r.fromCenters(cx, cy)
	r.clampAll(xs, ys)
	adj = r.adjacency()
	trace, k := r.spreadAnchored(adj, meanDegree(adj), xs, ys, max(100, 2*len(xs)))
	r.legalize(xs, ys)
	return placement{xs: xs, ys: ys, iterations: len(levels) + k, convergence: trace}
}

// solveAnchored re-solves both axes with every node anchored at its current
// position with the given weight.
func solveAnchored(adj [][]model.Neighbor, weight float64, cx, cy []float64) {
	anchor := make([]float64, len(cx))
	for i := range anchor {
		anchor[i] = weight
	}
	iters := max(100, 2*len(cx))
	solveCG(adj, anchor, clone(cx), cx, iters)
	solveCG(adj, anchor, clone(cy), cy, iters)
}

// graphAdjacency returns the clique-model neighbor lists of a hypergraph,
// ascending by node.
func graphAdjacency(g *hypergraph.Graph) [][]model.Neighbor {
	adj := make([][]model.Neighbor, g.Len())
	for v := range adj {
		for u, w := range g.Connectivity(v) {
			adj[v] = append(adj[v], model.Neighbor{Cell: u, Weight: w})
		}
		slices.SortFunc(adj[v], func(a, b model.Neighbor) int { return cmp.Compare(a.Cell, b.Cell) })
	}
	return adj
}
