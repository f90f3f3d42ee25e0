package place

import (
	"math"

	"github.com/matzehuels/chipforge/pkg/model"
)

// messagePassing places cells by repeated neighbor aggregation over the
// connectivity graph. Each layer moves every cell toward the weighted mean of
// its neighbors (the message), mixed with its own position (the self loop),
// and is followed by one density-spreading pass. There are Layers layers per
// round and Iterations/10 rounds at most.
//
// With attention set, neighbor weights are a softmax over
// connectivity × proximity scores at AttentionTemperature instead of the raw
// clique weights, so strongly connected nearby cells dominate the message.
func messagePassing(r *run, attention bool) placement {
	rng := newRNG(r.opts.Seed)
	xs, ys := r.randomPositions(rng)
	cx, cy := r.centers(xs, ys)
	adj := r.adjacency()
	n := len(r.cells)
	const selfWeight = 0.5

	rounds := max(1, r.opts.Iterations/10)
	trace := make([]float64, 0, rounds)
	nx, ny := make([]float64, n), make([]float64, n)
	diag := math.Hypot(r.w, r.h)

	it := 0
	for ; it < rounds; it++ {
		if r.cancelled() {
			break
		}
		for range r.opts.Layers {
			for i := range n {
				ws := weightsOf(adj[i])
				if attention {
					ws = r.attend(adj[i], cx, cy, i, diag)
				}
				var sw, mx, my float64
				for k, nb := range adj[i] {
					sw += ws[k]
					mx += ws[k] * cx[nb.Cell]
					my += ws[k] * cy[nb.Cell]
				}
				if sw == 0 {
					nx[i], ny[i] = cx[i], cy[i]
					continue
				}
				nx[i] = selfWeight*cx[i] + (1-selfWeight)*mx/sw
				ny[i] = selfWeight*cy[i] + (1-selfWeight)*my/sw
			}
			copy(cx, nx)
			copy(cy, ny)

			xs, ys = r.fromCenters(cx, cy)
			r.clampAll(xs, ys)
			r.spread(xs, ys)
			cx, cy = r.centers(xs, ys)
		}
		trace = append(trace, r.cost(xs, ys))
	}

	r.legalize(xs, ys)
	return placement{xs: xs, ys: ys, iterations: it, convergence: trace}
}

func weightsOf(nbs []model.Neighbor) []float64 {
	ws := make([]float64, len(nbs))
	for k, nb := range nbs {
		ws[k] = nb.Weight
	}
	return ws
}

// attend returns softmax attention weights of cell i over its neighbors. The
// score of a neighbor is its connection weight minus its distance relative to
// the chip diagonal, divided by the temperature.
func (r *run) attend(nbs []model.Neighbor, cx, cy []float64, i int, diag float64) []float64 {
	ws := make([]float64, len(nbs))
	if len(nbs) == 0 {
		return ws
	}
	scores := make([]float64, len(nbs))
	hi := math.Inf(-1)
	for k, nb := range nbs {
		d := math.Hypot(cx[nb.Cell]-cx[i], cy[nb.Cell]-cy[i]) / diag
		scores[k] = (nb.Weight - d) / r.opts.AttentionTemperature
		hi = max(hi, scores[k])
	}
	for k, s := range scores {
		ws[k] = math.Exp(s - hi)
	}
	return ws
}
