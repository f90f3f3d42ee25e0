package place

import (
	"math"

	"github.com/matzehuels/chipforge/pkg/model"
)

// adjacency returns the clique-model neighbor lists of every cell.
func (r *run) adjacency() [][]model.Neighbor {
	adj := make([][]model.Neighbor, len(r.cells))
	for i := range adj {
		adj[i] = r.ix.Neighbors(i)
	}
	return adj
}

// meanDegree is the average summed connection weight per node, or 1 for a
// netlist without connections. Anchor weights are scaled by it.
func meanDegree(adj [][]model.Neighbor) float64 {
	var total float64
	for _, nbs := range adj {
		for _, nb := range nbs {
			total += nb.Weight
		}
	}
	if total == 0 {
		return 1
	}
	return total / float64(len(adj))
}

// solveCG minimizes Σ w_ij (x_i - x_j)² + Σ anchor_i (x_i - target_i)² by
// conjugate gradient on the normal equations (L + diag(anchor)) x = anchor ⊙
// target. x holds the start point and receives the solution. Every anchor
// must be positive so the system is positive definite.
func solveCG(adj [][]model.Neighbor, anchor, target, x []float64, maxIter int) {
	n := len(x)
	mul := func(v, out []float64) {
		for i := range n {
			s := anchor[i] * v[i]
			for _, nb := range adj[i] {
				s += nb.Weight * (v[i] - v[nb.Cell])
			}
			out[i] = s
		}
	}

	res := make([]float64, n)
	ap := make([]float64, n)
	mul(x, ap)
	var bnorm float64
	for i := range n {
		b := anchor[i] * target[i]
		res[i] = b - ap[i]
		bnorm += b * b
	}
	p := clone(res)
	rr := dot(res, res)
	tol := 1e-12 * max(bnorm, 1)

	for it := 0; it < maxIter && rr > tol; it++ {
		mul(p, ap)
		pap := dot(p, ap)
		if pap <= 0 {
			return
		}
		alpha := rr / pap
		for i := range n {
			x[i] += alpha * p[i]
			res[i] -= alpha * ap[i]
		}
		next := dot(res, res)
		beta := next / rr
		rr = next
		for i := range n {
			p[i] = res[i] + beta*p[i]
		}
	}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// quadratic solves the clique-model least-squares placement, then alternates
// density spreading with re-solves anchored to the spread positions, and
// legalizes the result.
func quadratic(r *run) placement {
	adj := r.adjacency()
	n := len(r.cells)
	deg := meanDegree(adj)

	// Weak anchors to a jittered center keep the system definite and break
	// the symmetry of a netlist without fixed terminals.
	tx, ty := r.centers(r.jitteredCenter(newRNG(r.opts.Seed)))
	cx, cy := clone(tx), clone(ty)
	anchor := make([]float64, n)
	for i := range anchor {
		anchor[i] = 1e-2 * deg
	}
	iters := max(100, 2*n)
	solveCG(adj, anchor, tx, cx, iters)
	solveCG(adj, anchor, ty, cy, iters)

	xs, ys := r.fromCenters(cx, cy)
	trace, k := r.spreadAnchored(adj, deg, xs, ys, iters)
	r.legalize(xs, ys)
	return placement{xs: xs, ys: ys, iterations: k, convergence: trace}
}

// spreadAnchored runs up to SpreadIterations rounds of spreading followed by
// an anchored re-solve whose pseudo-net weight grows each round. It stops
// once the overflow ratio is small. It returns the overflow trace and the
// number of rounds.
func (r *run) spreadAnchored(adj [][]model.Neighbor, deg float64, xs, ys []float64, iters int) ([]float64, int) {
	n := len(xs)
	anchor := make([]float64, n)
	trace := []float64{r.overflowRatio(xs, ys)}
	k := 0
	for ; k < r.opts.SpreadIterations && trace[len(trace)-1] > 0.05; k++ {
		if r.cancelled() {
			break
		}
		sx, sy := clone(xs), clone(ys)
		r.spread(sx, sy)
		tx, ty := r.centers(sx, sy)
		cx, cy := r.centers(xs, ys)
		for i := range anchor {
			anchor[i] = 0.2 * float64(k+1) * deg
		}
		solveCG(adj, anchor, tx, cx, iters)
		solveCG(adj, anchor, ty, cy, iters)
		nx, ny := r.fromCenters(cx, cy)
		copy(xs, nx)
		copy(ys, ny)
		r.clampAll(xs, ys)
		trace = append(trace, r.overflowRatio(xs, ys))
	}
	return trace, k
}

func (r *run) centers(xs, ys []float64) ([]float64, []float64) {
	cx, cy := make([]float64, len(xs)), make([]float64, len(ys))
	for i, c := range r.cells {
		cx[i], cy[i] = xs[i]+c.Width/2, ys[i]+c.Height/2
	}
	return cx, cy
}

func (r *run) fromCenters(cx, cy []float64) ([]float64, []float64) {
	xs, ys := make([]float64, len(cx)), make([]float64, len(cy))
	for i, c := range r.cells {
		xs[i], ys[i] = cx[i]-c.Width/2, cy[i]-c.Height/2
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			xs[i], ys[i] = r.w/2-c.Width/2, r.h/2-c.Height/2
		}
	}
	return xs, ys
}
