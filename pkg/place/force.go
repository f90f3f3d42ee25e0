package place

import (
	"math"

	"github.com/matzehuels/chipforge/pkg/objective"
)

// forceDirected treats cells as point masses at their centers. Nets pull
// connected cells together with springs of stiffness SpringConstant × clique
// weight; nearby cells push apart with an inverse-square force scaled by
// their sizes. Velocities are damped and every displacement is clamped to
// MaxStep so the integration cannot diverge.
func forceDirected(r *run) placement {
	rng := newRNG(r.opts.Seed)
	xs, ys := r.randomPositions(rng)
	n := len(r.cells)

	cx, cy := make([]float64, n), make([]float64, n)
	size := make([]float64, n)
	for i, c := range r.cells {
		cx[i], cy[i] = xs[i]+c.Width/2, ys[i]+c.Height/2
		size[i] = math.Sqrt(c.Area())
	}
	adj := r.adjacency()

	vx, vy := make([]float64, n), make([]float64, n)
	fx, fy := make([]float64, n), make([]float64, n)
	trace := make([]float64, 0, r.opts.Iterations)
	dt := r.opts.TimeStep

	it := 0
	for ; it < r.opts.Iterations; it++ {
		if r.cancelled() {
			break
		}
		clear(fx)
		clear(fy)
		for i := range n {
			for _, nb := range adj[i] {
				k := r.opts.SpringConstant * nb.Weight
				fx[i] += k * (cx[nb.Cell] - cx[i])
				fy[i] += k * (cy[nb.Cell] - cy[i])
			}
		}
		for i := range n {
			for j := i + 1; j < n; j++ {
				r.repel(i, j, cx, cy, size, fx, fy)
			}
		}

		var moved float64
		for i, c := range r.cells {
			vx[i] = r.opts.Damping * (vx[i] + fx[i]*dt)
			vy[i] = r.opts.Damping * (vy[i] + fy[i]*dt)
			dx, dy := vx[i]*dt, vy[i]*dt
			if d := math.Hypot(dx, dy); d > r.maxStep {
				dx, dy = dx*r.maxStep/d, dy*r.maxStep/d
				vx[i], vy[i] = dx/dt, dy/dt
			}
			cx[i] = max(c.Width/2, min(cx[i]+dx, r.w-c.Width/2))
			cy[i] = max(c.Height/2, min(cy[i]+dy, r.h-c.Height/2))
			moved += math.Abs(dx) + math.Abs(dy)
		}

		for i, c := range r.cells {
			xs[i], ys[i] = cx[i]-c.Width/2, cy[i]-c.Height/2
		}
		trace = append(trace, objective.PositionsWirelength(r.ix, xs, ys))
		if moved < 1e-6*float64(n) {
			it++
			break
		}
	}
	return placement{xs: xs, ys: ys, iterations: it, convergence: trace}
}

// repel adds the repulsive force between cells i and j. Only pairs closer
// than three times their mean size interact. Coincident centers are pushed
// apart along a direction derived from their indices.
func (r *run) repel(i, j int, cx, cy, size, fx, fy []float64) {
	reach := 1.5 * (size[i] + size[j])
	dx, dy := cx[i]-cx[j], cy[i]-cy[j]
	d := math.Hypot(dx, dy)
	if d >= reach {
		return
	}
	if d < 1e-9 {
		angle := float64(i*31+j*17) * 0.618
		dx, dy, d = math.Cos(angle), math.Sin(angle), 1
	}
	mag := r.opts.RepulsionConstant * (size[i] + size[j]) / 2 / max(d*d, 1)
	ux, uy := dx/d, dy/d
	fx[i] += mag * ux
	fy[i] += mag * uy
	fx[j] -= mag * ux
	fy[j] -= mag * uy
}
