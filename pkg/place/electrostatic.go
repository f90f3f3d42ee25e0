package place

import (
	"math"

	"github.com/matzehuels/chipforge/pkg/model"
)

// electrostatic descends on wirelength + λ × density penalty. Cells behave
// like charges: each is pushed down the bin-utilization gradient in
// proportion to its area. λ starts small so wirelength shapes the early
// placement and grows each iteration until density dominates.
//
// With nesterov set, the wirelength term is the weighted-average smooth
// approximation of HPWL and updates use Nesterov momentum; otherwise the
// quadratic clique gradient and plain steps are used.
func electrostatic(r *run, nesterov bool) placement {
	rng := newRNG(r.opts.Seed)
	xs, ys := r.jitteredCenter(rng)
	cx, cy := r.centers(xs, ys)
	n := len(r.cells)
	adj := r.adjacency()

	gx, gy := make([]float64, n), make([]float64, n)
	dx, dy := make([]float64, n), make([]float64, n)
	prevX, prevY := clone(cx), clone(cy)
	step := r.maxStep
	lambda := 0.0
	gamma := 0.01 * (r.w + r.h)

	trace := make([]float64, 0, r.opts.Iterations)
	it := 0
	for ; it < r.opts.Iterations; it++ {
		if r.cancelled() {
			break
		}

		// Evaluation point: the Nesterov look-ahead or the current position.
		ex, ey := cx, cy
		if nesterov {
			mom := float64(it) / float64(it+3)
			ex, ey = make([]float64, n), make([]float64, n)
			for i := range n {
				ex[i] = cx[i] + mom*(cx[i]-prevX[i])
				ey[i] = cy[i] + mom*(cy[i]-prevY[i])
			}
		}

		if nesterov {
			r.weightedAverageGradient(ex, ey, gamma, gx, gy)
		} else {
			quadraticGradient(adj, ex, ey, gx, gy)
		}

		d := r.density(r.fromCenters(ex, ey))
		var wlNorm, dNorm float64
		for i, c := range r.cells {
			ddx, ddy := d.Gradient(model.Point{X: ex[i], Y: ey[i]})
			dx[i], dy[i] = c.Area()*ddx, c.Area()*ddy
			wlNorm += math.Abs(gx[i]) + math.Abs(gy[i])
			dNorm += math.Abs(dx[i]) + math.Abs(dy[i])
		}
		if lambda == 0 && dNorm > 0 {
			lambda = 0.1 * max(wlNorm, 1e-9) / dNorm
		}

		var gmax float64
		for i := range n {
			gx[i] += lambda * dx[i]
			gy[i] += lambda * dy[i]
			gmax = max(gmax, math.Hypot(gx[i], gy[i]))
		}

		copy(prevX, cx)
		copy(prevY, cy)
		if gmax > 0 {
			scale := step / gmax
			for i, c := range r.cells {
				cx[i] = model.Clamp(ex[i]-scale*gx[i], c.Width/2, r.w-c.Width/2)
				cy[i] = model.Clamp(ey[i]-scale*gy[i], c.Height/2, r.h-c.Height/2)
			}
		}

		lambda *= 1.1
		step = max(step*0.995, 0.05*r.maxStep)

		ratio := r.overflowRatio(r.fromCenters(cx, cy))
		trace = append(trace, ratio)
		if ratio <= 0.05 && it > 10 {
			it++
			break
		}
	}

	xs, ys = r.fromCenters(cx, cy)
	r.clampAll(xs, ys)
	r.legalize(xs, ys)
	return placement{xs: xs, ys: ys, iterations: it, convergence: trace}
}

// quadraticGradient is the gradient of Σ w_ij/2 (x_i - x_j)².
func quadraticGradient(adj [][]model.Neighbor, cx, cy, gx, gy []float64) {
	for i, nbs := range adj {
		var sx, sy float64
		for _, nb := range nbs {
			sx += nb.Weight * (cx[i] - cx[nb.Cell])
			sy += nb.Weight * (cy[i] - cy[nb.Cell])
		}
		gx[i], gy[i] = sx, sy
	}
}

// weightedAverageGradient accumulates the gradient of the weighted-average
// wirelength model, a smooth approximation of HPWL whose sharpness is set by
// gamma. Cell centers are given; pins add their offsets.
func (r *run) weightedAverageGradient(cx, cy []float64, gamma float64, gx, gy []float64) {
	clear(gx)
	clear(gy)
	for n, pins := range r.ix.Pins {
		if len(r.ix.NetCells[n]) < 2 {
			continue
		}
		w := r.ix.Weights[n]
		px := make([]float64, len(pins))
		py := make([]float64, len(pins))
		for k, p := range pins {
			c := r.cells[p.Cell]
			px[k] = cx[p.Cell] - c.Width/2 + p.Offset.X
			py[k] = cy[p.Cell] - c.Height/2 + p.Offset.Y
		}
		ax := waGradient(px, gamma)
		ay := waGradient(py, gamma)
		for k, p := range pins {
			gx[p.Cell] += w * ax[k]
			gy[p.Cell] += w * ay[k]
		}
	}
}

// waGradient returns ∂/∂v_k of WA+(v) − WA−(v), where
// WA±(v) = Σ v e^{±v/γ} / Σ e^{±v/γ}. Exponents are shifted by the extreme
// value for stability.
func waGradient(v []float64, gamma float64) []float64 {
	hi, lo := v[0], v[0]
	for _, x := range v {
		hi, lo = max(hi, x), min(lo, x)
	}
	var sp, spx, sn, snx float64
	ep := make([]float64, len(v))
	en := make([]float64, len(v))
	for k, x := range v {
		ep[k] = math.Exp((x - hi) / gamma)
		en[k] = math.Exp((lo - x) / gamma)
		sp += ep[k]
		spx += x * ep[k]
		sn += en[k]
		snx += x * en[k]
	}
	g := make([]float64, len(v))
	for k, x := range v {
		dp := (ep[k]*(1+x/gamma)*sp - ep[k]*spx/gamma) / (sp * sp)
		dn := (en[k]*(1-x/gamma)*sn + en[k]*snx/gamma) / (sn * sn)
		g[k] = dp - dn
	}
	return g
}
