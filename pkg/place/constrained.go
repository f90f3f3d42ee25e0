package place

import (
	"math/rand/v2"

	"github.com/matzehuels/chipforge/pkg/model"
)

// constrained is annealing with rectangular obstacles and per-cell regions.
// A proposal that overlaps an obstacle or leaves the cell's region is drawn
// again, up to MaxRetries times; after that the cell is offered the first
// valid position of a deterministic raster scan instead.
func constrained(r *run) placement {
	r.constrained = true
	rng := newRNG(r.opts.Seed)

	xs, ys := make([]float64, len(r.cells)), make([]float64, len(r.cells))
	fallbacks := 0
	for i := range r.cells {
		x, y, ok := r.proposeValid(i, rng, xs, ys, nil)
		if !ok {
			fallbacks++
			if fx, fy, found := r.fallbackPosition(i); found {
				x, y = fx, fy
			}
		}
		xs[i], ys[i] = x, y
	}

	a := newAnnealer(r, rng, xs, ys)
	a.valid = r.valid
	t0 := r.initialTemperature()
	t := t0
	bestX, bestY, best := clone(xs), clone(ys), a.cost
	trace := make([]float64, 0, r.opts.Iterations)

	it := 0
	for ; it < r.opts.Iterations; it++ {
		if r.cancelled() {
			break
		}
		n := len(r.cells)
		if n >= 2 && rng.Float64() < *r.opts.SwapProbability {
			i := rng.IntN(n)
			j := rng.IntN(n - 1)
			if j >= i {
				j++
			}
			a.trySwap(i, j, t)
		} else {
			i := rng.IntN(n)
			window := t / t0
			x, y, ok := r.proposeValid(i, rng, a.xs, a.ys, &window)
			if !ok {
				fallbacks++
				x, y, ok = r.fallbackPosition(i)
			}
			if ok {
				a.tryMove(i, x, y, t)
			}
		}

		trace = append(trace, a.cost)
		if a.cost < best && r.allValid(a.xs, a.ys) {
			best = a.cost
			copy(bestX, a.xs)
			copy(bestY, a.ys)
		}
		t *= r.opts.CoolingRate
	}
	if fallbacks > 0 {
		r.diagf("%d proposals exhausted %d retries and used the fallback scan", fallbacks, r.opts.MaxRetries)
	}
	return placement{xs: bestX, ys: bestY, iterations: it, convergence: trace}
}

// bounds returns the rectangle cell i must stay inside: its region clipped to
// the chip, or the chip.
func (r *run) bounds(i int) model.Rect {
	chip := model.Rect{Width: r.w, Height: r.h}
	reg, ok := r.regions[i]
	if !ok {
		return chip
	}
	x0, y0 := max(reg.X, 0), max(reg.Y, 0)
	x1, y1 := min(reg.Right(), r.w), min(reg.Bottom(), r.h)
	return model.Rect{X: x0, Y: y0, Width: max(0, x1-x0), Height: max(0, y1-y0)}
}

// valid reports whether cell i at (x, y) lies in its bounds and clears every
// obstacle.
func (r *run) valid(i int, x, y float64) bool {
	c := r.cells[i]
	rect := model.Rect{X: x, Y: y, Width: c.Width, Height: c.Height}
	if !r.bounds(i).Contains(rect) {
		return false
	}
	for _, o := range r.obstacles {
		if rect.Overlaps(o) {
			return false
		}
	}
	return true
}

func (r *run) allValid(xs, ys []float64) bool {
	for i := range r.cells {
		if !r.valid(i, xs[i], ys[i]) {
			return false
		}
	}
	return true
}

// proposeValid draws up to MaxRetries positions for cell i inside its bounds.
// With window nil the draw is uniform over the bounds; otherwise it is a
// move around the current position scaled by *window in [0, 1].
func (r *run) proposeValid(i int, rng *rand.Rand, xs, ys []float64, window *float64) (float64, float64, bool) {
	c := r.cells[i]
	b := r.bounds(i)
	for range r.opts.MaxRetries {
		var x, y float64
		if window == nil {
			x = b.X + rng.Float64()*max(0, b.Width-c.Width)
			y = b.Y + rng.Float64()*max(0, b.Height-c.Height)
		} else {
			rx := max(c.Width, *window*b.Width/2)
			ry := max(c.Height, *window*b.Height/2)
			x = model.Clamp(xs[i]+(rng.Float64()*2-1)*rx, b.X, b.Right()-c.Width)
			y = model.Clamp(ys[i]+(rng.Float64()*2-1)*ry, b.Y, b.Bottom()-c.Height)
		}
		if r.valid(i, x, y) {
			return x, y, true
		}
	}
	return 0, 0, false
}

// fallbackPosition scans cell i's bounds row by row in steps of half the
// cell's smaller side and returns the first valid position.
func (r *run) fallbackPosition(i int) (float64, float64, bool) {
	c := r.cells[i]
	b := r.bounds(i)
	step := max(min(c.Width, c.Height)/2, max(b.Width, b.Height)/256)
	for y := b.Y; y+c.Height <= b.Bottom()+1e-9; y += step {
		for x := b.X; x+c.Width <= b.Right()+1e-9; x += step {
			if r.valid(i, x, y) {
				return x, y, true
			}
		}
	}
	return model.Clamp(b.X, 0, r.w-c.Width), model.Clamp(b.Y, 0, r.h-c.Height), false
}

// violated reports, for constrained runs, whether any cell breaks its
// region or overlaps an obstacle, recording a diagnostic per offender.
func (r *run) violated(xs, ys []float64) bool {
	if !r.constrained {
		return false
	}
	bad := false
	for i, c := range r.cells {
		if !r.valid(i, xs[i], ys[i]) {
			bad = true
			r.diagf("cell %q violates its region or an obstacle", c.ID)
		}
	}
	return bad
}
