package place

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/matzehuels/chipforge/pkg/model"
	"github.com/matzehuels/chipforge/pkg/objective"
)

// annealer holds the incremental state of a simulated-annealing run. Cost is
// wirelength plus OverlapWeight × overlap and is updated by deltas; only the
// nets and overlaps touched by a move are recomputed.
type annealer struct {
	r      *run
	rng    *rand.Rand
	xs, ys []float64
	cost   float64

	// valid, when set, rejects proposals before they are evaluated.
	valid func(i int, x, y float64) bool
}

func newAnnealer(r *run, rng *rand.Rand, xs, ys []float64) *annealer {
	return &annealer{r: r, rng: rng, xs: xs, ys: ys, cost: r.cost(xs, ys)}
}

// initialTemperature resolves the starting temperature. Zero means a tenth of
// the chip half-perimeter, which accepts most early uphill moves on typical
// netlists.
func (r *run) initialTemperature() float64 {
	if r.opts.InitialTemperature > 0 {
		return r.opts.InitialTemperature
	}
	return 0.1 * (r.w + r.h)
}

func anneal(r *run) placement {
	rng := newRNG(r.opts.Seed)
	xs, ys := r.randomPositions(rng)
	a := newAnnealer(r, rng, xs, ys)
	return a.run()
}

func (a *annealer) run() placement {
	r := a.r
	t0 := r.initialTemperature()
	t := t0

	bestX, bestY, best := clone(a.xs), clone(a.ys), a.cost
	trace := make([]float64, 0, r.opts.Iterations)
	it := 0
	for ; it < r.opts.Iterations; it++ {
		if r.cancelled() {
			break
		}
		a.step(t, t0)
		trace = append(trace, a.cost)
		if a.cost < best {
			best = a.cost
			copy(bestX, a.xs)
			copy(bestY, a.ys)
		}
		t *= r.opts.CoolingRate
	}
	return placement{xs: bestX, ys: bestY, iterations: it, convergence: trace}
}

// step proposes one move at temperature t and applies it under the Metropolis
// criterion.
func (a *annealer) step(t, t0 float64) {
	n := len(a.r.cells)
	if n >= 2 && a.rng.Float64() < *a.r.opts.SwapProbability {
		i := a.rng.IntN(n)
		j := a.rng.IntN(n - 1)
		if j >= i {
			j++
		}
		a.trySwap(i, j, t)
		return
	}

	i := a.rng.IntN(n)
	c := a.r.cells[i]
	// The move window shrinks with temperature but never below one cell.
	frac := t / t0
	rx := max(c.Width, frac*a.r.w/2)
	ry := max(c.Height, frac*a.r.h/2)
	x := model.Clamp(a.xs[i]+(a.rng.Float64()*2-1)*rx, 0, a.r.w-c.Width)
	y := model.Clamp(a.ys[i]+(a.rng.Float64()*2-1)*ry, 0, a.r.h-c.Height)
	a.tryMove(i, x, y, t)
}

func (a *annealer) accept(delta, t float64) bool {
	if delta <= 0 {
		return true
	}
	if t <= 0 {
		return false
	}
	return a.rng.Float64() < math.Exp(-delta/t)
}

func (a *annealer) tryMove(i int, x, y, t float64) bool {
	if a.valid != nil && !a.valid(i, x, y) {
		return false
	}
	r := a.r
	oldX, oldY := a.xs[i], a.ys[i]
	before := a.netCost(i, -1) + r.opts.OverlapWeight*objective.CellOverlap(r.cells, a.xs, a.ys, i, oldX, oldY)
	a.xs[i], a.ys[i] = x, y
	after := a.netCost(i, -1) + r.opts.OverlapWeight*objective.CellOverlap(r.cells, a.xs, a.ys, i, x, y)

	delta := after - before
	if a.accept(delta, t) {
		a.cost += delta
		return true
	}
	a.xs[i], a.ys[i] = oldX, oldY
	return false
}

// trySwap exchanges the centers of cells i and j.
func (a *annealer) trySwap(i, j int, t float64) bool {
	r := a.r
	ci, cj := r.cells[i], r.cells[j]
	xi := model.Clamp(a.xs[j]+cj.Width/2-ci.Width/2, 0, r.w-ci.Width)
	yi := model.Clamp(a.ys[j]+cj.Height/2-ci.Height/2, 0, r.h-ci.Height)
	xj := model.Clamp(a.xs[i]+ci.Width/2-cj.Width/2, 0, r.w-cj.Width)
	yj := model.Clamp(a.ys[i]+ci.Height/2-cj.Height/2, 0, r.h-cj.Height)
	if a.valid != nil && (!a.valid(i, xi, yi) || !a.valid(j, xj, yj)) {
		return false
	}

	ox := [2]float64{a.xs[i], a.xs[j]}
	oy := [2]float64{a.ys[i], a.ys[j]}
	before := a.netCost(i, j) + r.opts.OverlapWeight*a.pairOverlap(i, j)
	a.xs[i], a.ys[i], a.xs[j], a.ys[j] = xi, yi, xj, yj
	after := a.netCost(i, j) + r.opts.OverlapWeight*a.pairOverlap(i, j)

	delta := after - before
	if a.accept(delta, t) {
		a.cost += delta
		return true
	}
	a.xs[i], a.xs[j] = ox[0], ox[1]
	a.ys[i], a.ys[j] = oy[0], oy[1]
	return false
}

// netCost sums the wirelength of nets touching cell i or j (j < 0 for none),
// counting shared nets once.
func (a *annealer) netCost(i, j int) float64 {
	var total float64
	for _, n := range a.r.ix.CellNets[i] {
		total += objective.PositionsHPWL(a.r.ix, a.xs, a.ys, n)
	}
	if j < 0 {
		return total
	}
	for _, n := range a.r.ix.CellNets[j] {
		if _, shared := slices.BinarySearch(a.r.ix.CellNets[i], n); !shared {
			total += objective.PositionsHPWL(a.r.ix, a.xs, a.ys, n)
		}
	}
	return total
}

// pairOverlap is the overlap involving cell i or j, with their mutual overlap
// counted once.
func (a *annealer) pairOverlap(i, j int) float64 {
	cells := a.r.cells
	oi := objective.CellOverlap(cells, a.xs, a.ys, i, a.xs[i], a.ys[i])
	oj := objective.CellOverlap(cells, a.xs, a.ys, j, a.xs[j], a.ys[j])
	ri := model.Rect{X: a.xs[i], Y: a.ys[i], Width: cells[i].Width, Height: cells[i].Height}
	rj := model.Rect{X: a.xs[j], Y: a.ys[j], Width: cells[j].Width, Height: cells[j].Height}
	return oi + oj - ri.IntersectionArea(rj)
}
