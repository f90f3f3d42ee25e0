package place

import (
	"math"
	"math/rand/v2"

	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/model"
	"github.com/matzehuels/chipforge/pkg/objective"
)

// offChip parks unplaced cells far outside the chip so they never overlap.
const offChip = -1e15

// baselineRate is the step size of the running return baseline of the
// policy gradient strategy.
const baselineRate = 0.1

// Model is the learned table of a slot-grid strategy: one row of SlotGrid ×
// SlotGrid slot values per placement step. Q-learning stores action values,
// the policy gradient strategy stores softmax preferences. Both place
// greedily by taking the best free slot of each row.
type Model struct {
	Algorithm Algorithm   `json:"algorithm"`
	SlotGrid  int         `json:"slot_grid"`
	Episodes  int         `json:"episodes"`
	Table     [][]float64 `json:"table"`
}

// Learns reports whether algo trains a slot table that can be stored as a
// [Model] and replayed with zero episodes.
func Learns(algo Algorithm) bool {
	return algo == Reinforcement || algo == PolicyGradient
}

// fits checks that m can drive greedy inference of algo over cells cells.
func (m *Model) fits(algo Algorithm, cells int) error {
	if m == nil {
		return errs.Parameter("episodes", "zero episodes replays a trained %s model, and none was given", algo)
	}
	if m.Algorithm != algo {
		return errs.Parameter("model", "was trained by %s, not %s", m.Algorithm, algo)
	}
	if m.SlotGrid <= 0 {
		return errs.Parameter("model", "slot grid must be positive, got %d", m.SlotGrid)
	}
	if len(m.Table) != cells {
		return errs.Parameter("model", "has %d placement steps, the netlist has %d cells", len(m.Table), cells)
	}
	slots := m.SlotGrid * m.SlotGrid
	for t, row := range m.Table {
		if len(row) != slots {
			return errs.Parameter("model", "step %d has %d slots, want %d", t, len(row), slots)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errs.Parameter("model", "step %d holds a non-finite value", t)
			}
		}
	}
	return nil
}

func (r *run) newTable() [][]float64 {
	g := r.opts.SlotGrid
	table := make([][]float64, len(r.cells))
	for t := range table {
		table[t] = make([]float64, g*g)
	}
	return table
}

// learnSlots trains the slot table of algo, or replays Options.Model when
// Episodes is zero, and ends with a greedy rollout of the table. Cells are
// placed one per step in input order; the state is the step, the action is
// one of SlotGrid × SlotGrid slots. Occupied slots are masked out while free
// slots remain. The reward of a step is minus the wirelength it adds plus
// the weighted overlap it creates, normalized by the chip half-perimeter.
// Episode returns are recorded as convergence.
func learnSlots(r *run, algo Algorithm) placement {
	rng := newRNG(r.opts.Seed)
	if *r.opts.Episodes == 0 {
		m := r.opts.Model
		r.log.Debug("replaying slot model", "algorithm", algo, "trained_episodes", m.Episodes, "slot_grid", m.SlotGrid)
		e := r.qEpisode(m.Table, rng, 0, false)
		return placement{xs: e.xs, ys: e.ys}
	}

	table := r.newTable()
	var trace []float64
	var ep int
	if algo == PolicyGradient {
		trace, ep = r.reinforce(table, rng)
	} else {
		trace, ep = r.qlearn(table, rng)
	}
	e := r.qEpisode(table, rng, 0, false)
	return placement{
		xs: e.xs, ys: e.ys,
		iterations:  ep,
		convergence: trace,
		model:       &Model{Algorithm: algo, SlotGrid: r.opts.SlotGrid, Episodes: ep, Table: table},
	}
}

// qlearn is tabular Q-learning with an ε-greedy behavior policy whose ε
// decays linearly to zero over the episodes.
func (r *run) qlearn(q [][]float64, rng *rand.Rand) ([]float64, int) {
	episodes := *r.opts.Episodes
	trace := make([]float64, 0, episodes)
	ep := 0
	for ; ep < episodes; ep++ {
		if r.cancelled() {
			break
		}
		eps := *r.opts.Epsilon * (1 - float64(ep)/float64(episodes))
		trace = append(trace, r.qEpisode(q, rng, eps, true).ret)
	}
	return trace, ep
}

// reinforce is Monte Carlo policy gradient (REINFORCE) over a softmax of
// per-step slot preferences. A running mean of each step's return serves as
// baseline. Exploration comes from sampling the policy, so Epsilon is not
// used.
func (r *run) reinforce(theta [][]float64, rng *rand.Rand) ([]float64, int) {
	n := len(r.cells)
	episodes := *r.opts.Episodes
	trace := make([]float64, 0, episodes)
	baseline := make([]float64, n)
	returns := make([]float64, n)
	ep := 0
	for ; ep < episodes; ep++ {
		if r.cancelled() {
			break
		}
		e, actions, rewards := r.pgEpisode(theta, rng)
		trace = append(trace, e.ret)

		g := 0.0
		for t := n - 1; t >= 0; t-- {
			g = rewards[t] + r.opts.Discount*g
			returns[t] = g
		}
		occupied := make([]bool, len(theta[0]))
		for t := range n {
			adv := returns[t] - baseline[t]
			baseline[t] += baselineRate * (returns[t] - baseline[t])
			probs := softmax(theta[t], occupied, e.mask)
			for a, p := range probs {
				grad := -p
				if a == actions[t] {
					grad++
				}
				theta[t][a] += r.opts.LearningRate * adv * grad
			}
			occupied[actions[t]] = true
		}
	}
	return trace, ep
}

// slotEpisode is one sequential placement on the slot grid.
type slotEpisode struct {
	r        *run
	xs, ys   []float64
	placed   []bool
	occupied []bool
	mask     bool
	ret      float64
}

func (r *run) newSlotEpisode() *slotEpisode {
	n := len(r.cells)
	slots := r.opts.SlotGrid * r.opts.SlotGrid
	e := &slotEpisode{
		r:        r,
		xs:       make([]float64, n),
		ys:       make([]float64, n),
		placed:   make([]bool, n),
		occupied: make([]bool, slots),
		mask:     n <= slots,
	}
	for i := range e.xs {
		e.xs[i], e.ys[i] = offChip, offChip
	}
	return e
}

// step puts cell t into slot a and returns the step reward.
func (e *slotEpisode) step(t, a int) float64 {
	r := e.r
	before := r.partialWirelength(t, e.xs, e.ys, e.placed)
	e.xs[t], e.ys[t] = r.slotPosition(t, a)
	e.placed[t] = true
	e.occupied[a] = true
	after := r.partialWirelength(t, e.xs, e.ys, e.placed)
	overlap := objective.CellOverlap(r.cells, e.xs, e.ys, t, e.xs[t], e.ys[t])
	reward := -((after - before) + r.opts.OverlapWeight*overlap) / (r.w + r.h)
	e.ret += reward
	return reward
}

// qEpisode plays one episode ε-greedily over q and, when learn is set,
// applies the Q update after each step. With eps zero it is the greedy
// rollout shared by both learning strategies.
func (r *run) qEpisode(q [][]float64, rng *rand.Rand, eps float64, learn bool) *slotEpisode {
	e := r.newSlotEpisode()
	n := len(r.cells)
	for t := range n {
		a := chooseSlot(q[t], e.occupied, e.mask, rng, eps)
		reward := e.step(t, a)
		if learn {
			future := 0.0
			if t+1 < n {
				future = bestValue(q[t+1], e.occupied, e.mask)
			}
			q[t][a] += r.opts.LearningRate * (reward + r.opts.Discount*future - q[t][a])
		}
	}
	return e
}

// pgEpisode samples one episode from the softmax policy over theta.
func (r *run) pgEpisode(theta [][]float64, rng *rand.Rand) (*slotEpisode, []int, []float64) {
	e := r.newSlotEpisode()
	n := len(r.cells)
	actions := make([]int, n)
	rewards := make([]float64, n)
	for t := range n {
		actions[t] = sample(softmax(theta[t], e.occupied, e.mask), rng)
		rewards[t] = e.step(t, actions[t])
	}
	return e, actions, rewards
}

// softmax returns the policy over the available slots; masked slots get
// probability zero.
func softmax(prefs []float64, occupied []bool, mask bool) []float64 {
	probs := make([]float64, len(prefs))
	top := math.Inf(-1)
	for a, v := range prefs {
		if !mask || !occupied[a] {
			top = max(top, v)
		}
	}
	var sum float64
	for a, v := range prefs {
		if mask && occupied[a] {
			continue
		}
		probs[a] = math.Exp(v - top)
		sum += probs[a]
	}
	for a := range probs {
		probs[a] /= sum
	}
	return probs
}

// sample draws an index from probs. Rounding leftovers go to the last
// slot with non-zero probability.
func sample(probs []float64, rng *rand.Rand) int {
	u := rng.Float64()
	last := 0
	for a, p := range probs {
		if p == 0 {
			continue
		}
		last = a
		if u < p {
			return a
		}
		u -= p
	}
	return last
}

// chooseSlot is ε-greedy over the available slots. Greedy ties go to the
// lowest slot index.
func chooseSlot(values []float64, occupied []bool, mask bool, rng *rand.Rand, eps float64) int {
	if eps > 0 && rng.Float64() < eps {
		var free []int
		for a := range values {
			if !mask || !occupied[a] {
				free = append(free, a)
			}
		}
		return free[rng.IntN(len(free))]
	}
	best, bestV := -1, math.Inf(-1)
	for a, v := range values {
		if mask && occupied[a] {
			continue
		}
		if v > bestV {
			best, bestV = a, v
		}
	}
	return best
}

func bestValue(values []float64, occupied []bool, mask bool) float64 {
	best := math.Inf(-1)
	for a, v := range values {
		if !mask || !occupied[a] {
			best = max(best, v)
		}
	}
	if math.IsInf(best, -1) {
		return 0
	}
	return best
}

// slotPosition returns the top-left corner of slot a for cell i, clamped so
// the cell stays on the chip.
func (r *run) slotPosition(i, a int) (float64, float64) {
	g := r.opts.SlotGrid
	c := r.cells[i]
	x := float64(a%g) * r.w / float64(g)
	y := float64(a/g) * r.h / float64(g)
	return model.Clamp(x, 0, r.w-c.Width), model.Clamp(y, 0, r.h-c.Height)
}

// partialWirelength sums the HPWL of cell i's nets over placed cells only.
func (r *run) partialWirelength(i int, xs, ys []float64, placed []bool) float64 {
	var total float64
	for _, n := range r.ix.CellNets[i] {
		count := 0
		for _, ci := range r.ix.NetCells[n] {
			if placed[ci] {
				count++
			}
		}
		if count < 2 {
			continue
		}
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, p := range r.ix.Pins[n] {
			if !placed[p.Cell] {
				continue
			}
			loc := p.Location(xs[p.Cell], ys[p.Cell])
			minX, maxX = min(minX, loc.X), max(maxX, loc.X)
			minY, maxY = min(minY, loc.Y), max(maxY, loc.Y)
		}
		total += r.ix.Weights[n] * ((maxX - minX) + (maxY - minY))
	}
	return total
}
