package place

import (
	"cmp"
	"math/rand/v2"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// individual is one candidate placement. Genes are per-cell positions.
type individual struct {
	xs, ys  []float64
	fitness float64
}

func (in individual) clone() individual {
	return individual{xs: clone(in.xs), ys: clone(in.ys), fitness: in.fitness}
}

// evolve runs the genetic strategy. Fitness is 1/(1+cost). Evaluation of a
// generation is parallel, but every fitness lands in its own slot and the
// generator is only used on the calling goroutine, so results do not depend
// on scheduling.
func evolve(r *run) placement {
	rng := newRNG(r.opts.Seed)
	size := r.opts.PopulationSize
	elite := min(r.opts.EliteCount, size)

	pop := make([]individual, size)
	for i := range pop {
		xs, ys := r.randomPositions(rng)
		pop[i] = individual{xs: xs, ys: ys}
	}
	if !r.evaluate(pop) {
		return r.bestOf(pop, 0, nil)
	}

	trace := make([]float64, 0, r.opts.Generations)
	gen := 0
	for ; gen < r.opts.Generations; gen++ {
		if r.cancelled() {
			break
		}
		slices.SortStableFunc(pop, func(a, b individual) int { return cmp.Compare(b.fitness, a.fitness) })
		trace = append(trace, pop[0].fitness)

		next := make([]individual, 0, size)
		for i := 0; i < elite; i++ {
			next = append(next, pop[i].clone())
		}
		total := 0.0
		for _, in := range pop {
			total += in.fitness
		}
		for len(next) < size {
			a := selectParent(pop, total, rng)
			b := selectParent(pop, total, rng)
			child := r.crossover(a, b, rng)
			r.mutate(child, rng)
			next = append(next, child)
		}
		pop = next
		if !r.evaluate(pop[elite:]) {
			break
		}
	}
	return r.bestOf(pop, gen, trace)
}

// evaluate fills the fitness of every individual. It reports false if the run
// was cancelled while evaluating.
func (r *run) evaluate(pop []individual) bool {
	g, ctx := errgroup.WithContext(r.ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range pop {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pop[i].fitness = 1 / (1 + r.cost(pop[i].xs, pop[i].ys))
			return nil
		})
	}
	if g.Wait() != nil {
		r.cancelled()
		return false
	}
	return true
}

func (r *run) bestOf(pop []individual, gens int, trace []float64) placement {
	best := 0
	for i := range pop {
		if pop[i].fitness > pop[best].fitness {
			best = i
		}
	}
	return placement{xs: clone(pop[best].xs), ys: clone(pop[best].ys), iterations: gens, convergence: trace}
}

// selectParent samples proportionally to fitness.
func selectParent(pop []individual, total float64, rng *rand.Rand) individual {
	if total <= 0 {
		return pop[rng.IntN(len(pop))]
	}
	pick := rng.Float64() * total
	for _, in := range pop {
		pick -= in.fitness
		if pick <= 0 {
			return in
		}
	}
	return pop[len(pop)-1]
}

// crossover takes each gene from either parent with equal probability. With
// probability 1-CrossoverRate the child is a copy of the first parent.
func (r *run) crossover(a, b individual, rng *rand.Rand) individual {
	child := individual{xs: clone(a.xs), ys: clone(a.ys)}
	if rng.Float64() >= *r.opts.CrossoverRate {
		return child
	}
	for i := range child.xs {
		if rng.IntN(2) == 1 {
			child.xs[i], child.ys[i] = b.xs[i], b.ys[i]
		}
	}
	return child
}

// mutate perturbs each gene with probability MutationRate by up to a tenth
// of the chip in each direction.
func (r *run) mutate(in individual, rng *rand.Rand) {
	for i, c := range r.cells {
		if rng.Float64() >= *r.opts.MutationRate {
			continue
		}
		in.xs[i] = max(0, min(in.xs[i]+(rng.Float64()*2-1)*0.1*r.w, r.w-c.Width))
		in.ys[i] = max(0, min(in.ys[i]+(rng.Float64()*2-1)*0.1*r.h, r.h-c.Height))
	}
}
