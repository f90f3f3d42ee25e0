// Package partition splits a netlist into k balanced parts while minimizing
// the weight of nets that span more than one part.
//
// Three strategies are provided: pairwise swapping ([KernighanLin]),
// single-cell moves driven by gain buckets ([FiducciaMattheyses]) and a
// multilevel scheme that coarsens the netlist by heavy-edge matching,
// partitions the coarsest graph and refines while uncoarsening
// ([Multilevel]). Every refinement pass is rolled back to its best prefix,
// so the cut never increases from one pass to the next.
package partition

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/hypergraph"
	"github.com/matzehuels/chipforge/pkg/model"
)

// Algorithm names a partitioning strategy.
type Algorithm string

const (
	KernighanLin       Algorithm = "kernighan-lin"
	FiducciaMattheyses Algorithm = "fiduccia-mattheyses"
	Multilevel         Algorithm = "multilevel"
)

// Algorithms lists every partitioning strategy.
func Algorithms() []Algorithm { return []Algorithm{KernighanLin, FiducciaMattheyses, Multilevel} }

// Result is the outcome of one partitioning run.
type Result struct {
	Assignment  model.Assignment `json:"assignment"`
	Partitions  [][]string       `json:"partitions"`
	CutSize     float64          `json:"cut_size"`
	Sizes       []int            `json:"sizes"`
	Runtime     time.Duration    `json:"runtime"`
	Iterations  int              `json:"iterations"`
	Convergence []float64        `json:"convergence,omitempty"`
	Success     bool             `json:"success"`
	Diagnostics []string         `json:"diagnostics,omitempty"`
}

// Partition assigns every cell of p to one of opts.PartitionCount parts.
func Partition(ctx context.Context, algo Algorithm, p *model.Problem, opts Options) (*Result, error) {
	start := time.Now()
	if !slices.Contains(Algorithms(), algo) {
		return nil, errs.New(errs.ErrCodeUnsupportedAlgorithm, "unsupported partitioning algorithm %q", string(algo))
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.SetDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	k := opts.PartitionCount
	ix := model.NewIndex(p.Cells, p.Nets)
	g := hypergraph.FromIndex(ix, p.Cells)
	lo, hi := bounds(g.TotalWeight(), k, *opts.BalanceTolerance)
	j := &job{ctx: ctx, opts: opts, log: opts.Logger, rng: rand.New(rand.NewPCG(opts.Seed, opts.Seed^0xdeadbeef))}

	var s *state
	switch algo {
	case KernighanLin:
		s = newState(g, k, j.roundRobin(g.Len(), k), lo, hi)
		j.refine(s, s.klPass)
	case FiducciaMattheyses:
		s = newState(g, k, j.roundRobin(g.Len(), k), lo, hi)
		j.refine(s, s.fmPass)
	case Multilevel:
		s = j.multilevel(g, k, lo, hi)
	}

	res := &Result{
		Assignment:  make(model.Assignment, len(p.Cells)),
		CutSize:     s.cut(),
		Sizes:       slices.Clone(s.size),
		Iterations:  j.iterations,
		Convergence: j.trace,
		Diagnostics: j.diags,
	}
	for i, c := range p.Cells {
		res.Assignment[c.ID] = s.part[i]
	}
	res.Partitions = res.Assignment.Groups(p.Cells, k)
	if !s.balanced() {
		res.Diagnostics = append(res.Diagnostics,
			fmt.Sprintf("part sizes %v fall outside the balance window [%d, %d]", s.size, lo, hi))
	}
	res.Success = !j.stopped && s.balanced()
	res.Runtime = time.Since(start)

	j.log.Debug("partitioning finished",
		"algorithm", algo,
		"parts", k,
		"cut", res.CutSize,
		"passes", res.Iterations,
		"duration", res.Runtime)
	return res, nil
}

// job carries the per-run state shared by the strategies.
type job struct {
	ctx  context.Context
	opts Options
	log  *log.Logger
	rng  *rand.Rand

	iterations int
	trace      []float64
	stopped    bool
	diags      []string
}

func (j *job) cancelled() bool {
	if !j.stopped && j.ctx.Err() != nil {
		j.stopped = true
		j.diags = append(j.diags, fmt.Sprintf("stopped early: %v", j.ctx.Err()))
	}
	return j.stopped
}

// roundRobin deals nodes in a seeded random order into k parts.
func (j *job) roundRobin(n, k int) []int {
	part := make([]int, n)
	for i, v := range j.rng.Perm(n) {
		part[v] = i % k
	}
	return part
}

// refine runs passes until one keeps no gain or MaxIterations is reached. The
// cut after each pass is appended to the trace.
func (j *job) refine(s *state, pass func() float64) {
	for range j.opts.MaxIterations {
		if j.cancelled() {
			return
		}
		gain := pass()
		j.iterations++
		j.trace = append(j.trace, s.cut())
		if gain <= gainEpsilon {
			return
		}
	}
}
