// Package place implements the placement engine: a family of strategies that
// assign a position to every cell of a problem so that the weighted
// half-perimeter wirelength is small and cells do not overlap.
//
// All strategies share one contract. [Place] clones the caller's cells,
// runs the selected [Algorithm] on flat coordinate vectors, clamps every cell
// into the chip, and returns a [Result] with newly built cell records and
// metrics. Randomized strategies draw from a generator seeded by
// [Options.Seed], so a fixed seed reproduces the same result bit for bit.
//
// Quality shortfalls are not errors: a run that ends with too much overlap,
// unmet constraints, or a cancelled context returns Success=false with
// diagnostics. Only malformed input and unknown algorithms are errors.
package place

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/model"
	"github.com/matzehuels/chipforge/pkg/objective"
)

// Algorithm names a placement strategy.
type Algorithm string

const (
	Annealing     Algorithm = "annealing"
	Genetic       Algorithm = "genetic"
	ForceDirected Algorithm = "force-directed"
	Quadratic     Algorithm = "quadratic"
	Electrostatic Algorithm = "electrostatic"
	Nonlinear     Algorithm = "nonlinear"
	Multilevel    Algorithm = "multilevel"
	Constrained   Algorithm = "constrained"
	GNN           Algorithm = "gnn"
	Attention     Algorithm = "attention"
	Reinforcement  Algorithm = "reinforcement"
	PolicyGradient Algorithm = "policy-gradient"
)

// Algorithms lists every placement strategy in presentation order.
func Algorithms() []Algorithm {
	return []Algorithm{
		Annealing, Genetic, ForceDirected, Quadratic, Electrostatic, Nonlinear,
		Multilevel, Constrained, GNN, Attention, Reinforcement, PolicyGradient,
	}
}

// Result is the outcome of one placement run.
type Result struct {
	Cells       []model.Cell  `json:"cells"`
	Wirelength  float64       `json:"wirelength"`
	Overlap     float64       `json:"overlap"`
	Runtime     time.Duration `json:"runtime"`
	Iterations  int           `json:"iterations"`
	Convergence []float64     `json:"convergence,omitempty"`
	Success     bool          `json:"success"`
	Diagnostics []string      `json:"diagnostics,omitempty"`
	// Model is the slot table trained by a learning strategy, nil for every
	// other strategy and for replayed models.
	Model *Model `json:"-"`
}

// Place runs the selected strategy on p. The problem is not modified.
func Place(ctx context.Context, algo Algorithm, p *model.Problem, opts Options) (*Result, error) {
	start := time.Now()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.SetDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	r := newRun(ctx, p, opts)
	if len(r.cells) == 0 {
		if !isKnown(algo) {
			return nil, unsupported(algo)
		}
		return &Result{Cells: []model.Cell{}, Success: true, Runtime: time.Since(start)}, nil
	}

	if Learns(algo) && *opts.Episodes == 0 {
		if err := opts.Model.fits(algo, len(r.cells)); err != nil {
			return nil, err
		}
		r.opts.SlotGrid = opts.Model.SlotGrid
	}

	r.log.Debug("placement started", "algorithm", algo, "cells", len(r.cells), "nets", len(p.Nets), "seed", opts.Seed)

	var out placement
	switch algo {
	case Annealing:
		out = anneal(r)
	case Genetic:
		out = evolve(r)
	case ForceDirected:
		out = forceDirected(r)
	case Quadratic:
		out = quadratic(r)
	case Electrostatic:
		out = electrostatic(r, false)
	case Nonlinear:
		out = electrostatic(r, true)
	case Multilevel:
		out = multilevel(r)
	case Constrained:
		out = constrained(r)
	case GNN:
		out = messagePassing(r, false)
	case Attention:
		out = messagePassing(r, true)
	case Reinforcement, PolicyGradient:
		out = learnSlots(r, algo)
	default:
		return nil, unsupported(algo)
	}

	if algo != Constrained {
		r.relieveOverlap(&out)
	}
	res := r.finish(out)
	res.Model = out.model
	res.Runtime = time.Since(start)

	r.log.Debug("placement finished",
		"algorithm", algo,
		"wirelength", res.Wirelength,
		"overlap", res.Overlap,
		"iterations", res.Iterations,
		"success", res.Success,
		"duration", res.Runtime)
	return res, nil
}

func isKnown(algo Algorithm) bool { return slices.Contains(Algorithms(), algo) }

func unsupported(algo Algorithm) error {
	return errs.New(errs.ErrCodeUnsupportedAlgorithm, "unsupported placement algorithm %q", string(algo))
}

// placement is the working output of a strategy: top-left coordinates per
// cell plus the trace it recorded.
type placement struct {
	xs, ys      []float64
	iterations  int
	convergence []float64
	model       *Model
}

// run is the per-invocation state shared by the strategies. It owns working
// copies of everything it touches.
type run struct {
	ctx   context.Context
	cells []model.Cell
	ix    *model.Index
	w, h  float64
	opts  Options
	log   *log.Logger

	obstacles   []model.Rect
	regions     map[int]model.Rect
	constrained bool

	totalArea float64
	maxStep   float64
	binSize   float64

	stopped bool
	diags   []string
}

func newRun(ctx context.Context, p *model.Problem, opts Options) *run {
	cells := model.CloneCells(p.Cells)
	r := &run{
		ctx:       ctx,
		cells:     cells,
		ix:        model.NewIndex(cells, p.Nets),
		w:         p.ChipWidth,
		h:         p.ChipHeight,
		opts:      opts,
		log:       opts.Logger,
		obstacles: append([]model.Rect(nil), p.Obstacles...),
		regions:   make(map[int]model.Rect, len(p.Regions)),
	}
	for i, c := range cells {
		r.totalArea += c.Area()
		if reg, ok := p.Regions[c.ID]; ok {
			r.regions[i] = reg
		}
	}

	r.maxStep = opts.MaxStep
	if r.maxStep == 0 {
		r.maxStep = 0.05 * min(r.w, r.h)
	}
	r.binSize = opts.BinSize
	if r.binSize == 0 {
		r.binSize = defaultBinSize(cells, r.w, r.h)
	}
	return r
}

// defaultBinSize picks bins of roughly four average cells, but never fewer
// than 4×4 bins nor more than 64×64 across the chip.
func defaultBinSize(cells []model.Cell, w, h float64) float64 {
	var sum float64
	for _, c := range cells {
		sum += max(c.Width, c.Height)
	}
	avg := sum / float64(max(len(cells), 1))
	return model.Clamp(2*avg, max(w, h)/64, min(w, h)/4)
}

// cancelled reports whether the run's context is done and records it once.
func (r *run) cancelled() bool {
	if !r.stopped && r.ctx.Err() != nil {
		r.stopped = true
		r.diags = append(r.diags, fmt.Sprintf("stopped early: %v", r.ctx.Err()))
	}
	return r.stopped
}

func (r *run) diagf(format string, args ...any) {
	r.diags = append(r.diags, fmt.Sprintf(format, args...))
}

// overlapLimit is the largest total overlap a successful placement may have.
func (r *run) overlapLimit() float64 {
	return *r.opts.OverlapTolerance * r.totalArea
}

// cost is the stochastic strategies' objective: wirelength plus weighted
// overlap.
func (r *run) cost(xs, ys []float64) float64 {
	return objective.PositionsWirelength(r.ix, xs, ys) + r.opts.OverlapWeight*objective.PositionsOverlap(r.cells, xs, ys)
}

// relieveOverlap legalizes a placement whose residual overlap exceeds the
// tolerance, keeping the legalized version only if it is better.
func (r *run) relieveOverlap(out *placement) {
	r.clampAll(out.xs, out.ys)
	before := objective.PositionsOverlap(r.cells, out.xs, out.ys)
	if before <= r.overlapLimit() {
		return
	}
	lx, ly := clone(out.xs), clone(out.ys)
	r.legalize(lx, ly)
	if after := objective.PositionsOverlap(r.cells, lx, ly); after < before {
		out.xs, out.ys = lx, ly
		r.diagf("legalized residual overlap %.2f -> %.2f", before, after)
	}
}

// finish clamps the placement and builds the result records.
func (r *run) finish(out placement) *Result {
	r.clampAll(out.xs, out.ys)
	cells := make([]model.Cell, len(r.cells))
	chip := model.Rect{Width: r.w, Height: r.h}
	contained := true
	for i, c := range r.cells {
		cells[i] = c.WithPosition(out.xs[i], out.ys[i])
		if !chip.Contains(cells[i].Rect()) {
			contained = false
			r.diagf("cell %q (%gx%g) does not fit inside the chip", c.ID, c.Width, c.Height)
		}
	}

	res := &Result{
		Cells:       cells,
		Wirelength:  objective.IndexedWirelength(r.ix, cells),
		Overlap:     objective.Overlap(cells),
		Iterations:  out.iterations,
		Convergence: out.convergence,
	}
	if res.Overlap > r.overlapLimit() {
		r.diagf("overlap %.2f exceeds tolerance %.2f", res.Overlap, r.overlapLimit())
	}
	res.Success = !r.stopped && contained && res.Overlap <= r.overlapLimit() && !r.violated(out.xs, out.ys)
	res.Diagnostics = r.diags
	return res
}

// clampAll moves every cell inside [0, W-w] × [0, H-h].
func (r *run) clampAll(xs, ys []float64) {
	for i, c := range r.cells {
		xs[i] = model.Clamp(xs[i], 0, r.w-c.Width)
		ys[i] = model.Clamp(ys[i], 0, r.h-c.Height)
	}
}

func clone(v []float64) []float64 { return append([]float64(nil), v...) }
