// Package floorplan packs rectangular blocks into a compact outline.
//
// Two representations are annealed: normalized Polish expressions of a
// slicing tree ([Slicing]) and sequence pairs ([SequencePair]). Both decode
// into non-overlapping packings anchored at the chip origin, so annealing
// only trades outline area, net wirelength and fit inside the chip against
// each other.
package floorplan

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/model"
)

// Algorithm names a floorplanning strategy.
type Algorithm string

const (
	Slicing      Algorithm = "slicing"
	SequencePair Algorithm = "sequence-pair"
)

// Algorithms lists every floorplanning strategy.
func Algorithms() []Algorithm { return []Algorithm{Slicing, SequencePair} }

// Result is the outcome of one floorplanning run.
//
// Utilization, DeadSpace and AspectRatio are measured against the chip:
// block area over chip area, chip area minus block area, and chip width over
// chip height. Width and Height are the packed outline; the Outline* fields
// repeat the three measures on it.
type Result struct {
	Blocks             []model.Block `json:"blocks"`
	Width              float64       `json:"width"`
	Height             float64       `json:"height"`
	Utilization        float64       `json:"utilization"`
	DeadSpace          float64       `json:"dead_space"`
	AspectRatio        float64       `json:"aspect_ratio"`
	OutlineUtilization float64       `json:"outline_utilization"`
	OutlineDeadSpace   float64       `json:"outline_dead_space"`
	OutlineAspectRatio float64       `json:"outline_aspect_ratio"`
	Wirelength         float64       `json:"wirelength"`
	Runtime            time.Duration `json:"runtime"`
	Iterations         int           `json:"iterations"`
	Convergence        []float64     `json:"convergence,omitempty"`
	Success            bool          `json:"success"`
	Diagnostics        []string      `json:"diagnostics,omitempty"`
}

// Floorplan packs the cells of p as blocks.
func Floorplan(ctx context.Context, algo Algorithm, p *model.Problem, opts Options) (*Result, error) {
	start := time.Now()
	if !slices.Contains(Algorithms(), algo) {
		return nil, errs.New(errs.ErrCodeUnsupportedAlgorithm, "unsupported floorplanning algorithm %q", string(algo))
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.SetDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(p.Cells) == 0 {
		res := &Result{Blocks: []model.Block{}, Success: true, Runtime: time.Since(start)}
		res.chipMetrics(p, 0)
		return res, nil
	}

	j := newJob(ctx, p, opts)
	var rep representation
	switch algo {
	case Slicing:
		rep = newPolish(j.ws, j.hs, p.ChipWidth >= p.ChipHeight, opts.AllowRotation)
	case SequencePair:
		rep = newSequencePair(j.ws, j.hs, j.rng, opts.AllowRotation)
	}
	best := j.anneal(rep)

	res := j.result(best.pack())
	res.Runtime = time.Since(start)
	j.log.Debug("floorplanning finished",
		"algorithm", algo,
		"blocks", len(res.Blocks),
		"outline", fmt.Sprintf("%.2fx%.2f", res.Width, res.Height),
		"utilization", res.Utilization,
		"duration", res.Runtime)
	return res, nil
}

// layout is a decoded packing: lower-left corners, effective sizes and the
// outline.
type layout struct {
	xs, ys        []float64
	ws, hs        []float64
	rotated       []bool
	width, height float64
}

// representation is an annealable floorplan encoding. perturb applies one
// random move and returns its inverse.
type representation interface {
	pack() layout
	perturb(rng *rand.Rand) (undo func())
	clone() representation
}

type job struct {
	ctx    context.Context
	p      *model.Problem
	ix     *model.Index
	opts   Options
	log    *log.Logger
	rng    *rand.Rand
	ws, hs []float64
	area   float64

	iterations int
	trace      []float64
	stopped    bool
	diags      []string
}

func newJob(ctx context.Context, p *model.Problem, opts Options) *job {
	j := &job{
		ctx:  ctx,
		p:    p,
		ix:   model.NewIndex(p.Cells, p.Nets),
		opts: opts,
		log:  opts.Logger,
		rng:  rand.New(rand.NewPCG(opts.Seed, opts.Seed^0xdeadbeef)),
		ws:   make([]float64, len(p.Cells)),
		hs:   make([]float64, len(p.Cells)),
	}
	for i, c := range p.Cells {
		j.ws[i], j.hs[i] = c.Width, c.Height
		j.area += c.Area()
	}
	return j
}

func (j *job) cancelled() bool {
	if !j.stopped && j.ctx.Err() != nil {
		j.stopped = true
		j.diags = append(j.diags, fmt.Sprintf("stopped early: %v", j.ctx.Err()))
	}
	return j.stopped
}

// wirelength is the weighted HPWL of all nets over block centers.
func (j *job) wirelength(l layout) float64 {
	var total float64
	for n, members := range j.ix.NetCells {
		if len(members) < 2 {
			continue
		}
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, b := range members {
			cx, cy := l.xs[b]+l.ws[b]/2, l.ys[b]+l.hs[b]/2
			minX, maxX = min(minX, cx), max(maxX, cx)
			minY, maxY = min(minY, cy), max(maxY, cy)
		}
		total += j.ix.Weights[n] * ((maxX - minX) + (maxY - minY))
	}
	return total
}

// cost is outline area plus wirelength scaled to area units plus a penalty
// for outline area that falls outside the chip.
func (j *job) cost(l layout) float64 {
	c := l.width * l.height
	c += j.opts.WirelengthWeight * j.wirelength(l) * math.Sqrt(j.area)
	excess := l.width*l.height - math.Min(l.width, j.p.ChipWidth)*math.Min(l.height, j.p.ChipHeight)
	return c + j.opts.FitWeight*excess
}

// anneal runs Metropolis annealing over rep and returns the best encoding
// seen. The current cost after each move is recorded as convergence.
func (j *job) anneal(rep representation) representation {
	cur := j.cost(rep.pack())
	best, bestCost := rep.clone(), cur
	t := j.opts.InitialTemperature
	if t == 0 {
		t = j.initialTemperature(rep, cur)
	}

	j.trace = make([]float64, 0, j.opts.Iterations)
	for range j.opts.Iterations {
		if j.cancelled() {
			break
		}
		undo := rep.perturb(j.rng)
		next := j.cost(rep.pack())
		if d := next - cur; d <= 0 || (t > 0 && j.rng.Float64() < math.Exp(-d/t)) {
			cur = next
			if cur < bestCost {
				best, bestCost = rep.clone(), cur
			}
		} else {
			undo()
		}
		j.trace = append(j.trace, cur)
		j.iterations++
		t *= j.opts.CoolingRate
	}
	return best
}

// initialTemperature accepts an average uphill move with probability one half
// at the start. It samples moves and undoes each one.
func (j *job) initialTemperature(rep representation, base float64) float64 {
	const samples = 32
	var sum float64
	uphill := 0
	for range samples {
		undo := rep.perturb(j.rng)
		if d := j.cost(rep.pack()) - base; d > 0 {
			sum += d
			uphill++
		}
		undo()
	}
	if uphill == 0 {
		return 0.01 * j.area
	}
	return sum / float64(uphill) / math.Ln2
}

// chipMetrics fills the chip-relative measures for a total block area.
func (r *Result) chipMetrics(p *model.Problem, area float64) {
	chip := p.ChipWidth * p.ChipHeight
	r.Utilization = area / chip
	r.DeadSpace = chip - area
	r.AspectRatio = p.ChipWidth / p.ChipHeight
}

// result converts a packing into blocks and metrics.
func (j *job) result(l layout) *Result {
	res := &Result{
		Blocks:      make([]model.Block, len(j.p.Cells)),
		Width:       l.width,
		Height:      l.height,
		Wirelength:  j.wirelength(l),
		Iterations:  j.iterations,
		Convergence: j.trace,
	}
	for i, c := range j.p.Cells {
		res.Blocks[i] = model.Block{ID: c.ID, X: l.xs[i], Y: l.ys[i], Width: l.ws[i], Height: l.hs[i], Rotated: l.rotated[i]}
	}
	res.chipMetrics(j.p, j.area)
	if outline := l.width * l.height; outline > 0 {
		res.OutlineUtilization = j.area / outline
		res.OutlineDeadSpace = outline - j.area
		res.OutlineAspectRatio = l.width / l.height
	}

	fits := l.width <= j.p.ChipWidth+1e-9 && l.height <= j.p.ChipHeight+1e-9
	if !fits {
		j.diags = append(j.diags, fmt.Sprintf("outline %.2fx%.2f exceeds the chip %.2fx%.2f",
			l.width, l.height, j.p.ChipWidth, j.p.ChipHeight))
	}
	res.Success = !j.stopped && fits
	res.Diagnostics = j.diags
	return res
}
