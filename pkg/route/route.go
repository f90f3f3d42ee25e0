// Package route implements the routing engine. It discretizes the chip into
// a stacked grid and connects the pins of every net with rectilinear wires.
//
// Four strategies share one contract: Lee wavefront search ([Maze]),
// heuristic search ([AStar]), congestion-aware pattern routing on a coarse
// grid ([Global]) and negotiated-congestion rip-up and reroute
// ([Negotiated]). Nets are routed one at a time in ascending bounding-box
// order; multi-pin nets grow a tree from their first pin toward the nearest
// unconnected pin.
//
// A connection that cannot be found within the search budget gets a
// degenerate L-shaped wire that ignores capacity. It is counted in
// FailedConnections and in Overflow rather than aborting the run.
package route

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/model"
	"github.com/matzehuels/chipforge/pkg/objective"
)

// Algorithm names a routing strategy.
type Algorithm string

const (
	Maze       Algorithm = "maze"
	AStar      Algorithm = "astar"
	Global     Algorithm = "global"
	Negotiated Algorithm = "negotiated"
)

// Algorithms lists every routing strategy.
func Algorithms() []Algorithm { return []Algorithm{Maze, AStar, Global, Negotiated} }

// Result is the outcome of one routing run.
type Result struct {
	Wires             []model.Wire  `json:"wires"`
	Wirelength        float64       `json:"wirelength"`
	ViaCount          int           `json:"via_count"`
	Overflow          int           `json:"overflow"`
	FailedConnections int           `json:"failed_connections"`
	Runtime           time.Duration `json:"runtime"`
	Iterations        int           `json:"iterations"`
	Convergence       []float64     `json:"convergence,omitempty"`
	Success           bool          `json:"success"`
	Diagnostics       []string      `json:"diagnostics,omitempty"`
}

// Route connects the nets of a placed problem. Every cell must have a
// position.
func Route(ctx context.Context, algo Algorithm, p *model.Problem, opts Options) (*Result, error) {
	start := time.Now()
	if !slices.Contains(Algorithms(), algo) {
		return nil, errs.New(errs.ErrCodeUnsupportedAlgorithm, "unsupported routing algorithm %q", string(algo))
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.SetDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	for _, c := range p.Cells {
		if !c.Placed() {
			return nil, errs.New(errs.ErrCodeInvalidInput, "cell %q has no position; routing needs a placed problem", c.ID)
		}
	}
	opts.resolve(p.ChipWidth, p.ChipHeight)

	rt, err := newRouter(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	rt.log.Debug("routing started", "algorithm", algo, "nets", len(p.Nets),
		"grid", fmt.Sprintf("%dx%dx%d", rt.g.Cols, rt.g.Rows, rt.g.Layers))

	switch algo {
	case Maze:
		rt.sequential(modeMaze)
	case AStar:
		rt.sequential(modeAStar)
	case Global:
		rt.global()
	case Negotiated:
		rt.negotiate()
	}

	res := rt.result()
	res.Runtime = time.Since(start)
	rt.log.Debug("routing finished",
		"algorithm", algo,
		"wirelength", res.Wirelength,
		"vias", res.ViaCount,
		"overflow", res.Overflow,
		"failed", res.FailedConnections,
		"duration", res.Runtime)
	return res, nil
}

type mode int

const (
	modeMaze mode = iota
	modeAStar
	modeNegotiated
)

// netRoute is the routed tree of one net.
type netRoute struct {
	paths  [][]node
	nodes  []node // distinct nodes of all paths, in first-visit order
	failed int
}

type router struct {
	ctx  context.Context
	g    *Grid
	opts Options
	log  *log.Logger

	nets   []model.Net
	pins   [][][2]int // distinct planar pin cells (row, col) per net
	order  []int      // routing order of nets
	routes []netRoute

	present float64 // negotiated present-congestion factor

	iterations  int
	convergence []float64
	stopped     bool
	diags       []string
}

func newRouter(ctx context.Context, p *model.Problem, opts Options) (*router, error) {
	g, err := NewGrid(p.ChipWidth, p.ChipHeight, opts.GridSize, opts.LayerCount, opts.Capacity)
	if err != nil {
		return nil, err
	}
	if opts.MaxExpansions == 0 {
		opts.MaxExpansions = 4 * g.Cols * g.Rows * g.Layers
	}

	rt := &router{
		ctx:    ctx,
		g:      g,
		opts:   opts,
		log:    opts.Logger,
		nets:   p.Nets,
		pins:   make([][][2]int, len(p.Nets)),
		routes: make([]netRoute, len(p.Nets)),
	}

	ix := model.NewIndex(p.Cells, p.Nets)
	hpwl := make([]float64, len(p.Nets))
	for n := range p.Nets {
		seen := make(map[[2]int]bool)
		for _, ref := range ix.Pins[n] {
			pos := p.Cells[ref.Cell].Position
			row, col := g.Cell(ref.Location(pos.X, pos.Y))
			if k := [2]int{row, col}; !seen[k] {
				seen[k] = true
				rt.pins[n] = append(rt.pins[n], k)
			}
		}
		hpwl[n] = objective.NetHPWL(ix, p.Cells, n)
		rt.order = append(rt.order, n)
	}
	slices.SortStableFunc(rt.order, func(a, b int) int { return cmp.Compare(hpwl[a], hpwl[b]) })
	return rt, nil
}

func (rt *router) cancelled() bool {
	if !rt.stopped && rt.ctx.Err() != nil {
		rt.stopped = true
		rt.diags = append(rt.diags, fmt.Sprintf("stopped early: %v", rt.ctx.Err()))
	}
	return rt.stopped
}

// sequential routes every net once with a grid search.
func (rt *router) sequential(m mode) {
	for _, n := range rt.order {
		if rt.cancelled() {
			break
		}
		rt.routes[n] = rt.routeNet(n, m)
		rt.g.occupy(rt.routes[n].nodes, 1)
		rt.iterations++
	}
	rt.convergence = append(rt.convergence, float64(rt.g.Overflow()))
}

// routeNet grows a tree from the net's first pin, connecting the nearest
// unrouted pin with each search.
func (rt *router) routeNet(n int, m mode) netRoute {
	pins := rt.pins[n]
	var out netRoute
	if len(pins) < 2 {
		return out
	}

	inTree := make(map[int]bool)
	var tree []node
	add := func(path []node) {
		for _, v := range path {
			if id := rt.g.id(v); !inTree[id] {
				inTree[id] = true
				tree = append(tree, v)
			}
		}
	}
	add([]node{{0, pins[0][0], pins[0][1]}})

	pending := make(map[[2]int]bool, len(pins)-1)
	for _, p := range pins[1:] {
		pending[p] = true
	}
	for len(pending) > 0 {
		path, ok := rt.search(tree, inTree, pending, m)
		if !ok {
			path = rt.fallbackPath(tree, pending)
			out.failed++
		}
		for _, v := range path {
			delete(pending, [2]int{v.row, v.col})
		}
		add(path)
		if len(path) > 1 {
			out.paths = append(out.paths, path)
		}
	}
	out.nodes = tree
	return out
}

// fallbackPath is an L-shaped path from the tree node closest to a pending
// pin, horizontal first, on the tree node's layer. It ignores capacity.
func (rt *router) fallbackPath(tree []node, pending map[[2]int]bool) []node {
	targets := sortedTargets(pending)
	best, bestT, bestD := tree[0], targets[0], -1
	for _, v := range tree {
		for _, t := range targets {
			d := abs(v.row-t[0]) + abs(v.col-t[1])
			if bestD < 0 || d < bestD {
				best, bestT, bestD = v, t, d
			}
		}
	}
	path := []node{best}
	cur := best
	for cur.col != bestT[1] {
		cur.col += sign(bestT[1] - cur.col)
		path = append(path, cur)
	}
	for cur.row != bestT[0] {
		cur.row += sign(bestT[0] - cur.row)
		path = append(path, cur)
	}
	return path
}

// sortedTargets returns pending pin cells in row-major order so iteration
// over them is deterministic.
func sortedTargets(pending map[[2]int]bool) [][2]int {
	out := make([][2]int, 0, len(pending))
	for t := range pending {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b [2]int) int {
		if c := cmp.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return cmp.Compare(a[1], b[1])
	})
	return out
}

// result converts the routed trees into wires and metrics.
func (rt *router) result() *Result {
	res := &Result{
		Wires:       []model.Wire{},
		Iterations:  rt.iterations,
		Convergence: rt.convergence,
	}
	for n, nr := range rt.routes {
		res.FailedConnections += nr.failed
		k := 0
		for _, path := range nr.paths {
			wires, vias := rt.wires(rt.nets[n].ID, path, &k)
			res.Wires = append(res.Wires, wires...)
			res.ViaCount += vias
		}
	}
	for _, w := range res.Wires {
		res.Wirelength += w.Length()
	}
	res.Overflow = rt.overflow()

	if res.FailedConnections > 0 {
		rt.diags = append(rt.diags, fmt.Sprintf("%d connections could not be routed within %d expansions", res.FailedConnections, rt.opts.MaxExpansions))
	}
	if over := rt.g.Overflow(); over > 0 {
		rt.diags = append(rt.diags, fmt.Sprintf("%d grid nodes over capacity", over))
	}
	res.Success = !rt.stopped && res.Overflow == 0
	res.Diagnostics = rt.diags
	return res
}

// wires splits a path into one wire per constant-layer run. A run that
// collapses to a single point emits no wire; its neighbors on the same layer
// are joined into one wire. Vias are the layer changes between consecutive
// emitted wires, so a detour up and straight back down costs none.
func (rt *router) wires(netID string, path []node, k *int) ([]model.Wire, int) {
	var kept [][]node
	start := 0
	for i := 1; i <= len(path); i++ {
		if i < len(path) && path[i].layer == path[i-1].layer {
			continue
		}
		run := path[start:i]
		start = i
		if len(rt.points(run)) < 2 {
			continue
		}
		if n := len(kept); n > 0 && kept[n-1][0].layer == run[0].layer {
			kept[n-1] = append(slices.Clone(kept[n-1]), run...)
			continue
		}
		kept = append(kept, run)
	}

	out := make([]model.Wire, 0, len(kept))
	vias := 0
	for i, run := range kept {
		if i > 0 {
			vias += abs(run[0].layer - kept[i-1][0].layer)
		}
		*k++
		out = append(out, model.Wire{
			ID:     fmt.Sprintf("%s-w%d", netID, *k),
			NetID:  netID,
			Points: rt.points(run),
			Layer:  run[0].layer,
			Width:  rt.opts.WireWidth,
		})
	}
	return out, vias
}

// points returns the grid centers of a run with repeats dropped and
// collinear points merged.
func (rt *router) points(run []node) []model.Point {
	var pts []model.Point
	for _, v := range run {
		p := rt.g.Center(v.row, v.col)
		if len(pts) > 0 && pts[len(pts)-1] == p {
			continue
		}
		if len(pts) >= 2 && collinear(pts[len(pts)-2], pts[len(pts)-1], p) {
			pts[len(pts)-1] = p
			continue
		}
		pts = append(pts, p)
	}
	return pts
}

func collinear(a, b, c model.Point) bool {
	return (a.X == b.X && b.X == c.X) || (a.Y == b.Y && b.Y == c.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
