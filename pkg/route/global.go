package route

import "math"

// coarse aggregates fine grid usage into global cells of GlobalCellFactor ×
// GlobalCellFactor planar cells.
type coarse struct {
	factor     int
	cols, rows int
	use        []int
	capacity   float64
}

func newCoarse(g *Grid, factor int) *coarse {
	c := &coarse{
		factor:   factor,
		cols:     (g.Cols + factor - 1) / factor,
		rows:     (g.Rows + factor - 1) / factor,
		capacity: float64(factor * factor * g.Layers * g.Capacity),
	}
	c.use = make([]int, c.cols*c.rows)
	for id, u := range g.usage {
		v := g.node(id)
		c.use[c.index(v.row, v.col)] += u
	}
	return c
}

func (c *coarse) index(row, col int) int { return (row/c.factor)*c.cols + col/c.factor }

func (c *coarse) add(nodes []node) {
	for _, v := range nodes {
		c.use[c.index(v.row, v.col)]++
	}
}

// cost is the summed congestion ratio of the global cells a planar path
// crosses, counting each global cell once per entry.
func (c *coarse) cost(cells [][2]int) float64 {
	var total float64
	last := -1
	for _, p := range cells {
		if i := c.index(p[0], p[1]); i != last {
			total += float64(c.use[i]) / c.capacity
			last = i
		}
	}
	return total
}

// global routes every net with L- and Z-shaped patterns. Each two-pin
// connection picks the pattern crossing the least congested global cells;
// horizontal runs go on even layers and vertical runs on odd layers.
func (rt *router) global() {
	cg := newCoarse(rt.g, rt.opts.GlobalCellFactor)
	for _, n := range rt.order {
		if rt.cancelled() {
			break
		}
		rt.routes[n] = rt.patternNet(n, cg)
		rt.g.occupy(rt.routes[n].nodes, 1)
		cg.add(rt.routes[n].nodes)
		rt.iterations++
	}
	rt.convergence = append(rt.convergence, float64(rt.overflow()))
}

// patternNet decomposes a net into two-pin connections with Prim's rule on
// Manhattan distance and routes each with the cheapest pattern.
func (rt *router) patternNet(n int, cg *coarse) netRoute {
	pins := rt.pins[n]
	var out netRoute
	if len(pins) < 2 {
		return out
	}
	seen := make(map[int]bool)
	connected := []int{0}
	done := make([]bool, len(pins))
	done[0] = true
	for range len(pins) - 1 {
		from, to, best := -1, -1, math.MaxInt
		for _, a := range connected {
			for b := range pins {
				if done[b] {
					continue
				}
				if d := abs(pins[a][0]-pins[b][0]) + abs(pins[a][1]-pins[b][1]); d < best {
					from, to, best = a, b, d
				}
			}
		}
		done[to] = true
		connected = append(connected, to)

		path := rt.layered(bestPattern(pins[from], pins[to], rt.opts.GlobalCellFactor, cg))
		out.paths = append(out.paths, path)
		for _, v := range path {
			if id := rt.g.id(v); !seen[id] {
				seen[id] = true
				out.nodes = append(out.nodes, v)
			}
		}
	}
	return out
}

// bestPattern returns the corner points of the cheapest L or Z route from a
// to b. Z bends are tried every factor cells between the endpoints.
func bestPattern(a, b [2]int, factor int, cg *coarse) [][2]int {
	candidates := [][][2]int{
		{a, {a[0], b[1]}, b},
		{a, {b[0], a[1]}, b},
	}
	for col := a[1]; col != b[1]; col += sign(b[1]-a[1]) * factor {
		if abs(col-a[1]) >= abs(b[1]-a[1]) {
			break
		}
		if col != a[1] {
			candidates = append(candidates, [][2]int{a, {a[0], col}, {b[0], col}, b})
		}
	}
	for row := a[0]; row != b[0]; row += sign(b[0]-a[0]) * factor {
		if abs(row-a[0]) >= abs(b[0]-a[0]) {
			break
		}
		if row != a[0] {
			candidates = append(candidates, [][2]int{a, {row, a[1]}, {row, b[1]}, b})
		}
	}

	var best [][2]int
	bestCost := math.Inf(1)
	for _, corners := range candidates {
		if c := cg.cost(expand(corners)); c < bestCost {
			best, bestCost = corners, c
		}
	}
	return best
}

// expand lists every planar cell along a rectilinear corner sequence.
func expand(corners [][2]int) [][2]int {
	out := [][2]int{corners[0]}
	for _, to := range corners[1:] {
		cur := out[len(out)-1]
		for cur != to {
			cur[0] += sign(to[0] - cur[0])
			cur[1] += sign(to[1] - cur[1])
			out = append(out, cur)
		}
	}
	return out
}

// layered assigns each straight run of a pattern to a layer. Bends become
// vias between the two runs' layers.
func (rt *router) layered(corners [][2]int) []node {
	var path []node
	for i := 1; i < len(corners); i++ {
		from, to := corners[i-1], corners[i]
		if from == to {
			continue
		}
		l := rt.runLayer(from, to)
		cells := expand([][2]int{from, to})
		if len(path) > 0 && path[len(path)-1].layer == l {
			cells = cells[1:]
		}
		for _, c := range cells {
			path = append(path, node{l, c[0], c[1]})
		}
	}
	if len(path) == 0 {
		path = []node{{0, corners[0][0], corners[0][1]}}
	}
	return path
}

// runLayer picks the least used layer of the run's direction: even layers
// for horizontal runs, odd layers for vertical ones. A single-layer grid
// carries both.
func (rt *router) runLayer(from, to [2]int) int {
	first := 0
	if from[1] == to[1] && rt.g.Layers > 1 {
		first = 1
	}
	cells := expand([][2]int{from, to})
	best, bestUse := first, math.MaxInt
	for l := first; l < rt.g.Layers; l += 2 {
		use := 0
		for _, c := range cells {
			use += rt.g.Usage(l, c[0], c[1])
		}
		if use < bestUse {
			best, bestUse = l, use
		}
	}
	return best
}
