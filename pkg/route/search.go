package route

import (
	"container/heap"
	"math"
)

// search connects the tree to the nearest pending pin. The returned path
// starts at a tree node and ends on a pending pin cell. It reports false
// when the expansion budget runs out or no path exists.
func (rt *router) search(tree []node, inTree map[int]bool, pending map[[2]int]bool, m mode) ([]node, bool) {
	if m == modeMaze {
		return rt.lee(tree, inTree, pending)
	}
	return rt.astar(tree, inTree, pending, m)
}

// enterable reports whether a sequential search may step onto v. Full nodes
// are blocked unless they already belong to the net or hold a pin it needs.
func (rt *router) enterable(v node, inTree map[int]bool, pending map[[2]int]bool) bool {
	return rt.g.hasRoom(v) || inTree[rt.g.id(v)] || pending[[2]int{v.row, v.col}]
}

// move is one search step: the node reached and the layers it changed.
type move struct {
	to   node
	vias int
}

// moves lists the steps out of u. Planar steps stay on u's layer while it
// has room; a blocked step switches to the least congested layer with room
// at the destination. Negotiated searches may enter any node and also
// change layers in place.
func (rt *router) moves(u node, inTree map[int]bool, pending map[[2]int]bool, m mode, buf []move) []move {
	buf = buf[:0]
	for _, d := range planarSteps {
		r, c := u.row+d[0], u.col+d[1]
		if !rt.g.inside(r, c) {
			continue
		}
		v := node{u.layer, r, c}
		if m == modeNegotiated || rt.enterable(v, inTree, pending) {
			buf = append(buf, move{to: v})
			continue
		}
		if l := rt.g.leastCongestedLayer(u.layer, r, c); l >= 0 {
			buf = append(buf, move{to: node{l, r, c}, vias: abs(l - u.layer)})
		}
	}
	if m == modeNegotiated {
		for l := range rt.g.Layers {
			if l != u.layer {
				buf = append(buf, move{to: node{l, u.row, u.col}, vias: abs(l - u.layer)})
			}
		}
	}
	return buf
}

// lee is a breadth-first wavefront from every tree node at once. Each grid
// node is labeled at most once.
func (rt *router) lee(tree []node, inTree map[int]bool, pending map[[2]int]bool) ([]node, bool) {
	parent := make(map[int]int, len(tree))
	queue := make([]node, 0, len(tree))
	for _, v := range tree {
		parent[rt.g.id(v)] = -1
		queue = append(queue, v)
	}

	var buf []move
	expanded := 0
	for head := 0; head < len(queue); head++ {
		if expanded++; expanded > rt.opts.MaxExpansions {
			return nil, false
		}
		u := queue[head]
		uid := rt.g.id(u)
		buf = rt.moves(u, inTree, pending, modeMaze, buf)
		for _, mv := range buf {
			vid := rt.g.id(mv.to)
			if _, seen := parent[vid]; seen {
				continue
			}
			parent[vid] = uid
			if pending[[2]int{mv.to.row, mv.to.col}] {
				return rt.trace(parent, vid), true
			}
			queue = append(queue, mv.to)
		}
	}
	return nil, false
}

type item struct {
	f   float64
	seq int
	id  int
}

// frontier is a min-heap on f with insertion order breaking ties.
type frontier []item

func (h frontier) Len() int { return len(h) }
func (h frontier) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}
func (h frontier) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *frontier) Push(x any)   { *h = append(*h, x.(item)) }
func (h *frontier) Pop() any {
	old := *h
	it := old[len(old)-1]
	*h = old[:len(old)-1]
	return it
}

// astar is a best-first search whose heuristic is the Manhattan distance in
// grid steps to the nearest pending pin. Every step costs at least one, so
// the heuristic never overestimates.
func (rt *router) astar(tree []node, inTree map[int]bool, pending map[[2]int]bool, m mode) ([]node, bool) {
	targets := sortedTargets(pending)
	h := func(v node) float64 {
		best := math.MaxInt
		for _, t := range targets {
			best = min(best, abs(v.row-t[0])+abs(v.col-t[1]))
		}
		return float64(best)
	}

	dist := make(map[int]float64, len(tree))
	parent := make(map[int]int, len(tree))
	closed := make(map[int]bool)
	open := &frontier{}
	seq := 0
	for _, v := range tree {
		id := rt.g.id(v)
		dist[id] = 0
		parent[id] = -1
		heap.Push(open, item{f: h(v), seq: seq, id: id})
		seq++
	}

	var buf []move
	expanded := 0
	for open.Len() > 0 {
		it := heap.Pop(open).(item)
		if closed[it.id] {
			continue
		}
		closed[it.id] = true
		u := rt.g.node(it.id)
		if pending[[2]int{u.row, u.col}] {
			return rt.trace(parent, it.id), true
		}
		if expanded++; expanded > rt.opts.MaxExpansions {
			return nil, false
		}

		buf = rt.moves(u, inTree, pending, m, buf)
		for _, mv := range buf {
			vid := rt.g.id(mv.to)
			if closed[vid] {
				continue
			}
			step := rt.stepCost(mv, m)
			if inTree[vid] {
				step = 0
			}
			g := dist[it.id] + step
			if old, ok := dist[vid]; ok && g >= old {
				continue
			}
			dist[vid] = g
			parent[vid] = it.id
			heap.Push(open, item{f: g + h(mv.to), seq: seq, id: vid})
			seq++
		}
	}
	return nil, false
}

// stepCost is one grid step plus the via cost of any layer change. In
// negotiated mode the node's history and present overuse scale it.
func (rt *router) stepCost(mv move, m mode) float64 {
	planar := 1.0
	if mv.vias > 0 && m == modeNegotiated {
		planar = 0 // an in-place layer change
	}
	cost := planar + rt.opts.ViaCost*float64(mv.vias)
	if m != modeNegotiated {
		return cost
	}
	id := rt.g.id(mv.to)
	over := max(0, rt.g.usage[id]+1-rt.g.Capacity)
	return max(cost, 1) * (1 + rt.g.history[id]) * (1 + rt.present*float64(over))
}

// trace walks parent links back from id. A step that changes both layer and
// planar cell gets the via landing inserted at the cell it left.
func (rt *router) trace(parent map[int]int, id int) []node {
	var rev []node
	for id >= 0 {
		rev = append(rev, rt.g.node(id))
		id = parent[id]
	}
	path := make([]node, 0, len(rev)+1)
	for i := len(rev) - 1; i >= 0; i-- {
		v := rev[i]
		if n := len(path); n > 0 {
			p := path[n-1]
			if p.layer != v.layer && (p.row != v.row || p.col != v.col) {
				path = append(path, node{v.layer, p.row, p.col})
			}
		}
		path = append(path, v)
	}
	return path
}
