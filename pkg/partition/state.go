package partition

import (
	"math"

	"github.com/matzehuels/chipforge/pkg/hypergraph"
)

// gainEpsilon absorbs floating point noise when comparing gains.
const gainEpsilon = 1e-9

// state is a k-way assignment of a hypergraph with incremental cut
// bookkeeping: per-edge pin counts in every part and the number of parts each
// edge spans.
type state struct {
	g      *hypergraph.Graph
	k      int
	part   []int
	size   []int   // summed node weight per part
	pins   [][]int // pins[e][p]: nodes of edge e in part p
	span   []int   // parts touched by edge e
	lo, hi int
}

// bounds returns the balance window with avg = total/k:
//
//	lo = min(floor(avg), ceil(avg·(1−tol)))
//	hi = max(ceil(avg), floor(avg·(1+tol)))
//
// The window always holds floor(avg) and ceil(avg), so a perfect split is
// feasible, and it never widens past the tolerance otherwise.
func bounds(total, k int, tol float64) (lo, hi int) {
	avg := float64(total) / float64(k)
	lo = min(int(math.Floor(avg)), int(math.Ceil(avg*(1-tol)-gainEpsilon)))
	hi = max(int(math.Ceil(avg)), int(math.Floor(avg*(1+tol)+gainEpsilon)))
	return lo, hi
}

func newState(g *hypergraph.Graph, k int, part []int, lo, hi int) *state {
	s := &state{
		g:    g,
		k:    k,
		part: part,
		size: make([]int, k),
		pins: make([][]int, len(g.Edges)),
		span: make([]int, len(g.Edges)),
		lo:   lo,
		hi:   hi,
	}
	for v, p := range part {
		s.size[p] += g.Weights[v]
	}
	for e, members := range g.Edges {
		s.pins[e] = make([]int, k)
		for _, v := range members {
			if s.pins[e][part[v]]++; s.pins[e][part[v]] == 1 {
				s.span[e]++
			}
		}
	}
	return s
}

// cut returns Σ weight of edges spanning two or more parts.
func (s *state) cut() float64 {
	var total float64
	for e, sp := range s.span {
		if sp >= 2 {
			total += s.g.EdgeWeights[e]
		}
	}
	return total
}

// gain is the cut reduction of moving v to part to.
func (s *state) gain(v, to int) float64 {
	from := s.part[v]
	var g float64
	for _, e := range s.g.NodeEdges[v] {
		sp := s.span[e]
		after := sp
		if s.pins[e][from] == 1 {
			after--
		}
		if s.pins[e][to] == 0 {
			after++
		}
		switch {
		case sp >= 2 && after < 2:
			g += s.g.EdgeWeights[e]
		case sp < 2 && after >= 2:
			g -= s.g.EdgeWeights[e]
		}
	}
	return g
}

func (s *state) move(v, to int) {
	from := s.part[v]
	if from == to {
		return
	}
	for _, e := range s.g.NodeEdges[v] {
		if s.pins[e][from]--; s.pins[e][from] == 0 {
			s.span[e]--
		}
		if s.pins[e][to]++; s.pins[e][to] == 1 {
			s.span[e]++
		}
	}
	w := s.g.Weights[v]
	s.size[from] -= w
	s.size[to] += w
	s.part[v] = to
}

// feasible reports whether moving v to part to keeps both parts inside the
// balance window, or repairs a part that is already outside it without
// breaking the other.
func (s *state) feasible(v, to int) bool {
	from := s.part[v]
	if from == to {
		return false
	}
	w := s.g.Weights[v]
	src, dst := s.size[from]-w, s.size[to]+w
	if src >= s.lo && dst <= s.hi {
		return true
	}
	if s.size[from] > s.hi && dst <= s.hi {
		return true
	}
	return s.size[to] < s.lo && src >= s.lo
}

// bestMove returns the feasible target of highest gain for v. Ties go to the
// lowest part index.
func (s *state) bestMove(v int) (to int, gain float64, ok bool) {
	to = -1
	for p := range s.k {
		if !s.feasible(v, p) {
			continue
		}
		if g := s.gain(v, p); to < 0 || g > gain+gainEpsilon {
			to, gain = p, g
		}
	}
	return to, gain, to >= 0
}

// balanced reports whether every part lies inside the balance window.
func (s *state) balanced() bool {
	for _, sz := range s.size {
		if sz < s.lo || sz > s.hi {
			return false
		}
	}
	return true
}

// violation is the total distance of all part sizes from the balance window.
func (s *state) violation() int {
	total := 0
	for _, sz := range s.size {
		total += dist(sz, s.lo, s.hi)
	}
	return total
}

// rebalance greedily applies the highest-gain move that reduces the balance
// violation until the window holds or no move helps. Projected multilevel
// assignments need it because coarse node weights are uneven.
func (s *state) rebalance() {
	for !s.balanced() {
		before := s.violation()
		bv, bto, bgain := -1, -1, 0.0
		for v, from := range s.part {
			for to := range s.k {
				if to == from {
					continue
				}
				s.move(v, to)
				better := s.violation() < before
				s.move(v, from)
				if !better {
					continue
				}
				if g := s.gain(v, to); bv < 0 || g > bgain+gainEpsilon {
					bv, bto, bgain = v, to, g
				}
			}
		}
		if bv < 0 {
			return
		}
		s.move(bv, bto)
	}
}
