package partition

import (
	"cmp"
	"slices"
)

// klCandidates is how many of the best single-move nodes per part pair are
// paired up when searching for the best swap.
const klCandidates = 8

type swap struct {
	u, v int
	gain float64
}

// klPass runs one Kernighan-Lin pass: it repeatedly swaps the unlocked pair
// from two different parts with the highest combined gain and locks both,
// then rolls back to the best prefix. It returns the cut reduction kept.
func (s *state) klPass() float64 {
	n := s.g.Len()
	locked := make([]bool, n)

	var log []swap
	var total, best float64
	keep := 0
	for {
		sw, ok := s.bestSwap(locked)
		if !ok {
			break
		}
		pu, pv := s.part[sw.u], s.part[sw.v]
		s.move(sw.u, pv)
		s.move(sw.v, pu)
		locked[sw.u], locked[sw.v] = true, true
		log = append(log, sw)
		total += sw.gain
		if total > best+gainEpsilon {
			best, keep = total, len(log)
		}
	}

	for i := len(log) - 1; i >= keep; i-- {
		u, v := log[i].u, log[i].v
		pu, pv := s.part[u], s.part[v]
		s.move(u, pv)
		s.move(v, pu)
	}
	return best
}

// bestSwap finds the highest-gain balanced swap among unlocked nodes. For
// each ordered part pair only the klCandidates nodes with the best single
// move gain toward the other part are considered; each candidate pair's gain
// is evaluated exactly, which accounts for edges the two nodes share.
func (s *state) bestSwap(locked []bool) (swap, bool) {
	type cand struct {
		node int
		gain float64
	}
	// towards[a][b] lists unlocked nodes of part a by gain of moving to b.
	towards := make([][][]cand, s.k)
	for a := range towards {
		towards[a] = make([][]cand, s.k)
	}
	for v, a := range s.part {
		if locked[v] {
			continue
		}
		for b := range s.k {
			if b != a {
				towards[a][b] = append(towards[a][b], cand{v, s.gain(v, b)})
			}
		}
	}
	for a := range towards {
		for b := range towards[a] {
			slices.SortStableFunc(towards[a][b], func(x, y cand) int { return cmp.Compare(y.gain, x.gain) })
			towards[a][b] = towards[a][b][:min(klCandidates, len(towards[a][b]))]
		}
	}

	best, found := swap{}, false
	for a := range s.k {
		for b := a + 1; b < s.k; b++ {
			for _, cu := range towards[a][b] {
				for _, cv := range towards[b][a] {
					if !s.swapBalanced(cu.node, cv.node) {
						continue
					}
					s.move(cu.node, b)
					g := cu.gain + s.gain(cv.node, a)
					s.move(cu.node, a)
					if !found || g > best.gain+gainEpsilon {
						best, found = swap{cu.node, cv.node, g}, true
					}
				}
			}
		}
	}
	return best, found
}

// swapBalanced reports whether exchanging u and v keeps both parts inside the
// balance window, or at least does not move either further outside it.
func (s *state) swapBalanced(u, v int) bool {
	a, b := s.part[u], s.part[v]
	d := s.g.Weights[v] - s.g.Weights[u]
	na, nb := s.size[a]+d, s.size[b]-d
	ok := func(before, after int) bool {
		if after >= s.lo && after <= s.hi {
			return true
		}
		return dist(after, s.lo, s.hi) <= dist(before, s.lo, s.hi)
	}
	return ok(s.size[a], na) && ok(s.size[b], nb)
}

func dist(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo - v
	case v > hi:
		return v - hi
	}
	return 0
}
