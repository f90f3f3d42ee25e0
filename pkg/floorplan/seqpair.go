package floorplan

import (
	"math/rand/v2"
	"slices"
)

// sequencePair encodes a packing as two block permutations. Block a is left
// of b when a precedes b in both; a is below b when a follows b in pos and
// precedes it in neg. Every pair is related one way or the other, so the
// decoded packing never overlaps.
type sequencePair struct {
	pos, neg []int
	ws, hs   []float64
	rotated  []bool
	rotate   bool
}

func newSequencePair(ws, hs []float64, rng *rand.Rand, rotate bool) *sequencePair {
	return &sequencePair{
		pos:     rng.Perm(len(ws)),
		neg:     rng.Perm(len(ws)),
		ws:      ws,
		hs:      hs,
		rotated: make([]bool, len(ws)),
		rotate:  rotate,
	}
}

// pack computes coordinates as longest paths in the horizontal and vertical
// constraint graphs. Visiting blocks in neg order guarantees that every
// predecessor in either relation has already been placed.
func (s *sequencePair) pack() layout {
	n := len(s.ws)
	l := layout{
		xs: make([]float64, n), ys: make([]float64, n),
		ws: make([]float64, n), hs: make([]float64, n),
		rotated: slices.Clone(s.rotated),
	}
	at := make([]int, n) // index of each block in pos
	for i, b := range s.pos {
		at[b] = i
	}
	for k, b := range s.neg {
		l.ws[b], l.hs[b] = s.ws[b], s.hs[b]
		if s.rotated[b] {
			l.ws[b], l.hs[b] = s.hs[b], s.ws[b]
		}
		for _, a := range s.neg[:k] {
			if at[a] < at[b] {
				l.xs[b] = max(l.xs[b], l.xs[a]+l.ws[a])
			} else {
				l.ys[b] = max(l.ys[b], l.ys[a]+l.hs[a])
			}
		}
		l.width = max(l.width, l.xs[b]+l.ws[b])
		l.height = max(l.height, l.ys[b]+l.hs[b])
	}
	return l
}

// perturb swaps two blocks in pos, in neg or in both, or rotates a block when
// rotation is allowed.
func (s *sequencePair) perturb(rng *rand.Rand) func() {
	n := len(s.pos)
	moves := 3
	if s.rotate {
		moves = 4
	}
	if n < 2 {
		if !s.rotate {
			return func() {}
		}
		moves = 1
	}

	move := rng.IntN(moves)
	if n < 2 || move == 3 {
		b := rng.IntN(n)
		s.rotated[b] = !s.rotated[b]
		return func() { s.rotated[b] = !s.rotated[b] }
	}

	i := rng.IntN(n)
	j := (i + 1 + rng.IntN(n-1)) % n
	switch move {
	case 0:
		s.pos[i], s.pos[j] = s.pos[j], s.pos[i]
		return func() { s.pos[i], s.pos[j] = s.pos[j], s.pos[i] }
	case 1:
		s.neg[i], s.neg[j] = s.neg[j], s.neg[i]
		return func() { s.neg[i], s.neg[j] = s.neg[j], s.neg[i] }
	}
	a, b := s.pos[i], s.pos[j]
	ia, ib := slices.Index(s.neg, a), slices.Index(s.neg, b)
	s.pos[i], s.pos[j] = b, a
	s.neg[ia], s.neg[ib] = b, a
	return func() {
		s.pos[i], s.pos[j] = a, b
		s.neg[ia], s.neg[ib] = a, b
	}
}

func (s *sequencePair) clone() representation {
	c := *s
	c.pos = slices.Clone(s.pos)
	c.neg = slices.Clone(s.neg)
	c.rotated = slices.Clone(s.rotated)
	return &c
}
