package partition

import "math"

// maxBucketKey caps the gain key range of the bucket array. Gains finer than
// the resulting step share a bucket.
const maxBucketKey = 1 << 16

// gainBuckets is the Fiduccia-Mattheyses bucket array: one doubly linked
// list of nodes per integer gain key and a pointer to the highest bucket
// that may be non-empty. Insert and remove are O(1), so refreshing a node
// after a neighbor moves costs O(degree) for its gain plus O(1) here.
type gainBuckets struct {
	offset int
	scale  float64
	head   []int
	next   []int
	prev   []int
	bucket []int // bucket index per node, -1 when not queued
	top    int
}

// newGainBuckets sizes the array for gains in [-maxGain, maxGain]. Integer
// edge weights give exact integer keys; fractional weights are scaled to a
// thousandth.
func newGainBuckets(n int, maxGain float64, integral bool) *gainBuckets {
	scale := 1.0
	if !integral {
		scale = 1000
	}
	if maxGain*scale > maxBucketKey {
		scale = maxBucketKey / maxGain
	}
	offset := int(math.Ceil(maxGain * scale))
	b := &gainBuckets{
		offset: offset,
		scale:  scale,
		head:   make([]int, 2*offset+1),
		next:   make([]int, n),
		prev:   make([]int, n),
		bucket: make([]int, n),
		top:    -1,
	}
	for i := range b.head {
		b.head[i] = -1
	}
	for v := range b.bucket {
		b.bucket[v] = -1
	}
	return b
}

func (b *gainBuckets) index(gain float64) int {
	i := int(math.Round(gain*b.scale)) + b.offset
	return min(max(i, 0), len(b.head)-1)
}

func (b *gainBuckets) insert(v int, gain float64) {
	i := b.index(gain)
	b.bucket[v] = i
	b.prev[v] = -1
	b.next[v] = b.head[i]
	if b.head[i] >= 0 {
		b.prev[b.head[i]] = v
	}
	b.head[i] = v
	b.top = max(b.top, i)
}

func (b *gainBuckets) remove(v int) {
	i := b.bucket[v]
	if i < 0 {
		return
	}
	if b.prev[v] >= 0 {
		b.next[b.prev[v]] = b.next[v]
	} else {
		b.head[i] = b.next[v]
	}
	if b.next[v] >= 0 {
		b.prev[b.next[v]] = b.prev[v]
	}
	b.bucket[v] = -1
}

// pop removes and returns the most recently queued node of the highest
// non-empty bucket.
func (b *gainBuckets) pop() (int, bool) {
	for ; b.top >= 0; b.top-- {
		if v := b.head[b.top]; v >= 0 {
			b.remove(v)
			return v, true
		}
	}
	return -1, false
}

// gainRange returns the largest possible |gain| of a single move, the
// heaviest summed incident edge weight of any node, and whether every edge
// weight is an integer.
func (s *state) gainRange() (float64, bool) {
	integral := true
	for _, w := range s.g.EdgeWeights {
		if w != math.Trunc(w) {
			integral = false
			break
		}
	}
	var most float64
	for _, edges := range s.g.NodeEdges {
		var sum float64
		for _, e := range edges {
			sum += math.Abs(s.g.EdgeWeights[e])
		}
		most = max(most, sum)
	}
	return max(most, 1), integral
}

type undo struct{ node, from int }

// fmPass runs one Fiduccia-Mattheyses pass: every node moves at most once,
// always the unlocked feasible move of highest gain, and only the neighbors
// of a moved node have their gains refreshed. Each unlocked node sits in the
// bucket of its best feasible move. A move that became infeasible because
// part sizes changed is re-bucketed when it surfaces. The pass is rolled
// back to its best prefix. It returns the cut reduction kept.
func (s *state) fmPass() float64 {
	n := s.g.Len()
	locked := make([]bool, n)
	stamp := make([]int, n)
	target := make([]int, n)
	gains := make([]float64, n)
	maxGain, integral := s.gainRange()
	b := newGainBuckets(n, maxGain, integral)

	refresh := func(v int) {
		b.remove(v)
		if to, g, ok := s.bestMove(v); ok {
			target[v], gains[v] = to, g
			b.insert(v, g)
		}
	}
	for v := range n {
		refresh(v)
	}

	var log []undo
	var total, best float64
	keep := 0
	for step := 1; ; {
		v, ok := b.pop()
		if !ok {
			break
		}
		if !s.feasible(v, target[v]) {
			refresh(v)
			continue
		}

		log = append(log, undo{v, s.part[v]})
		s.move(v, target[v])
		locked[v] = true
		total += gains[v]
		if total > best+gainEpsilon {
			best, keep = total, len(log)
		}

		for _, edge := range s.g.NodeEdges[v] {
			for _, u := range s.g.Edges[edge] {
				if !locked[u] && stamp[u] != step {
					stamp[u] = step
					refresh(u)
				}
			}
		}
		step++
	}

	for i := len(log) - 1; i >= keep; i-- {
		s.move(log[i].node, log[i].from)
	}
	return best
}
