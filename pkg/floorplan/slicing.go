package floorplan

import (
	"cmp"
	"math/rand/v2"
	"slices"
)

// Operators of a Polish expression. Operands are block indices (>= 0).
const (
	cutV = -1 // vertical cut: children side by side
	cutH = -2 // horizontal cut: children stacked
)

// polish is a normalized postfix expression of a slicing tree: no operator is
// directly followed by the same operator, and every prefix holds more
// operands than operators.
type polish struct {
	expr    []int
	ws, hs  []float64
	rotated []bool
	rotate  bool
}

// newPolish builds the initial tree by recursive bisection into halves of
// near-equal area, alternating cut directions by depth. The root cut is
// vertical when wide is set.
func newPolish(ws, hs []float64, wide, rotate bool) *polish {
	p := &polish{ws: ws, hs: hs, rotated: make([]bool, len(ws)), rotate: rotate}
	ids := make([]int, len(ws))
	for i := range ids {
		ids[i] = i
	}
	op := cutH
	if wide {
		op = cutV
	}
	p.bisect(ids, op)
	return p
}

func (p *polish) bisect(ids []int, op int) {
	if len(ids) == 1 {
		p.expr = append(p.expr, ids[0])
		return
	}
	byArea := slices.Clone(ids)
	slices.SortStableFunc(byArea, func(a, b int) int { return cmp.Compare(p.ws[b]*p.hs[b], p.ws[a]*p.hs[a]) })

	var left, right []int
	var la, ra float64
	for _, b := range byArea {
		// Keep both halves non-empty.
		if len(right) == 0 && len(left) == len(ids)-1 {
			right = append(right, b)
			continue
		}
		if la <= ra {
			left, la = append(left, b), la+p.ws[b]*p.hs[b]
		} else {
			right, ra = append(right, b), ra+p.ws[b]*p.hs[b]
		}
	}
	slices.Sort(left)
	slices.Sort(right)

	child := cutH
	if op == cutH {
		child = cutV
	}
	p.bisect(left, child)
	p.bisect(right, child)
	p.expr = append(p.expr, op)
}

func (p *polish) size(b int) (float64, float64) {
	if p.rotated[b] {
		return p.hs[b], p.ws[b]
	}
	return p.ws[b], p.hs[b]
}

type slice struct {
	left, right int // node indices; -1 for leaves
	block, op   int
	w, h        float64
}

// pack evaluates the tree: sizes bottom-up on a stack, positions top-down
// from the origin.
func (p *polish) pack() layout {
	n := len(p.ws)
	l := layout{
		xs: make([]float64, n), ys: make([]float64, n),
		ws: make([]float64, n), hs: make([]float64, n),
		rotated: slices.Clone(p.rotated),
	}
	nodes := make([]slice, 0, len(p.expr))
	stack := make([]int, 0, n)
	for _, t := range p.expr {
		if t >= 0 {
			w, h := p.size(t)
			l.ws[t], l.hs[t] = w, h
			nodes = append(nodes, slice{left: -1, right: -1, block: t, w: w, h: h})
			stack = append(stack, len(nodes)-1)
			continue
		}
		a, b := stack[len(stack)-2], stack[len(stack)-1]
		stack = stack[:len(stack)-2]
		s := slice{left: a, right: b, block: -1, op: t}
		if t == cutV {
			s.w, s.h = nodes[a].w+nodes[b].w, max(nodes[a].h, nodes[b].h)
		} else {
			s.w, s.h = max(nodes[a].w, nodes[b].w), nodes[a].h+nodes[b].h
		}
		nodes = append(nodes, s)
		stack = append(stack, len(nodes)-1)
	}

	root := stack[0]
	l.width, l.height = nodes[root].w, nodes[root].h
	var place func(i int, x, y float64)
	place = func(i int, x, y float64) {
		s := nodes[i]
		switch {
		case s.block >= 0:
			l.xs[s.block], l.ys[s.block] = x, y
		case s.op == cutV:
			place(s.left, x, y)
			place(s.right, x+nodes[s.left].w, y)
		default:
			place(s.left, x, y)
			place(s.right, x, y+nodes[s.left].h)
		}
	}
	place(root, 0, 0)
	return l
}

// perturb applies one of the Wong-Liu moves: M1 swaps adjacent operands, M2
// complements an operator chain, M3 swaps an adjacent operand and operator
// when the result stays normalized. A fourth move rotates a block when
// rotation is allowed.
func (p *polish) perturb(rng *rand.Rand) func() {
	moves := 3
	if p.rotate {
		moves = 4
	}
	if len(p.ws) < 2 {
		if !p.rotate {
			return func() {}
		}
		return p.rotateBlock(rng)
	}
	for range 16 {
		switch rng.IntN(moves) {
		case 0:
			return p.swapOperands(rng)
		case 1:
			return p.complementChain(rng)
		case 2:
			if undo, ok := p.swapOperandOperator(rng); ok {
				return undo
			}
		default:
			return p.rotateBlock(rng)
		}
	}
	return p.swapOperands(rng)
}

func (p *polish) swapOperands(rng *rand.Rand) func() {
	var at []int
	for i, t := range p.expr {
		if t >= 0 {
			at = append(at, i)
		}
	}
	k := rng.IntN(len(at) - 1)
	i, j := at[k], at[k+1]
	p.expr[i], p.expr[j] = p.expr[j], p.expr[i]
	return func() { p.expr[i], p.expr[j] = p.expr[j], p.expr[i] }
}

func (p *polish) complementChain(rng *rand.Rand) func() {
	var starts []int
	for i, t := range p.expr {
		if t < 0 && (i == 0 || p.expr[i-1] >= 0) {
			starts = append(starts, i)
		}
	}
	start := starts[rng.IntN(len(starts))]
	flip := func() {
		for i := start; i < len(p.expr) && p.expr[i] < 0; i++ {
			if p.expr[i] == cutV {
				p.expr[i] = cutH
			} else {
				p.expr[i] = cutV
			}
		}
	}
	flip()
	return flip
}

func (p *polish) swapOperandOperator(rng *rand.Rand) (func(), bool) {
	i := rng.IntN(len(p.expr) - 1)
	if (p.expr[i] >= 0) == (p.expr[i+1] >= 0) {
		return nil, false
	}
	p.expr[i], p.expr[i+1] = p.expr[i+1], p.expr[i]
	if !normalized(p.expr) {
		p.expr[i], p.expr[i+1] = p.expr[i+1], p.expr[i]
		return nil, false
	}
	return func() { p.expr[i], p.expr[i+1] = p.expr[i+1], p.expr[i] }, true
}

func (p *polish) rotateBlock(rng *rand.Rand) func() {
	b := rng.IntN(len(p.rotated))
	p.rotated[b] = !p.rotated[b]
	return func() { p.rotated[b] = !p.rotated[b] }
}

func (p *polish) clone() representation {
	c := *p
	c.expr = slices.Clone(p.expr)
	c.rotated = slices.Clone(p.rotated)
	return &c
}

// normalized reports whether expr is a valid normalized Polish expression.
func normalized(expr []int) bool {
	operands, operators := 0, 0
	for i, t := range expr {
		if t >= 0 {
			operands++
			continue
		}
		operators++
		if operators >= operands || (i > 0 && expr[i-1] == t) {
			return false
		}
	}
	return operands == operators+1
}
