// Package objective implements the cost functions shared by every placement
// strategy: half-perimeter wirelength, pairwise overlap and bin density.
//
// All functions are pure. They accept the cell slice together with a
// [model.Index] built for it, so strategies that evaluate millions of
// candidate states reuse the resolved pin references.
package objective

import (
	"math"
	"slices"

	"github.com/matzehuels/chipforge/pkg/model"
)

// Wirelength returns Σ weight × HPWL over all nets. Nets with fewer than two
// distinct placed cells contribute 0.
func Wirelength(cells []model.Cell, nets []model.Net) float64 {
	return IndexedWirelength(model.NewIndex(cells, nets), cells)
}

// IndexedWirelength is [Wirelength] with a prebuilt index.
func IndexedWirelength(ix *model.Index, cells []model.Cell) float64 {
	var total float64
	for n := range ix.Pins {
		total += NetHPWL(ix, cells, n)
	}
	return total
}

// NetHPWL returns the weighted half-perimeter of net n's pin bounding box.
func NetHPWL(ix *model.Index, cells []model.Cell, n int) float64 {
	placed := 0
	for _, ci := range ix.NetCells[n] {
		if cells[ci].Position != nil {
			placed++
		}
	}
	if placed < 2 {
		return 0
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, r := range ix.Pins[n] {
		pos := cells[r.Cell].Position
		if pos == nil {
			continue
		}
		p := r.Location(pos.X, pos.Y)
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return ix.Weights[n] * ((maxX - minX) + (maxY - minY))
}

// PositionsHPWL evaluates net n against a flat coordinate vector instead of
// cell records. xs[i], ys[i] are the top-left corner of cell i. Analytic and
// population strategies keep their state in this form.
func PositionsHPWL(ix *model.Index, xs, ys []float64, n int) float64 {
	if len(ix.NetCells[n]) < 2 {
		return 0
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, r := range ix.Pins[n] {
		px, py := xs[r.Cell]+r.Offset.X, ys[r.Cell]+r.Offset.Y
		minX, maxX = math.Min(minX, px), math.Max(maxX, px)
		minY, maxY = math.Min(minY, py), math.Max(maxY, py)
	}
	return ix.Weights[n] * ((maxX - minX) + (maxY - minY))
}

// PositionsWirelength sums [PositionsHPWL] over all nets.
func PositionsWirelength(ix *model.Index, xs, ys []float64) float64 {
	var total float64
	for n := range ix.Pins {
		total += PositionsHPWL(ix, xs, ys, n)
	}
	return total
}

// Overlap returns Σ over unordered pairs of placed cells of their intersection
// area. Cells are swept by x so only pairs whose x-extents meet are compared.
func Overlap(cells []model.Cell) float64 {
	rects := make([]model.Rect, 0, len(cells))
	for _, c := range cells {
		if c.Position != nil {
			rects = append(rects, c.Rect())
		}
	}
	return RectOverlap(rects)
}

// PositionsOverlap is [Overlap] over a flat coordinate vector.
func PositionsOverlap(cells []model.Cell, xs, ys []float64) float64 {
	rects := make([]model.Rect, len(cells))
	for i, c := range cells {
		rects[i] = model.Rect{X: xs[i], Y: ys[i], Width: c.Width, Height: c.Height}
	}
	return RectOverlap(rects)
}

// RectOverlap returns the summed pairwise intersection area of rects.
func RectOverlap(rects []model.Rect) float64 {
	order := make([]int, len(rects))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case rects[a].X < rects[b].X:
			return -1
		case rects[a].X > rects[b].X:
			return 1
		}
		return 0
	})

	var total float64
	for i, a := range order {
		ra := rects[a]
		for _, b := range order[i+1:] {
			rb := rects[b]
			if rb.X >= ra.Right() {
				break
			}
			total += ra.IntersectionArea(rb)
		}
	}
	return total
}

// CellOverlap returns the intersection area between cell i (at x, y) and every
// other cell in the coordinate vector. Annealing uses it for O(n) move deltas.
func CellOverlap(cells []model.Cell, xs, ys []float64, i int, x, y float64) float64 {
	ri := model.Rect{X: x, Y: y, Width: cells[i].Width, Height: cells[i].Height}
	var total float64
	for j := range cells {
		if j == i {
			continue
		}
		total += ri.IntersectionArea(model.Rect{X: xs[j], Y: ys[j], Width: cells[j].Width, Height: cells[j].Height})
	}
	return total
}
