package place

import (
	"cmp"
	"slices"

	"github.com/matzehuels/chipforge/pkg/objective"
)

// spreadStep is the fraction of the way each cell moves toward its spread
// target in one spreading pass.
const spreadStep = 0.5

// density returns the bin density of a placement.
func (r *run) density(xs, ys []float64) *objective.DensityMap {
	return objective.PositionsDensity(r.cells, xs, ys, r.w, r.h, r.binSize)
}

// overflowRatio is the density overflow above the target as a fraction of the
// total cell area.
func (r *run) overflowRatio(xs, ys []float64) float64 {
	if r.totalArea == 0 {
		return 0
	}
	return r.density(xs, ys).Overflow(r.opts.TargetDensity) / r.totalArea
}

// spread relieves density overflow. For every horizontal strip of bins that
// holds an over-dense bin, the strip's cells are redistributed along x over
// the width they need at the target density, keeping their order; the same
// is then done for vertical strips along y. Cells move spreadStep of the way
// toward their targets. xs and ys are updated in place.
func (r *run) spread(xs, ys []float64) {
	r.spreadAxis(xs, ys, true)
	r.spreadAxis(xs, ys, false)
	r.clampAll(xs, ys)
}

func (r *run) spreadAxis(xs, ys []float64, horizontal bool) {
	d := r.density(xs, ys)

	strips, length := d.Rows, r.w
	if !horizontal {
		strips, length = d.Cols, r.h
	}
	members := make([][]int, strips)
	for i, c := range r.cells {
		col, row := d.BinOf(c.WithPosition(xs[i], ys[i]).Center())
		if horizontal {
			members[row] = append(members[row], i)
		} else {
			members[col] = append(members[col], i)
		}
	}

	for s, cells := range members {
		if len(cells) == 0 || !r.stripOverflows(d, s, horizontal) {
			continue
		}
		pos, size := xs, func(i int) float64 { return r.cells[i].Width }
		if !horizontal {
			pos, size = ys, func(i int) float64 { return r.cells[i].Height }
		}

		var area, extent, center float64
		for _, i := range cells {
			area += r.cells[i].Area()
			extent += size(i)
			center += pos[i] + size(i)/2
		}
		center /= float64(len(cells))

		// The span the strip's cells need at the target density.
		span := min(length, max(extent, area/(r.opts.TargetDensity*d.BinSize)))
		start := min(max(center-span/2, 0), length-span)
		scale := span / extent

		slices.SortStableFunc(cells, func(a, b int) int {
			return cmp.Compare(pos[a]+size(a)/2, pos[b]+size(b)/2)
		})
		var prefix float64
		for _, i := range cells {
			target := start + (prefix+size(i)/2)*scale - size(i)/2
			pos[i] += spreadStep * (target - pos[i])
			prefix += size(i)
		}
	}
}

func (r *run) stripOverflows(d *objective.DensityMap, s int, horizontal bool) bool {
	n := d.Cols
	if !horizontal {
		n = d.Rows
	}
	for k := 0; k < n; k++ {
		col, row := k, s
		if !horizontal {
			col, row = s, k
		}
		if d.At(col, row) > r.opts.TargetDensity {
			return true
		}
	}
	return false
}
