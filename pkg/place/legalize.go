package place

import (
	"cmp"
	"slices"
)

// legalize removes overlap by greedy row packing while preserving the
// relative order of cells. Cells are taken top to bottom and grouped into
// rows; each row is packed left to right starting from the cells' own x, and
// rows are stacked starting from their own y. Both passes are followed by a
// backward pass that pulls cells back inside the chip.
//
// Rows first follow the placement's own horizontal bands. If that needs more
// height than the chip has, rows are filled to capacity instead. If even that
// does not fit, residual overlap remains and is reported by the caller.
func (r *run) legalize(xs, ys []float64) {
	order := make([]int, len(r.cells))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if c := cmp.Compare(ys[a], ys[b]); c != 0 {
			return c
		}
		return cmp.Compare(xs[a], xs[b])
	})

	rows := r.buildRows(order, ys, true)
	if r.rowsHeight(rows) > r.h {
		rows = r.buildRows(order, ys, false)
	}

	tops := make([]float64, len(rows))
	prev := 0.0
	for k, row := range rows {
		top := ys[row[0]]
		for _, i := range row[1:] {
			top = min(top, ys[i])
		}
		tops[k] = max(top, prev)
		prev = tops[k] + r.rowHeight(row)
	}
	limit := r.h
	for k := len(rows) - 1; k >= 0; k-- {
		tops[k] = max(0, min(tops[k], limit-r.rowHeight(rows[k])))
		limit = tops[k]
	}

	for k, row := range rows {
		slices.SortStableFunc(row, func(a, b int) int { return cmp.Compare(xs[a], xs[b]) })
		right := 0.0
		for _, i := range row {
			xs[i] = max(xs[i], right)
			right = xs[i] + r.cells[i].Width
			ys[i] = tops[k]
		}
		limit := r.w
		for j := len(row) - 1; j >= 0; j-- {
			i := row[j]
			xs[i] = max(0, min(xs[i], limit-r.cells[i].Width))
			limit = xs[i]
		}
	}
}

func (r *run) buildRows(order []int, ys []float64, bands bool) [][]int {
	var rows [][]int
	var width, top, height float64
	for _, i := range order {
		c := r.cells[i]
		n := len(rows)
		if n == 0 || width+c.Width > r.w || (bands && ys[i] >= top+height) {
			rows = append(rows, []int{i})
			width, top, height = c.Width, ys[i], c.Height
			continue
		}
		rows[n-1] = append(rows[n-1], i)
		width += c.Width
		height = max(height, c.Height)
	}
	return rows
}

func (r *run) rowHeight(row []int) float64 {
	var h float64
	for _, i := range row {
		h = max(h, r.cells[i].Height)
	}
	return h
}

func (r *run) rowsHeight(rows [][]int) float64 {
	var total float64
	for _, row := range rows {
		total += r.rowHeight(row)
	}
	return total
}
