package objective

import (
	"math"

	"github.com/matzehuels/chipforge/pkg/model"
)

// DensityMap holds per-bin utilization: occupied cell area divided by bin area.
// Bins on the right and bottom edges may be smaller than BinSize; their area
// is clipped to the chip.
type DensityMap struct {
	Cols, Rows int
	BinSize    float64
	Width      float64
	Height     float64

	used []float64 // occupied area per bin, row-major
	area []float64 // bin area per bin, row-major
}

// Density computes the density map of the placed cells.
func Density(cells []model.Cell, chipWidth, chipHeight, binSize float64) *DensityMap {
	xs := make([]float64, len(cells))
	ys := make([]float64, len(cells))
	placed := make([]bool, len(cells))
	for i, c := range cells {
		if c.Position != nil {
			xs[i], ys[i], placed[i] = c.Position.X, c.Position.Y, true
		}
	}
	return buildDensity(cells, xs, ys, placed, chipWidth, chipHeight, binSize)
}

// PositionsDensity computes the density map of a flat coordinate vector.
func PositionsDensity(cells []model.Cell, xs, ys []float64, chipWidth, chipHeight, binSize float64) *DensityMap {
	return buildDensity(cells, xs, ys, nil, chipWidth, chipHeight, binSize)
}

func buildDensity(cells []model.Cell, xs, ys []float64, placed []bool, w, h, binSize float64) *DensityMap {
	if binSize <= 0 {
		binSize = math.Max(w, h)
	}
	cols := max(1, int(math.Ceil(w/binSize)))
	rows := max(1, int(math.Ceil(h/binSize)))
	d := &DensityMap{
		Cols: cols, Rows: rows, BinSize: binSize, Width: w, Height: h,
		used: make([]float64, cols*rows),
		area: make([]float64, cols*rows),
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			d.area[r*cols+c] = d.binRect(c, r).Area()
		}
	}

	for i, cell := range cells {
		if placed != nil && !placed[i] {
			continue
		}
		rect := model.Rect{X: xs[i], Y: ys[i], Width: cell.Width, Height: cell.Height}
		c0, r0 := d.binOf(rect.X, rect.Y)
		c1, r1 := d.binOf(rect.Right(), rect.Bottom())
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				d.used[r*cols+c] += rect.IntersectionArea(d.binRect(c, r))
			}
		}
	}
	return d
}

func (d *DensityMap) binRect(c, r int) model.Rect {
	x, y := float64(c)*d.BinSize, float64(r)*d.BinSize
	return model.Rect{
		X: x, Y: y,
		Width:  math.Min(d.BinSize, d.Width-x),
		Height: math.Min(d.BinSize, d.Height-y),
	}
}

func (d *DensityMap) binOf(x, y float64) (int, int) {
	c := int(math.Floor(x / d.BinSize))
	r := int(math.Floor(y / d.BinSize))
	return min(max(c, 0), d.Cols-1), min(max(r, 0), d.Rows-1)
}

// BinOf returns the column and row of the bin containing point p.
func (d *DensityMap) BinOf(p model.Point) (int, int) { return d.binOf(p.X, p.Y) }

// At returns the utilization of bin (col, row).
func (d *DensityMap) At(col, row int) float64 {
	i := row*d.Cols + col
	if d.area[i] <= 0 {
		return 0
	}
	return d.used[i] / d.area[i]
}

// Max returns the highest bin utilization.
func (d *DensityMap) Max() float64 {
	var m float64
	for r := 0; r < d.Rows; r++ {
		for c := 0; c < d.Cols; c++ {
			m = math.Max(m, d.At(c, r))
		}
	}
	return m
}

// Overflow returns Σ over bins of the area exceeding target utilization.
func (d *DensityMap) Overflow(target float64) float64 {
	var total float64
	for i := range d.used {
		total += math.Max(0, d.used[i]-target*d.area[i])
	}
	return total
}

// Gradient returns the utilization gradient at point p by central differences
// between neighboring bins. Cells follow its negation to leave dense areas.
func (d *DensityMap) Gradient(p model.Point) (gx, gy float64) {
	c, r := d.binOf(p.X, p.Y)
	left, right := d.At(max(c-1, 0), r), d.At(min(c+1, d.Cols-1), r)
	up, down := d.At(c, max(r-1, 0)), d.At(c, min(r+1, d.Rows-1))
	return (right - left) / (2 * d.BinSize), (down - up) / (2 * d.BinSize)
}
