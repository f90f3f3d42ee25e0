package objective

import (
	"math"
	"testing"

	"github.com/matzehuels/chipforge/pkg/model"
)

func placed(id string, x, y, w, h float64) model.Cell {
	return model.Cell{ID: id, Width: w, Height: h, Position: &model.Point{X: x, Y: y}}
}

func TestWirelength(t *testing.T) {
	cells := []model.Cell{
		placed("a", 0, 0, 10, 10),
		placed("b", 30, 40, 10, 10),
		placed("c", 90, 90, 10, 10),
	}
	tests := []struct {
		name string
		nets []model.Net
		want float64
	}{
		{"no nets", nil, 0},
		{"two cells by center", []model.Net{{ID: "n", Pins: []string{"a", "b"}}}, 30 + 40},
		{"weighted", []model.Net{{ID: "n", Pins: []string{"a", "b"}, Weight: 2}}, 2 * 70},
		{"single cell net", []model.Net{{ID: "n", Pins: []string{"a", "a"}}}, 0},
		{"three cells", []model.Net{{ID: "n", Pins: []string{"a", "b", "c"}}}, 90 + 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Wirelength(cells, tt.nets); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Wirelength = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWirelengthIgnoresUnplacedCells(t *testing.T) {
	cells := []model.Cell{
		placed("a", 0, 0, 10, 10),
		{ID: "b", Width: 10, Height: 10},
	}
	nets := []model.Net{{ID: "n", Pins: []string{"a", "b"}}}
	if got := Wirelength(cells, nets); got != 0 {
		t.Errorf("Wirelength = %v, want 0 when only one cell is placed", got)
	}
}

func TestWirelengthUsesPinOffsets(t *testing.T) {
	cells := []model.Cell{
		{ID: "a", Width: 10, Height: 10, Position: &model.Point{}, Pins: []model.Pin{{ID: "a.o", Offset: model.Point{X: 10, Y: 0}}}},
		{ID: "b", Width: 10, Height: 10, Position: &model.Point{X: 20}, Pins: []model.Pin{{ID: "b.i", Offset: model.Point{X: 0, Y: 10}}}},
	}
	nets := []model.Net{{ID: "n", Pins: []string{"a.o", "b.i"}}}
	if got := Wirelength(cells, nets); got != 20 {
		t.Errorf("Wirelength = %v, want 20", got)
	}
}

func TestPositionsAgreeWithCells(t *testing.T) {
	cells := []model.Cell{placed("a", 5, 5, 4, 4), placed("b", 50, 20, 6, 2), placed("c", 7, 6, 4, 4)}
	nets := []model.Net{{ID: "n1", Pins: []string{"a", "b"}}, {ID: "n2", Pins: []string{"b", "c"}, Weight: 0.5}}
	ix := model.NewIndex(cells, nets)
	xs := []float64{5, 50, 7}
	ys := []float64{5, 20, 6}

	if a, b := IndexedWirelength(ix, cells), PositionsWirelength(ix, xs, ys); math.Abs(a-b) > 1e-9 {
		t.Errorf("wirelength mismatch: cells %v, positions %v", a, b)
	}
	if a, b := Overlap(cells), PositionsOverlap(cells, xs, ys); math.Abs(a-b) > 1e-9 {
		t.Errorf("overlap mismatch: cells %v, positions %v", a, b)
	}
}

func TestOverlap(t *testing.T) {
	cells := []model.Cell{
		placed("a", 0, 0, 10, 10),
		placed("b", 5, 5, 10, 10),
		placed("c", 10, 0, 10, 5),
		placed("d", 80, 80, 5, 5),
	}
	// a∩b = 25, b∩c = 5×0 (c spans y 0..5, b starts at y=5) = 0, a∩c touches = 0
	if got := Overlap(cells); got != 25 {
		t.Errorf("Overlap = %v, want 25", got)
	}
	if got := CellOverlap(cells, []float64{0, 5, 10, 80}, []float64{0, 5, 0, 80}, 1, 5, 5); got != 25 {
		t.Errorf("CellOverlap = %v, want 25", got)
	}
}

func TestDensity(t *testing.T) {
	cells := []model.Cell{placed("a", 0, 0, 10, 10), placed("b", 10, 0, 10, 10)}
	d := Density(cells, 40, 20, 20)
	if d.Cols != 2 || d.Rows != 1 {
		t.Fatalf("bins = %dx%d, want 2x1", d.Cols, d.Rows)
	}
	if got := d.At(0, 0); got != 0.5 {
		t.Errorf("At(0,0) = %v, want 0.5", got)
	}
	if got := d.At(1, 0); got != 0 {
		t.Errorf("At(1,0) = %v, want 0", got)
	}
	if got := d.Max(); got != 0.5 {
		t.Errorf("Max = %v", got)
	}
	if got := d.Overflow(0.25); got != 100 {
		t.Errorf("Overflow(0.25) = %v, want 100", got)
	}
	gx, _ := d.Gradient(model.Point{X: 5, Y: 5})
	if gx >= 0 {
		t.Errorf("gradient should point toward the dense bin (negative x), got %v", gx)
	}
}
