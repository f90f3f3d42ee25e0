package model

import (
	"testing"

	errs "github.com/matzehuels/chipforge/pkg/errors"
)

func twoCellProblem() *Problem {
	return &Problem{
		ChipWidth:  100,
		ChipHeight: 100,
		Cells: []Cell{
			{ID: "a", Width: 10, Height: 10, Pins: []Pin{{ID: "a.o", Offset: Point{X: 10, Y: 5}, Direction: PinOutput}}},
			{ID: "b", Width: 10, Height: 10, Pins: []Pin{{ID: "b.i", Offset: Point{X: 0, Y: 5}, Direction: PinInput}}},
		},
		Nets: []Net{{ID: "n1", Pins: []string{"a.o", "b.i"}}},
	}
}

func TestRectIntersection(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want float64
	}{
		{"disjoint", Rect{0, 0, 10, 10}, Rect{20, 20, 5, 5}, 0},
		{"touching edge", Rect{0, 0, 10, 10}, Rect{10, 0, 10, 10}, 0},
		{"partial", Rect{0, 0, 10, 10}, Rect{5, 5, 10, 10}, 25},
		{"contained", Rect{0, 0, 10, 10}, Rect{2, 2, 2, 3}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.IntersectionArea(tt.b); got != tt.want {
				t.Errorf("IntersectionArea = %v, want %v", got, tt.want)
			}
			if got := tt.b.IntersectionArea(tt.a); got != tt.want {
				t.Errorf("IntersectionArea not symmetric: %v", got)
			}
		})
	}
}

func TestCellCloneDoesNotAlias(t *testing.T) {
	c := Cell{ID: "a", Width: 1, Height: 1, Pins: []Pin{{ID: "p"}}, Position: &Point{X: 1, Y: 2}}
	d := c.Clone()
	d.Position.X = 50
	d.Pins[0].ID = "q"
	if c.Position.X != 1 {
		t.Error("Clone shares Position with the original")
	}
	if c.Pins[0].ID != "p" {
		t.Error("Clone shares Pins with the original")
	}

	e := c.WithPosition(3, 4)
	if c.Position.X != 1 || e.Position.X != 3 {
		t.Errorf("WithPosition mutated the receiver or ignored x: %v %v", c.Position, e.Position)
	}
}

func TestProblemValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Problem)
		code   errs.Code
	}{
		{"valid", func(p *Problem) {}, ""},
		{"zero chip", func(p *Problem) { p.ChipWidth = 0 }, errs.ErrCodeInvalidInput},
		{"negative cell", func(p *Problem) { p.Cells[0].Height = -1 }, errs.ErrCodeInvalidInput},
		{"duplicate cell", func(p *Problem) { p.Cells[1].ID = "a" }, errs.ErrCodeInvalidInput},
		{"unknown pin", func(p *Problem) { p.Nets[0].Pins = append(p.Nets[0].Pins, "zz") }, errs.ErrCodeInvalidInput},
		{"cell reference", func(p *Problem) { p.Nets[0].Pins = []string{"a", "b"} }, ""},
		{"negative weight", func(p *Problem) { p.Nets[0].Weight = -2 }, errs.ErrCodeInvalidInput},
		{"bad region", func(p *Problem) { p.Regions = map[string]Rect{"ghost": {0, 0, 1, 1}} }, errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := twoCellProblem()
			tt.mutate(p)
			err := p.Validate()
			if tt.code == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errs.Is(err, tt.code) {
				t.Fatalf("Validate() = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestIndexResolvesPinsAndCells(t *testing.T) {
	p := twoCellProblem()
	p.Nets = append(p.Nets, Net{ID: "n2", Pins: []string{"a", "b", "a.o"}, Weight: 3})
	ix := NewIndex(p.Cells, p.Nets)

	if got := len(ix.Pins[0]); got != 2 {
		t.Fatalf("net n1 resolved %d pins, want 2", got)
	}
	if ix.Pins[0][0].Offset != (Point{X: 10, Y: 5}) {
		t.Errorf("pin offset = %v", ix.Pins[0][0].Offset)
	}
	if ix.Pins[1][0].Offset != (Point{X: 5, Y: 5}) {
		t.Errorf("cell reference should resolve to the center, got %v", ix.Pins[1][0].Offset)
	}
	if got := ix.NetCells[1]; len(got) != 2 {
		t.Errorf("net n2 distinct cells = %v, want 2 cells", got)
	}
	if ix.Weights[0] != 1 || ix.Weights[1] != 3 {
		t.Errorf("weights = %v", ix.Weights)
	}

	nb := ix.Neighbors(0)
	if len(nb) != 1 || nb[0].Cell != 1 || nb[0].Weight != 4 {
		t.Errorf("Neighbors(0) = %+v, want cell 1 with weight 4", nb)
	}
}

func TestWireValidate(t *testing.T) {
	ok := Wire{ID: "w", Points: []Point{{0, 0}, {10, 0}, {10, 5}}}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if ok.Length() != 15 {
		t.Errorf("Length() = %v, want 15", ok.Length())
	}

	bad := Wire{ID: "w", Points: []Point{{0, 0}, {0, 0}}}
	if err := bad.Validate(); err == nil {
		t.Error("zero-length segment should be rejected")
	}
}

func TestAssignmentGroups(t *testing.T) {
	cells := []Cell{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	a := Assignment{"a": 1, "b": 0, "c": 1}
	groups := a.Groups(cells, 3)
	if len(groups) != 3 || len(groups[0]) != 1 || len(groups[1]) != 2 || len(groups[2]) != 0 {
		t.Errorf("Groups = %v", groups)
	}
}
