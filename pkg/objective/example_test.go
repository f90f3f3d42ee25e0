package objective_test

import (
	"fmt"

	"github.com/matzehuels/chipforge/pkg/model"
	"github.com/matzehuels/chipforge/pkg/objective"
)

func ExampleWirelength() {
	// Two 2x2 cells ten units apart; the net references cells, so their
	// centers are used.
	cells := []model.Cell{
		{ID: "a", Width: 2, Height: 2, Position: &model.Point{X: 0, Y: 0}},
		{ID: "b", Width: 2, Height: 2, Position: &model.Point{X: 10, Y: 4}},
	}
	nets := []model.Net{{ID: "n", Pins: []string{"a", "b"}, Weight: 2}}

	fmt.Println("HPWL:", objective.Wirelength(cells, nets))
	// Output:
	// HPWL: 28
}

func ExampleOverlap() {
	cells := []model.Cell{
		{ID: "a", Width: 4, Height: 4, Position: &model.Point{X: 0, Y: 0}},
		{ID: "b", Width: 4, Height: 4, Position: &model.Point{X: 2, Y: 2}},
		{ID: "c", Width: 1, Height: 1, Position: &model.Point{X: 9, Y: 9}},
		{ID: "unplaced", Width: 4, Height: 4},
	}
	fmt.Println("Overlap:", objective.Overlap(cells))
	// Output:
	// Overlap: 4
}
