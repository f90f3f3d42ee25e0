package engine_test

import (
	"context"
	"fmt"

	"github.com/matzehuels/chipforge/pkg/engine"
	"github.com/matzehuels/chipforge/pkg/model"
)

func ExampleAlgorithmsFor() {
	for _, a := range engine.AlgorithmsFor(engine.Routing) {
		fmt.Println(a)
	}
	// Output:
	// routing/maze
	// routing/astar
	// routing/global
	// routing/negotiated
}

func ExampleParseAlgorithm() {
	_, err := engine.ParseAlgorithm("partitioning", "spectral")
	fmt.Println(err)
	// Output:
	// UNSUPPORTED_ALGORITHM: unsupported partitioning algorithm "spectral"
}

func ExampleDispatch() {
	p := &model.Problem{
		ChipWidth:  100,
		ChipHeight: 100,
		Cells: []model.Cell{
			{ID: "a", Width: 2, Height: 2},
			{ID: "b", Width: 2, Height: 2},
			{ID: "c", Width: 2, Height: 2},
			{ID: "d", Width: 2, Height: 2},
		},
		Nets: []model.Net{
			{ID: "ab", Pins: []string{"a", "b"}},
			{ID: "cd", Pins: []string{"c", "d"}},
		},
	}
	a, _ := engine.ParseAlgorithm("partitioning", "fiduccia-mattheyses")
	resp, err := engine.Dispatch(context.Background(), engine.NewRequest(a, p, engine.Params{PartitionCount: 2}))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("partitions:", resp.Metrics["partitions"])
	fmt.Println("every cell assigned:", len(resp.Assignment) == len(p.Cells))
	// Output:
	// partitions: 2
	// every cell assigned: true
}
