package route

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/model"
)

func at(x, y float64) *model.Point { return &model.Point{X: x, Y: y} }

// twoPin places two 10×10 cells in opposite corners of a 100×100 chip.
func twoPin() *model.Problem {
	return &model.Problem{
		ChipWidth:  100,
		ChipHeight: 100,
		Cells: []model.Cell{
			{ID: "a", Width: 10, Height: 10, Position: at(0, 0)},
			{ID: "b", Width: 10, Height: 10, Position: at(80, 70)},
		},
		Nets: []model.Net{{ID: "n", Pins: []string{"a", "b"}}},
	}
}

// crossing has nets that all want the same row and column of a small grid.
func crossing(nets int) *model.Problem {
	p := &model.Problem{ChipWidth: 100, ChipHeight: 100}
	for i := range nets {
		y := float64(10 + i*15)
		p.Cells = append(p.Cells,
			model.Cell{ID: fmt.Sprintf("l%d", i), Width: 5, Height: 5, Position: at(0, y)},
			model.Cell{ID: fmt.Sprintf("r%d", i), Width: 5, Height: 5, Position: at(90, 90-y)},
		)
		p.Nets = append(p.Nets, model.Net{ID: fmt.Sprintf("n%d", i), Pins: []string{fmt.Sprintf("l%d", i), fmt.Sprintf("r%d", i)}})
	}
	return p
}

func endpoints(wires []model.Wire) []model.Point {
	var pts []model.Point
	for _, w := range wires {
		pts = append(pts, w.Points[0], w.Points[len(w.Points)-1])
	}
	return pts
}

func near(pts []model.Point, p model.Point, tol float64) bool {
	for _, q := range pts {
		if math.Abs(q.X-p.X) <= tol && math.Abs(q.Y-p.Y) <= tol {
			return true
		}
	}
	return false
}

func TestMazeRoutesTwoPinNet(t *testing.T) {
	p := twoPin()
	res, err := Route(context.Background(), Maze, p, Options{GridSize: 10, LayerCount: 2})
	require.NoError(t, err)

	require.NotEmpty(t, res.Wires)
	assert.GreaterOrEqual(t, res.ViaCount, 0)
	assert.True(t, res.Success, "diagnostics: %v", res.Diagnostics)
	assert.Zero(t, res.FailedConnections)

	pts := endpoints(res.Wires)
	assert.True(t, near(pts, p.Cells[0].Center(), 10), "no wire ends at pin a: %v", pts)
	assert.True(t, near(pts, p.Cells[1].Center(), 10), "no wire ends at pin b: %v", pts)
	// Shortest grid path between cells (0,0) and (7,8) is 15 steps.
	assert.InDelta(t, 150, res.Wirelength, 1e-9)
}

func TestEveryStrategyConnectsPins(t *testing.T) {
	for _, algo := range Algorithms() {
		t.Run(string(algo), func(t *testing.T) {
			p := twoPin()
			res, err := Route(context.Background(), algo, p, Options{GridSize: 10})
			require.NoError(t, err)
			require.NotEmpty(t, res.Wires)
			assert.True(t, res.Success, "diagnostics: %v", res.Diagnostics)
			for _, w := range res.Wires {
				require.NoError(t, w.Validate())
				assert.Equal(t, "n", w.NetID)
				for i := 1; i < len(w.Points); i++ {
					a, b := w.Points[i-1], w.Points[i]
					assert.True(t, a.X == b.X || a.Y == b.Y, "wire %s has a diagonal segment", w.ID)
				}
			}
			assert.InDelta(t, 150, res.Wirelength, 1e-9, "pattern and search routes are monotone here")
		})
	}
}

func TestRoutingIsDeterministic(t *testing.T) {
	p := crossing(5)
	for _, algo := range Algorithms() {
		t.Run(string(algo), func(t *testing.T) {
			first, err := Route(context.Background(), algo, p, Options{GridSize: 10})
			require.NoError(t, err)
			second, err := Route(context.Background(), algo, p, Options{GridSize: 10})
			require.NoError(t, err)
			assert.Equal(t, first.Wires, second.Wires)
			assert.Equal(t, first.Overflow, second.Overflow)
		})
	}
}

func TestSearchUsesSecondLayerWhenFirstIsFull(t *testing.T) {
	p := crossing(2)
	res, err := Route(context.Background(), AStar, p, Options{GridSize: 10, LayerCount: 2})
	require.NoError(t, err)
	assert.True(t, res.Success, "diagnostics: %v", res.Diagnostics)
	assert.Positive(t, res.ViaCount)
}

func TestSingleLayerCongestionIsReported(t *testing.T) {
	p := crossing(3)
	res, err := Route(context.Background(), Global, p, Options{GridSize: 10, LayerCount: 1})
	require.NoError(t, err)
	assert.Positive(t, res.Overflow)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Diagnostics)
}

func TestNegotiatedNeverWorseThanGlobal(t *testing.T) {
	p := crossing(5)
	opts := Options{GridSize: 10, LayerCount: 2}
	global, err := Route(context.Background(), Global, p, opts)
	require.NoError(t, err)
	negotiated, err := Route(context.Background(), Negotiated, p, opts)
	require.NoError(t, err)

	assert.LessOrEqual(t, negotiated.Overflow, global.Overflow)
	require.NotEmpty(t, negotiated.Convergence)
	assert.Equal(t, global.Convergence[0], negotiated.Convergence[0])
}

func TestExhaustedSearchFallsBack(t *testing.T) {
	res, err := Route(context.Background(), Maze, twoPin(), Options{GridSize: 10, MaxExpansions: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailedConnections)
	assert.Equal(t, 1, res.Overflow)
	assert.False(t, res.Success)
	require.NotEmpty(t, res.Wires, "the fallback still draws an L-shaped wire")
}

func TestMultiPinNetFormsTree(t *testing.T) {
	p := &model.Problem{
		ChipWidth: 100, ChipHeight: 100,
		Cells: []model.Cell{
			{ID: "a", Width: 10, Height: 10, Position: at(0, 0)},
			{ID: "b", Width: 10, Height: 10, Position: at(90, 0)},
			{ID: "c", Width: 10, Height: 10, Position: at(0, 90)},
			{ID: "d", Width: 10, Height: 10, Position: at(3, 2)}, // same grid cell as a
		},
		Nets: []model.Net{{ID: "t", Pins: []string{"a", "b", "c", "d"}}},
	}
	for _, algo := range Algorithms() {
		res, err := Route(context.Background(), algo, p, Options{GridSize: 10})
		require.NoError(t, err, algo)
		assert.True(t, res.Success, "%s: %v", algo, res.Diagnostics)
		assert.InDelta(t, 180, res.Wirelength, 1e-9, algo)
	}
}

func TestCoincidentPinsNeedNoWire(t *testing.T) {
	p := twoPin()
	p.Cells[1].Position = at(1, 1)
	res, err := Route(context.Background(), Maze, p, Options{GridSize: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Wires)
	assert.True(t, res.Success)
}

func TestRouteErrors(t *testing.T) {
	_, err := Route(context.Background(), "steiner", twoPin(), Options{})
	assert.True(t, errs.Is(err, errs.ErrCodeUnsupportedAlgorithm), "got %v", err)

	unplaced := twoPin()
	unplaced.Cells[0].Position = nil
	_, err = Route(context.Background(), Maze, unplaced, Options{})
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidInput), "got %v", err)

	_, err = Route(context.Background(), Maze, twoPin(), Options{Capacity: -1})
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidParameter), "got %v", err)

	_, err = Route(context.Background(), Maze, twoPin(), Options{GridSize: 0.01})
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidParameter), "got %v", err)
}

func TestCancelledRouteReportsStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Route(ctx, AStar, crossing(3), Options{GridSize: 10})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Diagnostics[0], "stopped early")
}

func TestGridGeometry(t *testing.T) {
	g, err := NewGrid(95, 40, 10, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, g.Cols)
	assert.Equal(t, 4, g.Rows)

	row, col := g.Cell(model.Point{X: 94, Y: 39})
	assert.Equal(t, [2]int{3, 9}, [2]int{row, col})
	assert.Equal(t, model.Point{X: 95, Y: 35}, g.Center(3, 9))

	v := node{1, 2, 3}
	assert.Equal(t, v, g.node(g.id(v)))

	g.occupy([]node{v, v}, 1)
	assert.Equal(t, 1, g.Overflow())
	assert.Equal(t, 0, g.leastCongestedLayer(1, 2, 3))
	g.occupy([]node{{0, 2, 3}}, 1)
	assert.Equal(t, -1, g.leastCongestedLayer(1, 2, 3))
}

func TestViasAreCountedBetweenEmittedWires(t *testing.T) {
	g, err := NewGrid(100, 100, 10, 3, 1)
	require.NoError(t, err)
	rt := &router{g: g, opts: Options{WireWidth: 1}}

	tests := []struct {
		name  string
		path  []node
		wires int
		vias  int
	}{
		{
			name:  "detour up and back down",
			path:  []node{{0, 0, 0}, {0, 0, 1}, {1, 0, 1}, {0, 0, 1}, {0, 0, 2}},
			wires: 1,
			vias:  0,
		},
		{
			name:  "one layer change",
			path:  []node{{0, 0, 0}, {0, 0, 1}, {1, 0, 1}, {1, 1, 1}},
			wires: 2,
			vias:  1,
		},
		{
			name:  "stacked via through an empty layer",
			path:  []node{{0, 0, 0}, {0, 0, 1}, {1, 0, 1}, {2, 0, 1}, {2, 1, 1}},
			wires: 2,
			vias:  2,
		},
		{
			name:  "leading via at the pin",
			path:  []node{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}},
			wires: 1,
			vias:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := 0
			wires, vias := rt.wires("n", tt.path, &k)
			assert.Len(t, wires, tt.wires)
			assert.Equal(t, tt.vias, vias)
			assert.Equal(t, tt.wires, k)
		})
	}

	k := 0
	wires, _ := rt.wires("n", tests[0].path, &k)
	assert.Equal(t, []model.Point{g.Center(0, 0), g.Center(0, 2)}, wires[0].Points)
}

func TestConvergenceUsesTheReportedOverflow(t *testing.T) {
	global, err := Route(context.Background(), Global, crossing(3), Options{GridSize: 10, LayerCount: 1})
	require.NoError(t, err)
	require.Len(t, global.Convergence, 1)
	assert.Equal(t, float64(global.Overflow), global.Convergence[0])

	// Tiny expansion budgets make reroutes fail; failures count as overflow
	// in every round, including the pattern round.
	neg, err := Route(context.Background(), Negotiated, crossing(4), Options{GridSize: 10, LayerCount: 1, MaxExpansions: 5, Rounds: 3})
	require.NoError(t, err)
	require.NotEmpty(t, neg.Convergence)
	best := neg.Convergence[0]
	for _, v := range neg.Convergence {
		best = min(best, v)
	}
	assert.Equal(t, best, float64(neg.Overflow))
	assert.GreaterOrEqual(t, neg.Overflow, neg.FailedConnections)
}
