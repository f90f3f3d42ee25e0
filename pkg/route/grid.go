package route

import (
	"math"

	errs "github.com/matzehuels/chipforge/pkg/errors"
	"github.com/matzehuels/chipforge/pkg/model"
)

// maxGridNodes bounds the routing grid so a tiny pitch on a large chip cannot
// exhaust memory.
const maxGridNodes = 4_000_000

// node is a routing grid position: a planar cell on one layer.
type node struct {
	layer, row, col int
}

// Grid is the discretized chip: Cols × Rows planar cells of pitch Size,
// stacked LayerCount times, with per-node usage and history cost.
type Grid struct {
	Cols, Rows, Layers int
	Size               float64
	Capacity           int
	width, height      float64

	usage   []int
	history []float64
}

// NewGrid discretizes a chip of the given size. Grids above maxGridNodes
// nodes are rejected.
func NewGrid(chipWidth, chipHeight, size float64, layers, capacity int) (*Grid, error) {
	cols := math.Ceil(chipWidth / size)
	rows := math.Ceil(chipHeight / size)
	if n := cols * rows * float64(layers); n > maxGridNodes {
		return nil, errs.Parameter("grid_size",
			"too small: the routing grid would have %.0f nodes, the limit is %d", n, maxGridNodes)
	}
	g := &Grid{
		Cols:     max(1, int(math.Ceil(chipWidth/size))),
		Rows:     max(1, int(math.Ceil(chipHeight/size))),
		Layers:   layers,
		Size:     size,
		Capacity: capacity,
		width:    chipWidth,
		height:   chipHeight,
	}
	g.usage = make([]int, g.Layers*g.Rows*g.Cols)
	g.history = make([]float64, len(g.usage))
	return g, nil
}

func (g *Grid) id(n node) int { return (n.layer*g.Rows+n.row)*g.Cols + n.col }

func (g *Grid) node(id int) node {
	plane := g.Rows * g.Cols
	return node{layer: id / plane, row: (id % plane) / g.Cols, col: id % g.Cols}
}

func (g *Grid) inside(row, col int) bool {
	return row >= 0 && row < g.Rows && col >= 0 && col < g.Cols
}

// Cell returns the planar cell containing point p, clamped to the grid.
func (g *Grid) Cell(p model.Point) (row, col int) {
	col = int(math.Floor(p.X / g.Size))
	row = int(math.Floor(p.Y / g.Size))
	return min(max(row, 0), g.Rows-1), min(max(col, 0), g.Cols-1)
}

// Center returns the chip coordinates of the center of a planar cell. Cells
// on the right and bottom edges may extend past the chip; their centers are
// clamped to it.
func (g *Grid) Center(row, col int) model.Point {
	return model.Point{
		X: math.Min((float64(col)+0.5)*g.Size, g.width),
		Y: math.Min((float64(row)+0.5)*g.Size, g.height),
	}
}

// hasRoom reports whether n can take one more net.
func (g *Grid) hasRoom(n node) bool { return g.usage[g.id(n)] < g.Capacity }

// Usage returns the number of nets crossing n.
func (g *Grid) Usage(layer, row, col int) int { return g.usage[g.id(node{layer, row, col})] }

func (g *Grid) occupy(nodes []node, delta int) {
	for _, n := range nodes {
		g.usage[g.id(n)] += delta
	}
}

// Overflow returns Σ max(0, usage − capacity) over all nodes.
func (g *Grid) Overflow() int {
	total := 0
	for _, u := range g.usage {
		total += max(0, u-g.Capacity)
	}
	return total
}

// addHistory raises the history cost of every overflowing node.
func (g *Grid) addHistory(increment float64) {
	for i, u := range g.usage {
		if over := u - g.Capacity; over > 0 {
			g.history[i] += increment * float64(over)
		}
	}
}

// leastCongestedLayer returns the layer other than from with room at
// (row, col) and the lowest usage, or -1 when every other layer is full.
func (g *Grid) leastCongestedLayer(from, row, col int) int {
	best, bestUse := -1, math.MaxInt
	for l := range g.Layers {
		if l == from {
			continue
		}
		n := node{l, row, col}
		if u := g.usage[g.id(n)]; u < g.Capacity && u < bestUse {
			best, bestUse = l, u
		}
	}
	return best
}

var planarSteps = [4][2]int{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
