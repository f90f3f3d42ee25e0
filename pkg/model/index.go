package model

import "slices"

// PinRef is a resolved pin reference: the owning cell's index in the cell
// slice and the pin's offset from that cell's top-left corner.
type PinRef struct {
	Cell   int
	Offset Point
}

// Index resolves net pin references against a cell slice once, so hot loops
// work on integer indices instead of string lookups.
//
// The index stores offsets, not absolute locations, so it stays valid while
// engines move cells around. It must be rebuilt if cell sizes change.
type Index struct {
	cellByID map[string]int

	// Pins holds the resolved references of every net, in net order.
	// Unknown references are dropped.
	Pins [][]PinRef
	// NetCells holds the distinct cell indices of every net, ascending.
	NetCells [][]int
	// CellNets holds the indices of the nets touching every cell, ascending.
	CellNets [][]int
	// Weights holds each net's effective weight.
	Weights []float64
}

// NewIndex resolves every pin reference in nets against cells.
func NewIndex(cells []Cell, nets []Net) *Index {
	ix := &Index{
		cellByID: make(map[string]int, len(cells)),
		Pins:     make([][]PinRef, len(nets)),
		NetCells: make([][]int, len(nets)),
		CellNets: make([][]int, len(cells)),
		Weights:  make([]float64, len(nets)),
	}

	pins := make(map[string]PinRef)
	for i, c := range cells {
		ix.cellByID[c.ID] = i
		for _, p := range c.Pins {
			pins[p.ID] = PinRef{Cell: i, Offset: p.Offset}
		}
	}

	for n, net := range nets {
		ix.Weights[n] = net.EffectiveWeight()
		seen := make(map[int]bool, len(net.Pins))
		for _, ref := range net.Pins {
			r, ok := pins[ref]
			if !ok {
				ci, isCell := ix.cellByID[ref]
				if !isCell {
					continue
				}
				r = PinRef{Cell: ci, Offset: Point{X: cells[ci].Width / 2, Y: cells[ci].Height / 2}}
			}
			ix.Pins[n] = append(ix.Pins[n], r)
			if !seen[r.Cell] {
				seen[r.Cell] = true
				ix.NetCells[n] = append(ix.NetCells[n], r.Cell)
			}
		}
		slices.Sort(ix.NetCells[n])
		for _, ci := range ix.NetCells[n] {
			ix.CellNets[ci] = append(ix.CellNets[ci], n)
		}
	}
	return ix
}

// CellIndex returns the slice index of the cell with the given ID.
func (ix *Index) CellIndex(id string) (int, bool) {
	i, ok := ix.cellByID[id]
	return i, ok
}

// NetCount returns the number of indexed nets.
func (ix *Index) NetCount() int { return len(ix.Pins) }

// Location returns the absolute location of a pin given the cell's top-left
// position.
func (r PinRef) Location(x, y float64) Point {
	return Point{X: x + r.Offset.X, Y: y + r.Offset.Y}
}

// Neighbor is a cell connected to another through at least one net.
type Neighbor struct {
	Cell   int
	Weight float64
}

// Neighbors returns the distinct cells sharing at least one net with cell ci,
// ascending by index, with the summed clique-model weight w/(k-1).
func (ix *Index) Neighbors(ci int) []Neighbor {
	acc := make(map[int]float64)
	for _, n := range ix.CellNets[ci] {
		cs := ix.NetCells[n]
		if len(cs) < 2 {
			continue
		}
		w := ix.Weights[n] / float64(len(cs)-1)
		for _, o := range cs {
			if o != ci {
				acc[o] += w
			}
		}
	}
	out := make([]Neighbor, 0, len(acc))
	for c, w := range acc {
		out = append(out, Neighbor{Cell: c, Weight: w})
	}
	slices.SortFunc(out, func(a, b Neighbor) int { return a.Cell - b.Cell })
	return out
}
