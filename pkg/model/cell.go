package model

import (
	"fmt"
	"math"
)

// PinDirection describes the signal direction of a pin.
type PinDirection string

const (
	PinInput  PinDirection = "input"
	PinOutput PinDirection = "output"
	PinInout  PinDirection = "inout"
)

// Valid reports whether d is a known direction. The empty direction is
// accepted and treated as inout.
func (d PinDirection) Valid() bool {
	switch d {
	case "", PinInput, PinOutput, PinInout:
		return true
	}
	return false
}

// Pin is a connection point on a cell. Offset is relative to the cell's
// top-left corner.
type Pin struct {
	ID        string       `json:"id" yaml:"id" bson:"id"`
	Offset    Point        `json:"offset" yaml:"offset" bson:"offset"`
	Direction PinDirection `json:"direction,omitempty" yaml:"direction,omitempty" bson:"direction,omitempty"`
}

// CellKind tags a cell as a standard cell or a macro block.
type CellKind string

const (
	CellStandard CellKind = "standard"
	CellMacro    CellKind = "macro"
)

// Cell is a placeable rectangle with pins.
//
// Position is nil until the cell is placed. Engines never mutate caller cells;
// they operate on copies produced by [Cell.Clone].
type Cell struct {
	ID       string   `json:"id" yaml:"id" bson:"id"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty" bson:"name,omitempty"`
	Width    float64  `json:"width" yaml:"width" bson:"width"`
	Height   float64  `json:"height" yaml:"height" bson:"height"`
	Pins     []Pin    `json:"pins,omitempty" yaml:"pins,omitempty" bson:"pins,omitempty"`
	Position *Point   `json:"position,omitempty" yaml:"position,omitempty" bson:"position,omitempty"`
	Kind     CellKind `json:"type,omitempty" yaml:"type,omitempty" bson:"type,omitempty"`
}

// Placed reports whether the cell has a position.
func (c Cell) Placed() bool { return c.Position != nil }

// Area returns width × height.
func (c Cell) Area() float64 { return c.Width * c.Height }

// Rect returns the cell's footprint. An unplaced cell is reported at the origin.
func (c Cell) Rect() Rect {
	var p Point
	if c.Position != nil {
		p = *c.Position
	}
	return Rect{X: p.X, Y: p.Y, Width: c.Width, Height: c.Height}
}

// Center returns the center of the footprint.
func (c Cell) Center() Point { return c.Rect().Center() }

// IsMacro reports whether the cell is tagged as a macro.
func (c Cell) IsMacro() bool { return c.Kind == CellMacro }

// Clone returns a deep copy: pins and position are not shared with c.
func (c Cell) Clone() Cell {
	out := c
	if c.Pins != nil {
		out.Pins = append([]Pin(nil), c.Pins...)
	}
	if c.Position != nil {
		p := *c.Position
		out.Position = &p
	}
	return out
}

// WithPosition returns a copy of c placed at (x, y).
func (c Cell) WithPosition(x, y float64) Cell {
	out := c.Clone()
	out.Position = &Point{X: x, Y: y}
	return out
}

// Validate checks the cell's intrinsic invariants.
func (c Cell) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("cell id is empty")
	}
	if !(c.Width > 0) || !(c.Height > 0) || math.IsInf(c.Width, 0) || math.IsInf(c.Height, 0) {
		return fmt.Errorf("cell %q has non-positive size %gx%g", c.ID, c.Width, c.Height)
	}
	for _, p := range c.Pins {
		if p.ID == "" {
			return fmt.Errorf("cell %q has a pin with an empty id", c.ID)
		}
		if !p.Direction.Valid() {
			return fmt.Errorf("pin %q has unknown direction %q", p.ID, p.Direction)
		}
	}
	return nil
}

// CloneCells deep-copies a cell slice.
func CloneCells(cells []Cell) []Cell {
	out := make([]Cell, len(cells))
	for i, c := range cells {
		out[i] = c.Clone()
	}
	return out
}

// Net connects a set of pins. A zero weight means the default weight of 1.
type Net struct {
	ID     string   `json:"id" yaml:"id" bson:"id"`
	Name   string   `json:"name,omitempty" yaml:"name,omitempty" bson:"name,omitempty"`
	Pins   []string `json:"pins" yaml:"pins" bson:"pins"`
	Weight float64  `json:"weight,omitempty" yaml:"weight,omitempty" bson:"weight,omitempty"`
}

// EffectiveWeight returns the weight used in cost functions.
func (n Net) EffectiveWeight() float64 {
	if n.Weight <= 0 {
		return 1
	}
	return n.Weight
}

// Wire is a routed polyline on a single layer.
//
// Consecutive points never coincide; a layer change is expressed by two wires
// on different layers sharing an endpoint.
type Wire struct {
	ID     string  `json:"id" yaml:"id" bson:"id"`
	NetID  string  `json:"net_id" yaml:"net_id" bson:"net_id"`
	Points []Point `json:"points" yaml:"points" bson:"points"`
	Layer  int     `json:"layer" yaml:"layer" bson:"layer"`
	Width  float64 `json:"width" yaml:"width" bson:"width"`
}

// Length returns the rectilinear length of the polyline.
func (w Wire) Length() float64 {
	var total float64
	for i := 1; i < len(w.Points); i++ {
		total += w.Points[i-1].Manhattan(w.Points[i])
	}
	return total
}

// Validate checks that the polyline has at least two points and no zero-length
// segments.
func (w Wire) Validate() error {
	if len(w.Points) < 2 {
		return fmt.Errorf("wire %q has %d points", w.ID, len(w.Points))
	}
	for i := 1; i < len(w.Points); i++ {
		if w.Points[i] == w.Points[i-1] {
			return fmt.Errorf("wire %q has a zero-length segment at point %d", w.ID, i)
		}
	}
	return nil
}

// Block is a floorplanned rectangle.
type Block struct {
	ID      string  `json:"id" yaml:"id" bson:"id"`
	X       float64 `json:"x" yaml:"x" bson:"x"`
	Y       float64 `json:"y" yaml:"y" bson:"y"`
	Width   float64 `json:"width" yaml:"width" bson:"width"`
	Height  float64 `json:"height" yaml:"height" bson:"height"`
	Rotated bool    `json:"rotated,omitempty" yaml:"rotated,omitempty" bson:"rotated,omitempty"`
}

// Rect returns the block footprint.
func (b Block) Rect() Rect { return Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height} }

// Assignment maps a cell ID to its partition index.
type Assignment map[string]int

// Groups returns the cell IDs of each partition in input order. Partitions
// without cells are returned as empty slices so len(groups) == k.
func (a Assignment) Groups(cells []Cell, k int) [][]string {
	groups := make([][]string, k)
	for i := range groups {
		groups[i] = []string{}
	}
	for _, c := range cells {
		if p, ok := a[c.ID]; ok && p >= 0 && p < k {
			groups[p] = append(groups[p], c.ID)
		}
	}
	return groups
}
