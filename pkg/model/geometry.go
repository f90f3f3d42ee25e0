package model

import "math"

// Point is a location in chip coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x" bson:"x"`
	Y float64 `json:"y" yaml:"y" bson:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Manhattan returns the rectilinear distance between p and q.
func (p Point) Manhattan(q Point) float64 {
	return math.Abs(p.X-q.X) + math.Abs(p.Y-q.Y)
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X      float64 `json:"x" yaml:"x" bson:"x"`
	Y      float64 `json:"y" yaml:"y" bson:"y"`
	Width  float64 `json:"width" yaml:"width" bson:"width"`
	Height float64 `json:"height" yaml:"height" bson:"height"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Area returns width × height.
func (r Rect) Area() float64 { return r.Width * r.Height }

// Center returns the rectangle's center point.
func (r Rect) Center() Point { return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2} }

// IntersectionArea returns the area shared by r and o, or 0 if they are disjoint.
// Rectangles that only touch along an edge share no area.
func (r Rect) IntersectionArea(o Rect) float64 {
	w := math.Min(r.Right(), o.Right()) - math.Max(r.X, o.X)
	if w <= 0 {
		return 0
	}
	h := math.Min(r.Bottom(), o.Bottom()) - math.Max(r.Y, o.Y)
	if h <= 0 {
		return 0
	}
	return w * h
}

// Overlaps reports whether r and o share a positive area.
func (r Rect) Overlaps(o Rect) bool { return r.IntersectionArea(o) > 0 }

// Contains reports whether o lies completely inside r. A small tolerance absorbs
// floating point noise from clamping.
func (r Rect) Contains(o Rect) bool {
	const eps = 1e-9
	return o.X >= r.X-eps && o.Y >= r.Y-eps &&
		o.Right() <= r.Right()+eps && o.Bottom() <= r.Bottom()+eps
}

// ContainsPoint reports whether p lies inside r (edges included).
func (r Rect) ContainsPoint(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Clamp returns v limited to [lo, hi]. If hi < lo, lo wins, which pins cells
// larger than the chip to the origin.
func Clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
