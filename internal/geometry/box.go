// internal/geometry/box.go
package geometry

// Rect is an axis-aligned rectangle in viewport coordinates.
type Rect struct {
	Left, Top, Width, Height float64
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// ShrunkBy returns the rectangle inset by m on every side. A negative margin
// grows it. The result never has a negative size.
func (r Rect) ShrunkBy(m float64) Rect {
	out := Rect{
		Left:   r.Left + m,
		Top:    r.Top + m,
		Width:  r.Width - 2*m,
		Height: r.Height - 2*m,
	}
	if out.Width < 0 {
		out.Left += out.Width / 2
		out.Width = 0
	}
	if out.Height < 0 {
		out.Top += out.Height / 2
		out.Height = 0
	}
	return out
}

// Box is the geometry of one element as seen by the navigator. Rect is the
// rectangle used for searching (shrunk by the configured overlap tolerance);
// Raw is the element's untouched bounding rectangle, used for row and column
// alignment tests.
type Box struct {
	Rect
	Raw Rect
}

// NewBox builds a Box from a raw rectangle and an overlap tolerance.
func NewBox(raw Rect, overlap float64) Box {
	return Box{Rect: raw.ShrunkBy(overlap), Raw: raw}
}

// Center returns the midpoint of the box.
func (b Box) Center() Point {
	return Point{X: b.Left + b.Width/2, Y: b.Top + b.Height/2}
}

// Bound returns the point of the box that lies furthest along v: the middle
// of an edge for a unit axis vector, the center for the zero vector.
func (b Box) Bound(v Point) Point {
	c := b.Center()
	return Point{X: c.X + v.X*b.Width/2, Y: c.Y + v.Y*b.Height/2}
}

// Contains reports whether p lies inside the box, edges included.
func (b Box) Contains(p Point) bool {
	return p.X >= b.Left && p.X <= b.Right() && p.Y >= b.Top && p.Y <= b.Bottom()
}

// Intersects reports whether two rectangles share a row (for horizontal
// travel) or a column (for vertical travel). Touching edges do not count.
// The zero vector never intersects.
func Intersects(r1, r2 Rect, v Point) bool {
	if v.Y != 0 {
		return !(r2.Left >= r1.Right() || r2.Right() <= r1.Left)
	}
	if v.X != 0 {
		return !(r2.Top >= r1.Bottom() || r2.Bottom() <= r1.Top)
	}
	return false
}
