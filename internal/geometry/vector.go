// internal/geometry/vector.go
package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point represents a position or a vector in viewport coordinates.
// The Y axis grows downwards, as it does for rendered documents.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Zero is the origin and the zero vector.
var Zero = Point{}

// Add performs vector addition, returning `p + other`.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub performs vector subtraction, returning `p - other`.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// Mul performs scalar multiplication.
func (p Point) Mul(scalar float64) Point {
	return Point{X: p.X * scalar, Y: p.Y * scalar}
}

// Neg returns the opposite vector.
func (p Point) Neg() Point {
	// Written out so that the zero vector stays (0,0) rather than (-0,-0).
	return Point{X: 0 - p.X, Y: 0 - p.Y}
}

// Dot calculates the dot product of `p` and `other`.
func (p Point) Dot(other Point) float64 {
	return p.X*other.X + p.Y*other.Y
}

// IsZero reports whether both components are zero.
func (p Point) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

func (p Point) String() string {
	return fmt.Sprintf("(%g,%g)", p.X, p.Y)
}

// ParsePoint parses "x,y" (whitespace tolerant) into a Point.
func ParsePoint(s string) (Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("geometry: point %q must be in the form x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("geometry: invalid x in point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("geometry: invalid y in point %q: %w", s, err)
	}
	return Point{X: x, Y: y}, nil
}

// Dist1 is the L1 (taxicab) distance between two points.
func Dist1(a, b Point) float64 {
	return math.Abs(a.X-b.X) + math.Abs(a.Y-b.Y)
}

// DistP is the signed distance from origin to p measured along v.
func DistP(origin, p, v Point) float64 {
	return p.Sub(origin).Dot(v)
}

// InHalfSpace reports whether p lies in the closed half-space starting at
// origin and facing v. The zero vector accepts every point.
func InHalfSpace(origin, p, v Point) bool {
	return DistP(origin, p, v) >= 0
}

// PointReflect reflects p through center on both axes.
func PointReflect(p, center Point) Point {
	return Point{X: 2*center.X - p.X, Y: 2*center.Y - p.Y}
}

// AxisReflect wraps b around area along dir: on the travel axis the result
// sits on the boundary of area facing away from dir, and the perpendicular
// coordinate is taken from the center of b so the result stays on the same
// row (or column). Leaving the right edge lands on the left edge.
func AxisReflect(b Box, dir Direction, area Box) Point {
	c := b.Center()
	entry := area.Bound(dir.Opposite().Vector())
	switch dir.Axis() {
	case Horizontal:
		return Point{X: entry.X, Y: c.Y}
	case Vertical:
		return Point{X: c.X, Y: entry.Y}
	default:
		return PointReflect(c, area.Center())
	}
}
