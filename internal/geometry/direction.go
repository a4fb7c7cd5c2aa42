// internal/geometry/direction.go
package geometry

import (
	"fmt"
	"strings"
)

// Direction is one of the four logical movement directions.
type Direction int

const (
	// None means "no direction"; its vector is zero.
	None Direction = iota
	Left
	Up
	Right
	Down
)

// Axis is the travel axis of a direction.
type Axis int

const (
	NoAxis Axis = iota
	Horizontal
	Vertical
)

// Edge names the side of a box a direction points at.
type Edge string

const (
	EdgeNone   Edge = ""
	EdgeLeft   Edge = "left"
	EdgeTop    Edge = "top"
	EdgeRight  Edge = "right"
	EdgeBottom Edge = "bottom"
)

var directionNames = map[Direction]string{
	None:  "none",
	Left:  "left",
	Up:    "up",
	Right: "right",
	Down:  "down",
}

// Directions lists the four real directions in a stable order.
var Directions = []Direction{Left, Up, Right, Down}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// Vector returns the unit vector for the direction, or the zero vector for None.
func (d Direction) Vector() Point {
	switch d {
	case Left:
		return Point{X: -1, Y: 0}
	case Up:
		return Point{X: 0, Y: -1}
	case Right:
		return Point{X: 1, Y: 0}
	case Down:
		return Point{X: 0, Y: 1}
	default:
		return Zero
	}
}

// Axis returns the axis the direction travels along.
func (d Direction) Axis() Axis {
	switch d {
	case Left, Right:
		return Horizontal
	case Up, Down:
		return Vertical
	default:
		return NoAxis
	}
}

// Edge returns the box edge the direction points at.
func (d Direction) Edge() Edge {
	switch d {
	case Left:
		return EdgeLeft
	case Up:
		return EdgeTop
	case Right:
		return EdgeRight
	case Down:
		return EdgeBottom
	default:
		return EdgeNone
	}
}

// Opposite returns the reverse direction. None is its own opposite.
func (d Direction) Opposite() Direction {
	switch d {
	case Left:
		return Right
	case Right:
		return Left
	case Up:
		return Down
	case Down:
		return Up
	default:
		return None
	}
}

// ParseDirection maps a direction name to a Direction. The empty string and
// "none" map to None.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "left":
		return Left, nil
	case "up":
		return Up, nil
	case "right":
		return Right, nil
	case "down":
		return Down, nil
	}
	return None, fmt.Errorf("geometry: unknown direction %q", s)
}

func (a Axis) String() string {
	switch a {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return ""
	}
}

// ParseAxis maps "horizontal" or "vertical" to an Axis.
func ParseAxis(s string) (Axis, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal":
		return Horizontal, true
	case "vertical":
		return Vertical, true
	}
	return NoAxis, false
}
