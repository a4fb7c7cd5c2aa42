// internal/tui/snapshot.go
package tui

import (
	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
	"github.com/xkilldash9x/scalpel-nav/internal/nav"
)

// Item is one drawable element: an area or a selectable.
type Item struct {
	Label   string
	Rect    geometry.Rect
	Focused bool
	Current bool
}

// Snapshot is an immutable copy of what the navigator sees. It is captured
// on the loop and handed to the UI goroutine as a message.
type Snapshot struct {
	Areas       []Item
	Selectables []Item
	Position    geometry.Point
	Focused     string
	Area        string
	State       string
}

// Capture copies the areas and selectables under the navigator's root with
// their current boxes. It must run on the goroutine that owns n.
func Capture[E comparable](n *nav.Navigator[E], tree nav.Tree[E], geom nav.Geometry[E]) Snapshot {
	var zero E
	focused, _ := n.Focused()
	current, _ := n.CurrentArea()

	snap := Snapshot{
		Position: n.Position(),
		State:    n.Lifecycle().String(),
	}
	if focused != zero {
		snap.Focused = tree.Describe(focused)
	}
	if current != zero {
		snap.Area = tree.Describe(current)
	}

	for _, area := range n.AllAreas() {
		box, ok := geom.BoxOf(area, 0)
		if !ok {
			continue
		}
		snap.Areas = append(snap.Areas, Item{
			Label:   tree.Describe(area),
			Rect:    box.Raw,
			Current: area == current,
		})
		for _, el := range n.AllSelectables(area, geometry.None) {
			elBox, ok := geom.BoxOf(el, 0)
			if !ok {
				continue
			}
			snap.Selectables = append(snap.Selectables, Item{
				Label:   tree.Describe(el),
				Rect:    elBox.Raw,
				Focused: el == focused,
			})
		}
	}
	return snap
}

// Extent is the bounding rectangle of everything in the snapshot.
func (s Snapshot) Extent() geometry.Rect {
	var (
		out   geometry.Rect
		first = true
	)
	grow := func(r geometry.Rect) {
		if first {
			out, first = r, false
			return
		}
		right := max(out.Right(), r.Right())
		bottom := max(out.Bottom(), r.Bottom())
		out.Left = min(out.Left, r.Left)
		out.Top = min(out.Top, r.Top)
		out.Width = right - out.Left
		out.Height = bottom - out.Top
	}
	for _, it := range s.Areas {
		grow(it.Rect)
	}
	for _, it := range s.Selectables {
		grow(it.Rect)
	}
	return out
}
