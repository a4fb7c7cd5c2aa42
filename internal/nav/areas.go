// internal/nav/areas.go
package nav

import (
	"slices"

	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
)

func (n *Navigator[E]) isArea(e E) bool {
	return e != n.zero && (e == n.root || n.tree.HasAttribute(e, n.attr(attrArea)))
}

// allAreas lists the areas under the root, or the root alone when there are none.
func (n *Navigator[E]) allAreas() []E {
	if n.root == n.zero {
		return nil
	}
	areas := n.tree.QueryAll(n.root, n.opts.AreaSelector)
	if len(areas) == 0 {
		return []E{n.root}
	}
	return areas
}

// defaultArea is the first selected area, or the first area in tree order.
func (n *Navigator[E]) defaultArea() E {
	areas := n.allAreas()
	if len(areas) == 0 {
		return n.zero
	}
	for _, a := range areas {
		if n.capsOf(a).selected {
			return a
		}
	}
	return areas[0]
}

// allSelectables lists the selectable elements of area. Limit elements are
// moved to the end; with a direction, limits on any other edge are dropped.
func (n *Navigator[E]) allSelectables(area E, dir geometry.Direction) []E {
	if area == n.zero {
		return nil
	}
	selector := n.opts.ItemSelector
	if c := n.capsOf(area); c.itemSelector != "" {
		selector = c.itemSelector
	}
	els := n.tree.QueryAll(area, selector)

	limits := make(map[E]caps)
	for _, e := range els {
		if c := n.capsOf(e); c.limit {
			limits[e] = c
		}
	}
	if len(limits) == 0 {
		return els
	}

	ordered := make([]E, 0, len(els))
	for _, e := range els {
		if _, isLimit := limits[e]; !isLimit {
			ordered = append(ordered, e)
		}
	}
	for _, e := range els {
		c, isLimit := limits[e]
		if !isLimit {
			continue
		}
		if dir != geometry.None && !c.limitMatches(dir) {
			continue
		}
		ordered = append(ordered, e)
	}
	return ordered
}

// selectablesOf concatenates the selectables of every area, in area order.
func (n *Navigator[E]) selectablesOf(areas []E) []E {
	var out []E
	for _, a := range areas {
		out = append(out, n.allSelectables(a, geometry.None)...)
	}
	return out
}

// AreaOf returns the closest area enclosing e, or the root. The zero value
// means the focused element.
func (n *Navigator[E]) AreaOf(e E) E {
	if e == n.zero {
		e = n.focused
	}
	for e != n.zero && e != n.root {
		parent, ok := n.tree.Parent(e)
		if !ok {
			break
		}
		e = parent
		if n.isArea(e) {
			return e
		}
	}
	return n.root
}

// AllAreas lists the navigation areas.
func (n *Navigator[E]) AllAreas() []E {
	return slices.Clone(n.allAreas())
}

// AllSelectables lists the selectable elements of area for travel in dir.
// Pass geometry.None to list every selectable.
func (n *Navigator[E]) AllSelectables(area E, dir geometry.Direction) []E {
	return n.allSelectables(area, dir)
}

// DefaultArea returns the area focus starts in.
func (n *Navigator[E]) DefaultArea() E {
	return n.defaultArea()
}
