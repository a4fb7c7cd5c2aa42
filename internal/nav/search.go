// internal/nav/search.go
package nav

import (
	"cmp"
	"math"
	"slices"

	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
)

// origin is where a search starts: a bare point, or an element box.
type origin struct {
	point geometry.Point
	box   *geometry.Box
}

func fromPoint(p geometry.Point) origin { return origin{point: p} }

func fromBox(b geometry.Box) origin { return origin{point: b.Center(), box: &b} }

type candidate[E comparable] struct {
	el       E
	proj     float64
	dist     float64
	priority float64
}

// findClosest returns the element of els nearest to from in direction dir.
//
// Candidates must lie in the closed half-space facing dir. With treatAsArea
// the test uses the candidate's boundary facing back at the origin instead
// of its center. Survivors are ordered by projection, then alignment
// priority, then L1 distance. When at least one candidate shares a row (or
// column) with the origin box, unaligned candidates are dropped after
// sorting.
func (n *Navigator[E]) findClosest(from origin, els []E, dir geometry.Direction, treatAsArea bool) (E, bool) {
	v := dir.Vector()
	back := v.Neg()

	pos := from.point
	var originRaw *geometry.Rect
	if from.box != nil {
		pos = from.box.Bound(v)
		originRaw = &from.box.Raw
	}

	cands := make([]candidate[E], 0, len(els))
	for _, el := range els {
		box, ok := n.geom.BoxOf(el, n.opts.Overlap)
		if !ok {
			continue
		}
		ref := box.Center()
		if treatAsArea {
			ref = box.Bound(back)
		}
		if !geometry.InHalfSpace(pos, ref, v) {
			continue
		}
		bound := box.Bound(back)
		c := candidate[E]{
			el:       el,
			proj:     geometry.DistP(pos, bound, v),
			dist:     geometry.Dist1(pos, bound),
			priority: math.Inf(1),
		}
		if originRaw != nil && geometry.Intersects(*originRaw, box.Raw, v) {
			if p, ok := n.priority.score(bound, v); ok {
				c.priority = p
			}
		}
		cands = append(cands, c)
	}

	slices.SortStableFunc(cands, func(a, b candidate[E]) int {
		if c := cmp.Compare(a.proj, b.proj); c != 0 {
			return c
		}
		if c := cmp.Compare(a.priority, b.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.dist, b.dist)
	})

	if len(cands) > 1 && slices.ContainsFunc(cands, aligned[E]) {
		cands = slices.DeleteFunc(cands, func(c candidate[E]) bool { return !aligned(c) })
	}
	if len(cands) == 0 {
		return n.zero, false
	}
	return cands[0].el, true
}

func aligned[E comparable](c candidate[E]) bool {
	return !math.IsInf(c.priority, 1)
}

// findHovered returns the element of els whose box contains p.
func (n *Navigator[E]) findHovered(p geometry.Point, els []E) (E, bool) {
	el, ok := n.findClosest(fromPoint(p), els, geometry.None, false)
	if !ok {
		return n.zero, false
	}
	box, ok := n.geom.BoxOf(el, n.opts.Overlap)
	if !ok || !box.Contains(p) {
		return n.zero, false
	}
	return el, true
}

func without[E comparable](els []E, drop E) []E {
	out := make([]E, 0, len(els))
	for _, e := range els {
		if e != drop {
			out = append(out, e)
		}
	}
	return out
}
