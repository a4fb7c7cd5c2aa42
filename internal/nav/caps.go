// internal/nav/caps.go
package nav

import (
	"strconv"
	"strings"

	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
)

// Policy decides how a lost focus is replaced after the tree changes.
type Policy string

const (
	PolicyClosest  Policy = "closest"
	PolicyDefaults Policy = "defaults"
	PolicyHovered  Policy = "hovered"
	PolicyCircular Policy = "circular"
)

// ParsePolicy maps an attribute value to a Policy. Unknown and empty
// values mean PolicyClosest.
func ParsePolicy(s string) Policy {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyDefaults, PolicyHovered, PolicyCircular:
		return p
	}
	return PolicyClosest
}

// Attribute suffixes, appended to Options.Prefix.
const (
	attrArea     = "area"
	attrLimit    = "limit"
	attrCircular = "circular"
	attrSelected = "selected"
	attrTrack    = "track"
	attrTrackPos = "track-pos"
	attrZIndex   = "z-index"
	attrPolicy   = "policy"
)

// caps is everything the navigator needs to know about one element, read
// from its attributes in one pass.
type caps struct {
	area         bool
	itemSelector string

	limit     bool
	limitEdge geometry.Edge

	circular     bool
	circularAny  bool
	circularAxis geometry.Axis

	selected bool
	tracked  bool
	zIndex   float64
	policy   Policy
}

func (n *Navigator[E]) attr(suffix string) string {
	return n.opts.Prefix + suffix
}

func (n *Navigator[E]) capsOf(e E) caps {
	var c caps
	if e == n.zero {
		return c
	}
	if v, ok := n.tree.Attribute(e, n.attr(attrArea)); ok {
		c.area = true
		c.itemSelector = strings.TrimSpace(v)
	}
	if e == n.root {
		c.area = true
	}
	if v, ok := n.tree.Attribute(e, n.attr(attrLimit)); ok {
		c.limit = true
		c.limitEdge = geometry.Edge(strings.ToLower(strings.TrimSpace(v)))
	}
	if v, ok := n.tree.Attribute(e, n.attr(attrCircular)); ok {
		c.circular = true
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || v == "any" {
			c.circularAny = true
		} else {
			c.circularAxis, _ = geometry.ParseAxis(v)
		}
	}
	c.selected = n.tree.HasAttribute(e, n.attr(attrSelected))
	c.tracked = n.tree.HasAttribute(e, n.attr(attrTrack))
	if v, ok := n.tree.Attribute(e, n.attr(attrZIndex)); ok {
		c.zIndex, _ = strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	v, _ := n.tree.Attribute(e, n.attr(attrPolicy))
	c.policy = ParsePolicy(v)
	return c
}

// limitMatches reports whether the element is a limit on the edge dir points at.
func (c caps) limitMatches(dir geometry.Direction) bool {
	return dir != geometry.None && c.limit && c.limitEdge == dir.Edge()
}

// wrapsOn reports whether a circular area wraps movement in dir.
func (c caps) wrapsOn(dir geometry.Direction) bool {
	if !c.circular {
		return false
	}
	return c.circularAny || (c.circularAxis != geometry.NoAxis && c.circularAxis == dir.Axis())
}
