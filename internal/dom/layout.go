// internal/dom/layout.go
package dom

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
)

// The box model here is deliberately small: every element is absolutely
// positioned inside its parent element using the left/top/width/height
// declarations of its inline style. An element without an explicit size
// takes the bounding rectangle of its rendered children, which is what an
// area wrapping a group of items needs. The body defaults to the viewport.

const baseFontSize = 16.0

// BoxOf computes the current bounding box of n. It returns false when the
// element is detached, hidden (display:none, visibility:hidden) or has no
// area. Boxes are computed from the live tree on every call.
func (d *Document) BoxOf(n *html.Node, overlap float64) (geometry.Box, bool) {
	if n == nil || n.Type != html.ElementNode || !isAncestorOrSelf(d.doc, n) {
		return geometry.Box{}, false
	}
	rect, ok := d.rectOf(n)
	if !ok || rect.Empty() {
		return geometry.Box{}, false
	}
	return geometry.NewBox(rect, overlap), true
}

// rectOf returns the absolute border rectangle of n.
func (d *Document) rectOf(n *html.Node) (geometry.Rect, bool) {
	if !d.rendered(n) {
		return geometry.Rect{}, false
	}
	decls := inlineStyle(n)
	origin := d.originOf(n)
	refW, refH := d.sizeHint(parentElement(n))

	width, hasW := d.length(decls["width"], refW)
	height, hasH := d.length(decls["height"], refH)
	if n == d.body {
		if !hasW {
			width, hasW = d.viewport.Width, true
		}
		if !hasH {
			height, hasH = d.viewport.Height, true
		}
	}
	if hasW && hasH {
		return geometry.Rect{Left: origin.X, Top: origin.Y, Width: width, Height: height}, true
	}

	// Fall back to the union of the rendered children for missing dimensions.
	union, ok := d.childrenUnion(n)
	if !ok {
		if hasW || hasH {
			return geometry.Rect{Left: origin.X, Top: origin.Y, Width: width, Height: height}, true
		}
		return geometry.Rect{}, false
	}
	rect := union
	if hasW {
		rect.Left, rect.Width = origin.X, width
	}
	if hasH {
		rect.Top, rect.Height = origin.Y, height
	}
	return rect, true
}

func (d *Document) childrenUnion(n *html.Node) (geometry.Rect, bool) {
	var (
		minX, minY = math.Inf(1), math.Inf(1)
		maxX, maxY = math.Inf(-1), math.Inf(-1)
		found      bool
	)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		r, ok := d.rectOf(c)
		if !ok || r.Empty() {
			continue
		}
		found = true
		minX = math.Min(minX, r.Left)
		minY = math.Min(minY, r.Top)
		maxX = math.Max(maxX, r.Right())
		maxY = math.Max(maxY, r.Bottom())
	}
	if !found {
		return geometry.Rect{}, false
	}
	return geometry.Rect{Left: minX, Top: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// originOf accumulates left/top offsets from the body down to n.
func (d *Document) originOf(n *html.Node) geometry.Point {
	if n == nil || n == d.body || n.Type != html.ElementNode {
		if n == d.body && n != nil {
			return d.offsetOf(n)
		}
		return geometry.Zero
	}
	return d.originOf(parentElement(n)).Add(d.offsetOf(n))
}

func (d *Document) offsetOf(n *html.Node) geometry.Point {
	decls := inlineStyle(n)
	refW, refH := d.sizeHint(parentElement(n))
	x, _ := d.length(decls["left"], refW)
	y, _ := d.length(decls["top"], refH)
	return geometry.Point{X: x, Y: y}
}

// sizeHint is the reference size used for percentages inside n: its explicit
// size if it has one, otherwise the hint of its parent, ending at the viewport.
func (d *Document) sizeHint(n *html.Node) (float64, float64) {
	if n == nil || n.Type != html.ElementNode {
		return d.viewport.Width, d.viewport.Height
	}
	pw, ph := d.sizeHint(parentElement(n))
	decls := inlineStyle(n)
	w, ok := d.length(decls["width"], pw)
	if !ok {
		w = pw
	}
	h, ok := d.length(decls["height"], ph)
	if !ok {
		h = ph
	}
	return w, h
}

// rendered is false when n or an ancestor has display:none, or when the
// nearest visibility declaration is hidden or collapse.
func (d *Document) rendered(n *html.Node) bool {
	visibilityDecided := false
	for e := n; e != nil; e = e.Parent {
		if e.Type != html.ElementNode {
			continue
		}
		decls := inlineStyle(e)
		if strings.EqualFold(decls["display"], "none") {
			return false
		}
		if _, hidden := attr(e, "hidden"); hidden {
			return false
		}
		if v, ok := decls["visibility"]; ok && !visibilityDecided {
			visibilityDecided = true
			if v = strings.ToLower(v); v == "hidden" || v == "collapse" {
				return false
			}
		}
	}
	return true
}

// length resolves a CSS length against a reference dimension. The boolean is
// false when the value is absent or cannot be parsed.
func (d *Document) length(value string, reference float64) (float64, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == "auto" {
		return 0, false
	}
	numeric := func(suffix string) (float64, bool) {
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(value, suffix)), 64)
		return f, err == nil
	}
	switch {
	case strings.HasSuffix(value, "%"):
		if f, ok := numeric("%"); ok {
			return reference * f / 100, true
		}
	case strings.HasSuffix(value, "px"):
		return numeric("px")
	// rem has to be checked before em.
	case strings.HasSuffix(value, "rem"):
		if f, ok := numeric("rem"); ok {
			return f * baseFontSize, true
		}
	case strings.HasSuffix(value, "em"):
		if f, ok := numeric("em"); ok {
			return f * baseFontSize, true
		}
	case strings.HasSuffix(value, "vw"):
		if f, ok := numeric("vw"); ok {
			return d.viewport.Width * f / 100, true
		}
	case strings.HasSuffix(value, "vh"):
		if f, ok := numeric("vh"); ok {
			return d.viewport.Height * f / 100, true
		}
	default:
		// Unitless values are treated as pixels.
		return numeric("")
	}
	return 0, false
}

// inlineStyle parses the style attribute into lower-cased property names.
// Later declarations win, and !important is accepted and dropped.
func inlineStyle(n *html.Node) map[string]string {
	styleAttr, ok := attr(n, "style")
	if !ok {
		return nil
	}
	decls := make(map[string]string)
	for _, part := range strings.Split(styleAttr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		prop := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])
		if strings.HasSuffix(strings.ToLower(val), "!important") {
			val = strings.TrimSpace(val[:len(val)-len("!important")])
		}
		decls[prop] = val
	}
	return decls
}

func parentElement(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}
