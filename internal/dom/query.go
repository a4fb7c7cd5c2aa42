// internal/dom/query.go
package dom

import (
	"slices"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// isXPath reports whether a selector string should be evaluated as XPath
// rather than CSS.
func isXPath(selector string) bool {
	s := strings.TrimSpace(selector)
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "(")
}

// compile returns the cached compiled form of a CSS selector.
func (d *Document) compile(selector string) (Selector, bool) {
	if sel, ok := d.selectors[selector]; ok {
		return sel, sel != nil
	}
	sel, err := CompileSelector(selector)
	if err != nil {
		d.logger.Warn("Ignoring invalid selector.", zap.String("selector", selector), zap.Error(err))
		// Cache the failure too, so the warning is logged once.
		d.selectors[selector] = nil
		return nil, false
	}
	d.selectors[selector] = sel
	return sel, true
}

// QueryAll returns the descendants of root (root itself excluded) matching
// selector, in document order. XPath expressions are evaluated relative to root.
func (d *Document) QueryAll(root *html.Node, selector string) []*html.Node {
	if root == nil {
		return nil
	}
	if isXPath(selector) {
		nodes, err := htmlquery.QueryAll(root, selector)
		if err != nil {
			d.logger.Warn("Ignoring invalid XPath selector.", zap.String("selector", selector), zap.Error(err))
			return nil
		}
		out := nodes[:0]
		for _, n := range nodes {
			if n != root && n.Type == html.ElementNode && isAncestorOrSelf(root, n) {
				out = append(out, n)
			}
		}
		return out
	}

	sel, ok := d.compile(selector)
	if !ok {
		return nil
	}
	return cascadia.QueryAll(root, sel)
}

// Query returns the first descendant of root matching selector.
func (d *Document) Query(root *html.Node, selector string) (*html.Node, bool) {
	if root == nil {
		return nil, false
	}
	if isXPath(selector) {
		nodes := d.QueryAll(root, selector)
		if len(nodes) == 0 {
			return nil, false
		}
		return nodes[0], true
	}
	sel, ok := d.compile(selector)
	if !ok {
		return nil, false
	}
	found := cascadia.Query(root, sel)
	return found, found != nil
}

// Parent returns the parent element of n.
func (d *Document) Parent(n *html.Node) (*html.Node, bool) {
	if n == nil {
		return nil, false
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p, true
		}
	}
	return nil, false
}

// Contains reports whether n is root or one of its descendants.
func (d *Document) Contains(root, n *html.Node) bool {
	if root == nil || n == nil {
		return false
	}
	return isAncestorOrSelf(root, n)
}

// Attached reports whether n is still part of the document.
func (d *Document) Attached(n *html.Node) bool {
	if n == nil {
		return false
	}
	return isAncestorOrSelf(d.doc, n)
}

// HasAttribute reports whether n carries the attribute.
func (d *Document) HasAttribute(n *html.Node, name string) bool {
	_, ok := attr(n, name)
	return ok
}

// Attribute returns the attribute value and whether it is present.
func (d *Document) Attribute(n *html.Node, name string) (string, bool) {
	return attr(n, name)
}

// SetAttribute sets or replaces an attribute. Attribute writes are not
// reported to observers.
func (d *Document) SetAttribute(n *html.Node, name, value string) {
	if n == nil {
		return
	}
	name = strings.ToLower(name)
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttribute deletes an attribute if present.
func (d *Document) RemoveAttribute(n *html.Node, name string) {
	if n == nil {
		return
	}
	name = strings.ToLower(name)
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// HasClass reports whether the class list of n contains class.
func (d *Document) HasClass(n *html.Node, class string) bool {
	return slices.Contains(classList(n), class)
}

// AddClass appends class to the class list of n, once.
func (d *Document) AddClass(n *html.Node, class string) {
	if n == nil || class == "" {
		return
	}
	classes := classList(n)
	if slices.Contains(classes, class) {
		return
	}
	d.SetAttribute(n, "class", strings.Join(append(classes, class), " "))
}

// RemoveClass removes every occurrence of class from the class list of n.
func (d *Document) RemoveClass(n *html.Node, class string) {
	if n == nil || class == "" {
		return
	}
	classes := classList(n)
	kept := classes[:0]
	for _, c := range classes {
		if c != class {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		d.RemoveAttribute(n, "class")
		return
	}
	d.SetAttribute(n, "class", strings.Join(kept, " "))
}

// Describe returns a short human readable description for logs.
func (d *Document) Describe(n *html.Node) string {
	if n == nil {
		return "<nil>"
	}
	return Describe(n)
}

// -- helpers --

func attr(n *html.Node, name string) (string, bool) {
	if n == nil || n.Type != html.ElementNode {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func classList(n *html.Node) []string {
	v, _ := attr(n, "class")
	return strings.Fields(v)
}
