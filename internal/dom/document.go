// internal/dom/document.go
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xkilldash9x/scalpel-nav/internal/nav"
)

// Document is a parsed HTML tree that the navigator runs against. It is the
// in-process implementation of the tree query, geometry and mutation
// notification adapters.
//
// A Document is not safe for concurrent use. Callers serialize access the
// same way they serialize navigator operations (see the shell package).
type Document struct {
	logger    *zap.Logger
	doc       *html.Node
	body      *html.Node
	viewport  Viewport
	selectors map[string]Selector
	observers []*observer
	nextID    int
}

var (
	_ nav.Tree[*html.Node]             = (*Document)(nil)
	_ nav.Attachment[*html.Node]       = (*Document)(nil)
	_ nav.Geometry[*html.Node]         = (*Document)(nil)
	_ nav.MutationNotifier[*html.Node] = (*Document)(nil)
)

// Viewport is the size of the initial containing block used to resolve
// percentages and viewport units in inline styles.
type Viewport struct {
	Width, Height float64
}

// DefaultViewport matches a common 1080p television surface.
var DefaultViewport = Viewport{Width: 1920, Height: 1080}

// Parse reads an HTML document.
func Parse(r io.Reader, viewport Viewport, logger *zap.Logger) (*Document, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: failed to parse document: %w", err)
	}
	if viewport.Width <= 0 || viewport.Height <= 0 {
		viewport = DefaultViewport
	}
	d := &Document{
		logger:    logger.Named("dom"),
		doc:       root,
		viewport:  viewport,
		selectors: make(map[string]Selector),
	}
	d.body = findBody(root)
	return d, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string, viewport Viewport, logger *zap.Logger) (*Document, error) {
	return Parse(strings.NewReader(s), viewport, logger)
}

// Root returns the <body> element, which is the navigation root.
func (d *Document) Root() *html.Node { return d.body }

// Viewport returns the configured viewport.
func (d *Document) Viewport() Viewport { return d.viewport }

// Render serializes the whole document back to HTML.
func (d *Document) Render() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.doc); err != nil {
		return "", fmt.Errorf("dom: failed to render document: %w", err)
	}
	return buf.String(), nil
}

// ReplaceBody swaps the children of the current <body> with the <body>
// children of a freshly parsed document. The body element itself (the
// navigation root) keeps its identity, while every old descendant is detached.
func (d *Document) ReplaceBody(r io.Reader) error {
	fresh, err := htmlquery.Parse(r)
	if err != nil {
		return fmt.Errorf("dom: failed to parse replacement document: %w", err)
	}
	freshBody := findBody(fresh)
	if freshBody == nil {
		return fmt.Errorf("dom: replacement document has no body")
	}
	for c := d.body.FirstChild; c != nil; {
		next := c.NextSibling
		d.body.RemoveChild(c)
		c = next
	}
	for c := freshBody.FirstChild; c != nil; {
		next := c.NextSibling
		freshBody.RemoveChild(c)
		d.body.AppendChild(c)
		c = next
	}
	d.body.Attr = append([]html.Attribute(nil), freshBody.Attr...)
	d.logger.Debug("Document body replaced.")
	d.notify(d.body)
	return nil
}

// AppendChild inserts child as the last child of parent and notifies observers.
func (d *Document) AppendChild(parent, child *html.Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	parent.AppendChild(child)
	d.notify(parent)
}

// AppendHTML parses an HTML fragment in the context of parent and appends
// the resulting nodes.
func (d *Document) AppendHTML(parent *html.Node, fragment string) error {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return fmt.Errorf("dom: failed to parse fragment: %w", err)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	d.notify(parent)
	return nil
}

// Remove detaches node from the tree and notifies observers.
func (d *Document) Remove(node *html.Node) {
	parent := node.Parent
	if parent == nil {
		return
	}
	parent.RemoveChild(node)
	d.notify(parent)
}

// -- Mutation notification --

type observer struct {
	doc      *Document
	id       int
	root     *html.Node
	onChange func()
}

// Disconnect stops delivering notifications. It is safe to call more than once.
func (o *observer) Disconnect() {
	d := o.doc
	for i, other := range d.observers {
		if other.id == o.id {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			return
		}
	}
}

// Observe registers onChange for structural changes (children added or
// removed) anywhere under root. Attribute and class changes are not reported.
func (d *Document) Observe(root *html.Node, onChange func()) nav.Observer {
	d.nextID++
	o := &observer{doc: d, id: d.nextID, root: root, onChange: onChange}
	d.observers = append(d.observers, o)
	return o
}

// notify delivers a change at target to every observer whose root contains it.
func (d *Document) notify(target *html.Node) {
	// Copy first: a callback may disconnect itself or register a new observer.
	pending := append([]*observer(nil), d.observers...)
	for _, o := range pending {
		if isAncestorOrSelf(o.root, target) || isAncestorOrSelf(target, o.root) {
			o.onChange()
		}
	}
}

func findBody(root *html.Node) *html.Node {
	if n := htmlquery.FindOne(root, "//body"); n != nil {
		return n
	}
	return root
}

func isAncestorOrSelf(ancestor, node *html.Node) bool {
	for n := node; n != nil; n = n.Parent {
		if n == ancestor {
			return true
		}
	}
	return false
}
