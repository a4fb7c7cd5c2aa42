// internal/browser/page.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	cdpinput "github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
	"github.com/xkilldash9x/scalpel-nav/internal/input"
	"github.com/xkilldash9x/scalpel-nav/internal/nav"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// xpathMarker tags XPath matches so they can be collected with a CSS query.
const xpathMarker = "data-scalpel-xpath"

// Page adapts a live browser tab to the navigator. Elements are DevTools
// node ids; the zero id means no element.
//
// Like dom.Document, a Page must only be used from the goroutine that owns
// the navigator. Every call is a blocking protocol round trip.
type Page struct {
	ctx     context.Context
	timeout time.Duration
	poster  input.Poster
	logger  *zap.Logger
	marker  atomic.Int64
}

var (
	_ nav.Tree[cdp.NodeID]             = (*Page)(nil)
	_ nav.Attachment[cdp.NodeID]       = (*Page)(nil)
	_ nav.Geometry[cdp.NodeID]         = (*Page)(nil)
	_ nav.MutationNotifier[cdp.NodeID] = (*Page)(nil)
	_ nav.Dispatcher[cdp.NodeID]       = (*Page)(nil)
)

// NewPage wraps the session's tab. poster serializes mutation callbacks
// onto the navigator's goroutine.
func NewPage(s *Session, poster input.Poster) *Page {
	return &Page{
		ctx:     s.ctx,
		timeout: s.timeout,
		poster:  poster,
		logger:  s.logger.Named("page"),
	}
}

func (p *Page) run(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.ActionFunc(fn))
}

// Root loads the whole document into the protocol's node map and returns
// the body element.
func (p *Page) Root() (cdp.NodeID, error) {
	var body cdp.NodeID
	err := p.run(func(ctx context.Context) error {
		doc, err := dom.GetDocument().WithDepth(-1).Do(ctx)
		if err != nil {
			return err
		}
		body, err = dom.QuerySelector(doc.NodeID, "body").Do(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to resolve document body: %w", err)
	}
	if body == 0 {
		return 0, errors.New("document has no body")
	}
	return body, nil
}

// -- Tree --

// QueryAll implements nav.Tree. Expressions starting with "/", "./" or "("
// are XPath, everything else is CSS.
func (p *Page) QueryAll(root cdp.NodeID, selector string) []cdp.NodeID {
	if root == 0 {
		return nil
	}
	var ids []cdp.NodeID
	err := p.run(func(ctx context.Context) error {
		if isXPath(selector) {
			var err error
			ids, err = p.queryXPath(ctx, root, selector)
			return err
		}
		var err error
		ids, err = dom.QuerySelectorAll(root, selector).Do(ctx)
		return err
	})
	if err != nil {
		p.logger.Warn("Query failed.", zap.String("selector", selector), zap.Error(err))
		return nil
	}
	return ids
}

// queryXPath evaluates expr in the page with root as the context node. The
// matches are tagged, collected in document order and untagged again.
func (p *Page) queryXPath(ctx context.Context, root cdp.NodeID, expr string) ([]cdp.NodeID, error) {
	token := fmt.Sprintf("q%d", p.marker.Add(1))
	mark := fmt.Sprintf(`function() {
		const r = document.evaluate(%s, this, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		for (let i = 0; i < r.snapshotLength; i++) {
			const n = r.snapshotItem(i);
			if (n.nodeType === 1 && n !== this) n.setAttribute(%s, %s);
		}
		return r.snapshotLength;
	}`, jsonEncode(expr), jsonEncode(xpathMarker), jsonEncode(token))
	if _, err := callOn(ctx, root, mark, 0); err != nil {
		return nil, err
	}

	ids, err := dom.QuerySelectorAll(root, fmt.Sprintf(`[%s=%q]`, xpathMarker, token)).Do(ctx)
	for _, id := range ids {
		_ = dom.RemoveAttribute(id, xpathMarker).Do(ctx)
	}
	return ids, err
}

// Query implements nav.Tree.
func (p *Page) Query(root cdp.NodeID, selector string) (cdp.NodeID, bool) {
	if root == 0 {
		return 0, false
	}
	if isXPath(selector) {
		ids := p.QueryAll(root, selector)
		if len(ids) == 0 {
			return 0, false
		}
		return ids[0], true
	}
	var id cdp.NodeID
	err := p.run(func(ctx context.Context) error {
		var err error
		id, err = dom.QuerySelector(root, selector).Do(ctx)
		return err
	})
	if err != nil {
		p.logger.Debug("Query failed.", zap.String("selector", selector), zap.Error(err))
		return 0, false
	}
	return id, id != 0
}

// Parent implements nav.Tree.
func (p *Page) Parent(e cdp.NodeID) (cdp.NodeID, bool) {
	if e == 0 {
		return 0, false
	}
	var parent cdp.NodeID
	err := p.run(func(ctx context.Context) error {
		obj, err := resolve(ctx, e)
		if err != nil {
			return err
		}
		defer release(ctx, obj)
		res, exc, err := runtime.CallFunctionOn(`function() { return this.parentElement; }`).
			WithObjectID(obj).
			Do(ctx)
		if err := callError(exc, err); err != nil {
			return err
		}
		if res.ObjectID == "" {
			return nil
		}
		defer release(ctx, res.ObjectID)
		parent, err = dom.RequestNode(res.ObjectID).Do(ctx)
		return err
	})
	if err != nil {
		p.logger.Debug("Failed to resolve parent.", zap.Int64("node_id", int64(e)), zap.Error(err))
		return 0, false
	}
	return parent, parent != 0
}

// Contains implements nav.Tree.
func (p *Page) Contains(root, e cdp.NodeID) bool {
	if root == 0 || e == 0 {
		return false
	}
	if root == e {
		return true
	}
	var inside bool
	err := p.run(func(ctx context.Context) error {
		raw, err := callOn(ctx, root, `function(n) { return this.contains(n); }`, e)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, &inside)
	})
	if err != nil {
		p.logger.Debug("Containment check failed.", zap.Error(err))
		return false
	}
	return inside
}

// Attached implements nav.Attachment. A node the page no longer knows
// counts as detached.
func (p *Page) Attached(e cdp.NodeID) bool {
	if e == 0 {
		return false
	}
	var connected bool
	err := p.run(func(ctx context.Context) error {
		raw, err := callOn(ctx, e, `function() { return this.isConnected; }`, 0)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, &connected)
	})
	if err != nil {
		p.logger.Debug("Attachment check failed.", zap.Error(err))
		return false
	}
	return connected
}

func (p *Page) attributes(e cdp.NodeID) []string {
	if e == 0 {
		return nil
	}
	var pairs []string
	err := p.run(func(ctx context.Context) error {
		var err error
		pairs, err = dom.GetAttributes(e).Do(ctx)
		return err
	})
	if err != nil {
		p.logger.Debug("Failed to read attributes.", zap.Int64("node_id", int64(e)), zap.Error(err))
		return nil
	}
	return pairs
}

// HasAttribute implements nav.Tree.
func (p *Page) HasAttribute(e cdp.NodeID, name string) bool {
	_, ok := attrLookup(p.attributes(e), name)
	return ok
}

// Attribute implements nav.Tree.
func (p *Page) Attribute(e cdp.NodeID, name string) (string, bool) {
	return attrLookup(p.attributes(e), name)
}

// SetAttribute implements nav.Tree.
func (p *Page) SetAttribute(e cdp.NodeID, name, value string) {
	if e == 0 {
		return
	}
	err := p.run(func(ctx context.Context) error {
		return dom.SetAttributeValue(e, name, value).Do(ctx)
	})
	if err != nil {
		p.logger.Debug("Failed to set attribute.", zap.String("name", name), zap.Error(err))
	}
}

// AddClass implements nav.Tree.
func (p *Page) AddClass(e cdp.NodeID, class string) {
	p.editClass(e, class, true)
}

// RemoveClass implements nav.Tree.
func (p *Page) RemoveClass(e cdp.NodeID, class string) {
	p.editClass(e, class, false)
}

func (p *Page) editClass(e cdp.NodeID, class string, add bool) {
	current, _ := p.Attribute(e, "class")
	next := editClassList(current, class, add)
	if next != current {
		p.SetAttribute(e, "class", next)
	}
}

// Describe implements nav.Tree.
func (p *Page) Describe(e cdp.NodeID) string {
	if e == 0 {
		return "<nil>"
	}
	var node *cdp.Node
	err := p.run(func(ctx context.Context) error {
		var err error
		node, err = dom.DescribeNode().WithNodeID(e).Do(ctx)
		return err
	})
	if err != nil || node == nil {
		return fmt.Sprintf("#node(%d)", e)
	}
	return describeNode(node.LocalName, node.Attributes)
}

// -- Geometry --

// clientBox is what the box script returns.
type clientBox struct {
	Left    float64 `json:"left"`
	Top     float64 `json:"top"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Visible bool    `json:"visible"`
}

const boxScript = `function() {
	const r = this.getBoundingClientRect();
	const s = window.getComputedStyle(this);
	return {
		left: r.left, top: r.top, width: r.width, height: r.height,
		visible: s.display !== 'none' && s.visibility !== 'hidden'
	};
}`

// BoxOf implements nav.Geometry with the element's border box in viewport
// coordinates.
func (p *Page) BoxOf(e cdp.NodeID, overlap float64) (geometry.Box, bool) {
	if e == 0 {
		return geometry.Box{}, false
	}
	var b clientBox
	err := p.run(func(ctx context.Context) error {
		raw, err := callOn(ctx, e, boxScript, 0)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, &b)
	})
	if err != nil {
		p.logger.Debug("Failed to measure element.", zap.Int64("node_id", int64(e)), zap.Error(err))
		return geometry.Box{}, false
	}
	rect := geometry.Rect{Left: b.Left, Top: b.Top, Width: b.Width, Height: b.Height}
	if !b.Visible || rect.Empty() {
		return geometry.Box{}, false
	}
	return geometry.NewBox(rect, overlap), true
}

// -- Mutation notifier --

type observer struct {
	cancel context.CancelFunc
}

func (o *observer) Disconnect() { o.cancel() }

// Observe implements nav.MutationNotifier. DevTools reports child list
// changes; bursts are coalesced into one callback, which runs through the
// poster.
func (p *Page) Observe(root cdp.NodeID, onChange func()) nav.Observer {
	ctx, cancel := context.WithCancel(p.ctx)
	o := &observer{cancel: cancel}
	if p.poster == nil {
		p.logger.Warn("No poster configured, tree changes will not be observed.")
		return o
	}

	// Child list events only arrive for subtrees the client has requested.
	if err := p.run(func(ctx context.Context) error {
		return dom.RequestChildNodes(root).WithDepth(-1).Do(ctx)
	}); err != nil {
		p.logger.Warn("Failed to subscribe to tree changes.", zap.Error(err))
	}

	var pending atomic.Bool
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch ev.(type) {
		case *dom.EventChildNodeInserted, *dom.EventChildNodeRemoved,
			*dom.EventChildNodeCountUpdated, *dom.EventDocumentUpdated:
		default:
			return
		}
		if !pending.CompareAndSwap(false, true) {
			return
		}
		// Listeners run on the protocol's read loop and must not block it.
		go func() {
			err := p.poster.Post(ctx, func() {
				pending.Store(false)
				if ctx.Err() == nil {
					onChange()
				}
			})
			if err != nil {
				pending.Store(false)
			}
		}()
	})
	return o
}

// -- Dispatcher --

// Dispatch implements nav.Dispatcher with real mouse input: focus moves the
// mouse to the pointer and activation clicks there.
func (p *Page) Dispatch(e cdp.NodeID, kind nav.EventKind, at geometry.Point) {
	var actions []chromedp.Action
	switch kind {
	case nav.EventFocus:
		actions = append(actions, cdpinput.DispatchMouseEvent(cdpinput.MouseMoved, at.X, at.Y))
	case nav.EventActivate:
		actions = append(actions,
			cdpinput.DispatchMouseEvent(cdpinput.MousePressed, at.X, at.Y).
				WithButton(cdpinput.Left).WithButtons(1).WithClickCount(1),
			cdpinput.DispatchMouseEvent(cdpinput.MouseReleased, at.X, at.Y).
				WithButton(cdpinput.Left).WithClickCount(1),
		)
	default:
		return
	}
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()
	if err := chromedp.Run(ctx, actions...); err != nil {
		p.logger.Warn("Failed to dispatch mouse input.",
			zap.String("kind", string(kind)),
			zap.Int64("node_id", int64(e)),
			zap.Error(err))
	}
}

// -- protocol helpers --

func resolve(ctx context.Context, id cdp.NodeID) (runtime.RemoteObjectID, error) {
	obj, err := dom.ResolveNode().WithNodeID(id).Do(ctx)
	if err != nil {
		return "", err
	}
	return obj.ObjectID, nil
}

func release(ctx context.Context, obj runtime.RemoteObjectID) {
	_ = runtime.ReleaseObject(obj).Do(ctx)
}

// callOn runs fn with this bound to target, passing arg as the only
// argument when it is set, and returns the JSON encoded result.
func callOn(ctx context.Context, target cdp.NodeID, fn string, arg cdp.NodeID) ([]byte, error) {
	obj, err := resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	defer release(ctx, obj)

	call := runtime.CallFunctionOn(fn).WithObjectID(obj).WithReturnByValue(true)
	if arg != 0 {
		argObj, err := resolve(ctx, arg)
		if err != nil {
			return nil, err
		}
		defer release(ctx, argObj)
		call = call.WithArguments([]*runtime.CallArgument{{ObjectID: argObj}})
	}
	res, exc, err := call.Do(ctx)
	if err := callError(exc, err); err != nil {
		return nil, err
	}
	return []byte(res.Value), nil
}

func callError(exc *runtime.ExceptionDetails, err error) error {
	if err != nil {
		return err
	}
	if exc != nil {
		return fmt.Errorf("script exception: %s", exc.Text)
	}
	return nil
}

func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

func isXPath(selector string) bool {
	s := strings.TrimSpace(selector)
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "(")
}

// attrLookup finds name in a flat name/value list as DevTools returns it.
func attrLookup(pairs []string, name string) (string, bool) {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.EqualFold(pairs[i], name) {
			return pairs[i+1], true
		}
	}
	return "", false
}

// editClassList adds or removes class from a class attribute value.
func editClassList(current, class string, add bool) string {
	fields := strings.Fields(current)
	kept := fields[:0]
	found := false
	for _, c := range fields {
		if c == class {
			found = true
			if !add {
				continue
			}
		}
		kept = append(kept, c)
	}
	if add && !found {
		kept = append(kept, class)
	}
	return strings.Join(kept, " ")
}

// describeNode renders tag#id, or tag.class1.class2 without an id.
func describeNode(tag string, attrs []string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(tag))
	if id, ok := attrLookup(attrs, "id"); ok && id != "" {
		b.WriteByte('#')
		b.WriteString(id)
		return b.String()
	}
	if class, ok := attrLookup(attrs, "class"); ok {
		for _, c := range strings.Fields(class) {
			b.WriteByte('.')
			b.WriteString(c)
		}
	}
	return b.String()
}
