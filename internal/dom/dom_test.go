// internal/dom/dom_test.go
package dom

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
	"github.com/xkilldash9x/scalpel-nav/internal/nav"
)

const listHTML = `<html><body>
<div id="root" class="panel main">
  <ul>
    <li class="item first" data-nav-item>one</li>
    <li class="item" lang="en-US" data-kind="menu-entry">two</li>
    <li class="item last" title="hello world">three</li>
  </ul>
  <button id="go">go</button>
</div>
</body></html>`

func parse(t *testing.T, src string) *Document {
	t.Helper()
	d, err := ParseString(src, Viewport{Width: 1000, Height: 800}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return d
}

func describeAll(nodes []*html.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Describe(n))
	}
	return out
}

// -- Selectors --

func TestCompileSelector_Errors(t *testing.T) {
	for _, input := range []string{"", "   ", "#", ".", "div[", "[=x]", "a > ", "div[x=\"open]", "li::before"} {
		t.Run(input, func(t *testing.T) {
			_, err := CompileSelector(input)
			assert.Error(t, err)
		})
	}
}

func TestQueryAll_CSS(t *testing.T) {
	d := parse(t, listHTML)
	root := d.Root()

	tests := []struct {
		selector string
		want     []string
	}{
		{".item", []string{"li.item.first", "li.item", "li.item.last"}},
		{"ul > li.first", []string{"li.item.first"}},
		{".panel li", []string{"li.item.first", "li.item", "li.item.last"}},
		{"li.first + li", []string{"li.item"}},
		{"li.first ~ li", []string{"li.item", "li.item.last"}},
		{"[data-nav-item]", []string{"li.item.first"}},
		{"[lang|=en]", []string{"li.item"}},
		{"[data-kind^=menu]", []string{"li.item"}},
		{"[data-kind$='entry']", []string{"li.item"}},
		{"[data-kind*=\"nu-en\"]", []string{"li.item"}},
		{"[title~=world]", []string{"li.item.last"}},
		{"#go, .first", []string{"li.item.first", "button#go"}},
		{"div#root.main > button", []string{"button#go"}},
		{"section li", nil},
		{"li:not(.first)", []string{"li.item", "li.item.last"}},
		{"li:nth-child(2)", []string{"li.item"}},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			got := describeAll(d.QueryAll(root, tt.selector))
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("QueryAll(%q) mismatch (-want +got):\n%s", tt.selector, diff)
			}
		})
	}
}

func TestQueryAll_ExcludesRootAndInvalid(t *testing.T) {
	d := parse(t, listHTML)
	ul, ok := d.Query(d.Root(), "ul")
	require.True(t, ok)

	assert.Len(t, d.QueryAll(ul, "ul, li"), 3, "the root itself never matches")
	assert.Nil(t, d.QueryAll(d.Root(), "div["))
	// The failure is cached; a second call takes the same path.
	assert.Nil(t, d.QueryAll(d.Root(), "div["))
	assert.Nil(t, d.QueryAll(nil, "li"))
}

func TestQueryAll_XPath(t *testing.T) {
	d := parse(t, listHTML)
	ul, ok := d.Query(d.Root(), "ul")
	require.True(t, ok)

	assert.Equal(t, []string{"li.item.first"}, describeAll(d.QueryAll(d.Root(), "//li[@data-nav-item]")))
	assert.Len(t, d.QueryAll(ul, "./li"), 3)
	assert.Empty(t, d.QueryAll(ul, "//button"), "matches outside the root are dropped")
	assert.Nil(t, d.QueryAll(d.Root(), "//li["))

	first, ok := d.Query(d.Root(), "(//li)[last()]")
	require.True(t, ok)
	assert.Equal(t, "li.item.last", Describe(first))
}

func TestTreeHelpers(t *testing.T) {
	d := parse(t, listHTML)
	li, ok := d.Query(d.Root(), ".first")
	require.True(t, ok)

	parent, ok := d.Parent(li)
	require.True(t, ok)
	assert.Equal(t, "ul", parent.Data)
	assert.True(t, d.Contains(d.Root(), li))
	assert.True(t, d.Contains(li, li))
	assert.False(t, d.Contains(li, d.Root()))

	assert.True(t, d.HasAttribute(li, "DATA-NAV-ITEM"))
	d.SetAttribute(li, "data-nav-track-pos", `{"x":1,"y":2}`)
	v, ok := d.Attribute(li, "data-nav-track-pos")
	require.True(t, ok)
	assert.Equal(t, `{"x":1,"y":2}`, v)
	d.SetAttribute(li, "data-nav-track-pos", "later")
	v, _ = d.Attribute(li, "data-nav-track-pos")
	assert.Equal(t, "later", v)
	d.RemoveAttribute(li, "data-nav-track-pos")
	assert.False(t, d.HasAttribute(li, "data-nav-track-pos"))

	d.AddClass(li, "hover")
	d.AddClass(li, "hover")
	assert.Equal(t, "li.item.first.hover", d.Describe(li))
	d.RemoveClass(li, "item")
	d.RemoveClass(li, "first")
	d.RemoveClass(li, "hover")
	assert.False(t, d.HasAttribute(li, "class"))
	assert.Equal(t, "<nil>", d.Describe(nil))

	out, err := d.Render()
	require.NoError(t, err)
	assert.Contains(t, out, `<button id="go">go</button>`)
}

func TestAttached(t *testing.T) {
	d := parse(t, listHTML)
	li, ok := d.Query(d.Root(), ".first")
	require.True(t, ok)
	parent, _ := d.Parent(li)

	assert.True(t, d.Attached(d.Root()))
	assert.True(t, d.Attached(li))
	d.Remove(parent)
	assert.False(t, d.Attached(parent))
	assert.False(t, d.Attached(li), "descendants leave with their parent")
	assert.False(t, d.Attached(nil))
}

func TestXPathOf_RoundTrip(t *testing.T) {
	d := parse(t, listHTML)
	items := d.QueryAll(d.Root(), "li")
	require.Len(t, items, 3)

	xpath := XPathOf(items[1])
	assert.Equal(t, "//*[@id='root']/ul[1]/li[2]", xpath)
	assert.Equal(t, items[1], htmlquery.FindOne(d.Root(), xpath))

	assert.Equal(t, "//*[@id='go']", XPathOf(d.QueryAll(d.Root(), "button")[0]))
	assert.Equal(t, "/html[1]/body[1]", XPathOf(d.Root()))
	assert.Equal(t, "", XPathOf(nil))
}

// -- Layout --

const layoutHTML = `<html><body>
<div id="outer" style="left:100px;top:50px;width:50%;height:200px">
  <div id="inner" style="left:10%;top:10px;width:2em;height:1rem"></div>
  <span id="auto" style="left:5px;top:5px"></span>
</div>
<div id="group" style="left:0;top:500px">
  <a id="g1" style="left:10px;top:10px;width:20px;height:20px">1</a>
  <a id="g2" style="left:50px;top:40px;width:20px;height:20px !important">2</a>
</div>
<div id="gone" style="display:none;width:10px;height:10px"><a id="child" style="width:5px;height:5px">c</a></div>
<div id="invisible" style="visibility:hidden;width:10px;height:10px"></div>
<div id="attr-hidden" hidden style="width:10px;height:10px"></div>
<div id="vw" style="width:10vw;height:10vh"></div>
</body></html>`

func TestBoxOf(t *testing.T) {
	d := parse(t, layoutHTML)
	byID := func(id string) *html.Node {
		n, ok := d.Query(d.Root(), "#"+id)
		require.True(t, ok, id)
		return n
	}

	tests := []struct {
		id   string
		want geometry.Rect
	}{
		{"outer", geometry.Rect{Left: 100, Top: 50, Width: 500, Height: 200}},
		{"inner", geometry.Rect{Left: 150, Top: 60, Width: 32, Height: 16}},
		{"group", geometry.Rect{Left: 10, Top: 510, Width: 60, Height: 50}},
		{"g2", geometry.Rect{Left: 50, Top: 540, Width: 20, Height: 20}},
		{"vw", geometry.Rect{Left: 0, Top: 0, Width: 100, Height: 80}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			box, ok := d.BoxOf(byID(tt.id), 0)
			require.True(t, ok)
			assert.Equal(t, tt.want, box.Raw)
			assert.Equal(t, tt.want, box.Rect)
		})
	}

	for _, id := range []string{"auto", "gone", "child", "invisible", "attr-hidden"} {
		_, ok := d.BoxOf(byID(id), 0)
		assert.False(t, ok, "%s should have no box", id)
	}

	body, ok := d.BoxOf(d.Root(), 0)
	require.True(t, ok)
	assert.Equal(t, geometry.Rect{Width: 1000, Height: 800}, body.Raw)

	shrunk, ok := d.BoxOf(byID("inner"), 4)
	require.True(t, ok)
	assert.Equal(t, geometry.Rect{Left: 154, Top: 64, Width: 24, Height: 8}, shrunk.Rect)
	assert.Equal(t, geometry.Rect{Left: 150, Top: 60, Width: 32, Height: 16}, shrunk.Raw)

	inner := byID("inner")
	d.Remove(inner)
	_, ok = d.BoxOf(inner, 0)
	assert.False(t, ok, "detached elements have no box")
	_, ok = d.BoxOf(nil, 0)
	assert.False(t, ok)
}

func TestBoxOf_TracksLiveStyle(t *testing.T) {
	d := parse(t, layoutHTML)
	g1, ok := d.Query(d.Root(), "#g1")
	require.True(t, ok)

	d.SetAttribute(g1, "style", "left:0;top:0;width:40px;height:40px")
	box, ok := d.BoxOf(g1, 0)
	require.True(t, ok)
	assert.Equal(t, geometry.Point{X: 20, Y: 520}, box.Center())
}

// -- Mutations --

func TestObserve(t *testing.T) {
	d := parse(t, listHTML)
	ul, _ := d.Query(d.Root(), "ul")
	button, _ := d.Query(d.Root(), "button")

	var bodyCalls, ulCalls int
	bodyObs := d.Observe(d.Root(), func() { bodyCalls++ })
	var ulObs nav.Observer = d.Observe(ul, func() { ulCalls++ })

	li, _ := d.Query(ul, "li")
	d.Remove(li)
	assert.Equal(t, 1, bodyCalls)
	assert.Equal(t, 1, ulCalls)

	require.NoError(t, d.AppendHTML(button, "<span>new</span>"))
	assert.Equal(t, 2, bodyCalls)
	assert.Equal(t, 1, ulCalls, "changes outside the observed subtree are not reported")

	d.AddClass(button, "hover")
	d.SetAttribute(button, "data-x", "1")
	assert.Equal(t, 2, bodyCalls, "attribute writes are not structural")

	ulObs.Disconnect()
	ulObs.Disconnect()
	d.AppendChild(ul, &html.Node{Type: html.ElementNode, Data: "li"})
	assert.Equal(t, 3, bodyCalls)
	assert.Equal(t, 1, ulCalls)

	bodyObs.Disconnect()
	d.Remove(button)
	assert.Equal(t, 3, bodyCalls)
}

func TestReplaceBody(t *testing.T) {
	d := parse(t, listHTML)
	body := d.Root()
	var calls int
	d.Observe(body, func() { calls++ })

	err := d.ReplaceBody(strings.NewReader(`<html><body class="fresh"><p id="p1">hi</p></body></html>`))
	require.NoError(t, err)

	assert.Same(t, body, d.Root(), "the body keeps its identity")
	assert.Equal(t, 1, calls)
	assert.True(t, d.HasClass(body, "fresh"))
	_, ok := d.Query(body, "#p1")
	assert.True(t, ok)
	_, ok = d.Query(body, "ul")
	assert.False(t, ok)
}

// -- Events --

func TestDispatcher(t *testing.T) {
	d := parse(t, listHTML)
	button, _ := d.Query(d.Root(), "button")
	ev := NewDispatcher(zaptest.NewLogger(t), 2)

	var activated []*html.Node
	ev.On(nav.EventActivate, func(e Event) { activated = append(activated, e.Target) })

	at := geometry.Point{X: 1, Y: 2}
	ev.Dispatch(button, nav.EventFocus, at)
	ev.Dispatch(button, nav.EventActivate, at)
	ev.Dispatch(button, nav.EventUnfocus, at)

	assert.Equal(t, []*html.Node{button}, activated)
	history := ev.History()
	require.Len(t, history, 2, "history is capped")
	assert.Equal(t, nav.EventActivate, history[0].Kind)
	assert.Equal(t, nav.EventUnfocus, history[1].Kind)
	assert.Equal(t, at, history[1].Position)

	ev.Reset()
	assert.Empty(t, ev.History())
}
