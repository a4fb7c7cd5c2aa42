// internal/browser/browser_test.go
package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scalpel-nav/internal/config"
	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
	"github.com/xkilldash9x/scalpel-nav/internal/nav"
	"github.com/xkilldash9x/scalpel-nav/internal/shell"
)

func TestAllocatorOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts := AllocatorOptions(config.BrowserConfig{Headless: true})
		assert.Len(t, opts, 6)
	})

	t.Run("headed", func(t *testing.T) {
		opts := AllocatorOptions(config.BrowserConfig{Headless: false})
		assert.Len(t, opts, 5)
	})

	t.Run("custom flags", func(t *testing.T) {
		opts := AllocatorOptions(config.BrowserConfig{Flags: map[string]string{
			"--window-size": "1280,720",
			"mute-audio":    "",
		}})
		assert.Len(t, opts, 7)
	})
}

func TestAttrLookup(t *testing.T) {
	pairs := []string{"id", "menu", "CLASS", "a b", "data-nav-area", ""}

	v, ok := attrLookup(pairs, "id")
	assert.True(t, ok)
	assert.Equal(t, "menu", v)

	v, ok = attrLookup(pairs, "class")
	assert.True(t, ok, "names are case-insensitive")
	assert.Equal(t, "a b", v)

	_, ok = attrLookup(pairs, "data-nav-area")
	assert.True(t, ok, "empty values still count as present")

	_, ok = attrLookup(pairs, "missing")
	assert.False(t, ok)

	_, ok = attrLookup([]string{"dangling"}, "dangling")
	assert.False(t, ok)
}

func TestEditClassList(t *testing.T) {
	tests := []struct {
		name    string
		current string
		class   string
		add     bool
		want    string
	}{
		{"add to empty", "", "hover", true, "hover"},
		{"add once", "item hover", "hover", true, "item hover"},
		{"append", "item", "hover", true, "item hover"},
		{"remove", "item hover tracked", "hover", false, "item tracked"},
		{"remove missing", "item", "hover", false, "item"},
		{"normalizes whitespace", "  item   tracked ", "hover", true, "item tracked hover"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, editClassList(tt.current, tt.class, tt.add))
		})
	}
}

func TestDescribeNode(t *testing.T) {
	assert.Equal(t, "a#b", describeNode("A", []string{"id", "b", "class", "x"}))
	assert.Equal(t, "div.menu.open", describeNode("div", []string{"class", "menu open"}))
	assert.Equal(t, "span", describeNode("span", nil))
}

func TestEmulate(t *testing.T) {
	logger := zaptest.NewLogger(t)

	assert.Empty(t, Emulate(config.EmulationConfig{}, logger))
	assert.Len(t, Emulate(config.EmulationConfig{ViewportWidth: 800, ViewportHeight: 600}, logger), 1)
	assert.Empty(t, Emulate(config.EmulationConfig{ViewportWidth: 800}, logger), "both sides are needed")

	full := config.EmulationConfig{
		ViewportWidth:  800,
		ViewportHeight: 600,
		UserAgent:      "scalpel-nav-test",
		Locale:         "de-DE",
		Timezone:       "Europe/Berlin",
	}
	assert.Len(t, Emulate(full, logger), 5)
}

func TestAcceptLanguage(t *testing.T) {
	assert.Equal(t, "en-US,en;q=0.9", acceptLanguage("en-US"))
	assert.Equal(t, "fr", acceptLanguage("fr"))
}

func TestIsXPath(t *testing.T) {
	assert.True(t, isXPath("//a"))
	assert.True(t, isXPath(" ./li"))
	assert.True(t, isXPath("(//a)[1]"))
	assert.False(t, isXPath("a.item"))
	assert.False(t, isXPath("[data-nav-area]"))
}

// -- Live browser --

func findChrome(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no Chrome or Chromium binary found")
}

const livePage = `<html><body style="margin:0">
<div id="menu" data-nav-area style="position:relative;width:400px;height:60px">
  <a id="a" href="#" style="position:absolute;left:0;top:0;width:100px;height:50px">A</a>
  <a id="b" href="#" style="position:absolute;left:120px;top:0;width:100px;height:50px">B</a>
</div>
</body></html>`

func TestPage_DrivesNavigator(t *testing.T) {
	findChrome(t)
	logger := zaptest.NewLogger(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintln(w, livePage)
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	s, err := NewSession(ctx, config.BrowserConfig{Headless: true, Timeout: 20 * time.Second}, logger)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Navigate(server.URL))

	loop := shell.NewLoop(logger, 16)
	page := NewPage(s, loop)
	root, err := page.Root()
	require.NoError(t, err)

	a, ok := page.Query(root, "#a")
	require.True(t, ok)
	assert.Equal(t, "a#a", page.Describe(a))
	box, ok := page.BoxOf(a, 0)
	require.True(t, ok)
	assert.Equal(t, geometry.Rect{Left: 0, Top: 0, Width: 100, Height: 50}, box.Raw)
	xs := page.QueryAll(root, "//a")
	assert.Len(t, xs, 2)
	assert.False(t, page.HasAttribute(xs[0], xpathMarker), "query markers are removed")

	opts := nav.DefaultOptions[cdp.NodeID]()
	opts.Observer = page
	opts.Dispatcher = page
	opts.Logger = logger
	n, err := nav.New[cdp.NodeID](root, page, page, opts)
	require.NoError(t, err)
	r := shell.NewRunner(n, loop, logger)

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- r.Run(runCtx) }()

	var focused string
	require.Eventually(t, func() bool {
		_ = r.Do(runCtx, func(n *nav.Navigator[cdp.NodeID]) {
			if el, ok := n.Focused(); ok {
				focused = page.Describe(el)
			}
		})
		return focused == "a#a"
	}, 20*time.Second, 100*time.Millisecond)

	var moved bool
	require.NoError(t, r.Do(runCtx, func(n *nav.Navigator[cdp.NodeID]) {
		moved, err = n.Move(geometry.Right)
	}))
	require.NoError(t, err)
	assert.True(t, moved)
	b, _ := page.Query(root, "#b")
	class, _ := page.Attribute(b, "class")
	assert.Contains(t, class, "hover")

	stop()
	require.NoError(t, <-done)
}
