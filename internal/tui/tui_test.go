// internal/tui/tui_test.go
package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-nav/internal/dom"
	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
	"github.com/xkilldash9x/scalpel-nav/internal/input"
	"github.com/xkilldash9x/scalpel-nav/internal/nav"
)

const rowPage = `<html><body>
<div id="menu" data-nav-area>
  <a id="a" style="left:0;top:0;width:100px;height:50px">A</a>
  <a id="b" style="left:120px;top:0;width:100px;height:50px">B</a>
  <a id="c" style="left:240px;top:0;width:100px;height:50px">C</a>
</div>
</body></html>`

func captureRow(t *testing.T) Snapshot {
	t.Helper()
	logger := zaptest.NewLogger(t)
	doc, err := dom.ParseString(rowPage, dom.DefaultViewport, logger)
	require.NoError(t, err)
	opts := nav.DefaultOptions[*html.Node]()
	opts.Observer = doc
	opts.Logger = logger
	n, err := nav.New[*html.Node](doc.Root(), doc, doc, opts)
	require.NoError(t, err)
	require.NoError(t, n.Init())
	t.Cleanup(n.Clear)
	return Capture[*html.Node](n, doc, doc)
}

func TestCapture(t *testing.T) {
	snap := captureRow(t)

	assert.Equal(t, "a#a", snap.Focused)
	assert.Equal(t, "div#menu", snap.Area)
	assert.Equal(t, nav.Active.String(), snap.State)
	assert.Equal(t, geometry.Point{X: 50, Y: 25}, snap.Position)

	require.Len(t, snap.Areas, 1)
	assert.True(t, snap.Areas[0].Current)
	assert.Equal(t, geometry.Rect{Left: 0, Top: 0, Width: 340, Height: 50}, snap.Areas[0].Rect)

	want := []Item{
		{Label: "a#a", Rect: geometry.Rect{Left: 0, Top: 0, Width: 100, Height: 50}, Focused: true},
		{Label: "a#b", Rect: geometry.Rect{Left: 120, Top: 0, Width: 100, Height: 50}},
		{Label: "a#c", Rect: geometry.Rect{Left: 240, Top: 0, Width: 100, Height: 50}},
	}
	if diff := cmp.Diff(want, snap.Selectables); diff != "" {
		t.Errorf("selectables mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, geometry.Rect{Left: 0, Top: 0, Width: 340, Height: 50}, snap.Extent())
}

func TestSnapshot_ExtentEmpty(t *testing.T) {
	assert.True(t, Snapshot{}.Extent().Empty())
}

func TestModel_KeysBecomeCommands(t *testing.T) {
	cmds := make(chan input.Command, 4)
	m := NewModel(nil, cmds, nil)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Nil(t, cmd)
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})

	require.Len(t, cmds, 2)
	assert.Equal(t, input.MoveCommand(geometry.Right), <-cmds)
	assert.Equal(t, input.ClickCommand, <-cmds)
	assert.Contains(t, next.(Model).status, "x is not bound")
}

func TestModel_DropsWhenBusy(t *testing.T) {
	cmds := make(chan input.Command)
	m := NewModel(nil, cmds, nil)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Contains(t, next.(Model).status, "dropped")
}

func TestModel_Quit(t *testing.T) {
	m := NewModel(nil, make(chan input.Command, 1), nil)
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	} {
		_, cmd := m.Update(key)
		require.NotNil(t, cmd, key.String())
		assert.IsType(t, tea.QuitMsg{}, cmd(), key.String())
	}
}

func TestModel_Reload(t *testing.T) {
	called := false
	m := NewModel(nil, make(chan input.Command, 1), func() { called = true })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	require.NotNil(t, cmd)
	assert.False(t, called, "reload runs as a command, not inside Update")
	assert.Nil(t, cmd())
	assert.True(t, called)

	next, _ = next.Update(ReloadedMsg{Err: errors.New("gone")})
	assert.Equal(t, "reload failed: gone", next.(Model).status)
	next, _ = next.Update(ReloadedMsg{})
	assert.Equal(t, "document reloaded", next.(Model).status)
}

func TestModel_Results(t *testing.T) {
	m := NewModel(nil, make(chan input.Command, 1), nil)
	right := input.MoveCommand(geometry.Right)

	next, _ := m.Update(ResultMsg{Command: right, Changed: true})
	assert.Equal(t, "right: ok", next.(Model).status)
	next, _ = next.Update(ResultMsg{Command: right})
	assert.Equal(t, "right: nowhere to go", next.(Model).status)
	next, _ = next.Update(ResultMsg{Command: right, Err: nav.ErrCleared})
	assert.Contains(t, next.(Model).status, "right: nav: navigator cleared")
}

func TestModel_View(t *testing.T) {
	m := NewModel(nil, make(chan input.Command, 1), nil)
	assert.Contains(t, m.View(), "nothing to show")

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	next, _ = next.Update(SnapshotMsg{Snapshot: captureRow(t)})
	view := next.View()

	for _, label := range []string{"a#a", "a#b", "a#c"} {
		assert.Contains(t, view, label)
	}
	assert.Contains(t, view, "focus: a#a")
	assert.Contains(t, view, "area: div#menu")
	assert.Contains(t, view, "q quit")
}

func TestGrid_SpanCoversAtLeastOneCell(t *testing.T) {
	g := newGrid(10, 5, geometry.Rect{Width: 1000, Height: 500})

	x0, y0, x1, y1 := g.span(geometry.Rect{Left: 5, Top: 5, Width: 1, Height: 1})
	assert.Equal(t, [4]int{0, 0, 0, 0}, [4]int{x0, y0, x1, y1})

	x0, y0, x1, y1 = g.span(geometry.Rect{Left: 500, Top: 200, Width: 500, Height: 300})
	assert.Equal(t, [4]int{5, 2, 9, 4}, [4]int{x0, y0, x1, y1})
}
