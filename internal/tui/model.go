// internal/tui/model.go
package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
	"github.com/xkilldash9x/scalpel-nav/internal/input"
)

// SnapshotMsg carries a fresh Snapshot to the model.
type SnapshotMsg struct {
	Snapshot Snapshot
}

// ResultMsg reports the outcome of one applied command.
type ResultMsg struct {
	Command input.Command
	Changed bool
	Err     error
}

// ReloadedMsg reports a document reload.
type ReloadedMsg struct {
	Err error
}

// statusLines is the number of rows below the canvas.
const statusLines = 3

// Model draws the navigator's view of the tree and turns key presses into
// commands. It never touches the navigator itself: commands go out on a
// channel consumed by an input.ChanSource, and state comes back as messages.
type Model struct {
	keys     input.KeyMap
	commands chan<- input.Command
	reload   func()

	snap   Snapshot
	status string
	width  int
	height int
	theme  theme
}

// NewModel creates the model. reload, when set, is called off the UI
// goroutine when the user presses "r".
func NewModel(keys input.KeyMap, commands chan<- input.Command, reload func()) Model {
	if keys == nil {
		keys = input.DefaultKeyMap()
	}
	return Model{
		keys:     keys,
		commands: commands,
		reload:   reload,
		width:    80,
		height:   24,
		theme:    newTheme(),
		status:   "waiting for the navigator",
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			if m.reload != nil {
				reload := m.reload
				m.status = "reloading"
				return m, func() tea.Msg {
					reload()
					return nil
				}
			}
		}
		cmd, ok := m.keys.Lookup(key)
		if !ok {
			m.status = fmt.Sprintf("%s is not bound", key)
			return m, nil
		}
		select {
		case m.commands <- cmd:
			m.status = cmd.String()
		default:
			m.status = fmt.Sprintf("%s dropped, navigator busy", cmd)
		}

	case SnapshotMsg:
		m.snap = msg.Snapshot

	case ResultMsg:
		switch {
		case msg.Err != nil:
			m.status = fmt.Sprintf("%s: %v", msg.Command, msg.Err)
		case msg.Changed:
			m.status = fmt.Sprintf("%s: ok", msg.Command)
		default:
			m.status = fmt.Sprintf("%s: nowhere to go", msg.Command)
		}

	case ReloadedMsg:
		if msg.Err != nil {
			m.status = fmt.Sprintf("reload failed: %v", msg.Err)
		} else {
			m.status = "document reloaded"
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	t := m.theme
	header := t.title.Render("scalpel-nav") + "  " + t.subtle.Render(fmt.Sprintf(
		"state: %s  area: %s  focus: %s  pos: %s",
		orDash(m.snap.State), orDash(m.snap.Area), orDash(m.snap.Focused), m.snap.Position))
	help := t.subtle.Render(fmt.Sprintf("%s · r reload · q quit", strings.Join(m.keys.Keys(), " ")))

	return lipgloss.JoinVertical(lipgloss.Left,
		m.canvas(m.width, max(1, m.height-statusLines)),
		header,
		t.status.Render(m.status),
		help,
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// -- Canvas --

type cellStyle int

const (
	styleNone cellStyle = iota
	styleArea
	styleCurrentArea
	styleItem
	styleFocused
	stylePointer
)

type cell struct {
	r     rune
	style cellStyle
}

type grid struct {
	cols, rows int
	cells      [][]cell
	extent     geometry.Rect
	sx, sy     float64
}

func newGrid(cols, rows int, extent geometry.Rect) *grid {
	g := &grid{cols: cols, rows: rows, extent: extent}
	g.cells = make([][]cell, rows)
	for y := range g.cells {
		g.cells[y] = make([]cell, cols)
		for x := range g.cells[y] {
			g.cells[y][x] = cell{r: ' '}
		}
	}
	g.sx = float64(cols) / extent.Width
	g.sy = float64(rows) / extent.Height
	return g
}

// span maps a rectangle onto inclusive cell bounds; every rectangle covers
// at least one cell.
func (g *grid) span(r geometry.Rect) (x0, y0, x1, y1 int) {
	x0 = clamp(int((r.Left-g.extent.Left)*g.sx), 0, g.cols-1)
	y0 = clamp(int((r.Top-g.extent.Top)*g.sy), 0, g.rows-1)
	x1 = clamp(int(math.Ceil((r.Right()-g.extent.Left)*g.sx))-1, x0, g.cols-1)
	y1 = clamp(int(math.Ceil((r.Bottom()-g.extent.Top)*g.sy))-1, y0, g.rows-1)
	return
}

func (g *grid) set(x, y int, r rune, s cellStyle) {
	if x >= 0 && x < g.cols && y >= 0 && y < g.rows {
		g.cells[y][x] = cell{r: r, style: s}
	}
}

func (g *grid) outline(r geometry.Rect, s cellStyle) {
	x0, y0, x1, y1 := g.span(r)
	for x := x0; x <= x1; x++ {
		g.set(x, y0, '─', s)
		g.set(x, y1, '─', s)
	}
	for y := y0; y <= y1; y++ {
		g.set(x0, y, '│', s)
		g.set(x1, y, '│', s)
	}
	if x1 > x0 && y1 > y0 {
		g.set(x0, y0, '┌', s)
		g.set(x1, y0, '┐', s)
		g.set(x0, y1, '└', s)
		g.set(x1, y1, '┘', s)
	}
}

func (g *grid) fill(r geometry.Rect, fillRune rune, s cellStyle) {
	x0, y0, x1, y1 := g.span(r)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			g.set(x, y, fillRune, s)
		}
	}
}

// label writes text inside r, on its second row when there is room.
func (g *grid) label(r geometry.Rect, text string, s cellStyle) {
	x0, y0, x1, y1 := g.span(r)
	y := y0
	if y1-y0 >= 2 {
		y = y0 + 1
	}
	x := x0
	if x1-x0 >= 2 {
		x = x0 + 1
	}
	for _, ch := range text {
		if x > x1 {
			break
		}
		g.set(x, y, ch, s)
		x++
	}
}

func (m Model) canvas(cols, rows int) string {
	ext := m.snap.Extent()
	if ext.Empty() || cols <= 0 {
		return m.theme.subtle.Render("nothing to show")
	}
	g := newGrid(cols, rows, ext)

	for _, a := range m.snap.Areas {
		s := styleArea
		if a.Current {
			s = styleCurrentArea
		}
		g.outline(a.Rect, s)
		g.label(a.Rect, a.Label, s)
	}
	for _, it := range m.snap.Selectables {
		s := styleItem
		if it.Focused {
			s = styleFocused
		}
		g.fill(it.Rect, '░', s)
		g.label(it.Rect, it.Label, s)
	}
	if m.snap.Focused != "" {
		px := int((m.snap.Position.X - ext.Left) * g.sx)
		py := int((m.snap.Position.Y - ext.Top) * g.sy)
		g.set(clamp(px, 0, cols-1), clamp(py, 0, rows-1), '+', stylePointer)
	}

	styles := m.theme.cells()
	var b strings.Builder
	for y, row := range g.cells {
		if y > 0 {
			b.WriteByte('\n')
		}
		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && row[x].style == row[start].style {
				continue
			}
			run := make([]rune, 0, x-start)
			for _, c := range row[start:x] {
				run = append(run, c.r)
			}
			b.WriteString(styles[row[start].style].Render(string(run)))
			start = x
		}
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// -- Theme --

type theme struct {
	title, subtle, status lipgloss.Style
	area, currentArea     lipgloss.Style
	item, focused         lipgloss.Style
	pointer               lipgloss.Style
}

func newTheme() theme {
	return theme{
		title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		subtle:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		status:      lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		area:        lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		currentArea: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		item:        lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		focused:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("212")),
		pointer:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}

func (t theme) cells() map[cellStyle]lipgloss.Style {
	return map[cellStyle]lipgloss.Style{
		styleNone:        lipgloss.NewStyle(),
		styleArea:        t.area,
		styleCurrentArea: t.currentArea,
		styleItem:        t.item,
		styleFocused:     t.focused,
		stylePointer:     t.pointer,
	}
}
