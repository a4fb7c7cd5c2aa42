// File: cmd/inspect_test.go
package cmd

import (
	"bytes"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
	"github.com/xkilldash9x/scalpel-nav/internal/tui"
)

func TestInspectCmd_Text(t *testing.T) {
	resetForTest(t)
	doc := writeFile(t, "page.html", rowPage)

	out, err := executeCommand(t, "", "inspect", "--document", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "state active, focus a#a at (50,25)")
	assert.Contains(t, out, "area div#menu [0,0 340x50] current")
	assert.Contains(t, out, "  a#a [0,0 100x50] focused")
	assert.Contains(t, out, "  a#b [120,0 100x50]\n")
}

func TestInspectCmd_JSON(t *testing.T) {
	resetForTest(t)
	doc := writeFile(t, "page.html", rowPage)

	out, err := executeCommand(t, "", "inspect", "--document", doc, "--json")
	require.NoError(t, err)

	var snap tui.Snapshot
	require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(out), &snap))
	assert.Equal(t, "a#a", snap.Focused)
	assert.Equal(t, "div#menu", snap.Area)
	assert.Len(t, snap.Selectables, 3)
}

func TestWriteSnapshot_NoFocus(t *testing.T) {
	var buf bytes.Buffer
	snap := tui.Snapshot{
		State:       "unbound",
		Selectables: []tui.Item{{Label: "a#x", Rect: geometry.Rect{Left: 1, Top: 2, Width: 3, Height: 4}}},
	}
	require.NoError(t, writeSnapshot(&buf, snap))
	assert.Equal(t, "state unbound, focus none at (0,0)\n  a#x [1,2 3x4]\n", buf.String())
}
