// File: cmd/run_test.go
package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCmd_AppliesStdinCommands(t *testing.T) {
	resetForTest(t)
	doc := writeFile(t, "page.html", rowPage)

	out, err := executeCommand(t, "right\nright\nenter\n", "run", "--document", doc)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4, "init plus one line per command: %q", out)
	assert.True(t, strings.HasPrefix(lines[0], "init\ttrue\ta#a "), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "right\ttrue\ta#b "), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "right\ttrue\ta#c "), lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "click\ttrue\ta#c "), lines[3])
}

func TestRunCmd_KeyNamesFromConfig(t *testing.T) {
	resetForTest(t)
	doc := writeFile(t, "page.html", rowPage)
	cfg := writeFile(t, "config.yaml", "input:\n  keys:\n    l: right\n")

	out, err := executeCommand(t, "l\n", "--config", cfg, "run", "--document", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "right\ttrue\ta#b")
}

func TestRunCmd_Render(t *testing.T) {
	resetForTest(t)
	doc := writeFile(t, "page.html", rowPage)

	out, err := executeCommand(t, "", "run", "--document", doc, "--render")
	require.NoError(t, err)
	assert.Contains(t, out, `<div id="menu"`)
	assert.Contains(t, out, `id="c"`)
}

func TestRunCmd_MissingDocument(t *testing.T) {
	resetForTest(t)

	_, err := executeCommand(t, "", "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no document given")
}

func TestRunCmd_RejectsArgs(t *testing.T) {
	resetForTest(t)

	_, err := executeCommand(t, "", "run", "extra")
	assert.Error(t, err)
}
