// internal/input/keymap.go
package input

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
)

// KeyMap maps physical key names (lower case) to logical commands.
type KeyMap map[string]Command

// DefaultKeyMap binds the arrow keys to the four directions and enter to click.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		"left":  MoveCommand(geometry.Left),
		"up":    MoveCommand(geometry.Up),
		"right": MoveCommand(geometry.Right),
		"down":  MoveCommand(geometry.Down),
		"enter": ClickCommand,
	}
}

// ParseKeyMap builds a KeyMap from the input.keys configuration section. An
// empty map yields the defaults.
func ParseKeyMap(keys map[string]string) (KeyMap, error) {
	if len(keys) == 0 {
		return DefaultKeyMap(), nil
	}
	km := make(KeyMap, len(keys))
	for key, name := range keys {
		cmd, err := ParseCommand(name)
		if err != nil {
			return nil, fmt.Errorf("input: key %q: %w", key, err)
		}
		km[strings.ToLower(strings.TrimSpace(key))] = cmd
	}
	return km, nil
}

// Lookup resolves a key name.
func (k KeyMap) Lookup(key string) (Command, bool) {
	cmd, ok := k[strings.ToLower(key)]
	return cmd, ok
}

// Keys returns the bound key names, sorted.
func (k KeyMap) Keys() []string {
	keys := make([]string, 0, len(k))
	for key := range k {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
