// internal/dom/selector.go
package dom

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Selector is a compiled, comma-separated CSS selector list (e.g. "a, .card > button").
type Selector = cascadia.SelectorGroup

// CompileSelector parses a CSS selector list. Any unparseable input is an
// error, and so are pseudo-elements, which never match a node.
func CompileSelector(input string) (Selector, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("dom: empty selector")
	}
	group, err := cascadia.ParseGroup(input)
	if err != nil {
		return nil, fmt.Errorf("dom: invalid selector %q: %w", input, err)
	}
	for _, sel := range group {
		if pe := sel.PseudoElement(); pe != "" {
			return nil, fmt.Errorf("dom: invalid selector %q: pseudo-element ::%s", input, pe)
		}
	}
	return group, nil
}
