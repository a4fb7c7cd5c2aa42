// internal/input/command.go
package input

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
	"github.com/xkilldash9x/scalpel-nav/internal/nav"
)

// Kind is the logical action a command performs.
type Kind int

const (
	KindMove Kind = iota
	KindClick
)

// Command is one logical navigation command, already decoupled from the
// physical key or line that produced it.
type Command struct {
	Kind      Kind
	Direction geometry.Direction
}

// ClickCommand activates the focused element.
var ClickCommand = Command{Kind: KindClick}

// MoveCommand moves focus one step in dir.
func MoveCommand(dir geometry.Direction) Command {
	return Command{Kind: KindMove, Direction: dir}
}

func (c Command) String() string {
	if c.Kind == KindClick {
		return "click"
	}
	return c.Direction.String()
}

// ParseCommand accepts a direction name ("left", "move up"), or one of
// "click", "enter", "activate". Matching is case-insensitive.
func ParseCommand(s string) (Command, error) {
	word := strings.ToLower(strings.TrimSpace(s))
	word = strings.TrimSpace(strings.TrimPrefix(word, "move "))
	switch word {
	case "click", "enter", "activate":
		return ClickCommand, nil
	case "", "none":
		return Command{}, fmt.Errorf("input: empty command")
	}
	dir, err := geometry.ParseDirection(word)
	if err != nil {
		return Command{}, fmt.Errorf("input: unknown command %q", s)
	}
	return MoveCommand(dir), nil
}

// Apply runs the command against a controller. The boolean reports whether a
// move changed focus; clicks always report true on success.
func (c Command) Apply(ctrl nav.Controller) (bool, error) {
	switch c.Kind {
	case KindClick:
		if err := ctrl.Click(); err != nil {
			return false, err
		}
		return true, nil
	default:
		return ctrl.Move(c.Direction)
	}
}
