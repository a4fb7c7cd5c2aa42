// internal/nav/options.go
package nav

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-nav/internal/config"
	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
)

// Options configures a Navigator. Start from DefaultOptions and override.
type Options[E comparable] struct {
	// HoverClass marks the focused element.
	HoverClass string
	// AreaClass marks the current area.
	AreaClass string
	// TrackClass marks the element a tracked area remembers.
	TrackClass string
	// BlockedClass marks the focused element while the navigator is blocked.
	BlockedClass string
	// Overlap shrinks every box by this many units on each side before searching.
	Overlap float64
	// Position, when set, is the initial pointer position. Init then focuses
	// the element under it instead of the default element.
	Position *geometry.Point
	// Priority is the alignment preference list, e.g. "left,top".
	Priority string
	// Prefix is prepended to every navigation attribute name.
	Prefix string
	// AreaSelector finds the areas under the root.
	AreaSelector string
	// ItemSelector finds selectable elements inside areas that do not name their own.
	ItemSelector string

	Input      InputFactory[E]
	Observer   MutationNotifier[E]
	Dispatcher Dispatcher[E]
	Logger     *zap.Logger
}

// DefaultOptions returns the stock option set.
func DefaultOptions[E comparable]() Options[E] {
	return Options[E]{
		HoverClass:   "hover",
		AreaClass:    "hover",
		TrackClass:   "tracked",
		BlockedClass: "blocked",
		Priority:     "left,top",
		Prefix:       "data-nav-",
		AreaSelector: "[data-nav-area]",
		ItemSelector: "a, button, [data-nav-item]",
	}
}

// OptionsFromConfig overlays the navigator section of the configuration on
// the defaults. Empty strings keep the default.
func OptionsFromConfig[E comparable](cfg config.NavigatorConfig) (Options[E], error) {
	opts := DefaultOptions[E]()
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&opts.HoverClass, cfg.HoverClass)
	set(&opts.AreaClass, cfg.AreaClass)
	set(&opts.TrackClass, cfg.TrackClass)
	set(&opts.BlockedClass, cfg.BlockedClass)
	set(&opts.Priority, cfg.Priority)
	set(&opts.Prefix, cfg.Prefix)
	set(&opts.AreaSelector, cfg.AreaSelector)
	set(&opts.ItemSelector, cfg.ItemSelector)
	opts.Overlap = cfg.Overlap
	if strings.TrimSpace(cfg.Position) != "" {
		p, err := geometry.ParsePoint(cfg.Position)
		if err != nil {
			return opts, fmt.Errorf("nav: invalid initial position: %w", err)
		}
		opts.Position = &p
	}
	return opts, nil
}

// priorities is the parsed form of the Priority option. Each field is +1,
// -1 or 0 (no preference).
type priorities struct {
	// column preference while travelling vertically: +1 left, -1 right.
	column float64
	// row preference while travelling horizontally: +1 top, -1 bottom.
	row float64
}

func parsePriorities(s string) priorities {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	var p priorities
	has := func(name string) bool {
		for _, t := range tokens {
			if t == name {
				return true
			}
		}
		return false
	}
	// right wins over left and bottom over top when both are listed.
	if has("left") {
		p.column = 1
	}
	if has("right") {
		p.column = -1
	}
	if has("top") {
		p.row = 1
	}
	if has("bottom") {
		p.row = -1
	}
	return p
}

// score returns the alignment priority of a candidate whose facing bound is
// at bound, for travel along v.
func (p priorities) score(bound, v geometry.Point) (float64, bool) {
	switch {
	case v.Y != 0 && p.column != 0:
		return p.column * bound.X, true
	case v.X != 0 && p.row != 0:
		return p.row * bound.Y, true
	}
	return 0, false
}
