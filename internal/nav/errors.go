// internal/nav/errors.go
package nav

import (
	"errors"
	"fmt"
)

var (
	// ErrLocked is returned by Move and Click while the navigator is blocked,
	// and by Click before the first focus.
	ErrLocked = errors.New("nav: locked")
	// ErrNoTarget is returned when no element can be resolved for a move or click.
	ErrNoTarget = errors.New("nav: no target")
	// ErrInvalidState is returned for lifecycle violations such as a second Init.
	ErrInvalidState = errors.New("nav: invalid state")
	// ErrInvisibleTarget is returned when the click target is not under the root.
	ErrInvisibleTarget = errors.New("nav: target is not visible")
	// ErrCleared is returned by every operation after Clear.
	ErrCleared = fmt.Errorf("nav: navigator cleared: %w", ErrInvalidState)
)
