// internal/nav/lifecycle.go
package nav

// Lifecycle is the coarse state of a navigator.
type Lifecycle int

const (
	// Unbound: created, Init not called yet.
	Unbound Lifecycle = iota
	// Active: bound and accepting commands.
	Active
	// Locked: bound, but Move and Click are refused until Unblock.
	Locked
	// Cleared: torn down for good.
	Cleared
)

func (l Lifecycle) String() string {
	switch l {
	case Unbound:
		return "unbound"
	case Active:
		return "active"
	case Locked:
		return "locked"
	case Cleared:
		return "cleared"
	}
	return "unknown"
}

// Lifecycle derives the current state from the bind and lock flags.
func (n *Navigator[E]) Lifecycle() Lifecycle {
	switch {
	case n.cleared:
		return Cleared
	case !n.bound:
		return Unbound
	case n.locked:
		return Locked
	}
	return Active
}
