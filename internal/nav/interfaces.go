// internal/nav/interfaces.go
package nav

import "github.com/xkilldash9x/scalpel-nav/internal/geometry"

// Tree is the element tree the navigator walks. E is an opaque element
// handle; its zero value stands for "no element".
type Tree[E comparable] interface {
	// QueryAll returns the descendants of root matching selector, in tree order.
	QueryAll(root E, selector string) []E
	// Query returns the first descendant of root matching selector.
	Query(root E, selector string) (E, bool)
	// Parent returns the parent element of e.
	Parent(e E) (E, bool)
	// Contains reports whether e is root or lies below it.
	Contains(root, e E) bool
	HasAttribute(e E, name string) bool
	Attribute(e E, name string) (string, bool)
	SetAttribute(e E, name, value string)
	AddClass(e E, class string)
	RemoveClass(e E, class string)
	// Describe returns a short label for logs.
	Describe(e E) string
}

// Attachment is an optional Tree capability. Trees whose elements can be
// cut out of the live document report here whether e still belongs to it;
// without it every element counts as attached.
type Attachment[E comparable] interface {
	Attached(e E) bool
}

// Geometry computes element boxes from the live tree.
type Geometry[E comparable] interface {
	// BoxOf returns false when e has no box (missing, hidden or zero sized).
	BoxOf(e E, overlap float64) (geometry.Box, bool)
}

// Observer is a registered mutation callback.
type Observer interface {
	Disconnect()
}

// MutationNotifier reports structural changes under a root.
type MutationNotifier[E comparable] interface {
	Observe(root E, onChange func()) Observer
}

// EventKind names a notification the navigator dispatches on elements.
type EventKind string

const (
	EventFocus    EventKind = "focus"
	EventUnfocus  EventKind = "unfocus"
	EventActivate EventKind = "activate"
)

// Dispatcher delivers synthetic UI events at the pointer position.
type Dispatcher[E comparable] interface {
	Dispatch(e E, kind EventKind, at geometry.Point)
}

// Controller is the part of the navigator that input sources drive.
type Controller interface {
	Move(dir geometry.Direction) (bool, error)
	Click() error
}

// InputSource turns physical input into Controller calls while bound.
type InputSource[E comparable] interface {
	Bind(root E) error
	Unbind()
}

// InputFactory builds the input source for a navigator.
type InputFactory[E comparable] func(Controller) InputSource[E]

type noopInput[E comparable] struct{}

func (noopInput[E]) Bind(E) error { return nil }
func (noopInput[E]) Unbind()      {}

type noopDispatcher[E comparable] struct{}

func (noopDispatcher[E]) Dispatch(E, EventKind, geometry.Point) {}
