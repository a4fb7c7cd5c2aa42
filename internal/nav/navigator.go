// internal/nav/navigator.go
package nav

import (
	"fmt"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
)

// Navigator moves a single virtual pointer across an element tree in
// response to directional commands.
//
// A Navigator is not safe for concurrent use. Every call must come from the
// same goroutine (or be serialized by the caller). Handlers of dispatched
// events may call back into the navigator.
type Navigator[E comparable] struct {
	tree       Tree[E]
	geom       Geometry[E]
	opts       Options[E]
	priority   priorities
	logger     *zap.Logger
	input      InputSource[E]
	notifier   MutationNotifier[E]
	dispatcher Dispatcher[E]
	observer   Observer
	attached   func(E) bool

	root E
	zero E

	// Focus state.
	pos         geometry.Point
	focused     E
	area        E
	locked      bool
	initialized bool

	// Lifecycle flags; each guarded operation runs at most once.
	bound   bool
	unbound bool
	cleared bool
}

// New creates a navigator rooted at root. It does not touch the tree until Init.
func New[E comparable](root E, tree Tree[E], geom Geometry[E], opts Options[E]) (*Navigator[E], error) {
	var zero E
	if root == zero {
		return nil, fmt.Errorf("nav: a root element is required")
	}
	if tree == nil || geom == nil {
		return nil, fmt.Errorf("nav: tree and geometry adapters are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Navigator[E]{
		tree:       tree,
		geom:       geom,
		opts:       opts,
		priority:   parsePriorities(opts.Priority),
		logger:     logger.Named("nav").With(zap.String("instance_id", uuid.NewString())),
		notifier:   opts.Observer,
		dispatcher: opts.Dispatcher,
		root:       root,
	}
	if opts.Position != nil {
		n.pos = *opts.Position
	}
	if n.dispatcher == nil {
		n.dispatcher = noopDispatcher[E]{}
	}
	n.attached = func(E) bool { return true }
	if a, ok := tree.(Attachment[E]); ok {
		n.attached = a.Attached
	}
	n.input = noopInput[E]{}
	if opts.Input != nil {
		if src := opts.Input(n); src != nil {
			n.input = src
		}
	}
	return n, nil
}

// -- Lifecycle --

// Init binds the input source and mutation observer and focuses the first
// element: the one under the initial position when one was configured,
// otherwise the default element of the default area.
func (n *Navigator[E]) Init() error {
	if n.cleared {
		return ErrCleared
	}
	if n.initialized {
		return fmt.Errorf("nav: already initialized: %w", ErrInvalidState)
	}
	if err := n.bind(); err != nil {
		return err
	}

	var (
		target E
		ok     bool
	)
	if n.opts.Position != nil {
		target, ok = n.Hovered()
	} else {
		target, ok = n.Defaults()
	}
	if !ok {
		n.logger.Debug("Nothing to focus yet, waiting for the tree to change.")
		return nil
	}
	_, err := n.Focus(target, geometry.None, false)
	return err
}

func (n *Navigator[E]) bind() error {
	if n.bound {
		return nil
	}
	n.bound = true
	if n.notifier != nil {
		n.observer = n.notifier.Observe(n.root, n.onMutation)
	}
	if err := n.input.Bind(n.root); err != nil {
		return fmt.Errorf("nav: failed to bind input source: %w", err)
	}
	return nil
}

func (n *Navigator[E]) unbind() {
	if !n.bound || n.unbound {
		return
	}
	n.unbound = true
	if n.observer != nil {
		n.observer.Disconnect()
		n.observer = nil
	}
	n.input.Unbind()
}

func (n *Navigator[E]) onMutation() {
	if err := n.HandleMutation(); err != nil {
		n.logger.Warn("Failed to recover focus after a tree change.", zap.Error(err))
	}
}

// ready rejects operations outside the Active and Locked states.
func (n *Navigator[E]) ready() error {
	switch n.Lifecycle() {
	case Cleared:
		return ErrCleared
	case Unbound:
		return fmt.Errorf("nav: Init has not been called: %w", ErrInvalidState)
	}
	return nil
}

// Clear unbinds everything and drops all state. It is idempotent, and the
// navigator cannot be used afterwards.
func (n *Navigator[E]) Clear() {
	if n.cleared {
		return
	}
	n.unbind()
	n.cleared = true
	n.pos = geometry.Zero
	n.focused = n.zero
	n.area = n.zero
	n.root = n.zero
	n.locked = false
	n.input = noopInput[E]{}
	n.logger.Debug("Navigator cleared.")
}

// Block freezes Move and Click and marks the focused element.
func (n *Navigator[E]) Block() {
	if n.cleared {
		return
	}
	n.locked = true
	if n.focused != n.zero {
		n.tree.AddClass(n.focused, n.opts.BlockedClass)
	}
}

// Unblock reverses Block.
func (n *Navigator[E]) Unblock() {
	if n.cleared {
		return
	}
	n.locked = false
	if n.focused != n.zero {
		n.tree.RemoveClass(n.focused, n.opts.BlockedClass)
	}
}

// -- Focus --

// Focus moves the pointer onto target. Targeting an area focuses its
// default element. With force, the element is re-focused even when it is a
// limit that would otherwise only be activated. Focus reports false when no
// box can be computed for the target, and returns the error of the click
// triggered by entering a limit in its own direction.
func (n *Navigator[E]) Focus(target E, dir geometry.Direction, force bool) (bool, error) {
	if err := n.ready(); err != nil {
		return false, err
	}
	if target == n.zero {
		return false, nil
	}
	if n.isArea(target) {
		def, ok := n.DefaultsIn(target)
		if !ok {
			return false, nil
		}
		return n.Focus(def, geometry.None, false)
	}

	box, ok := n.geom.BoxOf(target, n.opts.Overlap)
	if !ok {
		return false, nil
	}

	prevEl, prevArea := n.focused, n.area
	newArea := n.AreaOf(target)
	tc := n.capsOf(target)
	shifted := newArea != prevArea

	if shifted {
		n.area = newArea
		if prevArea != n.zero {
			n.tree.RemoveClass(prevArea, n.opts.AreaClass)
		}
		n.tree.AddClass(newArea, n.opts.AreaClass)
	}

	if target != prevEl && (shifted || !tc.limit || force) {
		n.pos = box.Center()
		n.focused = target
		if prevEl != n.zero {
			n.tree.RemoveClass(prevEl, n.opts.HoverClass)
			if shifted && n.capsOf(prevArea).tracked {
				n.tree.AddClass(prevEl, n.opts.TrackClass)
			}
			n.dispatcher.Dispatch(prevEl, EventUnfocus, n.pos)
		}
		n.dispatcher.Dispatch(target, EventFocus, n.pos)
		n.logger.Debug("Focus changed.",
			zap.String("from", n.describe(prevEl)),
			zap.String("to", n.describe(target)),
			zap.Bool("area_changed", shifted),
			zap.Stringer("position", n.pos))
	}

	n.tree.RemoveClass(target, n.opts.TrackClass)
	if !tc.limit {
		n.tree.AddClass(target, n.opts.HoverClass)
	}

	// Runs before initialized is set, so a first focus cannot activate.
	var clickErr error
	if tc.limitMatches(dir) {
		n.logger.Debug("Entered a limit element, activating it.", zap.String("element", n.describe(target)))
		clickErr = n.ClickElement(target)
	}
	n.initialized = true
	return true, clickErr
}

// FocusSelector focuses the first element under the root matching selector.
func (n *Navigator[E]) FocusSelector(selector string, dir geometry.Direction, force bool) (bool, error) {
	if err := n.ready(); err != nil {
		return false, err
	}
	el, ok := n.tree.Query(n.root, selector)
	if !ok {
		return false, nil
	}
	return n.Focus(el, dir, force)
}

// fallback focuses the element closest to the last position, or the
// default element when nothing is close.
func (n *Navigator[E]) fallback(dir geometry.Direction) (bool, error) {
	target, ok := n.Closest()
	if !ok {
		target = n.defaultArea()
	}
	return n.Focus(target, dir, true)
}

// -- Movement --

// Move moves the pointer one step in dir. It reports false when there is
// nowhere to go.
func (n *Navigator[E]) Move(dir geometry.Direction) (bool, error) {
	if err := n.ready(); err != nil {
		return false, err
	}
	if n.locked {
		n.logger.Debug("Move rejected while locked.", zap.Stringer("direction", dir))
		return false, fmt.Errorf("nav: move %s: %w", dir, ErrLocked)
	}
	if dir == geometry.None {
		return false, fmt.Errorf("nav: move needs a direction: %w", ErrInvalidState)
	}

	cur := n.focused
	curBox, ok := n.geom.BoxOf(cur, n.opts.Overlap)
	if !ok {
		moved, err := n.fallback(dir)
		if err != nil {
			return moved, err
		}
		if !moved {
			n.logger.Warn("Cannot move, nothing to fall back to.", zap.Stringer("direction", dir))
			return false, fmt.Errorf("nav: move %s: %w", dir, ErrNoTarget)
		}
		return true, nil
	}

	// Closest element inside the current area.
	curArea := n.AreaOf(cur)
	if next, ok := n.findClosest(fromBox(curBox), without(n.allSelectables(curArea, dir), cur), dir, false); ok {
		return n.Focus(next, dir, false)
	}

	areaCaps := n.capsOf(curArea)
	if areaCaps.zIndex > 0 {
		n.logger.Debug("Overlay area keeps focus.", zap.String("area", n.describe(curArea)))
		return false, nil
	}
	if areaCaps.wrapsOn(dir) {
		wrapped, ok := n.circularIn(curArea, dir)
		if !ok {
			return false, nil
		}
		n.logger.Debug("Wrapping around circular area.", zap.Stringer("direction", dir))
		return n.Focus(wrapped, geometry.None, false)
	}

	// Nothing left in this area: look for the closest area.
	areaOrigin := fromPoint(curBox.Center())
	if areaBox, ok := n.geom.BoxOf(curArea, n.opts.Overlap); ok {
		areaOrigin = fromBox(areaBox)
	}
	nextArea, ok := n.findClosest(areaOrigin, without(n.allAreas(), curArea), dir, true)
	if !ok {
		if n.capsOf(cur).limitMatches(dir) {
			n.logger.Debug("Moving past a limit element, activating it.", zap.String("element", n.describe(cur)))
			if err := n.Click(); err != nil {
				return false, err
			}
			return true, nil
		}
		return false, nil
	}

	els := n.allSelectables(nextArea, geometry.None)
	if len(els) == 1 && n.capsOf(els[0]).limitMatches(dir) {
		if err := n.ClickElement(els[0]); err != nil {
			return false, err
		}
		return true, nil
	}

	if areaCaps.tracked {
		n.saveTrackPos(curArea)
	}

	var (
		target E
		found  bool
	)
	if n.capsOf(nextArea).tracked {
		target, found = n.tree.Query(nextArea, "."+n.opts.TrackClass)
		if !found {
			if p, ok := n.trackPos(nextArea); ok {
				target, found = n.findClosest(fromPoint(p), els, geometry.None, false)
			}
		}
	}
	if !found {
		if len(els) == 0 {
			return false, nil
		}
		target = els[0]
	}
	n.logger.Debug("Switching area.",
		zap.String("from", n.describe(curArea)),
		zap.String("to", n.describe(nextArea)),
		zap.Stringer("direction", dir))
	return n.Focus(target, dir, false)
}

func (n *Navigator[E]) saveTrackPos(area E) {
	raw, err := json.Marshal(n.pos)
	if err != nil {
		n.logger.Warn("Failed to encode track position.", zap.Error(err))
		return
	}
	n.tree.SetAttribute(area, n.attr(attrTrackPos), string(raw))
}

func (n *Navigator[E]) trackPos(area E) (geometry.Point, bool) {
	raw, ok := n.tree.Attribute(area, n.attr(attrTrackPos))
	if !ok || raw == "" {
		return geometry.Point{}, false
	}
	var p geometry.Point
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		n.logger.Warn("Ignoring malformed track position.", zap.String("value", raw), zap.Error(err))
		return geometry.Point{}, false
	}
	return p, true
}

// -- Activation --

// Click activates the focused element.
func (n *Navigator[E]) Click() error {
	return n.ClickElement(n.zero)
}

// ClickElement activates el, or the focused element when el is the zero
// value. When nothing is focused a fallback focus is attempted first.
func (n *Navigator[E]) ClickElement(el E) error {
	if err := n.ready(); err != nil {
		return err
	}
	if n.locked || !n.initialized {
		return fmt.Errorf("nav: click: %w", ErrLocked)
	}
	if el == n.zero {
		el = n.focused
	}
	if el == n.zero {
		ok, err := n.fallback(geometry.None)
		if err != nil {
			return err
		}
		if !ok || n.focused == n.zero {
			return fmt.Errorf("nav: click: %w", ErrNoTarget)
		}
		el = n.focused
	}
	if !n.tree.Contains(n.root, el) {
		return fmt.Errorf("nav: click %s: %w", n.describe(el), ErrInvisibleTarget)
	}
	n.dispatcher.Dispatch(el, EventActivate, n.pos)
	n.logger.Debug("Activated element.", zap.String("element", n.describe(el)))
	return nil
}

// -- Queries --

// Position returns the last known pointer position.
func (n *Navigator[E]) Position() geometry.Point { return n.pos }

// Focused returns the focused element.
func (n *Navigator[E]) Focused() (E, bool) { return n.focused, n.focused != n.zero }

// CurrentArea returns the area of the focused element.
func (n *Navigator[E]) CurrentArea() (E, bool) { return n.area, n.area != n.zero }

// Area returns the area enclosing the focused element.
func (n *Navigator[E]) Area() E { return n.AreaOf(n.zero) }

// Initialized reports whether a first focus has succeeded.
func (n *Navigator[E]) Initialized() bool { return n.initialized }

// Locked reports whether Block is in effect.
func (n *Navigator[E]) Locked() bool { return n.locked }

// Closest returns the selectable, in any area, nearest to the pointer.
func (n *Navigator[E]) Closest() (E, bool) {
	return n.findClosest(fromPoint(n.pos), n.selectablesOf(n.allAreas()), geometry.None, false)
}

// ClosestIn returns the selectable of area nearest to the pointer.
func (n *Navigator[E]) ClosestIn(area E) (E, bool) {
	if area == n.zero {
		return n.zero, false
	}
	return n.findClosest(fromPoint(n.pos), n.allSelectables(area, geometry.None), geometry.None, false)
}

// Defaults returns the first selectable of the default area.
func (n *Navigator[E]) Defaults() (E, bool) {
	return n.DefaultsIn(n.defaultArea())
}

// DefaultsIn returns the first selectable of area.
func (n *Navigator[E]) DefaultsIn(area E) (E, bool) {
	els := n.allSelectables(area, geometry.None)
	if len(els) == 0 {
		return n.zero, false
	}
	return els[0], true
}

// Hovered returns the selectable whose box contains the pointer.
func (n *Navigator[E]) Hovered() (E, bool) {
	return n.findHovered(n.pos, n.selectablesOf(n.allAreas()))
}

// Circular returns the wrap-around target in the current area. With a
// direction, the search starts on the area edge opposite the travel
// direction, level with the focused box; without one the pointer is
// mirrored through the area center.
func (n *Navigator[E]) Circular(dir geometry.Direction) (E, bool) {
	return n.circularIn(n.area, dir)
}

func (n *Navigator[E]) circularIn(area E, dir geometry.Direction) (E, bool) {
	areaBox, ok := n.geom.BoxOf(area, n.opts.Overlap)
	if !ok {
		return n.zero, false
	}
	center := areaBox.Center()
	reflected := geometry.PointReflect(n.pos, center)
	if dir != geometry.None {
		if elBox, ok := n.geom.BoxOf(n.focused, n.opts.Overlap); ok {
			reflected = geometry.AxisReflect(elBox, dir, areaBox)
		}
	}
	return n.findClosest(fromPoint(reflected), n.allSelectables(area, geometry.None), dir, false)
}

// Update re-focuses the selectable closest to the pointer.
func (n *Navigator[E]) Update() (bool, error) {
	if err := n.ready(); err != nil {
		return false, err
	}
	el, ok := n.Closest()
	if !ok {
		return false, nil
	}
	return n.Focus(el, geometry.None, false)
}

func (n *Navigator[E]) describe(e E) string {
	if e == n.zero {
		return "<none>"
	}
	return n.tree.Describe(e)
}
