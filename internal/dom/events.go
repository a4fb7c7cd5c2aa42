// internal/dom/events.go
package dom

import (
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
	"github.com/xkilldash9x/scalpel-nav/internal/nav"
)

// Event is one synthetic event delivered to an element of a Document.
type Event struct {
	Target   *html.Node
	Kind     nav.EventKind
	Position geometry.Point
}

// Handler reacts to a dispatched event. Handlers run synchronously inside
// the navigator call that produced the event.
type Handler func(Event)

// Dispatcher delivers navigator events to registered handlers and keeps a
// history of what was dispatched. It implements nav.Dispatcher.
type Dispatcher struct {
	logger   *zap.Logger
	handlers map[nav.EventKind][]Handler
	history  []Event
	limit    int
}

// NewDispatcher creates a dispatcher keeping at most limit events of history
// (0 keeps everything).
func NewDispatcher(logger *zap.Logger, limit int) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		logger:   logger.Named("events"),
		handlers: make(map[nav.EventKind][]Handler),
		limit:    limit,
	}
}

// On registers h for events of the given kind.
func (d *Dispatcher) On(kind nav.EventKind, h Handler) {
	d.handlers[kind] = append(d.handlers[kind], h)
}

// Dispatch records the event, then runs the handlers registered for its kind.
func (d *Dispatcher) Dispatch(target *html.Node, kind nav.EventKind, at geometry.Point) {
	ev := Event{Target: target, Kind: kind, Position: at}
	d.history = append(d.history, ev)
	if d.limit > 0 && len(d.history) > d.limit {
		d.history = d.history[len(d.history)-d.limit:]
	}
	d.logger.Debug("Dispatching event.",
		zap.String("kind", string(kind)),
		zap.String("target", Describe(target)),
		zap.String("xpath", XPathOf(target)),
		zap.Stringer("position", at))
	for _, h := range d.handlers[kind] {
		h(ev)
	}
}

// History returns a copy of the recorded events, oldest first.
func (d *Dispatcher) History() []Event {
	return append([]Event(nil), d.history...)
}

// Reset forgets the recorded events.
func (d *Dispatcher) Reset() {
	d.history = nil
}
