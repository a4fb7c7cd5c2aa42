// internal/input/source.go
package input

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-nav/internal/nav"
)

// Poster runs fn on the goroutine that owns the navigator. Post must give up
// when ctx is cancelled.
type Poster interface {
	Post(ctx context.Context, fn func()) error
}

// ResultFunc observes the outcome of every applied command.
type ResultFunc func(cmd Command, changed bool, err error)

// Source is the navigator's input source: while bound it runs its producers
// and forwards their commands, throttled, to the controller through a Poster.
type Source[E comparable] struct {
	ctrl      nav.Controller
	poster    Poster
	throttle  *Throttle
	producers []Producer
	onResult  ResultFunc
	logger    *zap.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	finished chan struct{}
}

// SourceConfig groups the collaborators of a Source.
type SourceConfig struct {
	Poster    Poster
	Throttle  *Throttle
	Producers []Producer
	OnResult  ResultFunc
	Logger    *zap.Logger
}

// NewSource creates an unbound source driving ctrl.
func NewSource[E comparable](ctrl nav.Controller, cfg SourceConfig) *Source[E] {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source[E]{
		ctrl:      ctrl,
		poster:    cfg.Poster,
		throttle:  cfg.Throttle,
		producers: cfg.Producers,
		onResult:  cfg.OnResult,
		logger:    logger.Named("input"),
		finished:  make(chan struct{}),
	}
}

// Factory returns a nav.InputFactory building a Source per navigator. The
// built source is also passed to created, when set, so the caller can wait
// on Finished.
func Factory[E comparable](cfg SourceConfig, created func(*Source[E])) nav.InputFactory[E] {
	return func(ctrl nav.Controller) nav.InputSource[E] {
		src := NewSource[E](ctrl, cfg)
		if created != nil {
			created(src)
		}
		return src
	}
}

var errAlreadyBound = errors.New("input: source is already bound")

// Bind starts every producer. The root is not used: commands are global to
// the navigator, like key events on a document.
func (s *Source[E]) Bind(E) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errAlreadyBound
	}
	if s.poster == nil {
		return fmt.Errorf("input: a poster is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, p := range s.producers {
		s.wg.Go(func() {
			if err := p.Produce(ctx, func(cmd Command) { s.forward(ctx, cmd) }); err != nil {
				s.logger.Warn("Input producer stopped with an error.", zap.Error(err))
			}
		})
	}
	go func() {
		s.wg.Wait()
		close(s.finished)
	}()
	s.logger.Debug("Input source bound.", zap.Int("producers", len(s.producers)))
	return nil
}

// Unbind stops the producers and waits for them to return. It is safe to
// call from the goroutine that owns the navigator.
func (s *Source[E]) Unbind() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Debug("Input source unbound.")
}

// Finished is closed once every producer has returned after Bind.
func (s *Source[E]) Finished() <-chan struct{} {
	return s.finished
}

// Dropped reports how many commands the throttle rejected.
func (s *Source[E]) Dropped() int64 {
	return s.throttle.Dropped()
}

func (s *Source[E]) forward(ctx context.Context, cmd Command) {
	if !s.throttle.Allow() {
		s.logger.Debug("Dropping command over the repeat rate.", zap.Stringer("command", cmd))
		return
	}
	err := s.poster.Post(ctx, func() {
		changed, err := cmd.Apply(s.ctrl)
		if err != nil {
			s.logger.Debug("Command rejected.", zap.Stringer("command", cmd), zap.Error(err))
		}
		if s.onResult != nil {
			s.onResult(cmd, changed, err)
		}
	})
	if err != nil {
		s.logger.Debug("Command not delivered.", zap.Stringer("command", cmd), zap.Error(err))
	}
}
