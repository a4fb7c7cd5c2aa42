// internal/shell/runner.go
package shell

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/scalpel-nav/internal/nav"
)

// Task is a long running companion of the loop, such as a file watcher. A
// task returns when ctx is cancelled; an error stops the whole runner.
type Task func(ctx context.Context) error

// Runner owns a navigator and the loop serializing access to it. It is the
// lifecycle shell around the engine: Run initializes the navigator on the
// loop, runs the companion tasks, and clears the navigator on the way out.
type Runner[E comparable] struct {
	nav       *nav.Navigator[E]
	loop      *Loop
	tasks     []Task
	stopOn    []<-chan struct{}
	afterInit func(*nav.Navigator[E])
	logger    *zap.Logger
	sessionID string
}

// Option configures a Runner.
type Option[E comparable] func(*Runner[E])

// WithTask registers a companion task.
func WithTask[E comparable](t Task) Option[E] {
	return func(r *Runner[E]) {
		r.tasks = append(r.tasks, t)
	}
}

// StopOn ends the run once ch is closed and every function posted before
// that has run. It is how a finite command stream ends a headless run.
func StopOn[E comparable](ch <-chan struct{}) Option[E] {
	return func(r *Runner[E]) {
		r.stopOn = append(r.stopOn, ch)
	}
}

// AfterInit runs fn on the loop right after a successful Init.
func AfterInit[E comparable](fn func(*nav.Navigator[E])) Option[E] {
	return func(r *Runner[E]) {
		r.afterInit = fn
	}
}

// NewRunner wires a navigator to a loop. The navigator's input source must
// post through the same loop.
func NewRunner[E comparable](n *nav.Navigator[E], loop *Loop, logger *zap.Logger, opts ...Option[E]) *Runner[E] {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	r := &Runner[E]{
		nav:       n,
		loop:      loop,
		logger:    logger.Named("shell").With(zap.String("session_id", id)),
		sessionID: id,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SessionID identifies this run in logs.
func (r *Runner[E]) SessionID() string { return r.sessionID }

// Loop returns the loop the navigator runs on.
func (r *Runner[E]) Loop() *Loop { return r.loop }

// Do runs fn with the navigator on the loop and waits for it.
func (r *Runner[E]) Do(ctx context.Context, fn func(*nav.Navigator[E])) error {
	return r.loop.Do(ctx, func() { fn(r.nav) })
}

// Run blocks until ctx is cancelled, a stop channel fires, or a task fails.
// The navigator is cleared before Run returns.
func (r *Runner[E]) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.logger.Info("Starting navigation session.", zap.Int("tasks", len(r.tasks)))
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.loop.Run(gctx)
	})

	g.Go(func() error {
		var initErr error
		err := r.loop.Do(gctx, func() {
			initErr = r.nav.Init()
			if initErr == nil && r.afterInit != nil {
				r.afterInit(r.nav)
			}
		})
		if err != nil {
			if gctx.Err() != nil || errors.Is(err, ErrStopped) {
				return nil
			}
			return err
		}
		if initErr != nil {
			return fmt.Errorf("shell: failed to initialize navigator: %w", initErr)
		}
		return nil
	})

	for _, task := range r.tasks {
		g.Go(func() error {
			return task(gctx)
		})
	}

	for _, ch := range r.stopOn {
		g.Go(func() error {
			select {
			case <-ch:
			case <-gctx.Done():
				return nil
			}
			// Drain what was posted before the signal.
			_ = r.loop.Do(gctx, func() {})
			r.logger.Debug("Stop signal received.")
			cancel()
			return nil
		})
	}

	err := g.Wait()
	// The loop has exited, so the navigator can be touched from here.
	r.nav.Clear()
	if err != nil {
		r.logger.Error("Navigation session failed.", zap.Error(err))
		return err
	}
	r.logger.Info("Navigation session finished.")
	return nil
}
