// internal/shell/loop.go
package shell

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrStopped is returned when work is posted to a loop that is no longer running.
var ErrStopped = errors.New("shell: loop stopped")

// Loop runs posted functions one at a time on a single goroutine. Every
// navigator call and every tree mutation goes through it, so each one runs to
// completion before the next starts.
type Loop struct {
	logger *zap.Logger
	tasks  chan func()
	done   chan struct{}
	once   sync.Once
}

// NewLoop creates a loop with a task queue of the given capacity.
func NewLoop(logger *zap.Logger, buffer int) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer < 0 {
		buffer = 0
	}
	return &Loop{
		logger: logger.Named("loop"),
		tasks:  make(chan func(), buffer),
		done:   make(chan struct{}),
	}
}

// Post queues fn. It blocks while the queue is full, until ctx is cancelled
// or the loop stops.
func (l *Loop) Post(ctx context.Context, fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Do posts fn and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// The task may have been the last one run.
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Run executes queued functions until ctx is cancelled. A loop runs once;
// after Run returns, Post fails with ErrStopped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	l.logger.Debug("Loop started.")
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("Loop stopped.", zap.Int("pending", len(l.tasks)))
			return nil
		case fn := <-l.tasks:
			if err := l.run(fn); err != nil {
				return err
			}
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// run executes one task, turning a panic into an error that stops the loop.
func (l *Loop) run(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Recovered from panic in loop task.", zap.Any("panic_value", r), zap.Stack("stack"))
			err = fmt.Errorf("shell: loop task panicked: %v", r)
		}
	}()
	fn()
	return nil
}
