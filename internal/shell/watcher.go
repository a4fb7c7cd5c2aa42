// internal/shell/watcher.go
package shell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-nav/internal/input"
)

// Reloader accepts a new document. dom.Document implements it; replacing
// the body fires the structural observers, which re-derive focus.
type Reloader interface {
	ReplaceBody(r io.Reader) error
}

// DocumentWatcher reloads an HTML file into a Reloader whenever the file
// changes on disk. Bursts of writes are coalesced by the debounce delay.
type DocumentWatcher struct {
	path     string
	target   Reloader
	poster   input.Poster
	debounce time.Duration
	logger   *zap.Logger
	onReload func(error)
}

// NewDocumentWatcher creates a watcher. Reloads are applied through poster,
// so they run on the navigator's loop.
func NewDocumentWatcher(path string, target Reloader, poster input.Poster, debounce time.Duration, logger *zap.Logger) *DocumentWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 150 * time.Millisecond
	}
	return &DocumentWatcher{
		path:     filepath.Clean(path),
		target:   target,
		poster:   poster,
		debounce: debounce,
		logger:   logger.Named("doc-watcher").With(zap.String("path", path)),
	}
}

// OnReload registers a callback run on the loop after every reload attempt.
func (w *DocumentWatcher) OnReload(fn func(error)) {
	w.onReload = fn
}

// Task adapts the watcher for Runner.
func (w *DocumentWatcher) Task() Task {
	return w.Watch
}

// Watch follows the file until ctx is cancelled. The parent directory is
// watched so that editors replacing the file atomically are noticed.
func (w *DocumentWatcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("shell: failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("shell: failed to watch %s: %w", w.path, err)
	}
	w.logger.Info("Watching document for changes.", zap.Duration("debounce", w.debounce))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Stopping document watcher.")
			return nil

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error.", zap.Error(err))

		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != w.path {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			if err := w.Reload(ctx); err != nil {
				w.logger.Warn("Document reload failed.", zap.Error(err))
			}
		}
	}
}

// Reload reads the file now and posts the replacement to the loop.
func (w *DocumentWatcher) Reload(ctx context.Context) error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("shell: failed to read document: %w", err)
	}
	return w.poster.Post(ctx, func() {
		err := w.target.ReplaceBody(bytes.NewReader(data))
		if err != nil {
			w.logger.Warn("Failed to apply reloaded document.", zap.Error(err))
		} else {
			w.logger.Info("Document reloaded.", zap.Int("bytes", len(data)))
		}
		if w.onReload != nil {
			w.onReload(err)
		}
	})
}
