// File: cmd/session.go
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-nav/internal/config"
	"github.com/xkilldash9x/scalpel-nav/internal/dom"
	"github.com/xkilldash9x/scalpel-nav/internal/input"
	"github.com/xkilldash9x/scalpel-nav/internal/nav"
	"github.com/xkilldash9x/scalpel-nav/internal/shell"
)

// loopBuffer is the queue depth of the navigator loop.
const loopBuffer = 64

// docSession bundles a parsed document with a navigator running over it.
type docSession struct {
	cfg     config.Interface
	logger  *zap.Logger
	doc     *dom.Document
	events  *dom.Dispatcher
	loop    *shell.Loop
	nav     *nav.Navigator[*html.Node]
	source  *input.Source[*html.Node]
	keys    input.KeyMap
	watcher *shell.DocumentWatcher
}

// sessionConfig is what differs between the commands sharing docSession.
type sessionConfig struct {
	producers []input.Producer
	onResult  input.ResultFunc
}

func openDocument(cfg config.Interface, logger *zap.Logger) (*dom.Document, error) {
	docCfg := cfg.Document()
	if docCfg.Path == "" {
		return nil, errors.New("no document given, use --document or document.path")
	}
	f, err := os.Open(docCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()
	viewport := dom.Viewport{Width: docCfg.ViewportWidth, Height: docCfg.ViewportHeight}
	return dom.Parse(f, viewport, logger)
}

// newDocSession parses the configured document and builds a navigator whose
// input source posts through a fresh loop.
func newDocSession(cfg config.Interface, logger *zap.Logger, sc sessionConfig) (*docSession, error) {
	doc, err := openDocument(cfg, logger)
	if err != nil {
		return nil, err
	}
	keys, err := input.ParseKeyMap(cfg.Input().Keys)
	if err != nil {
		return nil, err
	}

	s := &docSession{
		cfg:    cfg,
		logger: logger,
		doc:    doc,
		events: dom.NewDispatcher(logger, 256),
		loop:   shell.NewLoop(logger, loopBuffer),
		keys:   keys,
	}

	opts, err := nav.OptionsFromConfig[*html.Node](cfg.Navigator())
	if err != nil {
		return nil, err
	}
	opts.Observer = doc
	opts.Dispatcher = s.events
	opts.Logger = logger
	opts.Input = input.Factory[*html.Node](input.SourceConfig{
		Poster:    s.loop,
		Throttle:  input.NewThrottle(cfg.Input().RepeatRate, cfg.Input().RepeatBurst),
		Producers: sc.producers,
		OnResult:  sc.onResult,
		Logger:    logger,
	}, func(src *input.Source[*html.Node]) { s.source = src })

	s.nav, err = nav.New[*html.Node](doc.Root(), doc, doc, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create navigator: %w", err)
	}

	if cfg.Document().Watch {
		s.watcher = shell.NewDocumentWatcher(cfg.Document().Path, doc, s.loop, cfg.Document().Debounce, logger)
	}
	return s, nil
}

// runnerOptions returns the options every document runner shares.
func (s *docSession) runnerOptions(extra ...shell.Option[*html.Node]) []shell.Option[*html.Node] {
	var opts []shell.Option[*html.Node]
	if s.watcher != nil {
		opts = append(opts, shell.WithTask[*html.Node](s.watcher.Task()))
	}
	return append(opts, extra...)
}

// describeFocus renders the focused element and pointer for output. It must
// run on the loop.
func describeFocus(n *nav.Navigator[*html.Node]) string {
	el, ok := n.Focused()
	if !ok {
		return fmt.Sprintf("- %s", n.Position())
	}
	return fmt.Sprintf("%s %s", dom.Describe(el), n.Position())
}

// commandProducers picks the command sources for a headless run: a tailed
// command file when one is configured, otherwise the given reader.
func commandProducers(cfg config.Interface, r io.Reader, keys input.KeyMap, logger *zap.Logger) (producers []input.Producer, finite bool) {
	if path := cfg.Input().CommandFile; path != "" {
		return []input.Producer{input.NewTailSource(path, input.TailOptions{FromStart: true}, keys, logger)}, false
	}
	return []input.Producer{input.NewLineSource(r, keys, logger)}, true
}
