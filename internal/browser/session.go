// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-nav/internal/config"
)

// defaultTimeout bounds every protocol round trip when the configuration
// leaves browser.timeout unset.
const defaultTimeout = 10 * time.Second

// AllocatorOptions builds the Chrome launch flags for cfg.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("enable-automation", true),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	for key, value := range cfg.Flags {
		key = strings.TrimPrefix(key, "--")
		switch strings.ToLower(value) {
		case "", "true":
			opts = append(opts, chromedp.Flag(key, true))
		case "false":
			opts = append(opts, chromedp.Flag(key, false))
		default:
			opts = append(opts, chromedp.Flag(key, value))
		}
	}
	return opts
}

// Session is one browser tab driven over the DevTools protocol.
type Session struct {
	id      string
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	logger  *zap.Logger
}

// NewSession launches a browser and opens a tab. The tab lives until Close
// or until parent is cancelled.
func NewSession(parent context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, AllocatorOptions(cfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	s := &Session{
		id:      id,
		ctx:     tabCtx,
		timeout: timeout,
		logger:  logger.Named("browser").With(zap.String("session_id", id)),
		cancel: func() {
			tabCancel()
			allocCancel()
		},
	}

	// The first Run starts the browser and attaches to the tab.
	startCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()
	if err := chromedp.Run(startCtx); err != nil {
		s.cancel()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}
	if err := chromedp.Run(startCtx, Emulate(cfg.Emulation, s.logger)); err != nil {
		s.cancel()
		return nil, fmt.Errorf("failed to apply emulation: %w", err)
	}
	s.logger.Info("Browser session started.", zap.Bool("headless", cfg.Headless))
	return s, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Context is the chromedp context of the tab.
func (s *Session) Context() context.Context { return s.ctx }

// Navigate loads url and waits for the body to be ready.
func (s *Session) Navigate(url string) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	if err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	s.logger.Info("Page loaded.", zap.String("url", url))
	return nil
}

// Close shuts the tab and the browser down.
func (s *Session) Close() {
	s.cancel()
	s.logger.Debug("Browser session closed.")
}
