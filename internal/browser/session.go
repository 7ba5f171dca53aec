// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/odin/internal/config"
)

// ErrNotStarted is returned when a tab is opened before the browser runs.
var ErrNotStarted = errors.New("browser: session not started")

// Session owns a Chrome process. It is the explicit automation handle that
// callers create, pass to collaborators and shut down; each run works in a
// Tab of its own.
type Session struct {
	cfg    config.BrowserConfig
	width  int
	height int
	logger *zap.Logger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewSession configures a session with a viewport of width x height.
func NewSession(cfg config.BrowserConfig, width, height int, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{cfg: cfg, width: width, height: height, logger: logger.Named("browser")}
}

// Start launches Chrome. It is a no-op when the browser is already running.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCtx != nil {
		return nil
	}

	// The allocator outlives ctx: the browser lives until Close.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), DefaultAllocatorOptions(s.cfg, s.width, s.height)...)

	var ctxOpts []chromedp.ContextOption
	if s.cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(s.logger.Sugar().Debugf))
	}
	ctxOpts = append(ctxOpts, chromedp.WithErrorf(s.logger.Sugar().Errorf))
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, ctxOpts...)

	launchCtx, cancel := CombineContext(browserCtx, ctx)
	defer cancel()
	if err := chromedp.Run(launchCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	s.allocCancel, s.browserCtx, s.browserCancel = allocCancel, browserCtx, browserCancel
	s.logger.Info("Browser started.", zap.Bool("headless", s.cfg.Headless), zap.Int("width", s.width), zap.Int("height", s.height))
	return nil
}

// NewTab returns an unopened tab in this browser.
func (s *Session) NewTab() *Tab {
	return &Tab{session: s, logger: s.logger.Named("tab")}
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCtx == nil {
		return nil
	}

	err := chromedp.Cancel(s.browserCtx)
	s.browserCancel()
	s.allocCancel()
	s.browserCtx, s.browserCancel, s.allocCancel = nil, nil, nil
	s.logger.Debug("Browser closed.")
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

// browserContext returns the browser context, or ErrNotStarted.
func (s *Session) browserContext() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCtx == nil {
		return nil, ErrNotStarted
	}
	return s.browserCtx, nil
}
