// internal/browser/tab.go
package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/odin/internal/humanoid"
	"github.com/xkilldash9x/odin/internal/perception"
)

// ErrTabClosed is returned by operations on a tab that is not open.
var ErrTabClosed = errors.New("browser: tab is not open")

// Tab is a single page of a Session. It is the screen the agent sees and
// the input device it drives: a perception.Source with a per-run lifecycle
// and a humanoid.Driver.
type Tab struct {
	session *Session
	logger  *zap.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

var (
	_ perception.Source    = (*Tab)(nil)
	_ perception.Lifecycle = (*Tab)(nil)
	_ humanoid.Driver      = (*Tab)(nil)
)

// Open creates the page, sizes its viewport and loads the start URL.
// Opening an open tab is a no-op.
func (t *Tab) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx != nil {
		return nil
	}
	browserCtx, err := t.session.browserContext()
	if err != nil {
		return err
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	var tasks chromedp.Tasks
	if t.session.width > 0 && t.session.height > 0 {
		tasks = append(tasks, chromedp.EmulateViewport(int64(t.session.width), int64(t.session.height)))
	}
	if u := t.session.cfg.StartURL; u != "" {
		tasks = append(tasks, chromedp.Navigate(u))
	}

	runCtx, stop := CombineContext(tabCtx, ctx)
	defer stop()
	if err := chromedp.Run(runCtx, tasks); err != nil {
		cancel()
		return fmt.Errorf("failed to open tab: %w", err)
	}

	t.ctx, t.cancel = tabCtx, cancel
	t.logger.Debug("Tab opened.", zap.String("url", t.session.cfg.StartURL))
	return nil
}

// Close closes the page. Closing a closed tab is a no-op.
func (t *Tab) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx == nil {
		return nil
	}
	err := chromedp.Cancel(t.ctx)
	t.cancel()
	t.ctx, t.cancel = nil, nil
	t.logger.Debug("Tab closed.")
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close tab: %w", err)
	}
	return nil
}

// Grab captures the viewport.
func (t *Tab) Grab(ctx context.Context) (image.Image, error) {
	var buf []byte
	err := t.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().WithFormat(page.CaptureScreenshotFormatPng).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return img, nil
}

// DispatchMouseEvent sends a mouse event to the page.
func (t *Tab) DispatchMouseEvent(ctx context.Context, data humanoid.MouseEventData) error {
	p := input.DispatchMouseEvent(input.MouseType(data.Type), data.X, data.Y).
		WithButton(input.MouseButton(data.Button)).
		WithButtons(data.Buttons).
		WithClickCount(int64(data.ClickCount))
	if data.Type == humanoid.MouseWheel {
		p = p.WithDeltaX(data.DeltaX).WithDeltaY(data.DeltaY)
	}
	return t.run(ctx, p)
}

// DispatchKeyEvent sends a key event to the page.
func (t *Tab) DispatchKeyEvent(ctx context.Context, data humanoid.KeyEventData) error {
	p := input.DispatchKeyEvent(input.KeyType(data.Type)).
		WithKey(data.Key).
		WithCode(data.Code).
		WithWindowsVirtualKeyCode(data.WindowsVirtualKeyCode).
		WithModifiers(input.Modifier(data.Modifiers))
	if data.Text != "" {
		p = p.WithText(data.Text).WithUnmodifiedText(data.Text)
	}
	return t.run(ctx, p)
}

// InsertText inserts text into the focused element.
func (t *Tab) InsertText(ctx context.Context, text string) error {
	return t.run(ctx, input.InsertText(text))
}

// run executes actions on the page, bounded by ctx and the configured
// action timeout.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	t.mu.Lock()
	tabCtx := t.ctx
	t.mu.Unlock()
	if tabCtx == nil {
		return ErrTabClosed
	}

	runCtx, cancel := CombineContext(tabCtx, ctx)
	defer cancel()
	runCtx, cancelTimeout := withTimeout(runCtx, t.session.cfg.ActionTimeout)
	defer cancelTimeout()
	return chromedp.Run(runCtx, actions...)
}
