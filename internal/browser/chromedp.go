package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChromeDriver drives a local Chrome over the DevTools protocol.
type ChromeDriver struct {
	mu            sync.Mutex
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	timeout       time.Duration
}

func NewChromeDriver(ctx context.Context, opts Options) (*ChromeDriver, error) {
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	d := &ChromeDriver{timeout: opts.Timeout}
	// The browser outlives the launching call, so it hangs off Background.
	d.allocCtx, d.allocCancel = chromedp.NewExecAllocator(context.Background(), allocOpts...)
	d.browserCtx, d.browserCancel = chromedp.NewContext(d.allocCtx)

	stop := context.AfterFunc(ctx, d.browserCancel)
	err := chromedp.Run(d.browserCtx)
	stop()
	if err != nil {
		d.cleanup()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}
	return d, nil
}

func (d *ChromeDriver) cleanup() {
	if d.browserCancel != nil {
		d.browserCancel()
	}
	if d.allocCancel != nil {
		d.allocCancel()
	}
	d.browserCtx = nil
	d.allocCtx = nil
}

func (d *ChromeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cleanup()
	return nil
}

// run executes actions with the per-operation timeout. Cancelling ctx aborts
// the in-flight call.
func (d *ChromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	d.mu.Lock()
	bctx := d.browserCtx
	d.mu.Unlock()
	if bctx == nil {
		return ErrClosed
	}

	actionCtx, cancel := context.WithTimeout(bctx, d.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(actionCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(actionCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, d.timeout)
	}
	return err
}

func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	url = NormalizeURL(url)
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		if errors.Is(err, ErrTimeout) {
			return fmt.Errorf("timeout loading %s: %w", url, err)
		}
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// FindElements talks to the DOM domain directly: the chromedp query helpers
// keep polling until something matches, while a strategy miss has to return
// at once.
func (d *ChromeDriver) FindElements(ctx context.Context, by Locator, query string) ([]Element, error) {
	var ids []cdp.NodeID
	err := d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		root, err := dom.GetDocument().WithDepth(0).Do(ctx)
		if err != nil {
			return err
		}
		if by == ByCSS {
			ids, err = dom.QuerySelectorAll(root.NodeID, query).Do(ctx)
			return err
		}

		xp, ok := XPathFor(by, query)
		if !ok {
			return fmt.Errorf("unsupported locator %s", by)
		}
		searchID, count, err := dom.PerformSearch(xp).Do(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = dom.DiscardSearchResults(searchID).Do(ctx) }()
		if count == 0 {
			return nil
		}
		ids, err = dom.GetSearchResults(searchID, 0, count).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}

	els := make([]Element, 0, len(ids))
	for _, id := range ids {
		els = append(els, &chromeElement{driver: d, id: id})
	}
	return els, nil
}

func (d *ChromeDriver) element(el Element) (*chromeElement, error) {
	ce, ok := el.(*chromeElement)
	if !ok || ce.driver != d {
		return nil, ErrForeign
	}
	return ce, nil
}

func (d *ChromeDriver) Click(ctx context.Context, el Element) error {
	ce, err := d.element(el)
	if err != nil {
		return err
	}
	return d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithNodeID(ce.id).Do(ctx); err != nil {
			return err
		}
		// Prefer a real mouse click; fall back to a scripted click when the
		// node has no layout box (e.g. covered or zero-sized wrappers).
		quads, err := dom.GetContentQuads().WithNodeID(ce.id).Do(ctx)
		if err == nil && len(quads) > 0 && len(quads[0]) >= 8 {
			x, y := quadCenter(quads[0])
			press := input.DispatchMouseEvent(input.MousePressed, x, y).WithButton(input.Left).WithClickCount(1)
			release := input.DispatchMouseEvent(input.MouseReleased, x, y).WithButton(input.Left).WithClickCount(1)
			if err := press.Do(ctx); err == nil {
				return release.Do(ctx)
			}
		}
		_, err = ce.call(ctx, clickFn)
		return err
	}))
}

func (d *ChromeDriver) Type(ctx context.Context, el Element, text string) error {
	ce, err := d.element(el)
	if err != nil {
		return err
	}
	return d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithNodeID(ce.id).Do(ctx); err != nil {
			return err
		}
		if err := dom.Focus().WithNodeID(ce.id).Do(ctx); err != nil {
			return err
		}
		if _, err := ce.call(ctx, clearFn); err != nil {
			return err
		}
		if err := input.InsertText(text).Do(ctx); err != nil {
			return err
		}
		_, err := ce.call(ctx, notifyInputFn)
		return err
	}))
}

func (d *ChromeDriver) Scroll(ctx context.Context, direction string) error {
	script, err := ScrollScript(direction)
	if err != nil {
		return err
	}
	return d.run(ctx, chromedp.Evaluate(script, nil))
}

func (d *ChromeDriver) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("failed to take screenshot: %w", err)
	}
	return writeImage(path, buf)
}

func (d *ChromeDriver) HTML(ctx context.Context) (string, error) {
	var html string
	err := d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	}))
	return html, err
}

func (d *ChromeDriver) URL(ctx context.Context) (string, error) {
	var url string
	err := d.run(ctx, chromedp.Location(&url))
	return url, err
}

type chromeElement struct {
	driver *ChromeDriver
	id     cdp.NodeID
}

func (e *chromeElement) Describe() string {
	return fmt.Sprintf("node %d", e.id)
}

func (e *chromeElement) Visible(ctx context.Context) (bool, error) {
	return e.predicate(ctx, visibleFn)
}

func (e *chromeElement) Enabled(ctx context.Context) (bool, error) {
	return e.predicate(ctx, enabledFn)
}

func (e *chromeElement) predicate(ctx context.Context, fn string) (bool, error) {
	var out bool
	err := e.driver.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := e.call(ctx, fn)
		out = raw == "true"
		return err
	}))
	return out, err
}

// call invokes fn with this bound to the node and returns the JSON result.
// It must run inside an action so ctx carries the chromedp executor.
func (e *chromeElement) call(ctx context.Context, fn string) (string, error) {
	obj, err := dom.ResolveNode().WithNodeID(e.id).Do(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

	res, exc, err := runtime.CallFunctionOn(fn).
		WithObjectID(obj.ObjectID).
		WithReturnByValue(true).
		Do(ctx)
	if err != nil {
		return "", err
	}
	if exc != nil {
		return "", exc
	}
	if res == nil {
		return "", nil
	}
	return string(res.Value), nil
}

func quadCenter(q dom.Quad) (float64, float64) {
	var x, y float64
	for i := 0; i < 8; i += 2 {
		x += q[i]
		y += q[i+1]
	}
	return x / 4, y / 4
}

func writeImage(path string, buf []byte) error {
	path = ScreenshotPath(path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create screenshot directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to save screenshot: %w", err)
	}
	return nil
}
