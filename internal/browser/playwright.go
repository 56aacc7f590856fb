package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightDriver drives Chromium through a Playwright server. Playwright
// calls cannot be interrupted, so ctx is only checked between operations;
// every call is still bounded by the page's default timeout.
type PlaywrightDriver struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	timeout float64
}

func NewPlaywrightDriver(ctx context.Context, opts Options) (*PlaywrightDriver, error) {
	opts = opts.withDefaults()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		if installErr := playwright.Install(runOpts); installErr != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", installErr)
		}
		if pw, err = playwright.Run(runOpts); err != nil {
			return nil, fmt.Errorf("failed to start playwright: %w", err)
		}
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Width,
			Height: opts.Height,
		},
	}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	timeout := float64(opts.Timeout.Milliseconds())
	page.SetDefaultTimeout(timeout)

	return &PlaywrightDriver{
		pw:      pw,
		browser: browser,
		page:    page,
		timeout: timeout,
	}, nil
}

func (d *PlaywrightDriver) current(ctx context.Context) (playwright.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.page == nil {
		return nil, ErrClosed
	}
	return d.page, nil
}

func (d *PlaywrightDriver) Navigate(ctx context.Context, url string) error {
	page, err := d.current(ctx)
	if err != nil {
		return err
	}
	url = NormalizeURL(url)
	_, err = page.Goto(url, playwright.PageGotoOptions{
		Timeout: playwright.Float(d.timeout),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return fmt.Errorf("timeout loading %s: %w", url, ErrTimeout)
		}
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (d *PlaywrightDriver) FindElements(ctx context.Context, by Locator, query string) ([]Element, error) {
	page, err := d.current(ctx)
	if err != nil {
		return nil, err
	}

	selector := query
	if by != ByCSS {
		xp, ok := XPathFor(by, query)
		if !ok {
			return nil, fmt.Errorf("unsupported locator %s", by)
		}
		selector = "xpath=" + xp
	} else {
		selector = "css=" + query
	}

	locators, err := page.Locator(selector).All()
	if err != nil {
		return nil, err
	}
	els := make([]Element, 0, len(locators))
	for _, l := range locators {
		els = append(els, &pwElement{driver: d, loc: l, selector: selector})
	}
	return els, nil
}

func (d *PlaywrightDriver) element(el Element) (*pwElement, error) {
	pe, ok := el.(*pwElement)
	if !ok || pe.driver != d {
		return nil, ErrForeign
	}
	return pe, nil
}

func (d *PlaywrightDriver) Click(ctx context.Context, el Element) error {
	if _, err := d.current(ctx); err != nil {
		return err
	}
	pe, err := d.element(el)
	if err != nil {
		return err
	}
	if err := pe.loc.Click(); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

func (d *PlaywrightDriver) Type(ctx context.Context, el Element, text string) error {
	page, err := d.current(ctx)
	if err != nil {
		return err
	}
	pe, err := d.element(el)
	if err != nil {
		return err
	}
	if err := pe.loc.Fill(text); err == nil {
		return nil
	}
	// Fill refuses non-editable wrappers; focus them and type instead.
	if err := pe.loc.Click(); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	if err := page.Keyboard().Type(text); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

func (d *PlaywrightDriver) Scroll(ctx context.Context, direction string) error {
	page, err := d.current(ctx)
	if err != nil {
		return err
	}
	script, err := ScrollScript(direction)
	if err != nil {
		return err
	}
	_, err = page.Evaluate(script)
	return err
}

func (d *PlaywrightDriver) Screenshot(ctx context.Context, path string) error {
	page, err := d.current(ctx)
	if err != nil {
		return err
	}
	buf, err := page.Screenshot()
	if err != nil {
		return fmt.Errorf("failed to take screenshot: %w", err)
	}
	return writeImage(path, buf)
}

func (d *PlaywrightDriver) HTML(ctx context.Context) (string, error) {
	page, err := d.current(ctx)
	if err != nil {
		return "", err
	}
	return page.Content()
}

func (d *PlaywrightDriver) URL(ctx context.Context) (string, error) {
	page, err := d.current(ctx)
	if err != nil {
		return "", err
	}
	return page.URL(), nil
}

func (d *PlaywrightDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pw == nil {
		return nil
	}
	var errs []error
	if err := d.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if err := d.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}
	d.page = nil
	d.browser = nil
	d.pw = nil
	return errors.Join(errs...)
}

type pwElement struct {
	driver   *PlaywrightDriver
	loc      playwright.Locator
	selector string
}

func (e *pwElement) Describe() string { return e.selector }

func (e *pwElement) Visible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return e.loc.IsVisible()
}

func (e *pwElement) Enabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return e.loc.IsEnabled()
}
