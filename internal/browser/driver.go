// Package browser wraps a remote browser behind a small driver interface and
// resolves natural-language targets to page elements.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrTimeout       = errors.New("timed out")
	ErrClosed        = errors.New("browser session closed")
	ErrForeign       = errors.New("element belongs to another driver")
	ErrBadDirection  = errors.New("unknown scroll direction")
	ErrUnknownDriver = errors.New("unknown browser driver")
)

// Element is an opaque reference to a node of the current document. It is
// only valid until the next navigation and must not be kept across steps.
type Element interface {
	Visible(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	Describe() string
}

// Finder runs a single lookup strategy against the current page.
type Finder interface {
	FindElements(ctx context.Context, by Locator, query string) ([]Element, error)
}

// Driver is the set of primitive operations the executor needs.
type Driver interface {
	Finder
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, el Element) error
	Type(ctx context.Context, el Element, text string) error
	Scroll(ctx context.Context, direction string) error
	Screenshot(ctx context.Context, path string) error
	HTML(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	Close() error
}

// Options configures a launched browser.
type Options struct {
	Headless  bool
	Width     int
	Height    int
	UserAgent string
	Timeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 1920
	}
	if o.Height <= 0 {
		o.Height = 1080
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

// NewLauncher returns a Launcher for the named driver backend.
func NewLauncher(kind string, opts Options) (Launcher, error) {
	switch kind {
	case "", "chromedp":
		return func(ctx context.Context) (Driver, error) {
			return NewChromeDriver(ctx, opts)
		}, nil
	case "playwright":
		return func(ctx context.Context) (Driver, error) {
			return NewPlaywrightDriver(ctx, opts)
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, kind)
	}
}

// NormalizeURL adds https:// when the URL has no scheme.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") || strings.HasPrefix(raw, "about:") || strings.HasPrefix(raw, "data:") {
		return raw
	}
	return "https://" + raw
}

// ScreenshotPath appends .png unless the name already carries an image extension.
func ScreenshotPath(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range []string{".png", ".jpg", ".jpeg"} {
		if strings.HasSuffix(lower, ext) {
			return name
		}
	}
	return name + ".png"
}

// ScrollScript returns the page script for a scroll direction.
func ScrollScript(direction string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "down":
		return "window.scrollBy(0, 500);", nil
	case "up":
		return "window.scrollBy(0, -500);", nil
	case "top":
		return "window.scrollTo(0, 0);", nil
	case "bottom":
		return "window.scrollTo(0, document.body.scrollHeight);", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrBadDirection, direction)
	}
}

const (
	visibleFn = `function() {
	const style = window.getComputedStyle(this);
	const rect = this.getBoundingClientRect();
	return style.display !== 'none' && style.visibility !== 'hidden' &&
		style.opacity !== '0' && rect.width > 0 && rect.height > 0;
}`
	enabledFn = `function() {
	return !this.disabled && this.getAttribute('aria-disabled') !== 'true';
}`
	clearFn = `function() {
	if ('value' in this) { this.value = ''; } else if (this.isContentEditable) { this.textContent = ''; }
}`
	notifyInputFn = `function() {
	this.dispatchEvent(new Event('input', { bubbles: true }));
	this.dispatchEvent(new Event('change', { bubbles: true }));
}`
	clickFn = `function() { this.click(); }`
)
