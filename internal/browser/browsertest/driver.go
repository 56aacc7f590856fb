// Package browsertest provides an in-memory browser.Driver for tests.
package browsertest

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rahul/seif/internal/browser"
)

// Element is a scripted page element.
type Element struct {
	Name     string
	Hidden   bool
	Disabled bool
	StateErr error
}

func (e *Element) Visible(ctx context.Context) (bool, error) {
	if e.StateErr != nil {
		return false, e.StateErr
	}
	return !e.Hidden, nil
}

func (e *Element) Enabled(ctx context.Context) (bool, error) {
	if e.StateErr != nil {
		return false, e.StateErr
	}
	return !e.Disabled, nil
}

func (e *Element) Describe() string { return e.Name }

type lookup struct {
	by    browser.Locator
	query string
}

// Call records one driver invocation.
type Call struct {
	Op   string
	Args []string
}

// Driver records every call and answers lookups from a fixed table.
type Driver struct {
	mu       sync.Mutex
	elements map[lookup][]browser.Element
	lookups  []browser.Locator
	calls    []Call
	closed   int

	NavigateErr   error
	ClickErr      error
	TypeErr       error
	ScrollErr     error
	ScreenshotErr error
	FindErr       map[browser.Locator]error
	Page          string
	CurrentURL    string
	// WriteScreenshots makes Screenshot create the file on disk.
	WriteScreenshots bool
}

func NewDriver() *Driver {
	return &Driver{
		elements: make(map[lookup][]browser.Element),
		FindErr:  make(map[browser.Locator]error),
	}
}

// Add registers elements returned when query is looked up with by.
func (d *Driver) Add(by browser.Locator, query string, els ...*Element) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, el := range els {
		d.elements[lookup{by, query}] = append(d.elements[lookup{by, query}], el)
	}
	return d
}

func (d *Driver) record(op string, args ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, Call{Op: op, Args: args})
}

// Calls returns the recorded operations, excluding lookups.
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Lookups returns the locators tried, in order.
func (d *Driver) Lookups() []browser.Locator {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]browser.Locator(nil), d.lookups...)
}

func (d *Driver) Closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Driver) FindElements(ctx context.Context, by browser.Locator, query string) ([]browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups = append(d.lookups, by)
	if err := d.FindErr[by]; err != nil {
		return nil, err
	}
	return append([]browser.Element(nil), d.elements[lookup{by, query}]...), nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.record("navigate", url)
	if d.NavigateErr != nil {
		return d.NavigateErr
	}
	d.mu.Lock()
	d.CurrentURL = browser.NormalizeURL(url)
	d.mu.Unlock()
	return nil
}

func (d *Driver) Click(ctx context.Context, el browser.Element) error {
	d.record("click", el.Describe())
	return d.ClickErr
}

func (d *Driver) Type(ctx context.Context, el browser.Element, text string) error {
	d.record("type", el.Describe(), text)
	return d.TypeErr
}

func (d *Driver) Scroll(ctx context.Context, direction string) error {
	d.record("scroll", direction)
	if d.ScrollErr != nil {
		return d.ScrollErr
	}
	_, err := browser.ScrollScript(direction)
	return err
}

func (d *Driver) Screenshot(ctx context.Context, path string) error {
	path = browser.ScreenshotPath(path)
	d.record("screenshot", path)
	if d.ScreenshotErr != nil {
		return d.ScreenshotErr
	}
	if d.WriteScreenshots {
		if err := os.WriteFile(path, []byte("png"), 0644); err != nil {
			return fmt.Errorf("failed to save screenshot: %w", err)
		}
	}
	return nil
}

func (d *Driver) HTML(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Page, nil
}

func (d *Driver) URL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.CurrentURL, nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

var _ browser.Driver = (*Driver)(nil)
