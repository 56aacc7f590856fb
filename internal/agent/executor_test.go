package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/seif/internal/browser"
	"github.com/rahul/seif/internal/browser/browsertest"
	"github.com/rahul/seif/internal/skills"
)

func TestExecute_MissingArguments(t *testing.T) {
	x := NewExecutor(nil)
	d := browsertest.NewDriver()

	for _, cmd := range []Command{
		{Verb: "GOTO"},
		{Verb: "TYPE", Args: []string{"#q"}},
		{Verb: "TYPE", Args: []string{"#q", "a", "b"}},
		{Verb: "CLICK"},
		{Verb: "SCROLL"},
		{Verb: "SCREENSHOT"},
	} {
		_, err := x.Execute(context.Background(), cmd, d)
		assert.Equal(t, KindMissingArgument, KindOf(err), cmd.String())
	}
	assert.Empty(t, d.Calls())
}

func TestExecute_ClickUsesFirstVisibleEnabled(t *testing.T) {
	d := browsertest.NewDriver().Add(browser.ByText, "Sign in",
		&browsertest.Element{Name: "hidden", Hidden: true},
		&browsertest.Element{Name: "disabled", Disabled: true},
		&browsertest.Element{Name: "link"},
	)
	_, err := NewExecutor(nil).Execute(context.Background(), Command{Verb: "click", Args: []string{"Sign in"}}, d)
	require.NoError(t, err)
	assert.Equal(t, []browsertest.Call{{Op: "click", Args: []string{"link"}}}, d.Calls())
}

func TestExecute_ElementNotFoundNamesQuery(t *testing.T) {
	d := browsertest.NewDriver()
	_, err := NewExecutor(nil).Execute(context.Background(), Command{Verb: "CLICK", Args: []string{"#btn"}}, d)
	require.Error(t, err)
	assert.Equal(t, KindElementNotFound, KindOf(err))
	assert.Contains(t, err.Error(), "#btn")

	d.Add(browser.ByCSS, "#btn", &browsertest.Element{Name: "b", Hidden: true})
	_, err = NewExecutor(nil).Execute(context.Background(), Command{Verb: "TYPE", Args: []string{"#btn", "x"}}, d)
	assert.Equal(t, KindElementNotFound, KindOf(err))
	assert.Contains(t, err.Error(), "none visible and enabled")
}

func TestExecute_Primitives(t *testing.T) {
	ctx := context.Background()
	d := browsertest.NewDriver().Add(browser.ByName, "q", &browsertest.Element{Name: "search"})
	x := NewExecutor(nil)

	_, err := x.Execute(ctx, Command{Verb: "GOTO", Args: []string{"github.com"}}, d)
	require.NoError(t, err)
	_, err = x.Execute(ctx, Command{Verb: "TYPE", Args: []string{"q", "chromedp"}}, d)
	require.NoError(t, err)
	_, err = x.Execute(ctx, Command{Verb: "SCROLL", Args: []string{"down"}}, d)
	require.NoError(t, err)
	out, err := x.Execute(ctx, Command{Verb: "SCREENSHOT", Args: []string{"results"}}, d)
	require.NoError(t, err)
	assert.Equal(t, "Screenshot saved as results.png", out)
	_, err = x.Execute(ctx, Command{Verb: "DONE"}, d)
	require.NoError(t, err)

	assert.Equal(t, []browsertest.Call{
		{Op: "navigate", Args: []string{"github.com"}},
		{Op: "type", Args: []string{"search", "chromedp"}},
		{Op: "scroll", Args: []string{"down"}},
		{Op: "screenshot", Args: []string{"results.png"}},
	}, d.Calls())
	assert.Equal(t, "https://github.com", d.CurrentURL)
}

func TestExecute_DriverErrorsAreNormalized(t *testing.T) {
	ctx := context.Background()
	d := browsertest.NewDriver()
	x := NewExecutor(nil)

	d.NavigateErr = fmt.Errorf("timeout loading https://slow.example: %w", browser.ErrTimeout)
	_, err := x.Execute(ctx, Command{Verb: "GOTO", Args: []string{"slow.example"}}, d)
	assert.Equal(t, KindNavigationTimeout, KindOf(err))
	assert.ErrorIs(t, err, browser.ErrTimeout)

	_, err = x.Execute(ctx, Command{Verb: "SCROLL", Args: []string{"sideways"}}, d)
	assert.Equal(t, KindDriverError, KindOf(err))
	assert.Contains(t, err.Error(), "sideways")
}

func TestExecute_SkillsAndUnknown(t *testing.T) {
	ctx := context.Background()
	d := browsertest.NewDriver()
	d.Page = `<html><body><h2 class="title">One</h2><h2 class="title">Two</h2></body></html>`

	reg, err := skills.Default(t.TempDir())
	require.NoError(t, err)
	x := NewExecutor(reg)

	out, err := x.Execute(ctx, Command{Verb: "extract_text", Args: []string{"h2.title"}}, d)
	require.NoError(t, err)
	assert.Contains(t, out, "Extracted 2 text items")

	_, err = x.Execute(ctx, Command{Verb: "SAVE_TEXT", Args: []string{"only"}}, d)
	assert.Equal(t, KindMissingArgument, KindOf(err))

	_, err = x.Execute(ctx, Command{Verb: "LOAD_TEXT", Args: []string{"nope.txt"}}, d)
	assert.Equal(t, KindDriverError, KindOf(err))

	_, err = x.Execute(ctx, Command{Verb: "FLY", Args: []string{"away"}}, d)
	assert.Equal(t, KindUnknownCommand, KindOf(err))
	assert.EqualError(t, err, "unknown command: FLY")
}

func TestExecute_SaveJSONFromUsageLine(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	reg, err := skills.Default(dir)
	require.NoError(t, err)

	cmd, err := ParseCommand(reg.Get("SAVE_JSON").Usage())
	require.NoError(t, err)
	require.Len(t, cmd.Args, 2)

	out, err := NewExecutor(reg).Execute(ctx, cmd, browsertest.NewDriver())
	require.NoError(t, err)
	assert.Equal(t, "JSON data saved to filename.json", out)

	raw, err := os.ReadFile(filepath.Join(dir, "filename.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"key": "value"}`, string(raw))
}

func TestExecute_CancelledLookup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := browsertest.NewDriver().Add(browser.ByCSS, "#a", &browsertest.Element{Name: "a"})
	_, err := NewExecutor(nil).Execute(ctx, Command{Verb: "CLICK", Args: []string{"#a"}}, d)
	assert.Equal(t, KindCancelled, KindOf(err))
}
