package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rahul/seif/internal/browser"
	"github.com/rahul/seif/internal/skills"
)

// Executor dispatches a command to a browser primitive or a registered skill.
type Executor struct {
	Skills *skills.Registry
	// NewResolver builds the element resolver for a driver. Defaults to
	// browser.NewResolver.
	NewResolver func(browser.Finder) *browser.Resolver
}

func NewExecutor(registry *skills.Registry) *Executor {
	return &Executor{Skills: registry, NewResolver: browser.NewResolver}
}

// Execute runs cmd against drv. The result string is only set for skills.
// Every failure is returned as a *StepError.
func (x *Executor) Execute(ctx context.Context, cmd Command, drv browser.Driver) (string, error) {
	verb := strings.ToUpper(cmd.Verb)
	args := cmd.Args

	switch verb {
	case VerbGoto:
		if len(args) < 1 {
			return "", stepErrorf(KindMissingArgument, nil, "GOTO requires a URL")
		}
		if err := drv.Navigate(ctx, args[0]); err != nil {
			return "", driverError(ctx, err, "navigation to %s failed", args[0])
		}
		return "", nil

	case VerbType:
		if len(args) != 2 {
			return "", stepErrorf(KindMissingArgument, nil, "TYPE requires exactly 2 arguments (target, text), got %d", len(args))
		}
		el, err := x.interactable(ctx, drv, args[0])
		if err != nil {
			return "", err
		}
		if err := drv.Type(ctx, el, args[1]); err != nil {
			return "", driverError(ctx, err, "typing into %q failed", args[0])
		}
		return "", nil

	case VerbClick:
		if len(args) < 1 {
			return "", stepErrorf(KindMissingArgument, nil, "CLICK requires a target")
		}
		el, err := x.interactable(ctx, drv, args[0])
		if err != nil {
			return "", err
		}
		if err := drv.Click(ctx, el); err != nil {
			return "", driverError(ctx, err, "clicking %q failed", args[0])
		}
		return "", nil

	case VerbScroll:
		if len(args) < 1 {
			return "", stepErrorf(KindMissingArgument, nil, "SCROLL requires a direction")
		}
		if err := drv.Scroll(ctx, args[0]); err != nil {
			return "", driverError(ctx, err, "scrolling %s failed", args[0])
		}
		return "", nil

	case VerbScreenshot:
		if len(args) < 1 {
			return "", stepErrorf(KindMissingArgument, nil, "SCREENSHOT requires a filename")
		}
		path := browser.ScreenshotPath(args[0])
		if err := drv.Screenshot(ctx, path); err != nil {
			return "", driverError(ctx, err, "screenshot %s failed", path)
		}
		return fmt.Sprintf("Screenshot saved as %s", path), nil

	case VerbDone:
		return "", nil
	}

	if skill := x.Skills.Get(verb); skill != nil {
		res, err := skill.Execute(ctx, drv, args)
		if err != nil {
			if errors.Is(err, skills.ErrMissingArgument) {
				return "", stepErrorf(KindMissingArgument, err, "%s: %v", verb, err)
			}
			return "", driverError(ctx, err, "%s failed", verb)
		}
		return res, nil
	}

	return "", stepErrorf(KindUnknownCommand, nil, "unknown command: %s", cmd.Verb)
}

func (x *Executor) interactable(ctx context.Context, drv browser.Driver, query string) (browser.Element, error) {
	newResolver := x.NewResolver
	if newResolver == nil {
		newResolver = browser.NewResolver
	}
	res := newResolver(drv).Resolve(ctx, query)
	if err := ctx.Err(); err != nil {
		return nil, stepErrorf(KindCancelled, err, "cancelled while looking up %q", query)
	}
	if el := browser.FirstInteractable(ctx, res.Elements); el != nil {
		return el, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, stepErrorf(KindCancelled, err, "cancelled while looking up %q", query)
	}
	if res.Empty() {
		return nil, stepErrorf(KindElementNotFound, nil, "element not found: %s", query)
	}
	return nil, stepErrorf(KindElementNotFound, nil, "element not found: %s (%d matches by %s, none visible and enabled)", query, len(res.Elements), res.By)
}

func driverError(ctx context.Context, err error, format string, args ...any) *StepError {
	msg := fmt.Sprintf(format, args...)
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		return stepErrorf(KindCancelled, err, "%s: cancelled", msg)
	case errors.Is(err, browser.ErrTimeout):
		return stepErrorf(KindNavigationTimeout, err, "%s: %v", msg, err)
	default:
		return stepErrorf(KindDriverError, err, "%s: %v", msg, err)
	}
}
