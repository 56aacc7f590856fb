package agent

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/seif/internal/browser"
	"github.com/rahul/seif/internal/browser/browsertest"
	"github.com/rahul/seif/internal/governance"
)

var clickPlan = Plan{`GOTO "https://x.com"`, `CLICK "#btn"`, "DONE"}

func newTestEngine(plan Plan, drv *browsertest.Driver, p Prompter) (*Engine, *sessions) {
	f := &sessions{drv: drv}
	e := NewEngine(staticPlanner{plan: plan}, NewExecutor(nil), f.factory, p)
	return e, f
}

func verbs(entries []LogEntry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Verb)
	}
	return out
}

func TestRun_SkipFailedClick(t *testing.T) {
	p := &ScriptedPrompter{Decisions: []Decision{DecisionSkip}}
	e, f := newTestEngine(clickPlan, browsertest.NewDriver(), p)

	res := e.Run(context.Background(), "click the button")

	assert.Equal(t, StateCompleted, res.State)
	require.Len(t, res.Entries, 3)
	assert.Equal(t, []string{"GOTO", "CLICK", "DONE"}, verbs(res.Entries))
	assert.True(t, res.Entries[0].Success)
	assert.False(t, res.Entries[1].Success)
	assert.Contains(t, res.Entries[1].Error, "#btn")
	assert.True(t, res.Entries[2].Success)
	assert.Equal(t, 2, res.Summary.Succeeded)
	assert.Equal(t, 1, res.Summary.Failed)
	assert.Equal(t, 3, res.Summary.Total)
	assert.InDelta(t, 66.67, res.Summary.SuccessRate, 0.01)

	require.Len(t, p.Failures, 1)
	assert.Equal(t, KindElementNotFound, p.Failures[0].Err.Kind)
	assert.Equal(t, 1, p.Failures[0].Attempt)
	require.Len(t, f.made, 1)
	assert.Equal(t, 1, f.made[0].Closes())
}

func TestRun_AbortFailedClick(t *testing.T) {
	p := &ScriptedPrompter{Decisions: []Decision{DecisionAbort}}
	e, f := newTestEngine(clickPlan, browsertest.NewDriver(), p)

	res := e.Run(context.Background(), "click the button")

	assert.Equal(t, StateAborted, res.State)
	assert.Equal(t, KindUserAbort, res.Cause)
	assert.Equal(t, []string{"GOTO", "CLICK"}, verbs(res.Entries))
	assert.NotContains(t, verbs(res.Entries), "DONE")
	assert.Equal(t, Summary{Succeeded: 1, Failed: 1, Total: 2, SuccessRate: 50}, res.Summary)
	assert.Equal(t, 1, f.made[0].Closes())
}

func TestRun_RetryThenSucceed(t *testing.T) {
	drv := browsertest.NewDriver()
	drv.NavigateErr = errBoom
	p := &ScriptedPrompter{Decisions: []Decision{DecisionRetry, DecisionRetry}}
	// Prompts run on the engine goroutine, so the driver can be fixed
	// between attempts.
	fixer := &fixingPrompter{inner: p, after: 2, fix: func() { drv.NavigateErr = nil }}
	e, f := newTestEngine(Plan{`GOTO "x.com"`, "DONE"}, drv, fixer)

	res := e.Run(context.Background(), "open x")

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, []string{"GOTO", "GOTO", "GOTO", "DONE"}, verbs(res.Entries))
	assert.Equal(t, []int{0, 0, 0, 1}, []int{res.Entries[0].StepIndex, res.Entries[1].StepIndex, res.Entries[2].StepIndex, res.Entries[3].StepIndex})
	assert.Equal(t, 2, p.Failures[1].Attempt)
	assert.Equal(t, 1, f.made[0].Closes())
}

type fixingPrompter struct {
	inner *ScriptedPrompter
	after int
	fix   func()
	seen  int
}

func (p *fixingPrompter) Confirm(ctx context.Context, cmd Command) (bool, error) {
	return p.inner.Confirm(ctx, cmd)
}

func (p *fixingPrompter) Decide(ctx context.Context, f StepFailure) (Decision, error) {
	p.seen++
	if p.seen == p.after {
		p.fix()
	}
	return p.inner.Decide(ctx, f)
}

func TestRun_AutoPrompterCapsRetries(t *testing.T) {
	drv := browsertest.NewDriver()
	p := &AutoPrompter{Approve: true, OnFailure: DecisionRetry, MaxRetries: 2, Fallback: DecisionAbort}
	e, _ := newTestEngine(clickPlan, drv, p)

	res := e.Run(context.Background(), "t")

	assert.Equal(t, StateAborted, res.State)
	assert.Equal(t, []string{"GOTO", "CLICK", "CLICK", "CLICK"}, verbs(res.Entries))
}

func TestRun_ParseErrorIsFatal(t *testing.T) {
	p := &ScriptedPrompter{}
	e, f := newTestEngine(Plan{`GOTO "x.com"`, `"???"`, "DONE"}, browsertest.NewDriver(), p)

	res := e.Run(context.Background(), "t")

	assert.Equal(t, StateAborted, res.State)
	assert.Equal(t, KindParseError, res.Cause)
	require.Len(t, res.Entries, 2)
	assert.False(t, res.Entries[1].Success)
	assert.Equal(t, 1, res.Entries[1].StepIndex)
	assert.Empty(t, p.Failures)
	assert.Equal(t, 1, f.made[0].Closes())
}

func TestRun_NoPlan(t *testing.T) {
	for name, planner := range map[string]staticPlanner{
		"error": {err: &PlanGenerationError{Output: "sorry"}},
		"empty": {plan: Plan{}},
	} {
		t.Run(name, func(t *testing.T) {
			f := &sessions{drv: browsertest.NewDriver()}
			e := NewEngine(planner, NewExecutor(nil), f.factory, &ScriptedPrompter{})

			res := e.Run(context.Background(), "t")

			assert.Equal(t, StateAborted, res.State)
			assert.Equal(t, KindNoPlan, res.Cause)
			assert.Empty(t, res.Entries)
			assert.Equal(t, Summary{}, res.Summary)
			assert.False(t, f.made[0].Opened())
			assert.Equal(t, 1, f.made[0].Closes())
		})
	}
}

func TestRun_DeclinedConfirmation(t *testing.T) {
	drv := browsertest.NewDriver().Add(browser.ByCSS, "#btn", &browsertest.Element{Name: "btn"})
	p := &ScriptedPrompter{Confirms: []bool{true, false}}
	e, f := newTestEngine(clickPlan, drv, p)

	res := e.Run(context.Background(), "t")

	assert.Equal(t, StateAborted, res.State)
	assert.Equal(t, KindUserAbort, res.Cause)
	assert.Equal(t, []string{"GOTO", "CLICK"}, verbs(res.Entries))
	assert.False(t, res.Entries[1].Success)
	assert.Equal(t, []string{"navigate"}, ops(drv.Calls()))
	assert.Equal(t, 1, f.made[0].Closes())
}

func ops(calls []browsertest.Call) []string {
	var out []string
	for _, c := range calls {
		out = append(out, c.Op)
	}
	return out
}

func TestRun_ConfirmationPolicy(t *testing.T) {
	drv := browsertest.NewDriver().Add(browser.ByCSS, "#btn", &browsertest.Element{Name: "btn"})
	p := &ScriptedPrompter{}
	e, _ := newTestEngine(Plan{`GOTO "https://github.com/x"`, `CLICK "#btn"`, `SCROLL "down"`, "DONE"}, drv, p)
	e.Policy = governance.NewSecurityPolicy(true, []string{"github.com"}, nil)

	res := e.Run(context.Background(), "t")

	assert.Equal(t, StateCompleted, res.State)
	require.Len(t, p.Asked, 1)
	assert.Equal(t, "CLICK", p.Asked[0].Verb)

	p = &ScriptedPrompter{}
	e.Prompter = p
	e.Policy = governance.NewSecurityPolicy(false, nil, nil)
	res = e.Run(context.Background(), "t")
	assert.Equal(t, StateCompleted, res.State)
	assert.Empty(t, p.Asked)
}

func TestRun_PolicyDeniedIsRecoverable(t *testing.T) {
	rules := governance.NewDefaultPolicyEngine()
	rules.DenyVerb("SCREENSHOT")
	p := &ScriptedPrompter{Decisions: []Decision{DecisionSkip}}
	e, _ := newTestEngine(Plan{`SCREENSHOT "page"`, "DONE"}, browsertest.NewDriver(), p)
	e.Rules = rules

	res := e.Run(context.Background(), "t")

	assert.Equal(t, StateCompleted, res.State)
	require.Len(t, p.Failures, 1)
	assert.Equal(t, KindPolicyDenied, p.Failures[0].Err.Kind)
	assert.Equal(t, Summary{Succeeded: 1, Failed: 1, Total: 2, SuccessRate: 50}, res.Summary)
}

func TestRun_CancellationReleasesOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, f := newTestEngine(clickPlan, browsertest.NewDriver(), &cancelPrompter{cancel: cancel})
	e.Options.KeepOpen = true

	res := e.Run(ctx, "t")

	assert.Equal(t, StateAborted, res.State)
	assert.Equal(t, KindCancelled, res.Cause)
	assert.False(t, res.KeptOpen)
	assert.Equal(t, 1, f.made[0].Closes())
	assert.Empty(t, res.Entries)
}

func TestRun_CancelledAtFailurePrompt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, f := newTestEngine(clickPlan, browsertest.NewDriver(), &cancelPrompter{cancel: cancel})
	e.Policy = governance.NewSecurityPolicy(false, nil, nil)

	res := e.Run(ctx, "t")

	assert.Equal(t, KindCancelled, res.Cause)
	assert.Equal(t, []string{"GOTO", "CLICK"}, verbs(res.Entries))
	assert.Equal(t, 1, f.made[0].Closes())
}

func TestRun_KeepOpenDefersRelease(t *testing.T) {
	e, f := newTestEngine(Plan{`SCROLL "down"`, "DONE"}, browsertest.NewDriver(), &ScriptedPrompter{})
	e.Options.KeepOpen = true

	res := e.Run(context.Background(), "first")
	assert.True(t, res.KeptOpen)
	assert.Equal(t, 0, f.made[0].Closes())

	e.Run(context.Background(), "second")
	assert.Equal(t, 1, f.made[0].Closes())
	assert.Equal(t, 0, f.made[1].Closes())

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.Equal(t, 1, f.made[1].Closes())
}

func TestRun_DryRun(t *testing.T) {
	drv := browsertest.NewDriver()
	e, f := newTestEngine(clickPlan, drv, &ScriptedPrompter{})
	e.Options.DryRun = true
	var seen Plan
	e.OnPlan = func(p Plan) { seen = p }

	res := e.Run(context.Background(), "t")

	assert.Equal(t, clickPlan, seen)
	assert.True(t, res.DryRun)
	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, clickPlan, res.Plan)
	assert.Empty(t, res.Entries)
	assert.Empty(t, drv.Calls())
	assert.Equal(t, 1, f.made[0].Closes())
}

func TestRun_ErrorScreenshot(t *testing.T) {
	dir := t.TempDir()
	drv := browsertest.NewDriver()
	p := &ScriptedPrompter{Decisions: []Decision{DecisionSkip}}
	e, _ := newTestEngine(clickPlan, drv, p)
	e.Options.ScreenshotOnError = true
	e.Options.ScreenshotDir = dir
	e.now = func() time.Time { return time.Unix(1700000000, 0) }

	e.Run(context.Background(), "t")

	want := filepath.Join(dir, "error_step_2_1700000000.png")
	require.Len(t, p.Failures, 1)
	assert.Equal(t, want, p.Failures[0].Screenshot)
	assert.Contains(t, drv.Calls(), browsertest.Call{Op: "screenshot", Args: []string{want}})
}

func TestRun_NoScreenshotBeforeBrowserOpens(t *testing.T) {
	drv := browsertest.NewDriver()
	p := &ScriptedPrompter{Decisions: []Decision{DecisionSkip}}
	f := &sessions{drv: drv}
	e := NewEngine(staticPlanner{plan: Plan{`SCROLL "down"`, "DONE"}}, NewExecutor(nil), func() BrowserSession {
		s := f.factory().(*spySession)
		s.launchErr = errBoom
		return s
	}, p)
	e.Options.ScreenshotOnError = true

	res := e.Run(context.Background(), "t")

	require.Len(t, p.Failures, 1)
	assert.Equal(t, KindDriverError, p.Failures[0].Err.Kind)
	assert.Empty(t, p.Failures[0].Screenshot)
	assert.Equal(t, StateCompleted, res.State)
}

func TestRun_SinksSeeEveryAttempt(t *testing.T) {
	sink := &memSink{err: errBoom}
	p := &ScriptedPrompter{Decisions: []Decision{DecisionSkip}}
	e, _ := newTestEngine(clickPlan, browsertest.NewDriver(), p)
	e.Sinks = []LogSink{sink}

	res := e.Run(context.Background(), "t")

	assert.Len(t, sink.entries, 3)
	assert.Equal(t, []string{res.RunID}, sink.begun)
	require.Len(t, sink.finished, 1)
	assert.Same(t, res, sink.finished[0])
	for _, entry := range sink.entries {
		assert.Equal(t, res.RunID, entry.RunID)
	}
}
