package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rahul/seif/internal/browser"
	"github.com/rahul/seif/internal/governance"
	"github.com/rahul/seif/internal/observability"
)

// PlanGenerator produces the raw steps for a task.
type PlanGenerator interface {
	CreatePlan(ctx context.Context, task string) (Plan, error)
}

// BrowserSession owns one lazily launched browser. Close must be safe to call
// whether or not the browser was ever launched.
type BrowserSession interface {
	Driver(ctx context.Context) (browser.Driver, error)
	Opened() bool
	Close() error
}

// SessionFactory creates the session for a single run.
type SessionFactory func() BrowserSession

// State is the terminal state of a run.
type State string

const (
	StateCompleted State = "Completed"
	StateAborted   State = "Aborted"
)

// Options tune a run.
type Options struct {
	// KeepOpen leaves the browser running after the run until Close is called.
	KeepOpen bool
	// DryRun stops after planning.
	DryRun            bool
	ScreenshotOnError bool
	ScreenshotDir     string
}

// Result is the outcome of one run.
type Result struct {
	RunID    string
	Task     string
	Plan     Plan
	State    State
	Cause    ErrorKind
	Err      error
	DryRun   bool
	KeptOpen bool
	Entries  []LogEntry
	Summary  Summary
	Started  time.Time
	Finished time.Time
}

// Engine drives a plan step by step: parse, gate, execute, log, and ask
// the prompter on failure.
type Engine struct {
	Planner    PlanGenerator
	Parser     *Parser
	Executor   *Executor
	Policy     governance.SecurityPolicy
	Rules      governance.PolicyEngine
	Prompter   Prompter
	NewSession SessionFactory
	Sinks      []LogSink
	Logger     *observability.Logger
	Status     *observability.StatusBoard
	Options    Options
	// OnPlan, if set, sees the plan before any step runs.
	OnPlan func(Plan)

	now  func() time.Time
	mu   sync.Mutex
	kept BrowserSession
}

func NewEngine(planner PlanGenerator, executor *Executor, newSession SessionFactory, prompter Prompter) *Engine {
	return &Engine{
		Planner:    planner,
		Parser:     NewParser(),
		Executor:   executor,
		Policy:     governance.NewSecurityPolicy(true, nil, nil),
		Rules:      governance.NewDefaultPolicyEngine(),
		Prompter:   prompter,
		NewSession: newSession,
		now:        time.Now,
	}
}

type runIDKey struct{}

// WithRunID tags ctx with the run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFrom returns the run id stored in ctx, if any.
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

func (e *Engine) clock() time.Time {
	if e.now == nil {
		return time.Now()
	}
	return e.now()
}

// Run executes task to completion or abort. The browser session is released
// exactly once before Run returns unless Options.KeepOpen is set.
func (e *Engine) Run(ctx context.Context, task string) *Result {
	runID := uuid.NewString()
	ctx = WithRunID(ctx, runID)

	res := &Result{RunID: runID, Task: task, Started: e.clock()}
	elog := NewExecutionLog(runID, e.Sinks...)
	elog.now = e.clock

	// A session kept open by the previous run belongs to that run only.
	e.Close()

	var session BrowserSession
	if e.NewSession != nil {
		session = e.NewSession()
	}

	for _, s := range e.Sinks {
		if rs, ok := s.(RunSink); ok {
			if err := rs.Begin(runID, task, res.Started); err != nil {
				log.Printf("Warning: failed to record run start: %v", err)
			}
		}
	}
	e.Status.Set(runID, task, observability.PhasePlanning, 0, 0)

	defer func() {
		res.Entries = elog.Entries()
		res.Summary = elog.Summary()
		res.Finished = e.clock()

		if session != nil {
			if e.Options.KeepOpen && res.Cause != KindCancelled {
				e.mu.Lock()
				e.kept = session
				e.mu.Unlock()
				res.KeptOpen = true
			} else if err := session.Close(); err != nil {
				log.Printf("Warning: failed to close browser: %v", err)
			}
		}

		phase := observability.PhaseCompleted
		if res.State == StateAborted {
			phase = observability.PhaseAborted
		}
		e.Status.Set(runID, task, phase, len(res.Plan), len(res.Plan))
		e.Logger.LogSummary(runID, map[string]any{
			"state":   res.State,
			"cause":   res.Cause,
			"summary": res.Summary,
		})
		for _, s := range e.Sinks {
			if rs, ok := s.(RunSink); ok {
				if err := rs.Finish(res); err != nil {
					log.Printf("Warning: failed to record run result: %v", err)
				}
			}
		}
	}()

	abort := func(err *StepError) *Result {
		res.State = StateAborted
		res.Cause = err.Kind
		res.Err = err
		log.Printf("Run aborted (%s): %s", err.Kind, err.Message)
		return res
	}

	// Planning
	plan, err := e.Planner.CreatePlan(ctx, task)
	if err != nil {
		if ctx.Err() != nil {
			return abort(stepErrorf(KindCancelled, err, "cancelled while planning"))
		}
		return abort(stepErrorf(KindNoPlan, err, "could not create a plan: %v", err))
	}
	if len(plan) == 0 {
		return abort(stepErrorf(KindNoPlan, nil, "could not create a plan: no steps"))
	}
	res.Plan = plan
	e.Logger.LogPlan(runID, task, plan)
	if !plan.Terminated() {
		e.Logger.LogWarning(runID, "plan does not end with DONE")
	}
	log.Printf("Plan created with %d steps", len(plan))
	if e.OnPlan != nil {
		e.OnPlan(plan)
	}

	if e.Options.DryRun {
		res.DryRun = true
		res.State = StateCompleted
		return res
	}

	attempts := make(map[int]int)
	for i := 0; i < len(plan); {
		raw := plan[i]
		if ctx.Err() != nil {
			return abort(stepErrorf(KindCancelled, ctx.Err(), "cancelled before step %d", i+1))
		}
		e.Status.Set(runID, task, observability.PhaseRunning, i+1, len(plan))
		log.Printf("[Step %d/%d] %s", i+1, len(plan), raw)

		cmd, err := e.Parser.Parse(raw)
		if err != nil {
			se := asStepError(err, KindParseError)
			se.StepIndex = i
			elog.Append(i, raw, Command{}, se)
			e.Logger.LogStep(runID, i, raw, false, se.Message)
			return abort(se)
		}

		stepErr := e.gate(ctx, i, cmd)
		if stepErr != nil && stepErr.Kind == KindUserAbort {
			stepErr.StepIndex = i
			elog.Append(i, raw, cmd, stepErr)
			e.Logger.LogStep(runID, i, raw, false, stepErr.Message)
			return abort(stepErr)
		}
		if stepErr != nil && stepErr.Kind == KindCancelled {
			return abort(stepErr)
		}

		var out string
		if stepErr == nil {
			out, stepErr = e.execute(ctx, session, cmd)
		}

		if stepErr == nil {
			elog.Append(i, raw, cmd, nil)
			e.Logger.LogStep(runID, i, raw, true, "")
			if out != "" {
				log.Printf("[Step %d/%d] %s", i+1, len(plan), out)
			}
			i++
			continue
		}

		stepErr.StepIndex = i
		elog.Append(i, raw, cmd, stepErr)
		e.Logger.LogStep(runID, i, raw, false, stepErr.Message)
		log.Printf("Error: %s", stepErr.Message)

		if stepErr.Kind == KindCancelled || ctx.Err() != nil {
			return abort(stepErrorf(KindCancelled, ctx.Err(), "cancelled during step %d", i+1))
		}

		attempts[i]++
		failure := StepFailure{
			StepIndex:  i,
			Total:      len(plan),
			RawStep:    raw,
			Command:    cmd,
			Err:        stepErr,
			Attempt:    attempts[i],
			Screenshot: e.errorScreenshot(ctx, session, i),
		}

		e.Status.Set(runID, task, observability.PhaseWaiting, i+1, len(plan))
		decision, err := e.Prompter.Decide(ctx, failure)
		if err != nil {
			if ctx.Err() != nil {
				return abort(stepErrorf(KindCancelled, ctx.Err(), "cancelled at failure prompt for step %d", i+1))
			}
			return abort(stepErrorf(KindUserAbort, err, "failure prompt for step %d failed: %v", i+1, err))
		}
		e.Logger.LogDecision(runID, i, string(decision))

		switch decision {
		case DecisionRetry:
			log.Printf("Retrying step %d", i+1)
		case DecisionSkip:
			log.Printf("Skipping step %d", i+1)
			i++
		default:
			return abort(stepErrorf(KindUserAbort, nil, "aborted by user at step %d", i+1))
		}
	}

	res.State = StateCompleted
	return res
}

// gate applies the deny rules and the confirmation policy.
func (e *Engine) gate(ctx context.Context, index int, cmd Command) *StepError {
	runID := RunIDFrom(ctx)
	if e.Rules != nil {
		decision, err := e.Rules.Evaluate(ctx, governance.Request{
			Verb:      cmd.Verb,
			Arguments: cmd.Args,
			StepIndex: index,
		})
		if err != nil {
			return stepErrorf(KindPolicyDenied, err, "policy evaluation failed: %v", err)
		}
		e.Logger.LogPolicyCheck(runID, cmd.Verb, string(decision.Effect), decision.Reason)
		if decision.Effect == governance.EffectDeny {
			return stepErrorf(KindPolicyDenied, nil, "blocked by policy: %s", decision.Reason)
		}
	}

	if !governance.RequiresConfirmation(e.Policy, cmd.Verb, cmd.Args) {
		return nil
	}
	ok, err := e.Prompter.Confirm(ctx, cmd)
	if err != nil {
		if ctx.Err() != nil {
			return stepErrorf(KindCancelled, ctx.Err(), "cancelled at confirmation of %s", cmd.Verb)
		}
		return stepErrorf(KindUserAbort, err, "confirmation of %s failed: %v", cmd.Verb, err)
	}
	e.Logger.LogConfirm(runID, cmd.Verb, ok)
	if !ok {
		return stepErrorf(KindUserAbort, nil, "user declined %s", cmd)
	}
	return nil
}

func (e *Engine) execute(ctx context.Context, session BrowserSession, cmd Command) (string, *StepError) {
	if session == nil {
		return "", stepErrorf(KindDriverError, nil, "no browser session available")
	}
	drv, err := session.Driver(ctx)
	if err != nil {
		return "", driverError(ctx, err, "browser unavailable")
	}
	out, err := e.Executor.Execute(ctx, cmd, drv)
	if err != nil {
		return "", asStepError(err, KindDriverError)
	}
	return out, nil
}

// errorScreenshot saves a diagnostic capture of an already open browser.
func (e *Engine) errorScreenshot(ctx context.Context, session BrowserSession, index int) string {
	if !e.Options.ScreenshotOnError || session == nil || !session.Opened() {
		return ""
	}
	drv, err := session.Driver(ctx)
	if err != nil {
		return ""
	}
	name := fmt.Sprintf("error_step_%d_%d.png", index+1, e.clock().Unix())
	path := filepath.Join(e.Options.ScreenshotDir, name)
	if err := drv.Screenshot(ctx, path); err != nil {
		log.Printf("Warning: failed to save error screenshot: %v", err)
		return ""
	}
	log.Printf("Error screenshot saved: %s", path)
	return path
}

// Close releases a browser kept open by the last run.
func (e *Engine) Close() error {
	e.mu.Lock()
	s := e.kept
	e.kept = nil
	e.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Close()
}

func asStepError(err error, fallback ErrorKind) *StepError {
	var se *StepError
	if errors.As(err, &se) {
		return se
	}
	return stepErrorf(fallback, err, "%v", err)
}
