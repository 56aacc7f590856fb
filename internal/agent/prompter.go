package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Decision is the answer at the failure prompt.
type Decision string

const (
	DecisionRetry Decision = "retry"
	DecisionSkip  Decision = "skip"
	DecisionAbort Decision = "abort"
)

// ParseDecision accepts the full word or its first letter.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "retry", "r":
		return DecisionRetry, nil
	case "skip", "s":
		return DecisionSkip, nil
	case "abort", "a":
		return DecisionAbort, nil
	}
	return "", fmt.Errorf("invalid decision %q (want retry, skip or abort)", s)
}

// StepFailure describes the failed attempt shown at the decision point.
type StepFailure struct {
	StepIndex int
	Total     int
	RawStep   string
	Command   Command
	Err       *StepError
	Attempt   int
	// Screenshot is the diagnostic capture path, if one was saved.
	Screenshot string
}

// Prompter supplies the two human decisions of a run. Both calls may block
// until the user answers but must return when ctx is done.
type Prompter interface {
	Confirm(ctx context.Context, cmd Command) (bool, error)
	Decide(ctx context.Context, failure StepFailure) (Decision, error)
}

// AutoPrompter answers without a human. Retries are capped per step by
// MaxRetries, after which Fallback is used.
type AutoPrompter struct {
	Approve    bool
	OnFailure  Decision
	MaxRetries int
	Fallback   Decision
}

func (p *AutoPrompter) Confirm(ctx context.Context, cmd Command) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return p.Approve, nil
}

func (p *AutoPrompter) Decide(ctx context.Context, f StepFailure) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d := p.OnFailure
	if d == "" {
		d = DecisionSkip
	}
	if d == DecisionRetry && f.Attempt > p.MaxRetries {
		d = p.Fallback
		if d == "" || d == DecisionRetry {
			d = DecisionSkip
		}
	}
	return d, nil
}

// ScriptedPrompter replays fixed answers in order. Once an answer list is
// exhausted it confirms and aborts.
type ScriptedPrompter struct {
	mu        sync.Mutex
	Confirms  []bool
	Decisions []Decision
	Asked     []Command
	Failures  []StepFailure
}

func (p *ScriptedPrompter) Confirm(ctx context.Context, cmd Command) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.Asked = append(p.Asked, cmd)
	if len(p.Confirms) == 0 {
		return true, nil
	}
	ok := p.Confirms[0]
	p.Confirms = p.Confirms[1:]
	return ok, nil
}

func (p *ScriptedPrompter) Decide(ctx context.Context, f StepFailure) (Decision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.Failures = append(p.Failures, f)
	if len(p.Decisions) == 0 {
		return DecisionAbort, nil
	}
	d := p.Decisions[0]
	p.Decisions = p.Decisions[1:]
	return d, nil
}
