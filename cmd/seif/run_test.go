package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/seif/internal/agent"
	"github.com/rahul/seif/internal/console"
	"github.com/rahul/seif/internal/governance"
	"github.com/rahul/seif/pkg/config"
)

func TestNewRules(t *testing.T) {
	rules, err := newRules(config.SecurityConfig{
		BlockedCommands:  []string{"save_json"},
		BlockedArguments: []string{`(?i)password`},
	})
	require.NoError(t, err)

	ctx := context.Background()
	res, err := rules.Evaluate(ctx, governance.Request{Verb: "SAVE_JSON", Arguments: []string{"{}", "x"}})
	require.NoError(t, err)
	assert.Equal(t, governance.EffectDeny, res.Effect)

	res, err = rules.Evaluate(ctx, governance.Request{Verb: "TYPE", Arguments: []string{"#pw", "my Password"}})
	require.NoError(t, err)
	assert.Equal(t, governance.EffectDeny, res.Effect)

	res, err = rules.Evaluate(ctx, governance.Request{Verb: "GOTO", Arguments: []string{"go.dev"}})
	require.NoError(t, err)
	assert.Equal(t, governance.EffectAllow, res.Effect)

	_, err = newRules(config.SecurityConfig{BlockedArguments: []string{"("}})
	assert.ErrorContains(t, err, "invalid blocked argument pattern")
}

func TestRunPrompter(t *testing.T) {
	defer func(yes bool, onFailure string, retries int) {
		runYes, runOnFailure, runMaxRetries = yes, onFailure, retries
	}(runYes, runOnFailure, runMaxRetries)
	ctx := context.Background()
	term := console.NewTerminal(strings.NewReader("n\nabort\n"), &strings.Builder{})

	runYes, runOnFailure = false, ""
	p, err := runPrompter(term)
	require.NoError(t, err)
	ok, err := p.Confirm(ctx, agent.Command{Verb: "CLICK"})
	require.NoError(t, err)
	assert.False(t, ok)
	d, err := p.Decide(ctx, agent.StepFailure{Total: 1})
	require.NoError(t, err)
	assert.Equal(t, agent.DecisionAbort, d)

	runYes, runOnFailure = true, "retry"
	runMaxRetries = 1
	p, err = runPrompter(term)
	require.NoError(t, err)
	ok, err = p.Confirm(ctx, agent.Command{Verb: "CLICK"})
	require.NoError(t, err)
	assert.True(t, ok)
	d, _ = p.Decide(ctx, agent.StepFailure{Attempt: 1})
	assert.Equal(t, agent.DecisionRetry, d)
	d, _ = p.Decide(ctx, agent.StepFailure{Attempt: 2})
	assert.Equal(t, agent.DecisionSkip, d)

	runOnFailure = "later"
	_, err = runPrompter(term)
	assert.Error(t, err)
}

func TestApplyProvider(t *testing.T) {
	p := agent.NewPlanner(nil, nil, nil)
	applyProvider(p, config.ProviderConfig{})
	assert.Equal(t, 0.7, p.Temperature)
	assert.Equal(t, 1000, p.MaxTokens)

	applyProvider(p, config.ProviderConfig{Temperature: config.Float(0), MaxTokens: 64})
	assert.Equal(t, 0.0, p.Temperature)
	assert.Equal(t, 64, p.MaxTokens)
}
