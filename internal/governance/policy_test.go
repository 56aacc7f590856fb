package governance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyEngine_Evaluate(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	ctx := context.Background()

	// Test Allow (Default)
	req1 := Request{Verb: "GOTO", Arguments: []string{"https://example.com"}}
	res1, err := engine.Evaluate(ctx, req1)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res1.Effect != EffectAllow {
		t.Errorf("Expected EffectAllow, got %s", res1.Effect)
	}

	// Test Deny
	engine.DenyVerb("save_text")
	req2 := Request{Verb: "SAVE_TEXT"}
	res2, err := engine.Evaluate(ctx, req2)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res2.Effect != EffectDeny {
		t.Errorf("Expected EffectDeny, got %s", res2.Effect)
	}
}

func TestDefaultPolicyEngine_DenyArguments(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	require.NoError(t, engine.DenyArguments(`^file://`))
	require.Error(t, engine.DenyArguments(`(`))

	res, err := engine.Evaluate(context.Background(), Request{Verb: "GOTO", Arguments: []string{"file:///etc/passwd"}})
	require.NoError(t, err)
	assert.Equal(t, EffectDeny, res.Effect)
	assert.Contains(t, res.Reason, "file:///etc/passwd")
}

func TestRequiresConfirmation_DisabledNeverAsks(t *testing.T) {
	p := NewSecurityPolicy(false, nil, nil)
	for _, verb := range []string{"GOTO", "TYPE", "CLICK", "SCROLL", "SCREENSHOT", "DONE", "SAVE_TEXT"} {
		assert.False(t, RequiresConfirmation(p, verb, []string{"https://evil.example.com", "x"}), verb)
	}
}

func TestRequiresConfirmation_Rules(t *testing.T) {
	p := NewSecurityPolicy(true, []string{"github.com", "google.com"}, nil)

	tests := []struct {
		name string
		verb string
		args []string
		want bool
	}{
		{"click always asks", "CLICK", []string{"#btn"}, true},
		{"type always asks", "TYPE", []string{"#q", "hello"}, true},
		{"lower-case verb", "click", []string{"#btn"}, true},
		{"goto safe domain", "GOTO", []string{"https://github.com/x"}, false},
		{"goto safe subdomain", "GOTO", []string{"https://gist.github.com/x"}, false},
		{"goto without scheme", "GOTO", []string{"github.com"}, false},
		{"goto unsafe domain", "GOTO", []string{"https://evil.example.com"}, true},
		{"goto safe name in path only", "GOTO", []string{"https://evil.example.com/github.com"}, true},
		{"goto without args", "GOTO", nil, false},
		{"scroll never asks", "SCROLL", []string{"down"}, false},
		{"done never asks", "DONE", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiresConfirmation(p, tt.verb, tt.args))
		})
	}
}

func TestRequiresConfirmation_CustomVerbs(t *testing.T) {
	p := NewSecurityPolicy(true, nil, []string{"save_json"})
	assert.True(t, RequiresConfirmation(p, "SAVE_JSON", []string{"{}", "out"}))
	assert.False(t, RequiresConfirmation(p, "CLICK", []string{"#btn"}))
}

func TestSecurityPolicy_SafeDomainsCopy(t *testing.T) {
	p := NewSecurityPolicy(true, []string{" GitHub.com ", ""}, nil)
	domains := p.SafeDomains()
	require.Equal(t, []string{"github.com"}, domains)
	domains[0] = "evil.com"
	assert.True(t, p.IsSafeDomain("https://github.com"))
}
