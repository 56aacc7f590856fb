package governance

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request contains the context of a command to be evaluated.
type Request struct {
	Verb      string
	Arguments []string
	StepIndex int
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates commands against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine is a basic implementation of PolicyEngine.
type DefaultPolicyEngine struct {
	DeniedVerbs map[string]bool
	DeniedRegex []*regexp.Regexp
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedVerbs: make(map[string]bool),
		DeniedRegex: make([]*regexp.Regexp, 0),
	}
}

func (e *DefaultPolicyEngine) DenyVerb(verb string) {
	e.DeniedVerbs[strings.ToUpper(verb)] = true
}

func (e *DefaultPolicyEngine) DenyArguments(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedRegex = append(e.DeniedRegex, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if e.DeniedVerbs[strings.ToUpper(req.Verb)] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Command '%s' is blocked by security policy", req.Verb),
		}, nil
	}

	for _, arg := range req.Arguments {
		for _, re := range e.DeniedRegex {
			if re.MatchString(arg) {
				return Result{
					Effect: EffectDeny,
					Reason: fmt.Sprintf("Argument %q matches restricted pattern: %s", arg, re.String()),
				}, nil
			}
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}

// SecurityPolicy decides which commands need an interactive confirmation.
// The zero value never asks. Build one with NewSecurityPolicy; it is not
// modified afterwards.
type SecurityPolicy struct {
	requireConfirmation bool
	confirmVerbs        map[string]struct{}
	safeDomains         []string
}

// DefaultConfirmVerbs are the verbs that act on page content.
var DefaultConfirmVerbs = []string{"CLICK", "TYPE"}

func NewSecurityPolicy(requireConfirmation bool, safeDomains []string, confirmVerbs []string) SecurityPolicy {
	if len(confirmVerbs) == 0 {
		confirmVerbs = DefaultConfirmVerbs
	}
	p := SecurityPolicy{
		requireConfirmation: requireConfirmation,
		confirmVerbs:        make(map[string]struct{}, len(confirmVerbs)),
	}
	for _, v := range confirmVerbs {
		p.confirmVerbs[strings.ToUpper(v)] = struct{}{}
	}
	for _, d := range safeDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			p.safeDomains = append(p.safeDomains, d)
		}
	}
	return p
}

func (p SecurityPolicy) RequireConfirmation() bool { return p.requireConfirmation }

func (p SecurityPolicy) SafeDomains() []string {
	return append([]string(nil), p.safeDomains...)
}

// IsSafeDomain reports whether the host of rawURL contains one of the safe domains.
func (p SecurityPolicy) IsSafeDomain(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, d := range p.safeDomains {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}

// RequiresConfirmation is the security gate. Rules are applied in order:
// confirmation disabled, confirmable verb, GOTO outside the safe domains.
func RequiresConfirmation(p SecurityPolicy, verb string, args []string) bool {
	if !p.requireConfirmation {
		return false
	}
	verb = strings.ToUpper(verb)
	if _, ok := p.confirmVerbs[verb]; ok {
		return true
	}
	if verb == "GOTO" && len(args) > 0 {
		return !p.IsSafeDomain(args[0])
	}
	return false
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
