// Package skills holds the pluggable plan verbs that sit next to the browser
// primitives. A registry is built once at startup and only read afterwards.
package skills

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rahul/seif/internal/browser"
)

// ErrMissingArgument is returned when a skill is invoked with too few arguments.
var ErrMissingArgument = errors.New("missing argument")

// Skill defines the interface for all pluggable verbs.
type Skill interface {
	Verb() string
	Description() string
	// Usage is the plan-line form shown to the planner, e.g. `SAVE_TEXT "text" "file"`.
	Usage() string
	Execute(ctx context.Context, drv browser.Driver, args []string) (string, error)
}

// Registry manages the set of available skills, keyed by upper-case verb.
type Registry struct {
	Skills map[string]Skill
}

func NewRegistry() *Registry {
	return &Registry{
		Skills: make(map[string]Skill),
	}
}

func (r *Registry) Register(s Skill) {
	r.Skills[strings.ToUpper(s.Verb())] = s
}

func (r *Registry) Get(verb string) Skill {
	if r == nil {
		return nil
	}
	return r.Skills[strings.ToUpper(verb)]
}

// Verbs returns the registered verbs in sorted order.
func (r *Registry) Verbs() []string {
	if r == nil {
		return nil
	}
	verbs := make([]string, 0, len(r.Skills))
	for v := range r.Skills {
		verbs = append(verbs, v)
	}
	sort.Strings(verbs)
	return verbs
}

// Default registers every built-in skill. File skills are rooted at workspace.
func Default(workspace string) (*Registry, error) {
	ws, err := NewWorkspace(workspace)
	if err != nil {
		return nil, err
	}
	search, err := NewSearchSkill()
	if err != nil {
		return nil, fmt.Errorf("failed to create search skill: %w", err)
	}

	r := NewRegistry()
	r.Register(&SaveTextSkill{ws: ws})
	r.Register(&LoadTextSkill{ws: ws})
	r.Register(&SaveJSONSkill{ws: ws})
	r.Register(&LoadJSONSkill{ws: ws})
	r.Register(&ExtractTextSkill{ws: ws})
	r.Register(&ExtractLinksSkill{ws: ws})
	r.Register(&ReadArticleSkill{ws: ws})
	r.Register(search)
	return r, nil
}

func need(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("%w: usage %s", ErrMissingArgument, usage)
	}
	return nil
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return truncate(s, n) + "..."
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
