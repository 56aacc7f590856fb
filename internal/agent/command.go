package agent

import (
	"strconv"
	"strings"
)

// Primitive verbs handled directly by the executor.
const (
	VerbGoto       = "GOTO"
	VerbType       = "TYPE"
	VerbClick      = "CLICK"
	VerbScroll     = "SCROLL"
	VerbScreenshot = "SCREENSHOT"
	VerbDone       = "DONE"
)

var primitiveVerbs = map[string]bool{
	VerbGoto:       true,
	VerbType:       true,
	VerbClick:      true,
	VerbScroll:     true,
	VerbScreenshot: true,
	VerbDone:       true,
}

// IsPrimitive reports whether verb is one of the built-in browser verbs.
func IsPrimitive(verb string) bool {
	return primitiveVerbs[strings.ToUpper(verb)]
}

// Command is one parsed plan step.
type Command struct {
	Verb string
	Args []string
}

// String renders the command in plan syntax with every argument quoted.
func (c Command) String() string {
	var b strings.Builder
	b.WriteString(c.Verb)
	for _, a := range c.Args {
		b.WriteString(` "`)
		b.WriteString(a)
		b.WriteString(`"`)
	}
	return b.String()
}

// Plan is the ordered list of raw step strings produced by the planner.
type Plan []string

// Terminated reports whether the last step parses to DONE.
func (p Plan) Terminated() bool {
	if len(p) == 0 {
		return false
	}
	cmd, err := ParseCommand(p[len(p)-1])
	return err == nil && strings.EqualFold(cmd.Verb, VerbDone)
}

// Numbered renders the plan as "N. step" lines.
func (p Plan) Numbered() string {
	var b strings.Builder
	for i, s := range p {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(s)
	}
	return b.String()
}
