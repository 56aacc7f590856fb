package agent

import (
	"regexp"
	"strings"
)

// ParseStrategy extracts a command from one raw step. It never fails loudly;
// ok=false hands the line to the next strategy.
type ParseStrategy func(raw string) (cmd Command, ok bool)

var (
	strictLine = regexp.MustCompile(`^\s*([A-Za-z_]\w*)((?:\s+(?:"[^"]*"|[^\s"]+))*)\s*$`)
	strictArg  = regexp.MustCompile(`"([^"]*)"|([^\s"]+)`)
	looseToken = regexp.MustCompile(`(\w+)|"(.*?)"`)
)

// DefaultParseStrategies is tried in order; the first match wins.
var DefaultParseStrategies = []ParseStrategy{
	ParseStrict,
	ParseLenient,
}

// ParseStrict matches the full grammar: a bare verb followed by quoted or
// bare arguments separated by whitespace.
func ParseStrict(raw string) (Command, bool) {
	m := strictLine.FindStringSubmatch(raw)
	if m == nil {
		return Command{}, false
	}
	cmd := Command{Verb: m[1], Args: []string{}}
	for _, a := range strictArg.FindAllStringSubmatch(m[2], -1) {
		if strings.HasPrefix(a[0], `"`) {
			cmd.Args = append(cmd.Args, a[1])
		} else {
			cmd.Args = append(cmd.Args, a[2])
		}
	}
	return cmd, true
}

// ParseLenient scans words and quoted spans left to right. The first bare
// word is the verb; every other token becomes an argument in order.
func ParseLenient(raw string) (Command, bool) {
	var cmd Command
	found := false
	for _, tok := range looseToken.FindAllStringSubmatch(raw, -1) {
		switch {
		case tok[1] != "" && !found:
			cmd.Verb = tok[1]
			found = true
		case tok[1] != "":
			cmd.Args = append(cmd.Args, tok[1])
		case strings.HasPrefix(tok[0], `"`):
			cmd.Args = append(cmd.Args, tok[2])
		}
	}
	if !found {
		return Command{}, false
	}
	if cmd.Args == nil {
		cmd.Args = []string{}
	}
	return cmd, true
}

// Parser turns raw plan steps into commands.
type Parser struct {
	Strategies []ParseStrategy
}

func NewParser() *Parser {
	return &Parser{Strategies: DefaultParseStrategies}
}

// Parse returns the first strategy's command, or a ParseError.
func (p *Parser) Parse(raw string) (Command, error) {
	if strings.TrimSpace(raw) != "" {
		for _, s := range p.Strategies {
			if cmd, ok := s(raw); ok {
				return cmd, nil
			}
		}
	}
	return Command{}, stepErrorf(KindParseError, nil, "could not parse command: %q", raw)
}

// ParseCommand parses raw with the default strategies.
func ParseCommand(raw string) (Command, error) {
	return NewParser().Parse(raw)
}
