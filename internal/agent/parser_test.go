package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand_RoundTrip(t *testing.T) {
	cmds := []Command{
		{Verb: "GOTO", Args: []string{"https://x.com"}},
		{Verb: "TYPE", Args: []string{"input[name='q']", "trending startups"}},
		{Verb: "CLICK", Args: []string{"#btn"}},
		{Verb: "SCROLL", Args: []string{"down"}},
		{Verb: "SAVE_JSON", Args: []string{"{}", "out"}},
		{Verb: "TYPE", Args: []string{"#q", ""}},
		{Verb: "DONE", Args: []string{}},
	}
	for _, want := range cmds {
		t.Run(want.String(), func(t *testing.T) {
			got, err := ParseCommand(want.String())
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseCommand_Grammar(t *testing.T) {
	tests := []struct {
		raw  string
		verb string
		args []string
	}{
		{`CLICK #btn`, "CLICK", []string{"#btn"}},
		{`  SCROLL   "down"  `, "SCROLL", []string{"down"}},
		{`TYPE "#q" hello`, "TYPE", []string{"#q", "hello"}},
		{"DONE", "DONE", []string{}},
		// unbalanced quote falls through to the lenient scan
		{`TYPE "#q" "hello`, "TYPE", []string{"#q", "hello"}},
		{`GOTO: "https://x.com"`, "GOTO", []string{"https://x.com"}},
		{`"#btn" CLICK`, "CLICK", []string{"#btn"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseCommand(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.verb, got.Verb)
			assert.Equal(t, tt.args, got.Args)
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n", `"only quoted"`, "!!! ???"} {
		_, err := ParseCommand(raw)
		require.Error(t, err, "%q", raw)
		assert.Equal(t, KindParseError, KindOf(err))
	}
}

func TestParser_FirstStrategyWins(t *testing.T) {
	var calls []string
	p := &Parser{Strategies: []ParseStrategy{
		func(raw string) (Command, bool) { calls = append(calls, "a"); return Command{}, false },
		func(raw string) (Command, bool) { calls = append(calls, "b"); return Command{Verb: "B"}, true },
		func(raw string) (Command, bool) { calls = append(calls, "c"); return Command{Verb: "C"}, true },
	}}
	cmd, err := p.Parse("anything")
	require.NoError(t, err)
	assert.Equal(t, "B", cmd.Verb)
	assert.Equal(t, []string{"a", "b"}, calls)
}
