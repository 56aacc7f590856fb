package agent

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionLog_AppendOnlyCopies(t *testing.T) {
	l := NewExecutionLog("run-1")
	cmd := Command{Verb: "TYPE", Args: []string{"#q", "go"}}
	l.Append(0, `TYPE "#q" "go"`, cmd, nil)
	cmd.Args[1] = "mutated"

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"#q", "go"}, entries[0].Args)

	entries[0].Verb = "CHANGED"
	assert.Equal(t, "TYPE", l.Entries()[0].Verb)
}

func TestExecutionLog_Summary(t *testing.T) {
	assert.Equal(t, Summary{}, NewExecutionLog("r").Summary())

	l := NewExecutionLog("r")
	l.Append(0, "GOTO x", Command{Verb: "GOTO"}, nil)
	l.Append(1, "CLICK y", Command{Verb: "CLICK"}, stepErrorf(KindElementNotFound, nil, "element not found: y"))
	l.Append(1, "CLICK y", Command{Verb: "CLICK"}, nil)
	l.Append(2, "DONE", Command{Verb: "DONE"}, nil)

	assert.Equal(t, Summary{Succeeded: 3, Failed: 1, Total: 4, SuccessRate: 75}, l.Summary())
}

func TestFileLogSink_WritesRecordFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent_execution.log")
	l := NewExecutionLog("run-9", NewFileLogSink(path, 0))

	l.Append(3, `CLICK "#btn"`, Command{Verb: "CLICK", Args: []string{"#btn"}}, stepErrorf(KindElementNotFound, nil, "element not found: #btn"))
	l.Append(4, "DONE", Command{Verb: "DONE"}, nil)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	for _, key := range []string{"timestamp", "step_index", "raw_step", "verb", "args", "success", "error", "run_id"} {
		assert.Contains(t, rec, key)
	}
	assert.Equal(t, float64(3), rec["step_index"])
	assert.Equal(t, "element not found: #btn", rec["error"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, true, rec["success"])
	assert.Equal(t, []any{}, rec["args"])
}
