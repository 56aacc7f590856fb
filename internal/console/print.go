package console

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"

	"github.com/rahul/seif/internal/agent"
	"github.com/rahul/seif/internal/skills"
	"github.com/rahul/seif/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func printTable(w io.Writer, title string, t *table.Table) {
	color.New(color.Bold).Fprintln(w, title)
	fmt.Fprintln(w, t.String())
}

// PrintTask echoes the task before planning.
func PrintTask(w io.Writer, task string, interactive bool) {
	mode := "Disabled"
	if interactive {
		mode = "Enabled"
	}
	fmt.Fprintf(w, "\n%s %s\n", color.New(color.FgGreen, color.Bold).Sprint("🎯 Task:"), task)
	fmt.Fprintf(w, "%s %s\n", color.New(color.FgBlue, color.Bold).Sprint("🔧 Interactive Mode:"), mode)
}

// PrintPlan lists the generated steps.
func PrintPlan(w io.Writer, plan agent.Plan) {
	color.New(color.FgBlue, color.Bold).Fprintln(w, "\n📋 Generated Plan:")
	for i, step := range plan {
		fmt.Fprintf(w, "  %s %s\n", color.New(color.FgCyan).Sprintf("%d.", i+1), step)
	}
	if !plan.Terminated() {
		color.New(color.FgYellow).Fprintln(w, "  (plan does not end with DONE)")
	}
}

// PrintSummary renders the execution summary of a finished run.
func PrintSummary(w io.Writer, res *agent.Result) {
	if res.DryRun {
		color.New(color.FgYellow).Fprintln(w, "\nDry run: nothing was executed.")
		return
	}
	fmt.Fprintln(w)
	if res.Summary.Total > 0 {
		t := newTable("Metric", "Value").
			Row("Total Steps", strconv.Itoa(res.Summary.Total)).
			Row("Successful", strconv.Itoa(res.Summary.Succeeded)).
			Row("Failed", strconv.Itoa(res.Summary.Failed)).
			Row("Success Rate", fmt.Sprintf("%.1f%%", res.Summary.SuccessRate))
		printTable(w, "Execution Summary", t)
	}

	switch res.State {
	case agent.StateCompleted:
		color.New(color.FgGreen, color.Bold).Fprintln(w, "✅ Task completed.")
	default:
		msg := "❌ Task aborted"
		if res.Cause != "" {
			msg += " (" + string(res.Cause) + ")"
		}
		if res.Err != nil {
			msg += ": " + res.Err.Error()
		}
		color.New(color.FgRed, color.Bold).Fprintln(w, msg)
	}
	fmt.Fprintf(w, "Run ID: %s\n", res.RunID)
}

// PrintSkills lists the registered skill verbs next to the primitives.
func PrintSkills(w io.Writer, reg *skills.Registry) {
	t := newTable("Command", "Usage", "Description")
	for _, v := range []string{agent.VerbGoto, agent.VerbType, agent.VerbClick, agent.VerbScroll, agent.VerbScreenshot, agent.VerbDone} {
		t.Row(v, "built-in", "browser primitive")
	}
	for _, v := range reg.Verbs() {
		s := reg.Get(v)
		t.Row(v, s.Usage(), s.Description())
	}
	printTable(w, "Loaded Skills", t)
}

// PrintRuns lists recorded runs, newest first.
func PrintRuns(w io.Writer, runs []store.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return
	}
	t := newTable("ID", "Started", "State", "Steps", "Task")
	for _, r := range runs {
		t.Row(shortID(r.ID), r.StartedAt.Local().Format(time.DateTime), r.State,
			fmt.Sprintf("%d/%d", r.Succeeded, r.Total), r.Task)
	}
	printTable(w, "Run History", t)
}

// PrintRun shows one run with every recorded attempt.
func PrintRun(w io.Writer, r *store.RunRecord, steps []agent.LogEntry) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "Run %s\n", r.ID)
	fmt.Fprintf(w, "Task:    %s\n", r.Task)
	fmt.Fprintf(w, "State:   %s", r.State)
	if r.Cause != "" {
		fmt.Fprintf(w, " (%s)", r.Cause)
	}
	fmt.Fprintln(w)
	if r.Error != "" {
		fmt.Fprintf(w, "Error:   %s\n", r.Error)
	}
	fmt.Fprintf(w, "Started: %s\n", r.StartedAt.Local().Format(time.DateTime))
	if d := r.Duration(); d > 0 {
		fmt.Fprintf(w, "Took:    %s\n", d.Round(time.Millisecond))
	}

	if len(steps) == 0 {
		fmt.Fprintln(w, "No steps recorded.")
		return
	}
	t := newTable("#", "Step", "Result")
	for _, s := range steps {
		result := "ok"
		if !s.Success {
			result = s.Error
		}
		t.Row(strconv.Itoa(s.StepIndex+1), s.RawStep, result)
	}
	printTable(w, "Steps", t)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
