// Package console is the terminal side of a run: the interactive prompter
// and the plan, summary and history printers used by the CLI.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/rahul/seif/internal/agent"
)

// Terminal asks the user on Out and reads answers from In. Lines are read by
// a single background goroutine so a prompt abandoned on cancellation never
// swallows the answer to the next one.
type Terminal struct {
	In  io.Reader
	Out io.Writer

	once  sync.Once
	lines chan string
	err   error
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{In: in, Out: out}
}

func (t *Terminal) start() {
	t.lines = make(chan string)
	go func() {
		defer close(t.lines)
		scanner := bufio.NewScanner(t.In)
		for scanner.Scan() {
			t.lines <- scanner.Text()
		}
		t.err = scanner.Err()
	}()
}

func (t *Terminal) readLine(ctx context.Context) (string, error) {
	t.once.Do(t.start)
	select {
	case line, ok := <-t.lines:
		if !ok {
			if t.err != nil {
				return "", fmt.Errorf("failed to read input: %w", t.err)
			}
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	case <-ctx.Done():
		fmt.Fprintln(t.Out)
		return "", ctx.Err()
	}
}

// AskYesNo prints question and waits for y/n. An empty answer picks def.
func (t *Terminal) AskYesNo(ctx context.Context, question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	for {
		fmt.Fprintf(t.Out, "%s %s: ", question, color.CyanString(hint))
		input, err := t.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(input) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		color.New(color.FgRed).Fprintln(t.Out, "Please answer y or n.")
	}
}

// Confirm implements agent.Prompter. Sensitive steps proceed by default.
func (t *Terminal) Confirm(ctx context.Context, cmd agent.Command) (bool, error) {
	q := fmt.Sprintf("%s Proceed with %s %s?",
		color.YellowString("⚠️"),
		color.New(color.FgCyan, color.Bold).Sprint(cmd.Verb),
		strings.Join(cmd.Args, " "))
	ok, err := t.AskYesNo(ctx, q, true)
	if err == nil && !ok {
		color.New(color.FgRed, color.Bold).Fprintln(t.Out, "Aborted by user.")
	}
	return ok, err
}

// Decide implements agent.Prompter. An empty answer skips the step.
func (t *Terminal) Decide(ctx context.Context, f agent.StepFailure) (agent.Decision, error) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(t.Out, "Error in step %d/%d: %s\n", f.StepIndex+1, f.Total, f.RawStep)
	if f.Err != nil {
		red.Fprintf(t.Out, "  %s\n", f.Err.Message)
	}
	if f.Screenshot != "" {
		color.New(color.FgYellow).Fprintf(t.Out, "  Error screenshot saved: %s\n", f.Screenshot)
	}
	for {
		fmt.Fprintf(t.Out, "%s %s: ",
			color.YellowString("What would you like to do?"),
			color.CyanString("[retry/skip/abort] (skip)"))
		input, err := t.readLine(ctx)
		if err != nil {
			return "", err
		}
		if input == "" {
			return agent.DecisionSkip, nil
		}
		d, err := agent.ParseDecision(input)
		if err == nil {
			if d == agent.DecisionAbort {
				red.Fprintln(t.Out, "Aborted by user.")
			}
			return d, nil
		}
		red.Fprintln(t.Out, err.Error())
	}
}

var _ agent.Prompter = (*Terminal)(nil)
