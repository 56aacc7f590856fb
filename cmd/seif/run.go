package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rahul/seif/internal/agent"
	"github.com/rahul/seif/internal/console"
	"github.com/rahul/seif/internal/observability"
)

var (
	runInteractive bool
	runYes         bool
	runOnFailure   string
	runMaxRetries  int
	runDryRun      bool
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Plan and execute a natural-language task in the browser",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task := strings.Join(args, " ")
		out := cmd.OutOrStdout()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if observability.IsTerminal() {
			observability.PrintBanner(out)
		}

		term := console.NewTerminal(os.Stdin, out)
		prompter, err := runPrompter(term)
		if err != nil {
			return err
		}

		console.PrintTask(out, task, runInteractive)
		if !runYes && !runDryRun {
			ok, err := term.AskYesNo(ctx, "🚀 Ready to execute this task?", true)
			if err != nil {
				return err
			}
			if !ok {
				color.New(color.FgRed, color.Bold).Fprintln(out, "❌ Task cancelled by user.")
				return nil
			}
		}

		a, err := newApp(cfg, verbose)
		if err != nil {
			return err
		}
		defer a.Close()

		planner, err := a.newPlanner()
		if err != nil {
			return err
		}

		engine := a.newEngine(planner, prompter, agent.Options{
			KeepOpen: runInteractive,
			DryRun:   runDryRun,
		})
		defer engine.Close()
		engine.OnPlan = func(p agent.Plan) { console.PrintPlan(out, p) }

		res := engine.Run(ctx, task)
		console.PrintSummary(out, res)

		if res.KeptOpen {
			color.New(color.FgYellow, color.Bold).Fprintln(out, "\n🔄 Interactive mode enabled - browser will remain open.")
			fmt.Fprintln(out, "Press Ctrl+C to close the browser and exit.")
			<-ctx.Done()
			fmt.Fprintln(out, "\n👋 Closing browser and exiting...")
		}
		return nil
	},
}

// runPrompter picks who answers confirmations and failures. Flags replace
// the terminal for the question they cover.
func runPrompter(term *console.Terminal) (agent.Prompter, error) {
	p := splitPrompter{confirm: term, decide: term}
	if runYes {
		p.confirm = &agent.AutoPrompter{Approve: true}
	}
	if runOnFailure != "" {
		d, err := agent.ParseDecision(runOnFailure)
		if err != nil {
			return nil, err
		}
		p.decide = &agent.AutoPrompter{OnFailure: d, MaxRetries: runMaxRetries}
	}
	return p, nil
}

// splitPrompter answers confirmations and failures from separate sources.
type splitPrompter struct {
	confirm agent.Prompter
	decide  agent.Prompter
}

func (p splitPrompter) Confirm(ctx context.Context, cmd agent.Command) (bool, error) {
	return p.confirm.Confirm(ctx, cmd)
}

func (p splitPrompter) Decide(ctx context.Context, f agent.StepFailure) (agent.Decision, error) {
	return p.decide.Decide(ctx, f)
}

func init() {
	runCmd.Flags().BoolVarP(&runInteractive, "interactive", "i", false, "Keep the browser open after the task until Ctrl+C")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "Approve every confirmation without asking")
	runCmd.Flags().StringVar(&runOnFailure, "on-failure", "", "Answer failed steps automatically: retry, skip or abort")
	runCmd.Flags().IntVar(&runMaxRetries, "max-retries", 2, "Retries per step before skipping when --on-failure=retry")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print the plan without executing it")
	rootCmd.AddCommand(runCmd)
}
