package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rahul/seif/internal/agent"
	"github.com/rahul/seif/internal/browser"
	"github.com/rahul/seif/internal/governance"
	"github.com/rahul/seif/internal/observability"
	"github.com/rahul/seif/internal/skills"
	"github.com/rahul/seif/internal/store"
	"github.com/rahul/seif/pkg/config"
)

// app holds everything built once from the config and shared by all runs.
type app struct {
	cfg      *config.Config
	registry *skills.Registry
	prompts  *agent.PromptManager
	rules    *governance.DefaultPolicyEngine
	policy   governance.SecurityPolicy
	logger   *observability.Logger
	status   *observability.StatusBoard
	runs     *store.RunStore
	execLog  *agent.FileLogSink
	launch   browser.Launcher
}

func newApp(cfg *config.Config, verbose bool) (*app, error) {
	registry, err := skills.Default(cfg.App.Workspace)
	if err != nil {
		return nil, err
	}

	rules, err := newRules(cfg.Security)
	if err != nil {
		return nil, err
	}

	w, h, err := cfg.Browser.Window()
	if err != nil {
		return nil, err
	}
	launch, err := browser.NewLauncher(cfg.Browser.Driver, browser.Options{
		Headless:  cfg.Browser.Headless,
		Width:     w,
		Height:    h,
		UserAgent: cfg.Browser.UserAgent,
		Timeout:   cfg.Browser.ActionTimeout(),
	})
	if err != nil {
		return nil, err
	}

	var events io.Writer = io.Discard
	if verbose {
		events = observability.NewTermWriter()
	}
	logger := observability.NewLogger(events)
	if cfg.Logging.LLMLogFile != "" {
		logger.LLMLog = observability.NewFileSink(cfg.Logging.LLMLogFile, cfg.Logging.MaxSize())
	}

	a := &app{
		cfg:      cfg,
		registry: registry,
		prompts:  agent.NewPromptManager(cfg.App.Prompts),
		rules:    rules,
		policy:   governance.NewSecurityPolicy(cfg.Security.RequireConfirmation, cfg.Security.SafeDomains, cfg.Security.ConfirmVerbs),
		logger:   logger,
		status:   observability.NewStatusBoard(),
		launch:   launch,
	}
	if cfg.Logging.LogFile != "" {
		a.execLog = agent.NewFileLogSink(cfg.Logging.LogFile, cfg.Logging.MaxSize())
	}
	if cfg.Store.Path != "" {
		runs, err := store.NewRunStore(cfg.Store.Path)
		if err != nil {
			log.Printf("Warning: run history disabled: %v", err)
		} else {
			a.runs = runs
		}
	}
	return a, nil
}

// newRules turns the blocked commands and argument patterns into deny rules.
func newRules(sec config.SecurityConfig) (*governance.DefaultPolicyEngine, error) {
	rules := governance.NewDefaultPolicyEngine()
	for _, verb := range sec.BlockedCommands {
		rules.DenyVerb(verb)
	}
	for _, pattern := range sec.BlockedArguments {
		if err := rules.DenyArguments(pattern); err != nil {
			return nil, fmt.Errorf("invalid blocked argument pattern %q: %w", pattern, err)
		}
	}
	return rules, nil
}

func (a *app) newPlanner() (*agent.Planner, error) {
	model, pCfg, err := newModel(a.cfg)
	if err != nil {
		return nil, err
	}
	planner := agent.NewPlanner(model, a.prompts, a.registry)
	planner.Logger = a.logger
	applyProvider(planner, pCfg)
	return planner, nil
}

func applyProvider(planner *agent.Planner, pCfg config.ProviderConfig) {
	if pCfg.Temperature != nil {
		planner.Temperature = *pCfg.Temperature
	}
	if pCfg.MaxTokens > 0 {
		planner.MaxTokens = pCfg.MaxTokens
	}
}

// newEngine wires one engine. Each run gets a fresh browser session.
func (a *app) newEngine(planner agent.PlanGenerator, prompter agent.Prompter, opts agent.Options) *agent.Engine {
	e := agent.NewEngine(planner, agent.NewExecutor(a.registry), func() agent.BrowserSession {
		return browser.NewSession(a.launch)
	}, prompter)
	e.Policy = a.policy
	e.Rules = a.rules
	e.Logger = a.logger
	e.Status = a.status
	opts.ScreenshotOnError = a.cfg.Logging.SaveScreenshotsOnError
	opts.ScreenshotDir = a.cfg.Logging.ScreenshotDir
	e.Options = opts
	if a.execLog != nil {
		e.Sinks = append(e.Sinks, a.execLog)
	}
	if a.runs != nil {
		e.Sinks = append(e.Sinks, a.runs)
	}
	return e
}

func (a *app) Close() {
	if a.runs != nil {
		if err := a.runs.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close run store: %v\n", err)
		}
	}
}
