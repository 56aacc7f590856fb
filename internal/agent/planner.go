package agent

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/seif/internal/observability"
	"github.com/rahul/seif/internal/skills"
)

const defaultPlannerPrompt = `You are a task planner for a browser automation agent. Your job is to break down a user's command into a series of precise, executable steps.
The available commands are:
- GOTO "<url>"
- TYPE "<target>" "<text>"
- CLICK "<target>"
- SCROLL "<direction>"  (direction can be "up", "down", "top" or "bottom")
- SCREENSHOT "<filename>"
- DONE

A target may be a CSS selector, an element id, a name attribute, a class name, placeholder text, an aria-label or the visible text of the element.

Guidelines:
- Think step-by-step.
- Write every step on its own line, starting with its number followed by a period (e.g. "1.").
- Always use the exact command format.
- Use double quotes for all arguments.
- For the TYPE command, prefer a specific CSS selector for the input field.
- For the CLICK command, prefer a specific CSS selector for the button or link.
- The final step must always be DONE.

Example:
User command: Search for trending startups on ProductHunt and screenshot the page.
Plan:
1. GOTO "https://www.producthunt.com"
2. TYPE "input[name='q']" "trending startups"
3. CLICK "button[type='submit']"
4. SCREENSHOT "producthunt_results.png"
5. DONE`

var numberedLine = regexp.MustCompile(`^\d+\.\s*(.*)$`)

// Planner asks a language model for a numbered plan.
type Planner struct {
	Model       llms.Model
	Prompts     *PromptManager
	Skills      *skills.Registry
	Logger      *observability.Logger
	Temperature float64
	MaxTokens   int
}

func NewPlanner(model llms.Model, prompts *PromptManager, registry *skills.Registry) *Planner {
	return &Planner{
		Model:       model,
		Prompts:     prompts,
		Skills:      registry,
		Temperature: 0.7,
		MaxTokens:   1000,
	}
}

// SystemPrompt returns the planner prompt with any guidance and the
// registered skill verbs appended.
func (p *Planner) SystemPrompt() string {
	prompt, err := p.Prompts.GetPlannerPrompt()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Warning: %v, using built-in planner prompt", err)
		}
		prompt = defaultPlannerPrompt
	}
	prompt = strings.TrimSpace(prompt)

	if p.Prompts != nil && p.Prompts.Directory != "" {
		if guidance, err := p.Prompts.GetGuidancePrompt(); err == nil && guidance != "" {
			prompt += "\n\n## Additional guidance\n" + guidance
		}
	}

	if verbs := p.Skills.Verbs(); len(verbs) > 0 {
		var b strings.Builder
		b.WriteString("\n\nAdditional commands:\n")
		for _, v := range verbs {
			s := p.Skills.Get(v)
			fmt.Fprintf(&b, "- %s  (%s)\n", s.Usage(), s.Description())
		}
		prompt += strings.TrimRight(b.String(), "\n")
	}
	return prompt
}

// CreatePlan issues one generation call and extracts the numbered steps.
// A plan that does not end with DONE is returned with a warning.
func (p *Planner) CreatePlan(ctx context.Context, task string) (Plan, error) {
	runID := RunIDFrom(ctx)
	system := p.SystemPrompt()
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(task)},
		},
	}

	var opts []llms.CallOption
	opts = append(opts, llms.WithTemperature(p.Temperature))
	if p.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(p.MaxTokens))
	}

	resp, err := p.Model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, &PlanGenerationError{Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, &PlanGenerationError{Err: errors.New("model returned no choices")}
	}
	raw := resp.Choices[0].Content
	p.Logger.LogLLM(runID, task, raw)

	plan := ExtractPlan(raw)
	if len(plan) == 0 {
		return nil, &PlanGenerationError{Output: raw}
	}
	if !plan.Terminated() {
		log.Printf("Warning: the generated plan is malformed or incomplete (no terminal DONE)")
	}
	return plan, nil
}

// ExtractPlan keeps the text after "N." on every numbered line, in order.
func ExtractPlan(raw string) Plan {
	var plan Plan
	for _, line := range strings.Split(raw, "\n") {
		m := numberedLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if step := strings.TrimSpace(m[1]); step != "" {
			plan = append(plan, step)
		}
	}
	return plan
}
