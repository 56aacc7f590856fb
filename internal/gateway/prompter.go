package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rahul/seif/internal/agent"
)

// ChatPrompter asks a run's questions in a chat and takes the next message
// from that chat as the answer.
type ChatPrompter struct {
	send func(text string) error

	mu      sync.Mutex
	pending bool
	replies chan string
}

func NewChatPrompter(send func(text string) error) *ChatPrompter {
	return &ChatPrompter{send: send, replies: make(chan string, 1)}
}

// Deliver hands text to the pending question. It reports false when no
// question is waiting for an answer.
func (p *ChatPrompter) Deliver(text string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pending {
		return false
	}
	p.pending = false
	p.replies <- text
	return true
}

// Waiting reports whether a question is pending.
func (p *ChatPrompter) Waiting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

func (p *ChatPrompter) ask(ctx context.Context, question string) (string, error) {
	p.mu.Lock()
	p.pending = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.pending = false
		select {
		case <-p.replies:
		default:
		}
		p.mu.Unlock()
	}()

	if err := p.send(question); err != nil {
		return "", fmt.Errorf("failed to send prompt: %w", err)
	}
	select {
	case reply := <-p.replies:
		return strings.ToLower(strings.TrimSpace(reply)), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *ChatPrompter) Confirm(ctx context.Context, cmd agent.Command) (bool, error) {
	q := fmt.Sprintf("⚠️ Proceed with %s? (yes/no)", cmd.String())
	for {
		reply, err := p.ask(ctx, q)
		if err != nil {
			return false, err
		}
		switch strings.TrimPrefix(reply, "/") {
		case "y", "yes", "ok":
			return true, nil
		case "n", "no":
			return false, nil
		}
		q = "Please reply yes or no."
	}
}

func (p *ChatPrompter) Decide(ctx context.Context, f agent.StepFailure) (agent.Decision, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "❌ Step %d/%d failed: %s\n", f.StepIndex+1, f.Total, f.RawStep)
	if f.Err != nil {
		fmt.Fprintf(&b, "%s\n", f.Err.Message)
	}
	b.WriteString("Reply retry, skip or abort.")
	q := b.String()
	for {
		reply, err := p.ask(ctx, q)
		if err != nil {
			return "", err
		}
		d, err := agent.ParseDecision(strings.TrimPrefix(reply, "/"))
		if err == nil {
			return d, nil
		}
		q = "Please reply retry, skip or abort."
	}
}

var _ agent.Prompter = (*ChatPrompter)(nil)
