package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/seif/internal/browser"
	"github.com/rahul/seif/internal/browser/browsertest"
)

type fakeModel struct {
	text     string
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	for _, o := range options {
		o(&m.opts)
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.text}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

type staticPlanner struct {
	plan Plan
	err  error
}

func (p staticPlanner) CreatePlan(ctx context.Context, task string) (Plan, error) {
	return p.plan, p.err
}

// spySession counts releases of a lazily opened fake driver.
type spySession struct {
	mu        sync.Mutex
	drv       *browsertest.Driver
	launchErr error
	opened    bool
	closes    int
}

func (s *spySession) Driver(ctx context.Context) (browser.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.launchErr != nil {
		return nil, s.launchErr
	}
	s.opened = true
	return s.drv, nil
}

func (s *spySession) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

func (s *spySession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *spySession) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type sessions struct {
	drv  *browsertest.Driver
	made []*spySession
}

func (f *sessions) factory() BrowserSession {
	s := &spySession{drv: f.drv}
	f.made = append(f.made, s)
	return s
}

type memSink struct {
	entries  []LogEntry
	begun    []string
	finished []*Result
	err      error
}

func (s *memSink) Record(e LogEntry) error {
	s.entries = append(s.entries, e)
	return s.err
}

func (s *memSink) Begin(runID, task string, started time.Time) error {
	s.begun = append(s.begun, runID)
	return nil
}

func (s *memSink) Finish(res *Result) error {
	s.finished = append(s.finished, res)
	return nil
}

// cancelPrompter cancels the run when asked anything.
type cancelPrompter struct {
	cancel context.CancelFunc
}

func (p *cancelPrompter) Confirm(ctx context.Context, cmd Command) (bool, error) {
	p.cancel()
	<-ctx.Done()
	return false, ctx.Err()
}

func (p *cancelPrompter) Decide(ctx context.Context, f StepFailure) (Decision, error) {
	p.cancel()
	<-ctx.Done()
	return "", ctx.Err()
}

var errBoom = errors.New("boom")
