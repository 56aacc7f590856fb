package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan        EventType = "plan"
	EventTypeStep        EventType = "step"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypeConfirm     EventType = "confirm"
	EventTypeDecision    EventType = "decision"
	EventTypeLLM         EventType = "llm"
	EventTypeSummary     EventType = "summary"
	EventTypeWarning     EventType = "warning"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	ChatID    string    `json:"chat_id,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger emits structured JSON events, one per line. LLM exchanges are
// additionally appended to LLMLog when it is set.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	ChatID string
	LLMLog *FileSink
}

// NewLogger writes events to out. A nil out discards them.
func NewLogger(out io.Writer) *Logger {
	if out == nil {
		out = io.Discard
	}
	return &Logger{out: out}
}

// ForChat returns a logger tagging every event with chatID.
func (l *Logger) ForChat(chatID string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{out: l.out, ChatID: chatID, LLMLog: l.LLMLog}
}

// Log emits a structured JSON event.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	if evt.ChatID == "" {
		evt.ChatID = l.ChatID
	}
	data, err := json.Marshal(evt)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"error": "failed to marshal event: %v"}`, err))
	}

	l.mu.Lock()
	fmt.Fprintln(l.out, string(data))
	l.mu.Unlock()

	if evt.Type == EventTypeLLM && l.LLMLog != nil {
		l.LLMLog.Write(data)
	}
}

// Helper methods for common events

func (l *Logger) LogPlan(runID, task string, steps []string) {
	l.Log(Event{
		Type:  EventTypePlan,
		RunID: runID,
		Data: map[string]any{
			"task":  task,
			"steps": steps,
		},
	})
}

func (l *Logger) LogStep(runID string, index int, raw string, success bool, errMsg string) {
	data := map[string]any{
		"step_index": index,
		"raw_step":   raw,
		"success":    success,
	}
	if errMsg != "" {
		data["error"] = errMsg
	}
	l.Log(Event{Type: EventTypeStep, RunID: runID, Data: data})
}

func (l *Logger) LogPolicyCheck(runID, verb, effect, reason string) {
	l.Log(Event{
		Type:  EventTypePolicyCheck,
		RunID: runID,
		Data: map[string]string{
			"verb":   verb,
			"effect": effect,
			"reason": reason,
		},
	})
}

func (l *Logger) LogConfirm(runID, verb string, approved bool) {
	l.Log(Event{
		Type:  EventTypeConfirm,
		RunID: runID,
		Data:  map[string]any{"verb": verb, "approved": approved},
	})
}

func (l *Logger) LogDecision(runID string, index int, decision string) {
	l.Log(Event{
		Type:  EventTypeDecision,
		RunID: runID,
		Data:  map[string]any{"step_index": index, "decision": decision},
	})
}

func (l *Logger) LogLLM(runID string, prompt any, response string) {
	l.Log(Event{
		Type:  EventTypeLLM,
		RunID: runID,
		Data: map[string]any{
			"prompt":   prompt,
			"response": response,
		},
	})
}

func (l *Logger) LogSummary(runID string, summary any) {
	l.Log(Event{Type: EventTypeSummary, RunID: runID, Data: summary})
}

func (l *Logger) LogWarning(runID, msg string) {
	l.Log(Event{
		Type:  EventTypeWarning,
		RunID: runID,
		Data:  map[string]string{"message": msg},
	})
}
