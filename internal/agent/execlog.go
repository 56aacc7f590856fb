package agent

import (
	"log"
	"sync"
	"time"

	"github.com/rahul/seif/internal/observability"
)

// LogEntry is one attempted step. Retries produce repeated entries.
type LogEntry struct {
	RunID     string    `json:"run_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	StepIndex int       `json:"step_index"`
	RawStep   string    `json:"raw_step"`
	Verb      string    `json:"verb"`
	Args      []string  `json:"args"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// LogSink persists entries as they are appended.
type LogSink interface {
	Record(entry LogEntry) error
}

// RunSink additionally sees the start and end of every run.
type RunSink interface {
	LogSink
	Begin(runID, task string, started time.Time) error
	Finish(res *Result) error
}

// FileLogSink appends entries as JSON lines.
type FileLogSink struct {
	File *observability.FileSink
}

func NewFileLogSink(path string, maxSize int64) *FileLogSink {
	return &FileLogSink{File: observability.NewFileSink(path, maxSize)}
}

func (s *FileLogSink) Record(entry LogEntry) error {
	return s.File.Append(entry)
}

// Summary counts attempts by outcome.
type Summary struct {
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	Total       int     `json:"total"`
	SuccessRate float64 `json:"success_rate"`
}

// ExecutionLog is the append-only record of one run.
type ExecutionLog struct {
	mu      sync.Mutex
	runID   string
	entries []LogEntry
	sinks   []LogSink
	now     func() time.Time
}

func NewExecutionLog(runID string, sinks ...LogSink) *ExecutionLog {
	return &ExecutionLog{runID: runID, sinks: sinks, now: time.Now}
}

// Append records an attempt and forwards it to every sink. Sink failures
// are logged and never fail the run.
func (l *ExecutionLog) Append(index int, raw string, cmd Command, err error) LogEntry {
	entry := LogEntry{
		RunID:     l.runID,
		Timestamp: l.now(),
		StepIndex: index,
		RawStep:   raw,
		Verb:      cmd.Verb,
		Args:      append([]string{}, cmd.Args...),
		Success:   err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	sinks := l.sinks
	l.mu.Unlock()

	for _, s := range sinks {
		if serr := s.Record(entry); serr != nil {
			log.Printf("Warning: failed to persist log entry: %v", serr)
		}
	}
	return entry
}

// Entries returns a copy of the recorded attempts.
func (l *ExecutionLog) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}

func (l *ExecutionLog) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Summarize(l.entries)
}

// Summarize counts entries; the success rate is a percentage.
func Summarize(entries []LogEntry) Summary {
	var s Summary
	for _, e := range entries {
		if e.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	s.Total = len(entries)
	if s.Total > 0 {
		s.SuccessRate = float64(s.Succeeded) / float64(s.Total) * 100
	}
	return s
}
