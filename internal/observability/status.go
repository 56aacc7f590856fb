package observability

import (
	"sort"
	"sync"
	"time"
)

type Phase string

const (
	PhasePlanning  Phase = "PLANNING"
	PhaseRunning   Phase = "RUNNING"
	PhaseWaiting   Phase = "WAITING"
	PhaseCompleted Phase = "COMPLETED"
	PhaseAborted   Phase = "ABORTED"
)

// RunStatus is a point-in-time view of one run.
type RunStatus struct {
	RunID     string
	Task      string
	Phase     Phase
	Step      int
	Total     int
	UpdatedAt time.Time
}

// StatusBoard tracks the live phase of every run in the process.
type StatusBoard struct {
	mu   sync.RWMutex
	runs map[string]RunStatus
}

func NewStatusBoard() *StatusBoard {
	return &StatusBoard{runs: make(map[string]RunStatus)}
}

// Set records the run's phase and current step.
func (b *StatusBoard) Set(runID, task string, phase Phase, step, total int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runs[runID] = RunStatus{
		RunID:     runID,
		Task:      task,
		Phase:     phase,
		Step:      step,
		Total:     total,
		UpdatedAt: time.Now(),
	}
}

// Remove forgets a finished run.
func (b *StatusBoard) Remove(runID string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.runs, runID)
}

// Snapshot returns a copy of all tracked runs, oldest update first.
func (b *StatusBoard) Snapshot() []RunStatus {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]RunStatus, 0, len(b.runs))
	for _, s := range b.runs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out
}
