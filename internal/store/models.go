package store

import "time"

// RunRecord is one persisted task run.
type RunRecord struct {
	ID         string    `json:"id"`
	Task       string    `json:"task"`
	State      string    `json:"state"` // Running, Completed, Aborted
	Cause      string    `json:"cause,omitempty"`
	Error      string    `json:"error,omitempty"`
	Plan       []string  `json:"plan"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Total      int       `json:"total"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Duration is zero for runs that have not finished.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
