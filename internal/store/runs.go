package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/rahul/seif/internal/agent"
)

var ErrNotFound = errors.New("run not found")

const timeLayout = time.RFC3339Nano

// RunStore keeps run history in sqlite. It implements agent.RunSink.
type RunStore struct {
	DB *sql.DB
}

func NewRunStore(dbPath string) (*RunStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer at a time; sqlite serialises anyway.
	db.SetMaxOpenConns(1)

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			task TEXT,
			state TEXT DEFAULT 'Running',
			cause TEXT DEFAULT '',
			error TEXT DEFAULT '',
			plan TEXT DEFAULT '[]',
			succeeded INTEGER DEFAULT 0,
			failed INTEGER DEFAULT 0,
			total INTEGER DEFAULT 0,
			started_at TEXT,
			finished_at TEXT DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			step_index INTEGER,
			raw_step TEXT,
			verb TEXT,
			args TEXT,
			success INTEGER,
			error TEXT,
			timestamp TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id, id);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &RunStore{DB: db}, nil
}

func (s *RunStore) Close() error {
	return s.DB.Close()
}

func (s *RunStore) Begin(runID, task string, started time.Time) error {
	query := `INSERT INTO runs (id, task, started_at) VALUES (?, ?, ?)`
	_, err := s.DB.Exec(query, runID, task, started.UTC().Format(timeLayout))
	return err
}

func (s *RunStore) Record(entry agent.LogEntry) error {
	args, err := json.Marshal(entry.Args)
	if err != nil {
		return err
	}
	query := `INSERT INTO steps (run_id, step_index, raw_step, verb, args, success, error, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.DB.Exec(query, entry.RunID, entry.StepIndex, entry.RawStep, entry.Verb, string(args), entry.Success, entry.Error, entry.Timestamp.UTC().Format(timeLayout))
	return err
}

func (s *RunStore) Finish(res *agent.Result) error {
	plan, err := json.Marshal([]string(res.Plan))
	if err != nil {
		return err
	}
	var errMsg string
	if res.Err != nil {
		errMsg = res.Err.Error()
	}
	query := `UPDATE runs SET state = ?, cause = ?, error = ?, plan = ?, succeeded = ?, failed = ?, total = ?, finished_at = ? WHERE id = ?`
	_, err = s.DB.Exec(query,
		string(res.State), string(res.Cause), errMsg, string(plan),
		res.Summary.Succeeded, res.Summary.Failed, res.Summary.Total,
		res.Finished.UTC().Format(timeLayout), res.RunID)
	return err
}

const runColumns = `id, task, state, cause, error, plan, succeeded, failed, total, started_at, finished_at`

// ListRuns returns the most recent runs first.
func (s *RunStore) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun looks a run up by id or unique id prefix.
func (s *RunStore) GetRun(id string) (*RunRecord, error) {
	rows, err := s.DB.Query(`SELECT `+runColumns+` FROM runs WHERE id LIKE ? || '%' LIMIT 2`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %s is ambiguous", id)
	}
}

// Steps returns the recorded attempts of a run in order.
func (s *RunStore) Steps(runID string) ([]agent.LogEntry, error) {
	query := `SELECT step_index, raw_step, verb, args, success, error, timestamp FROM steps WHERE run_id = ? ORDER BY id`
	rows, err := s.DB.Query(query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []agent.LogEntry
	for rows.Next() {
		var (
			e       agent.LogEntry
			args    string
			success bool
			ts      string
		)
		if err := rows.Scan(&e.StepIndex, &e.RawStep, &e.Verb, &args, &success, &e.Error, &ts); err != nil {
			return nil, err
		}
		e.RunID = runID
		e.Success = success
		if err := json.Unmarshal([]byte(args), &e.Args); err != nil {
			return nil, fmt.Errorf("corrupt args for run %s: %w", runID, err)
		}
		e.Timestamp, _ = time.Parse(timeLayout, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var (
		r                 RunRecord
		plan              string
		started, finished string
	)
	if err := row.Scan(&r.ID, &r.Task, &r.State, &r.Cause, &r.Error, &plan, &r.Succeeded, &r.Failed, &r.Total, &started, &finished); err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(plan), &r.Plan); err != nil {
		return r, fmt.Errorf("corrupt plan for run %s: %w", r.ID, err)
	}
	r.StartedAt, _ = time.Parse(timeLayout, started)
	if finished != "" {
		r.FinishedAt, _ = time.Parse(timeLayout, finished)
	}
	return r, nil
}

var _ agent.RunSink = (*RunStore)(nil)
