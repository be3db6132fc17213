// Package runlog keeps a SQLite ledger of pipeline runs: when each started,
// how every stage went and where its artifacts live.
package runlog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"phylorun/internal/pipeline"
	"phylorun/internal/runctx"
)

// StateRunning marks a run that has not reported back.
const StateRunning = "running"

// timeLayout is fixed width so stored times sort chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("runlog: run not found")

// Run is one ledger row.
type Run struct {
	ID          string
	Input       string
	Dir         string
	Image       string
	State       string
	FailedStage string
	Error       string
	Started     time.Time
	Finished    time.Time // zero while running
	Stages      []StageRecord
}

// StageRecord is how one stage of a run went.
type StageRecord struct {
	Stage    string
	Duration time.Duration
	Error    string
}

// Store is the ledger. It implements pipeline.Observer.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

var _ pipeline.Observer = (*Store)(nil)

// Open creates or opens the ledger at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		PRAGMA busy_timeout = 5000;
		CREATE TABLE IF NOT EXISTS runs (
			id           TEXT PRIMARY KEY,
			input        TEXT NOT NULL,
			dir          TEXT NOT NULL,
			image        TEXT NOT NULL,
			state        TEXT NOT NULL,
			failed_stage TEXT NOT NULL DEFAULT '',
			error        TEXT NOT NULL DEFAULT '',
			started_at   TEXT NOT NULL,
			finished_at  TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS stages (
			run_id      TEXT NOT NULL REFERENCES runs(id),
			seq         INTEGER NOT NULL,
			stage       TEXT NOT NULL,
			duration_ns INTEGER NOT NULL,
			error       TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, seq)
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`)
	return err
}

// RunStarted inserts a running row for rc. Re-using a run id replaces the
// earlier record.
func (s *Store) RunStarted(rc *runctx.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM stages WHERE run_id = ?`, rc.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO runs (id, input, dir, image, state, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rc.ID, rc.Input, rc.Dir, rc.TreeImage, StateRunning, formatTime(at)); err != nil {
		return err
	}
	return tx.Commit()
}

// StageFinished appends a stage row.
func (s *Store) StageFinished(runID string, res pipeline.StageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO stages (run_id, seq, stage, duration_ns, error)
		VALUES (?, (SELECT COUNT(*) FROM stages WHERE run_id = ?), ?, ?, ?)`,
		runID, runID, string(res.Stage), int64(res.Duration), errString(res.Err))
	return err
}

// RunFinished records the final state of rep.
func (s *Store) RunFinished(rep *pipeline.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`UPDATE runs SET state = ?, failed_stage = ?, error = ?, finished_at = ? WHERE id = ?`,
		rep.State, string(rep.FailedStage), errString(rep.Err), formatTime(rep.Finished), rep.RunID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, rep.RunID)
	}
	return nil
}

// List returns up to limit runs, newest first. limit <= 0 means all.
func (s *Store) List(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := `SELECT id, input, dir, image, state, failed_stage, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].Stages, err = s.stages(runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Get returns a single run with its stages.
func (s *Store) Get(id string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRow(`SELECT id, input, dir, image, state, failed_stage, error, started_at, finished_at
		FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	r.Stages, err = s.stages(id)
	return r, err
}

func (s *Store) stages(runID string) ([]StageRecord, error) {
	rows, err := s.db.Query(`SELECT stage, duration_ns, error FROM stages WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StageRecord
	for rows.Next() {
		var sr StageRecord
		var ns int64
		if err := rows.Scan(&sr.Stage, &ns, &sr.Error); err != nil {
			return nil, err
		}
		sr.Duration = time.Duration(ns)
		out = append(out, sr)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	var started, finished string
	if err := sc.Scan(&r.ID, &r.Input, &r.Dir, &r.Image, &r.State, &r.FailedStage, &r.Error, &started, &finished); err != nil {
		return Run{}, err
	}
	var err error
	if r.Started, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if r.Finished, err = parseTime(finished); err != nil {
		return Run{}, err
	}
	return r, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
