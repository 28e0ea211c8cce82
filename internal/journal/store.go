// Package journal keeps a SQLite history of pipeline runs.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/drivewatch/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT PRIMARY KEY,
	created_at      TEXT NOT NULL,
	event           TEXT NOT NULL,
	gate_event      TEXT NOT NULL,
	gate_reason     TEXT,
	prompt          TEXT,
	context_json    TEXT NOT NULL,
	selected_json   TEXT NOT NULL,
	executed_json   TEXT NOT NULL,
	blocked_json    TEXT NOT NULL,
	safety_logs     TEXT NOT NULL,
	warning_level   TEXT NOT NULL,
	executed_count  INTEGER NOT NULL,
	blocked_count   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS runs_created_at ON runs(created_at);
`

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("journal: run not found")

// Run is one recorded pipeline pass.
type Run struct {
	ID           string               `json:"run_id"`
	CreatedAt    time.Time            `json:"created_at"`
	Event        model.ScenarioEvent  `json:"event"`
	Gate         model.GateResult     `json:"gate"`
	Prompt       string               `json:"prompt"`
	Context      model.Context        `json:"context"`
	Selected     model.ActionSequence `json:"selected"`
	Executed     model.ActionSequence `json:"executed"`
	Blocked      model.ActionSequence `json:"blocked"`
	SafetyLogs   []string             `json:"safety_logs"`
	WarningLevel model.WarningLevel   `json:"warning_level"`
}

// Store manages run history in SQLite.
type Store struct {
	db *sql.DB
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("journal: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts r, assigning an id and timestamp when missing.
func (s *Store) Record(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = NewRunID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	ctxJSON, err := json.Marshal(r.Context)
	if err != nil {
		return "", fmt.Errorf("journal: marshal context: %w", err)
	}
	selected, err := marshalActions(r.Selected)
	if err != nil {
		return "", err
	}
	executed, err := marshalActions(r.Executed)
	if err != nil {
		return "", err
	}
	blocked, err := marshalActions(r.Blocked)
	if err != nil {
		return "", err
	}
	logs := r.SafetyLogs
	if logs == nil {
		logs = []string{}
	}
	logsJSON, err := json.Marshal(logs)
	if err != nil {
		return "", fmt.Errorf("journal: marshal logs: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_at, event, gate_event, gate_reason, prompt, context_json,
			selected_json, executed_json, blocked_json, safety_logs, warning_level, executed_count, blocked_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UTC().Format(time.RFC3339Nano), string(r.Event), string(r.Gate.Event), r.Gate.Reason,
		r.Prompt, string(ctxJSON), selected, executed, blocked, string(logsJSON),
		r.WarningLevel.String(), len(r.Executed), len(r.Blocked),
	)
	if err != nil {
		return "", fmt.Errorf("journal: insert run: %w", err)
	}
	return r.ID, nil
}

const selectRun = `SELECT run_id, created_at, event, gate_event, gate_reason, prompt, context_json,
	selected_json, executed_json, blocked_json, safety_logs, warning_level FROM runs`

// Get returns one run by id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectRun+` WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return r, err
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, selectRun+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate runs: %w", err)
	}
	return runs, nil
}

// Stats aggregates the whole journal.
type Stats struct {
	Runs     int            `json:"runs"`
	Executed int            `json:"executed"`
	Blocked  int            `json:"blocked"`
	ByEvent  map[string]int `json:"by_event"`
}

// Stats returns totals across all runs.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByEvent: map[string]int{}}
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(executed_count), 0), COALESCE(SUM(blocked_count), 0) FROM runs`)
	if err := row.Scan(&st.Runs, &st.Executed, &st.Blocked); err != nil {
		return Stats{}, fmt.Errorf("journal: totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT event, COUNT(*) FROM runs GROUP BY event`)
	if err != nil {
		return Stats{}, fmt.Errorf("journal: by event: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var ev string
		var n int
		if err := rows.Scan(&ev, &n); err != nil {
			return Stats{}, fmt.Errorf("journal: scan event: %w", err)
		}
		st.ByEvent[ev] = n
	}
	return st, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                                        Run
		createdAt, event, gateEvent, level       string
		gateReason, prompt                       sql.NullString
		ctxJSON, selected, executed, blocked, lg string
	)
	err := sc.Scan(&r.ID, &createdAt, &event, &gateEvent, &gateReason, &prompt, &ctxJSON,
		&selected, &executed, &blocked, &lg, &level)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("journal: scan run: %w", err)
	}

	r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("journal: parse created_at: %w", err)
	}
	r.Event = model.ScenarioEvent(event)
	r.Gate = model.GateResult{
		Triggered: model.ScenarioEvent(gateEvent) != model.EventNone,
		Event:     model.ScenarioEvent(gateEvent),
		Reason:    gateReason.String,
	}
	r.Prompt = prompt.String
	if err := json.Unmarshal([]byte(ctxJSON), &r.Context); err != nil {
		return Run{}, fmt.Errorf("journal: decode context: %w", err)
	}
	for dst, src := range map[*model.ActionSequence]string{&r.Selected: selected, &r.Executed: executed, &r.Blocked: blocked} {
		if err := json.Unmarshal([]byte(src), dst); err != nil {
			return Run{}, fmt.Errorf("journal: decode actions: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(lg), &r.SafetyLogs); err != nil {
		return Run{}, fmt.Errorf("journal: decode logs: %w", err)
	}
	if wl, ok := model.ParseWarningLevel(level); ok {
		r.WarningLevel = wl
	}
	return r, nil
}

func marshalActions(actions model.ActionSequence) (string, error) {
	if actions == nil {
		actions = model.ActionSequence{}
	}
	data, err := json.Marshal(actions)
	if err != nil {
		return "", fmt.Errorf("journal: marshal actions: %w", err)
	}
	return string(data), nil
}
