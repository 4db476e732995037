package state

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/simon/managectl/internal/config"
	"github.com/simon/managectl/internal/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    action      TEXT NOT NULL,
    target      TEXT NOT NULL DEFAULT '',
    command     TEXT NOT NULL DEFAULT '',
    outcome     TEXT NOT NULL,
    exit_code   INTEGER NOT NULL,
    lines       INTEGER NOT NULL DEFAULT 0,
    started_at  TEXT NOT NULL,
    finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_action_finished ON runs (action, finished_at);
`

// Fixed width so stored times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one finished session.
type Run struct {
	ID         string
	Action     string
	Target     string
	Command    string
	Outcome    string
	ExitCode   int
	Lines      int
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRun builds the history record for a finished session.
func NewRun(action, target, command string, res engine.Result) Run {
	return Run{
		ID:         res.Session,
		Action:     action,
		Target:     target,
		Command:    command,
		Outcome:    res.Outcome.String(),
		ExitCode:   res.Code(),
		Lines:      res.Lines,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	}
}

func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store wraps a SQLite database holding the run history.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at $XDG_STATE_HOME/managectl/state.db.
func Open() (*Store, error) {
	dir, err := config.StateDir()
	if err != nil {
		return nil, err
	}
	return OpenPath(filepath.Join(dir, "state.db"))
}

// OpenPath creates or opens the history database at path.
func OpenPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL mode so the TUI and a headless run can share the file
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a finished run. Recording the same id twice keeps the latest.
func (s *Store) Record(r Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, action, target, command, outcome, exit_code, lines, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			outcome = excluded.outcome,
			exit_code = excluded.exit_code,
			lines = excluded.lines,
			finished_at = excluded.finished_at
	`, r.ID, r.Action, r.Target, r.Command, r.Outcome, r.ExitCode, r.Lines,
		r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout))
	return err
}

// Recent returns up to limit runs, most recent first.
func (s *Store) Recent(limit int) ([]Run, error) {
	return s.query(`
		SELECT id, action, target, command, outcome, exit_code, lines, started_at, finished_at
		FROM runs
		ORDER BY finished_at DESC
		LIMIT ?
	`, limit)
}

// LastByAction returns the most recent run of every action.
func (s *Store) LastByAction() (map[string]Run, error) {
	runs, err := s.query(`
		SELECT r.id, r.action, r.target, r.command, r.outcome, r.exit_code, r.lines, r.started_at, r.finished_at
		FROM runs r
		JOIN (SELECT action, MAX(finished_at) AS finished_at FROM runs GROUP BY action) last
			ON r.action = last.action AND r.finished_at = last.finished_at
	`)
	if err != nil {
		return nil, err
	}
	result := make(map[string]Run, len(runs))
	for _, r := range runs {
		result[r.Action] = r
	}
	return result, nil
}

func (s *Store) query(q string, args ...any) ([]Run, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Action, &r.Target, &r.Command, &r.Outcome, &r.ExitCode, &r.Lines, &started, &finished); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(timeLayout, started)
		r.FinishedAt, _ = time.Parse(timeLayout, finished)
		result = append(result, r)
	}
	return result, rows.Err()
}
