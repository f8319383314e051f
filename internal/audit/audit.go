// Package audit persists structural run facts to SQLite for later
// inspection. It never stores prompt or response text: only ids, step
// names, counters, transition outcomes, and guardrail reasons, matching
// the engine.Event contract it consumes. The engine never reads audit
// data back to make a control-flow decision.
package audit

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mpataki/recipeforge/internal/engine"
)

// Store is a SQLite-backed engine.Recorder.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the audit database at path and applies
// its schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		run_id TEXT NOT NULL,
		recipe_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		step TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		step_count INTEGER NOT NULL DEFAULT 0,
		visit INTEGER NOT NULL DEFAULT 0,
		retry INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record implements engine.Recorder. Failures are swallowed after being
// attempted once: audit persistence is diagnostic and must never abort or
// alter the run it is observing.
func (s *Store) Record(e engine.Event) {
	s.db.Exec(
		`INSERT INTO events (run_id, recipe_id, session_id, step, kind, detail, step_count, visit, retry)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.RecipeID, e.SessionID, e.Step, string(e.Kind), e.Detail, e.StepCount, e.Visit, e.Retry,
	)
}

// RunSummary is one row of a run's recorded events, exposed for the
// history CLI subcommand.
type RunSummary struct {
	RecordedAt time.Time
	RecipeID   string
	SessionID  string
	Step       string
	Kind       string
	Detail     string
	StepCount  int
	Visit      int
	Retry      int
}

// History returns every recorded event for runID, oldest first.
func (s *Store) History(runID string) ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT recorded_at, recipe_id, session_id, step, kind, detail, step_count, visit, retry
		 FROM events WHERE run_id = ? ORDER BY id ASC`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RecordedAt, &r.RecipeID, &r.SessionID, &r.Step, &r.Kind, &r.Detail, &r.StepCount, &r.Visit, &r.Retry); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentRunIDs returns up to limit distinct run ids, most recently active
// first.
func (s *Store) RecentRunIDs(limit int) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT run_id, MAX(recorded_at) AS last_seen FROM events GROUP BY run_id ORDER BY last_seen DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		// MAX() drops the column's TIMESTAMP type, so the driver hands the
		// aggregate back as text.
		var lastSeen string
		if err := rows.Scan(&id, &lastSeen); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
