// Package history persists launch sessions in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no session matches the given ID.
var ErrNotFound = errors.New("session not found")

// Session is one recorded launcher invocation.
type Session struct {
	ID         string    `json:"id" yaml:"id"`
	Script     string    `json:"script" yaml:"script"`
	Mode       string    `json:"mode" yaml:"mode"`
	Export     string    `json:"export,omitempty" yaml:"export,omitempty"`
	Format     string    `json:"format,omitempty" yaml:"format,omitempty"`
	FirstFrame int       `json:"first_frame" yaml:"first_frame"`
	LastFrame  int       `json:"last_frame" yaml:"last_frame"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	Duration   int64     `json:"duration_ms" yaml:"duration_ms"`
	ExitCode   int       `json:"exit_code" yaml:"exit_code"`
	Finished   bool      `json:"finished" yaml:"finished"`
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	script      TEXT NOT NULL,
	mode        TEXT NOT NULL,
	export      TEXT NOT NULL DEFAULT '',
	format      TEXT NOT NULL DEFAULT '',
	first_frame INTEGER NOT NULL DEFAULT 0,
	last_frame  INTEGER NOT NULL DEFAULT 0,
	started_at  TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	exit_code   INTEGER NOT NULL DEFAULT 0,
	finished    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at DESC);
`

// Store manages session persistence backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the session database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configuring history database: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a new session at launch time. A missing ID is assigned.
func (s *Store) Record(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, script, mode, export, format, first_frame, last_frame, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Script, sess.Mode, sess.Export, sess.Format,
		sess.FirstFrame, sess.LastFrame, sess.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("recording session: %w", err)
	}
	return nil
}

// Finish marks a session complete with its exit code and duration.
func (s *Store) Finish(ctx context.Context, id string, exitCode int, duration time.Duration) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET exit_code = ?, duration_ms = ?, finished = 1 WHERE id = ?`,
		exitCode, duration.Milliseconds(), id,
	)
	if err != nil {
		return fmt.Errorf("finishing session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Get returns the session with the given ID, accepting a unique prefix.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, script, mode, export, format, first_frame, last_frame,
		       started_at, duration_ms, exit_code, finished
		FROM sessions WHERE id = ? OR id LIKE ? LIMIT 2`,
		id, id+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	defer rows.Close()

	var matches []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous session prefix %q", id)
	}
}

// ListOptions controls List pagination and filtering.
type ListOptions struct {
	// Search filters on a substring of the script path.
	Search string
	Limit  int
	Offset int
}

// List returns sessions newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Session, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, script, mode, export, format, first_frame, last_frame,
		       started_at, duration_ms, exit_code, finished
		FROM sessions
		WHERE script LIKE ?
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?`,
		"%"+opts.Search+"%", opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// Count returns the number of sessions matching the search filter.
func (s *Store) Count(ctx context.Context, search string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE script LIKE ?`,
		"%"+search+"%",
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	return n, nil
}

// PruneOlderThan deletes sessions started before the cutoff and returns how
// many were removed.
func (s *Store) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE started_at < ?`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	return n, nil
}

func scanSession(rows *sql.Rows) (*Session, error) {
	sess := &Session{}
	var finished int
	err := rows.Scan(
		&sess.ID, &sess.Script, &sess.Mode, &sess.Export, &sess.Format,
		&sess.FirstFrame, &sess.LastFrame, &sess.StartedAt,
		&sess.Duration, &sess.ExitCode, &finished,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	sess.Finished = finished != 0
	return sess, nil
}
