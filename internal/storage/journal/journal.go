// Package journal keeps the SQLite history of time-lapse sessions and
// their captures.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/GoLapse/internal/logic/capture"
	"github.com/cjeanneret/GoLapse/internal/logic/plan"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrUnknownSession is returned when a session id has no row.
var ErrUnknownSession = errors.New("unknown session")

// Journal wraps SQLite access for session history.
type Journal struct {
	db *sql.DB
}

// Session is one journaled session. EndedAt is zero and Outcome empty while
// the session is still running or when the process died before recording
// its end.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time
	EndedAt   time.Time
	Dir       string
	Plan      plan.Plan
	Expected  plan.Estimate
	Outcome   string
	Captures  int
}

// Open opens or creates the database and applies migrations.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		return nil, errors.Join(fmt.Errorf("migrate journal: %w", err), db.Close())
	}
	return j, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			dir TEXT NOT NULL,
			start_hour INTEGER NOT NULL,
			end_hour INTEGER NOT NULL,
			interval_min INTEGER NOT NULL,
			start_offset_min INTEGER NOT NULL,
			end_offset_min INTEGER NOT NULL,
			img_size_mb REAL NOT NULL,
			expected_hours INTEGER NOT NULL,
			expected_count REAL NOT NULL,
			expected_gb REAL NOT NULL,
			outcome TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS captures (
			session_id TEXT NOT NULL REFERENCES sessions(id),
			seq INTEGER NOT NULL,
			file_name TEXT NOT NULL,
			captured_at TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// BeginSession stores the plan of a session about to run and returns its id.
func (j *Journal) BeginSession(ctx context.Context, dir string, p plan.Plan, startedAt time.Time) (uuid.UUID, error) {
	id := uuid.New()
	est := p.Estimate()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, dir, start_hour, end_hour, interval_min, start_offset_min, end_offset_min, img_size_mb, expected_hours, expected_count, expected_gb)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(),
		startedAt.Format(time.RFC3339Nano),
		dir,
		p.Window.StartHour,
		p.Window.EndHour,
		p.IntervalMinutes,
		p.StartOffsetMinutes,
		p.EndOffsetMinutes,
		p.CaptureSizeMB,
		est.DurationHours,
		est.ExpectedCaptureCount,
		est.ExpectedStorageGB,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// RecordCapture appends one capture to a session.
func (j *Journal) RecordCapture(ctx context.Context, id uuid.UUID, rec capture.Record) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO captures (session_id, seq, file_name, captured_at, bytes) VALUES (?, ?, ?, ?, ?)`,
		id.String(), rec.Sequence, rec.FileName, rec.Timestamp.Format(time.RFC3339Nano), rec.Size)
	if err != nil {
		return fmt.Errorf("insert capture %d: %w", rec.Sequence, err)
	}
	return nil
}

// EndSession records how a session terminated.
func (j *Journal) EndSession(ctx context.Context, id uuid.UUID, endedAt time.Time, outcome capture.Outcome) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, outcome = ? WHERE id = ?`,
		endedAt.Format(time.RFC3339Nano), outcome.String(), id.String())
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("end session %s: %w", id, ErrUnknownSession)
	}
	return nil
}

// ListSessions returns the most recent sessions first. limit <= 0 means all.
func (j *Journal) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT s.id, s.started_at, s.ended_at, s.dir, s.start_hour, s.end_hour, s.interval_min,
			s.start_offset_min, s.end_offset_min, s.img_size_mb,
			s.expected_hours, s.expected_count, s.expected_gb, s.outcome,
			(SELECT COUNT(*) FROM captures c WHERE c.session_id = s.id)
		 FROM sessions s
		 ORDER BY s.started_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			s                Session
			id, started, dir string
			ended            sql.NullString
		)
		if err := rows.Scan(&id, &started, &ended, &dir,
			&s.Plan.Window.StartHour, &s.Plan.Window.EndHour, &s.Plan.IntervalMinutes,
			&s.Plan.StartOffsetMinutes, &s.Plan.EndOffsetMinutes, &s.Plan.CaptureSizeMB,
			&s.Expected.DurationHours, &s.Expected.ExpectedCaptureCount, &s.Expected.ExpectedStorageGB,
			&s.Outcome, &s.Captures); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("session id %q: %w", id, err)
		}
		if s.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("session %s started_at: %w", id, err)
		}
		if ended.Valid {
			if s.EndedAt, err = time.Parse(time.RFC3339Nano, ended.String); err != nil {
				return nil, fmt.Errorf("session %s ended_at: %w", id, err)
			}
		}
		s.Dir = dir
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// Captures returns the journaled captures of a session in sequence order.
func (j *Journal) Captures(ctx context.Context, id uuid.UUID) ([]capture.Record, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT seq, file_name, captured_at, bytes FROM captures WHERE session_id = ? ORDER BY seq`,
		id.String())
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	defer rows.Close()

	var out []capture.Record
	for rows.Next() {
		var (
			rec capture.Record
			ts  string
		)
		if err := rows.Scan(&rec.Sequence, &rec.FileName, &ts, &rec.Size); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("capture %d timestamp: %w", rec.Sequence, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate captures: %w", err)
	}
	return out, nil
}
