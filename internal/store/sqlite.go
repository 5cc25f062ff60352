package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	ferrors "github.com/siderealab/ephemeris/internal/errors"
)

// SQLiteInterpretationStore implements InterpretationStore on SQLite.
// WAL mode allows a reader to proceed while the single writer persists.
type SQLiteInterpretationStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// Verify interface implementation at compile time.
var _ InterpretationStore = (*SQLiteInterpretationStore)(nil)

const interpretationSchema = `
CREATE TABLE IF NOT EXISTS interpretations (
	chart_id        TEXT NOT NULL,
	kind            TEXT NOT NULL,
	subject         TEXT NOT NULL,
	language        TEXT NOT NULL,
	content         TEXT NOT NULL,
	model           TEXT NOT NULL,
	content_version TEXT NOT NULL,
	created_at      TIMESTAMP NOT NULL,
	PRIMARY KEY (chart_id, kind, subject, language)
);
CREATE INDEX IF NOT EXISTS idx_interpretations_chart
	ON interpretations (chart_id, language);
`

// NewSQLiteInterpretationStore opens or creates the durable store.
// If path is empty, an in-memory database is used (tests).
func NewSQLiteInterpretationStore(path string) (*SQLiteInterpretationStore, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to prevent lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(interpretationSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteInterpretationStore{db: db}, nil
}

// Get returns the unique record for the tuple, or nil if absent.
func (s *SQLiteInterpretationStore) Get(ctx context.Context, chartID, kind, subject, language string) (*Interpretation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ferrors.New(ferrors.ErrCodeDurableStore, "store is closed", nil)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT chart_id, kind, subject, language, content, model, content_version, created_at
		FROM interpretations
		WHERE chart_id = ? AND kind = ? AND subject = ? AND language = ?`,
		chartID, kind, subject, language)

	rec, err := scanInterpretation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeDurableStore, err)
	}
	return rec, nil
}

// GetAll returns all records for a chart in the given language, optionally
// filtered by kind.
func (s *SQLiteInterpretationStore) GetAll(ctx context.Context, chartID, kind, language string) ([]*Interpretation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ferrors.New(ferrors.ErrCodeDurableStore, "store is closed", nil)
	}

	query := `
		SELECT chart_id, kind, subject, language, content, model, content_version, created_at
		FROM interpretations
		WHERE chart_id = ? AND language = ?`
	args := []any{chartID, language}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeDurableStore, err)
	}
	defer rows.Close()

	var records []*Interpretation
	for rows.Next() {
		rec, err := scanInterpretation(rows)
		if err != nil {
			return nil, ferrors.Wrap(ferrors.ErrCodeDurableStore, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeDurableStore, err)
	}
	return records, nil
}

// Save upserts a record for its (chart, kind, subject, language) tuple.
// The write is a single statement: it either lands fully or not at all, so
// a cancelled context never leaves a partial record.
func (s *SQLiteInterpretationStore) Save(ctx context.Context, rec *Interpretation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ferrors.New(ferrors.ErrCodeDurableStore, "store is closed", nil)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interpretations
			(chart_id, kind, subject, language, content, model, content_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (chart_id, kind, subject, language) DO UPDATE SET
			content = excluded.content,
			model = excluded.model,
			content_version = excluded.content_version,
			created_at = excluded.created_at`,
		rec.ChartID, rec.Kind, rec.Subject, rec.Language,
		rec.Content, rec.Model, rec.ContentVersion, createdAt)
	if err != nil {
		return ferrors.Wrap(ferrors.ErrCodeDurableStore, err)
	}
	return nil
}

// Delete removes records for a chart, optionally filtered by kind,
// returning the number removed.
func (s *SQLiteInterpretationStore) Delete(ctx context.Context, chartID, kind, language string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ferrors.New(ferrors.ErrCodeDurableStore, "store is closed", nil)
	}

	query := "DELETE FROM interpretations WHERE chart_id = ? AND language = ?"
	args := []any{chartID, language}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, ferrors.Wrap(ferrors.ErrCodeDurableStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, ferrors.Wrap(ferrors.ErrCodeDurableStore, err)
	}
	return int(n), nil
}

// Close closes the database.
func (s *SQLiteInterpretationStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInterpretation(row rowScanner) (*Interpretation, error) {
	var rec Interpretation
	err := row.Scan(&rec.ChartID, &rec.Kind, &rec.Subject, &rec.Language,
		&rec.Content, &rec.Model, &rec.ContentVersion, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
