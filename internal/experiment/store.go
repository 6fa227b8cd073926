package experiment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// ErrNotFound is returned when an experiment name does not exist.
var ErrNotFound = errors.New("experiment: not found")

// Store persists experiments in SQLite: the name stays relational while the
// details live in a JSON TEXT column queryable with json_extract.
type Store struct {
	db *sql.DB
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS experiments (
	name    TEXT PRIMARY KEY,
	details TEXT NOT NULL
);`

// Open creates or opens the store at path. An empty path means in-memory.
func Open(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open experiment store: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create experiment schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle for SQL-level inspection.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Put inserts or replaces the experiment under its name.
func (s *Store) Put(ctx context.Context, exp Experiment) error {
	details, err := EncodeDetails(exp.Details)
	if err != nil {
		return fmt.Errorf("put %s: %w", exp.Name, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO experiments (name, details) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET details = excluded.details`,
		exp.Name, string(details))
	if err != nil {
		return fmt.Errorf("put %s: %w", exp.Name, err)
	}
	return nil
}

// Get returns the experiment by name.
func (s *Store) Get(ctx context.Context, name string) (Experiment, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT details FROM experiments WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Experiment{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return Experiment{}, fmt.Errorf("get %s: %w", name, err)
	}
	details, err := DecodeDetails([]byte(raw))
	if err != nil {
		return Experiment{}, fmt.Errorf("get %s: %w", name, err)
	}
	return Experiment{Name: name, Details: details}, nil
}

// List returns all experiments ordered by name.
func (s *Store) List(ctx context.Context) ([]Experiment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, details FROM experiments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanExperiments(rows)
}

// FilterDetail returns experiments whose details match value at the given
// JSON path, e.g. FilterDetail(ctx, "$.scientist", "Marie Curie").
func (s *Store) FilterDetail(ctx context.Context, path string, value any) ([]Experiment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, details FROM experiments
		 WHERE json_extract(details, ?) = ? ORDER BY name`, path, value)
	if err != nil {
		return nil, fmt.Errorf("filter experiments: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanExperiments(rows)
}

func scanExperiments(rows *sql.Rows) ([]Experiment, error) {
	var out []Experiment
	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, err
		}
		details, err := DecodeDetails([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, Experiment{Name: name, Details: details})
	}
	return out, rows.Err()
}

// EnsureNotesView creates (or replaces) a view lifting field-notes JSON
// fields to relational columns.
func (s *Store) EnsureNotesView(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DROP VIEW IF EXISTS field_notes`); err != nil {
		return fmt.Errorf("drop notes view: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
CREATE VIEW field_notes AS
SELECT name,
       json_extract(details, '$.scientist') AS scientist,
       json_extract(details, '$.year')      AS year
FROM experiments
WHERE json_extract(details, '$.kind') = 'field_notes'`)
	if err != nil {
		return fmt.Errorf("create notes view: %w", err)
	}
	return nil
}

// NoteRow is one row of the field_notes view.
type NoteRow struct {
	Name      string
	Scientist string
	Year      int
}

// NotesRows reads the field_notes view ordered by year.
func (s *Store) NotesRows(ctx context.Context) ([]NoteRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, scientist, year FROM field_notes ORDER BY year, name`)
	if err != nil {
		return nil, fmt.Errorf("read notes view: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []NoteRow
	for rows.Next() {
		var r NoteRow
		if err := rows.Scan(&r.Name, &r.Scientist, &r.Year); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
