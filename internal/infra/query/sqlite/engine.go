// Package sqlite implements the canonical queries as SQL pushed to an
// embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"surveycore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.Engine = (*Engine)(nil)

// Engine loads the survey dataset into a SQLite database once and answers
// the canonical queries with SQL. The database is treated as read-only after
// loading.
type Engine struct {
	db              *sql.DB
	filterAfterJoin bool
}

// Option customizes engine construction.
type Option func(*Engine)

// FilterAfterJoin makes the maxima query apply its null-date filter to the
// joined rows instead of restricting the visits table before the join. Both
// phrasings are logically identical and must return the same rows; the
// option exists so tests can pin that equivalence.
func FilterAfterJoin() Option {
	return func(e *Engine) { e.filterAfterJoin = true }
}

// New opens (or creates) a SQLite database at path, creates the survey
// schema, and loads the dataset. An empty path selects an in-memory
// database.
func New(path string, ds domain.Dataset, opts ...Option) (*Engine, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	e := &Engine{db: db}
	for _, opt := range opts {
		opt(e)
	}
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := load(db, ds); err != nil {
		_ = db.Close()
		return nil, err
	}
	return e, nil
}

// NewCanonical opens an in-memory engine loaded with the bundled fixture.
func NewCanonical(opts ...Option) (*Engine, error) {
	return New("", domain.CanonicalDataset(), opts...)
}

func createSchema(db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS person (
			id TEXT PRIMARY KEY,
			personal TEXT NOT NULL,
			family TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS site (
			name TEXT PRIMARY KEY,
			lat REAL NOT NULL,
			long REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS visited (
			id INTEGER PRIMARY KEY,
			site TEXT NOT NULL,
			dated TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS survey (
			taken INTEGER NOT NULL,
			person TEXT,
			quant TEXT NOT NULL,
			reading REAL NOT NULL
		)`,
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func load(db *sql.DB, ds domain.Dataset) (retErr error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, table := range []string{"person", "site", "visited", "survey"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			retErr = fmt.Errorf("clear %s: %w", table, err)
			return retErr
		}
	}
	for _, p := range ds.People {
		if _, err := tx.Exec(`INSERT INTO person(id, personal, family) VALUES(?,?,?)`, p.ID, p.Personal, p.Family); err != nil {
			retErr = fmt.Errorf("insert person %s: %w", p.ID, err)
			return retErr
		}
	}
	for _, s := range ds.Sites {
		if _, err := tx.Exec(`INSERT INTO site(name, lat, long) VALUES(?,?,?)`, s.Name, s.Lat, s.Long); err != nil {
			retErr = fmt.Errorf("insert site %s: %w", s.Name, err)
			return retErr
		}
	}
	for _, v := range ds.Visits {
		var dated any
		if v.Dated != nil {
			dated = domain.FormatDate(*v.Dated)
		}
		if _, err := tx.Exec(`INSERT INTO visited(id, site, dated) VALUES(?,?,?)`, v.ID, v.Site, dated); err != nil {
			retErr = fmt.Errorf("insert visit %d: %w", v.ID, err)
			return retErr
		}
	}
	for _, r := range ds.Readings {
		var person any
		if r.Person != nil {
			person = *r.Person
		}
		if _, err := tx.Exec(`INSERT INTO survey(taken, person, quant, reading) VALUES(?,?,?,?)`, r.Taken, person, string(r.Quant), r.Value); err != nil {
			retErr = fmt.Errorf("insert reading taken=%d: %w", r.Taken, err)
			return retErr
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	return nil
}

// Name identifies the backend.
func (e *Engine) Name() string { return "sqlite" }

// Close releases the database handle.
func (e *Engine) Close() error { return e.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (e *Engine) DB() *sql.DB { return e.db }

const visitCountsSQL = `
SELECT site, COUNT(*) AS visits
FROM visited
GROUP BY site
ORDER BY site`

// VisitCounts counts visits grouped by site.
func (e *Engine) VisitCounts(ctx context.Context) ([]domain.VisitCount, error) {
	rows, err := e.db.QueryContext(ctx, visitCountsSQL)
	if err != nil {
		return nil, fmt.Errorf("visit counts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.VisitCount
	for rows.Next() {
		var row domain.VisitCount
		if err := rows.Scan(&row.Site, &row.Visits); err != nil {
			return nil, fmt.Errorf("scan visit count: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("visit counts: %w", err)
	}
	return out, nil
}

const readingCountsSQL = `
SELECT v.site, s.quant, COUNT(*) AS readings
FROM visited v
JOIN survey s ON v.id = s.taken
GROUP BY v.site, s.quant
ORDER BY v.site, s.quant`

// ReadingCounts counts readings grouped by site and category.
func (e *Engine) ReadingCounts(ctx context.Context) ([]domain.ReadingCount, error) {
	rows, err := e.db.QueryContext(ctx, readingCountsSQL)
	if err != nil {
		return nil, fmt.Errorf("reading counts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.ReadingCount
	for rows.Next() {
		var row domain.ReadingCount
		var quant string
		if err := rows.Scan(&row.Site, &quant, &row.Readings); err != nil {
			return nil, fmt.Errorf("scan reading count: %w", err)
		}
		row.Quant = domain.Quant(quant)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading counts: %w", err)
	}
	return out, nil
}

// The two phrasings of the maxima query. Restricting visited before the join
// and filtering the joined rows are logically identical; engines answer both
// identically and tests hold them to it.
const (
	maxReadingsFilterBeforeSQL = `
SELECT p.personal, p.family, v.dated, s.quant, MAX(s.reading) AS max_reading
FROM (SELECT id, dated FROM visited WHERE dated IS NOT NULL) v
JOIN survey s ON v.id = s.taken
JOIN person p ON p.id = s.person
GROUP BY s.person, p.personal, p.family, v.dated, s.quant
ORDER BY p.family, p.personal, v.dated, s.quant`

	maxReadingsFilterAfterSQL = `
SELECT p.personal, p.family, v.dated, s.quant, MAX(s.reading) AS max_reading
FROM visited v
JOIN survey s ON v.id = s.taken
JOIN person p ON p.id = s.person
WHERE v.dated IS NOT NULL
GROUP BY s.person, p.personal, p.family, v.dated, s.quant
ORDER BY p.family, p.personal, v.dated, s.quant`
)

// MaxReadings reports the highest reading grouped by person, visit date, and
// category.
func (e *Engine) MaxReadings(ctx context.Context) ([]domain.MaxReading, error) {
	query := maxReadingsFilterBeforeSQL
	if e.filterAfterJoin {
		query = maxReadingsFilterAfterSQL
	}
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("max readings: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.MaxReading
	for rows.Next() {
		var row domain.MaxReading
		var dated, quant string
		if err := rows.Scan(&row.Personal, &row.Family, &dated, &quant, &row.Max); err != nil {
			return nil, fmt.Errorf("scan max reading: %w", err)
		}
		when, err := domain.ParseDate(dated)
		if err != nil {
			return nil, fmt.Errorf("parse dated %q: %w", dated, err)
		}
		row.Dated = when
		row.Quant = domain.Quant(quant)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("max readings: %w", err)
	}
	return out, nil
}
