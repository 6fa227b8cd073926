// Package postgres implements the canonical queries against a Postgres
// server through the pgx stdlib driver. Construction pings the server and
// fails fast when it is unreachable, so callers can fall back to the
// embedded backends.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"surveycore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.Engine = (*Engine)(nil)

const (
	driverName = "pgx"
	// EnvDSN overrides the connection string.
	EnvDSN = "SURVEYCORE_POSTGRES_DSN"
	// Default DSN targets a local development server.
	defaultDSN = "postgres://localhost/surveycore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Engine answers the canonical queries with SQL against Postgres. The schema
// is created and reloaded on construction; afterwards the tables are treated
// as read-only.
type Engine struct {
	db              *sql.DB
	filterAfterJoin bool
}

// Option customizes engine construction.
type Option func(*Engine)

// FilterAfterJoin applies the maxima null-date filter to the joined rows
// instead of restricting visited before the join. Both phrasings must return
// identical rows.
func FilterAfterJoin() Option {
	return func(e *Engine) { e.filterAfterJoin = true }
}

// New opens a Postgres-backed engine using the provided DSN (falling back to
// SURVEYCORE_POSTGRES_DSN, then a local default), creates the survey schema,
// and loads the dataset.
func New(ctx context.Context, dsn string, ds domain.Dataset, opts ...Option) (*Engine, error) {
	if dsn == "" {
		dsn = os.Getenv(EnvDSN)
	}
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(driverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	e := &Engine{db: db}
	for _, opt := range opts {
		opt(e)
	}
	if err := createSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := load(ctx, db, ds); err != nil {
		_ = db.Close()
		return nil, err
	}
	return e, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS person (
			id TEXT PRIMARY KEY,
			personal TEXT NOT NULL,
			family TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS site (
			name TEXT PRIMARY KEY,
			lat DOUBLE PRECISION NOT NULL,
			long DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS visited (
			id INTEGER PRIMARY KEY,
			site TEXT NOT NULL,
			dated DATE
		)`,
		`CREATE TABLE IF NOT EXISTS survey (
			taken INTEGER NOT NULL,
			person TEXT,
			quant TEXT NOT NULL,
			reading DOUBLE PRECISION NOT NULL
		)`,
	}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func load(ctx context.Context, db *sql.DB, ds domain.Dataset) (retErr error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `TRUNCATE person, site, visited, survey`); err != nil {
		retErr = fmt.Errorf("truncate: %w", err)
		return retErr
	}
	for _, p := range ds.People {
		if _, err := tx.ExecContext(ctx, `INSERT INTO person(id, personal, family) VALUES($1,$2,$3)`, p.ID, p.Personal, p.Family); err != nil {
			retErr = fmt.Errorf("insert person %s: %w", p.ID, err)
			return retErr
		}
	}
	for _, s := range ds.Sites {
		if _, err := tx.ExecContext(ctx, `INSERT INTO site(name, lat, long) VALUES($1,$2,$3)`, s.Name, s.Lat, s.Long); err != nil {
			retErr = fmt.Errorf("insert site %s: %w", s.Name, err)
			return retErr
		}
	}
	for _, v := range ds.Visits {
		var dated any
		if v.Dated != nil {
			dated = *v.Dated
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO visited(id, site, dated) VALUES($1,$2,$3)`, v.ID, v.Site, dated); err != nil {
			retErr = fmt.Errorf("insert visit %d: %w", v.ID, err)
			return retErr
		}
	}
	for _, r := range ds.Readings {
		var person any
		if r.Person != nil {
			person = *r.Person
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO survey(taken, person, quant, reading) VALUES($1,$2,$3,$4)`, r.Taken, person, string(r.Quant), r.Value); err != nil {
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
func (e *Engine) Name() string { return "postgres" }

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
		var dated time.Time
		var quant string
		if err := rows.Scan(&row.Personal, &row.Family, &dated, &quant, &row.Max); err != nil {
			return nil, fmt.Errorf("scan max reading: %w", err)
		}
		row.Dated = domain.Date(dated.Year(), dated.Month(), dated.Day())
		row.Quant = domain.Quant(quant)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("max readings: %w", err)
	}
	return out, nil
}
