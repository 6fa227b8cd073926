// Package core wires query engines to observability hooks and provides
// cross-engine verification of the canonical query contract.
package core

import (
	"context"
	"fmt"
	"time"

	"surveycore/pkg/domain"
)

// Result summarizes a single query run for auditing and metrics.
type Result struct {
	Engine      string        `json:"engine"`
	Query       domain.Query  `json:"query"`
	Rows        int           `json:"rows"`
	Duration    time.Duration `json:"duration"`
	CompletedAt time.Time     `json:"completed_at"`
}

// AuditEntry records one query run, successful or not.
type AuditEntry struct {
	Engine     string       `json:"engine"`
	Query      domain.Query `json:"query"`
	Rows       int          `json:"rows"`
	Error      string       `json:"error,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// AuditLogger records query audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder observes query timings and outcomes.
type MetricsRecorder interface {
	ObserveQuery(engine string, query domain.Query, d time.Duration, err error)
}

// Service runs the canonical queries on a single engine behind metrics and
// audit hooks.
type Service struct {
	engine  domain.Engine
	metrics MetricsRecorder
	audit   AuditLogger
	now     func() time.Time
}

// ServiceOption customizes service construction.
type ServiceOption func(*Service)

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithAudit attaches an audit logger.
func WithAudit(a AuditLogger) ServiceOption {
	return func(s *Service) { s.audit = a }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService constructs a service over the supplied engine.
func NewService(engine domain.Engine, opts ...ServiceOption) *Service {
	s := &Service{engine: engine, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the wrapped engine.
func (s *Service) Engine() domain.Engine { return s.engine }

func (s *Service) observe(ctx context.Context, query domain.Query, rows int, started time.Time, err error) Result {
	completed := s.now().UTC()
	res := Result{
		Engine:      s.engine.Name(),
		Query:       query,
		Rows:        rows,
		Duration:    completed.Sub(started),
		CompletedAt: completed,
	}
	if s.metrics != nil {
		s.metrics.ObserveQuery(res.Engine, query, res.Duration, err)
	}
	if s.audit != nil {
		entry := AuditEntry{Engine: res.Engine, Query: query, Rows: rows, OccurredAt: completed}
		if err != nil {
			entry.Error = err.Error()
		}
		s.audit.Record(ctx, entry)
	}
	return res
}

// VisitCounts runs the visits-per-site query.
func (s *Service) VisitCounts(ctx context.Context) ([]domain.VisitCount, Result, error) {
	started := s.now().UTC()
	rows, err := s.engine.VisitCounts(ctx)
	res := s.observe(ctx, domain.QueryVisits, len(rows), started, err)
	return rows, res, err
}

// ReadingCounts runs the readings-per-site-per-category query.
func (s *Service) ReadingCounts(ctx context.Context) ([]domain.ReadingCount, Result, error) {
	started := s.now().UTC()
	rows, err := s.engine.ReadingCounts(ctx)
	res := s.observe(ctx, domain.QueryReadings, len(rows), started, err)
	return rows, res, err
}

// MaxReadings runs the highest-reading-per-person-per-day query.
func (s *Service) MaxReadings(ctx context.Context) ([]domain.MaxReading, Result, error) {
	started := s.now().UTC()
	rows, err := s.engine.MaxReadings(ctx)
	res := s.observe(ctx, domain.QueryMaxima, len(rows), started, err)
	return rows, res, err
}

// RunAll executes the three canonical queries in presentation order and
// bundles the rows. The per-query Results are returned in the same order.
func (s *Service) RunAll(ctx context.Context) (domain.Results, []Result, error) {
	var bundle domain.Results
	runs := make([]Result, 0, len(domain.AllQueries()))

	visits, res, err := s.VisitCounts(ctx)
	runs = append(runs, res)
	if err != nil {
		return domain.Results{}, runs, fmt.Errorf("%s: %w", domain.QueryVisits, err)
	}
	bundle.VisitCounts = visits

	readings, res, err := s.ReadingCounts(ctx)
	runs = append(runs, res)
	if err != nil {
		return domain.Results{}, runs, fmt.Errorf("%s: %w", domain.QueryReadings, err)
	}
	bundle.ReadingCounts = readings

	maxima, res, err := s.MaxReadings(ctx)
	runs = append(runs, res)
	if err != nil {
		return domain.Results{}, runs, fmt.Errorf("%s: %w", domain.QueryMaxima, err)
	}
	bundle.MaxReadings = maxima

	return bundle, runs, nil
}

// Collect runs all three canonical queries on a bare engine without
// observability hooks.
func Collect(ctx context.Context, engine domain.Engine) (domain.Results, error) {
	results, _, err := NewService(engine).RunAll(ctx)
	return results, err
}
