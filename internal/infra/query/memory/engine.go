// Package memory implements the dataframe-style in-memory query engine. It
// is the reference implementation the SQL-backed engines are checked against.
package memory

import (
	"context"
	"time"

	"surveycore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.Engine = (*Engine)(nil)

// Engine answers the canonical queries by aggregating over a private copy of
// the dataset. All operations are pure reads; the engine holds no mutable
// state after construction.
type Engine struct {
	ds domain.Dataset
}

// New constructs an engine over a deep copy of the dataset.
func New(ds domain.Dataset) *Engine {
	return &Engine{ds: ds.Clone()}
}

// NewCanonical constructs an engine over the bundled survey fixture.
func NewCanonical() *Engine {
	return New(domain.CanonicalDataset())
}

// Name identifies the backend.
func (e *Engine) Name() string { return "memory" }

// Close is a no-op; the engine holds no external resources.
func (e *Engine) Close() error { return nil }

// VisitCounts counts visits grouped by site.
func (e *Engine) VisitCounts(ctx context.Context) ([]domain.VisitCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, v := range e.ds.Visits {
		counts[v.Site]++
	}
	rows := make([]domain.VisitCount, 0, len(counts))
	for site, n := range counts {
		rows = append(rows, domain.VisitCount{Site: site, Visits: n})
	}
	domain.SortVisitCounts(rows)
	return rows, nil
}

type siteQuantKey struct {
	site  string
	quant domain.Quant
}

// ReadingCounts counts readings grouped by site and category. Readings whose
// visit id matches no visit are dropped, matching inner-join semantics.
func (e *Engine) ReadingCounts(ctx context.Context) ([]domain.ReadingCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	visitSite := make(map[int]string, len(e.ds.Visits))
	for _, v := range e.ds.Visits {
		visitSite[v.ID] = v.Site
	}
	counts := make(map[siteQuantKey]int)
	for _, r := range e.ds.Readings {
		site, ok := visitSite[r.Taken]
		if !ok {
			continue
		}
		counts[siteQuantKey{site: site, quant: r.Quant}]++
	}
	rows := make([]domain.ReadingCount, 0, len(counts))
	for key, n := range counts {
		rows = append(rows, domain.ReadingCount{Site: key.site, Quant: key.quant, Readings: n})
	}
	domain.SortReadingCounts(rows)
	return rows, nil
}

type personDayKey struct {
	person string
	dated  time.Time
	quant  domain.Quant
}

// MaxReadings reports the highest reading grouped by person, visit date, and
// category. Unattributed readings and undated visits contribute nothing; they
// have no grouping key.
func (e *Engine) MaxReadings(ctx context.Context) ([]domain.MaxReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	visits := e.ds.VisitsByID()
	people := e.ds.PeopleByID()
	maxima := make(map[personDayKey]float64)
	for _, r := range e.ds.Readings {
		if r.Person == nil {
			continue
		}
		person, ok := people[*r.Person]
		if !ok {
			continue
		}
		visit, ok := visits[r.Taken]
		if !ok || visit.Dated == nil {
			continue
		}
		key := personDayKey{person: person.ID, dated: *visit.Dated, quant: r.Quant}
		if current, seen := maxima[key]; !seen || r.Value > current {
			maxima[key] = r.Value
		}
	}
	rows := make([]domain.MaxReading, 0, len(maxima))
	for key, max := range maxima {
		person := people[key.person]
		rows = append(rows, domain.MaxReading{
			Personal: person.Personal,
			Family:   person.Family,
			Dated:    key.dated,
			Quant:    key.quant,
			Max:      max,
		})
	}
	domain.SortMaxReadings(rows)
	return rows, nil
}
