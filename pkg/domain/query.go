package domain

import "context"

// Engine answers the three canonical aggregate queries over a loaded survey
// dataset. Every implementation must return rows normalized to the reference
// orderings; two engines loaded with the same dataset must produce identical
// results.
type Engine interface {
	// Name identifies the backend (memory, sqlite, postgres).
	Name() string
	// VisitCounts counts visits grouped by site.
	VisitCounts(ctx context.Context) ([]VisitCount, error)
	// ReadingCounts counts readings grouped by site and category, joining
	// readings to visits on the visit id. Readings whose visit id matches no
	// visit are dropped.
	ReadingCounts(ctx context.Context) ([]ReadingCount, error)
	// MaxReadings reports the highest reading grouped by person, visit date,
	// and category. Readings without an attributed person and visits without
	// a recorded date are excluded.
	MaxReadings(ctx context.Context) ([]MaxReading, error)
	// Close releases backend resources.
	Close() error
}
