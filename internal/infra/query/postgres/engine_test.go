package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"surveycore/pkg/domain"
)

// openOrSkip dials the configured server and skips the test when Postgres is
// not reachable, so the suite stays runnable offline.
func openOrSkip(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	engine, err := New(context.Background(), "", domain.CanonicalDataset(), opts...)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func TestCanonicalResults(t *testing.T) {
	engine := openOrSkip(t)
	ctx := context.Background()
	want := domain.CanonicalResults()

	visits, err := engine.VisitCounts(ctx)
	if err != nil {
		t.Fatalf("visit counts: %v", err)
	}
	if diff := cmp.Diff(want.VisitCounts, visits); diff != "" {
		t.Fatalf("visit counts mismatch (-want +got):\n%s", diff)
	}

	readings, err := engine.ReadingCounts(ctx)
	if err != nil {
		t.Fatalf("reading counts: %v", err)
	}
	if diff := cmp.Diff(want.ReadingCounts, readings); diff != "" {
		t.Fatalf("reading counts mismatch (-want +got):\n%s", diff)
	}

	maxima, err := engine.MaxReadings(ctx)
	if err != nil {
		t.Fatalf("max readings: %v", err)
	}
	if diff := cmp.Diff(want.MaxReadings, maxima); diff != "" {
		t.Fatalf("max readings mismatch (-want +got):\n%s", diff)
	}
}

func TestMaximaPredicatePlacementEquivalence(t *testing.T) {
	before := openOrSkip(t)
	after := openOrSkip(t, FilterAfterJoin())
	ctx := context.Background()

	fromBefore, err := before.MaxReadings(ctx)
	if err != nil {
		t.Fatalf("filter-before maxima: %v", err)
	}
	fromAfter, err := after.MaxReadings(ctx)
	if err != nil {
		t.Fatalf("filter-after maxima: %v", err)
	}
	if diff := cmp.Diff(fromBefore, fromAfter); diff != "" {
		t.Fatalf("predicate placement changed results (-before +after):\n%s", diff)
	}
}

func TestOpenFailsFastOnBadDriver(t *testing.T) {
	orig := sqlOpen
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		return nil, errors.New("boom")
	}
	defer func() { sqlOpen = orig }()

	if _, err := New(context.Background(), "postgres://example.invalid/x", domain.CanonicalDataset()); err == nil {
		t.Fatal("expected open error")
	}
}
