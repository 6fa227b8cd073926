package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"surveycore/pkg/domain"
)

func newCanonical(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	engine, err := NewCanonical(opts...)
	if err != nil {
		t.Fatalf("open sqlite engine: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func TestCanonicalResults(t *testing.T) {
	engine := newCanonical(t)
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

// Predicate placement is a performance concern, never a correctness concern:
// filtering null dates before or after the three-way join must yield the
// identical result set.
func TestMaximaPredicatePlacementEquivalence(t *testing.T) {
	before := newCanonical(t)
	after := newCanonical(t, FilterAfterJoin())
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
	if diff := cmp.Diff(domain.CanonicalResults().MaxReadings, fromAfter); diff != "" {
		t.Fatalf("filter-after maxima mismatch (-want +got):\n%s", diff)
	}
}

func TestFileBackedDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "survey.db")
	engine, err := New(path, domain.CanonicalDataset())
	if err != nil {
		t.Fatalf("open file-backed engine: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	var n int
	if err := engine.DB().QueryRow(`SELECT COUNT(*) FROM survey`).Scan(&n); err != nil {
		t.Fatalf("count survey rows: %v", err)
	}
	if n != 21 {
		t.Fatalf("expected 21 survey rows, got %d", n)
	}

	visits, err := engine.VisitCounts(context.Background())
	if err != nil {
		t.Fatalf("visit counts: %v", err)
	}
	if diff := cmp.Diff(domain.CanonicalResults().VisitCounts, visits); diff != "" {
		t.Fatalf("visit counts mismatch (-want +got):\n%s", diff)
	}
}

func TestReloadIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "survey.db")
	ds := domain.CanonicalDataset()
	first, err := New(path, ds)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close first: %v", err)
	}
	second, err := New(path, ds)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	var n int
	if err := second.DB().QueryRow(`SELECT COUNT(*) FROM visited`).Scan(&n); err != nil {
		t.Fatalf("count visits: %v", err)
	}
	if n != 8 {
		t.Fatalf("reload duplicated rows: %d visits", n)
	}
}

func TestNullDateStoredAsNull(t *testing.T) {
	engine := newCanonical(t)
	var nulls int
	if err := engine.DB().QueryRow(`SELECT COUNT(*) FROM visited WHERE dated IS NULL`).Scan(&nulls); err != nil {
		t.Fatalf("count null dates: %v", err)
	}
	if nulls != 1 {
		t.Fatalf("expected 1 null-dated visit, got %d", nulls)
	}
	var nullPeople int
	if err := engine.DB().QueryRow(`SELECT COUNT(*) FROM survey WHERE person IS NULL`).Scan(&nullPeople); err != nil {
		t.Fatalf("count null people: %v", err)
	}
	if nullPeople != 2 {
		t.Fatalf("expected 2 unattributed readings, got %d", nullPeople)
	}
}

func TestRepeatedRunsAreIdentical(t *testing.T) {
	engine := newCanonical(t)
	ctx := context.Background()
	first, err := engine.MaxReadings(ctx)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := engine.MaxReadings(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated query diverged:\n%s", diff)
	}
}
