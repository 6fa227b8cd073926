package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"surveycore/internal/infra/query/memory"
	"surveycore/pkg/domain"
)

type recordingMetrics struct {
	observations []string
	errs         int
}

func (m *recordingMetrics) ObserveQuery(engine string, query domain.Query, _ time.Duration, err error) {
	m.observations = append(m.observations, engine+"/"+string(query))
	if err != nil {
		m.errs++
	}
}

type recordingAudit struct {
	entries []AuditEntry
}

func (a *recordingAudit) Record(_ context.Context, entry AuditEntry) {
	a.entries = append(a.entries, entry)
}

// failingEngine errors on the maxima query only.
type failingEngine struct {
	*memory.Engine
}

func (f failingEngine) Name() string { return "failing" }

func (f failingEngine) MaxReadings(context.Context) ([]domain.MaxReading, error) {
	return nil, errors.New("storage offline")
}

func TestServiceRunAllCollectsCanonicalResults(t *testing.T) {
	metrics := &recordingMetrics{}
	audit := &recordingAudit{}
	svc := NewService(memory.NewCanonical(), WithMetrics(metrics), WithAudit(audit))

	results, runs, err := svc.RunAll(context.Background())
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if diff := cmp.Diff(domain.CanonicalResults(), results); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 run results, got %d", len(runs))
	}
	wantOrder := []domain.Query{domain.QueryVisits, domain.QueryReadings, domain.QueryMaxima}
	for i, run := range runs {
		if run.Query != wantOrder[i] {
			t.Fatalf("run %d: query %s, want %s", i, run.Query, wantOrder[i])
		}
		if run.Engine != "memory" {
			t.Fatalf("run %d: engine %s", i, run.Engine)
		}
	}
	if runs[2].Rows != 15 {
		t.Fatalf("maxima run reported %d rows, want 15", runs[2].Rows)
	}
	if len(metrics.observations) != 3 || metrics.errs != 0 {
		t.Fatalf("metrics observations %v errs %d", metrics.observations, metrics.errs)
	}
	if len(audit.entries) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(audit.entries))
	}
}

func TestServicePropagatesQueryError(t *testing.T) {
	metrics := &recordingMetrics{}
	audit := &recordingAudit{}
	svc := NewService(failingEngine{memory.NewCanonical()}, WithMetrics(metrics), WithAudit(audit))

	_, runs, err := svc.RunAll(context.Background())
	if err == nil {
		t.Fatal("expected error from failing engine")
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 run results including the failure, got %d", len(runs))
	}
	if metrics.errs != 1 {
		t.Fatalf("expected 1 error observation, got %d", metrics.errs)
	}
	last := audit.entries[len(audit.entries)-1]
	if last.Error == "" || last.Query != domain.QueryMaxima {
		t.Fatalf("audit entry missing failure detail: %+v", last)
	}
}

func TestServiceUsesInjectedClock(t *testing.T) {
	fixed := time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC)
	svc := NewService(memory.NewCanonical(), WithClock(func() time.Time { return fixed }))
	_, res, err := svc.VisitCounts(context.Background())
	if err != nil {
		t.Fatalf("visit counts: %v", err)
	}
	if !res.CompletedAt.Equal(fixed) {
		t.Fatalf("completed at %v, want %v", res.CompletedAt, fixed)
	}
	if res.Duration != 0 {
		t.Fatalf("duration %v with a fixed clock", res.Duration)
	}
}

func TestCollect(t *testing.T) {
	results, err := Collect(context.Background(), memory.NewCanonical())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(results.ReadingCounts) != 7 {
		t.Fatalf("expected 7 reading-count rows, got %d", len(results.ReadingCounts))
	}
}
