package core

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"surveycore/pkg/domain"
)

func TestExpvarRecorderAccumulates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.ObserveQuery("memory", domain.QueryVisits, 5*time.Millisecond, nil)
	rec.ObserveQuery("memory", domain.QueryVisits, 7*time.Millisecond, nil)
	rec.ObserveQuery("sqlite", domain.QueryMaxima, 3*time.Millisecond, errors.New("boom"))

	snap := rec.Snapshot()
	if got := snap.DurationsMS["memory/visits"]; got != 12 {
		t.Fatalf("accumulated duration %v, want 12", got)
	}
	if got := snap.Results["memory/visits"]["ok"]; got != 2 {
		t.Fatalf("ok count %d, want 2", got)
	}
	if got := snap.Results["sqlite/maxima"]["error"]; got != 1 {
		t.Fatalf("error count %d, want 1", got)
	}
	if rec.Name() == "" {
		t.Fatal("generated name must not be empty")
	}
}

func TestExpvarSnapshotIsACopy(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.ObserveQuery("memory", domain.QueryVisits, time.Millisecond, nil)
	snap := rec.Snapshot()
	snap.DurationsMS["memory/visits"] = 999
	snap.Results["memory/visits"]["ok"] = 999
	fresh := rec.Snapshot()
	if fresh.DurationsMS["memory/visits"] == 999 || fresh.Results["memory/visits"]["ok"] == 999 {
		t.Fatal("snapshot aliases recorder state")
	}
}

func TestPrometheusRecorderRegistersAndObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	rec.ObserveQuery("sqlite", domain.QueryReadings, 2*time.Millisecond, nil)
	rec.ObserveQuery("sqlite", domain.QueryReadings, 2*time.Millisecond, errors.New("boom"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	if !names["surveycore_query_duration_seconds"] {
		t.Fatal("duration histogram not registered")
	}
	if !names["surveycore_query_results_total"] {
		t.Fatal("results counter not registered")
	}
}

func TestPrometheusRecorderRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}
