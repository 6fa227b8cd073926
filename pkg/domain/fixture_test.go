package domain

import (
	"testing"
	"time"
)

func TestCanonicalDatasetShape(t *testing.T) {
	ds := CanonicalDataset()
	if got := len(ds.People); got != 5 {
		t.Fatalf("expected 5 people, got %d", got)
	}
	if got := len(ds.Sites); got != 3 {
		t.Fatalf("expected 3 sites, got %d", got)
	}
	if got := len(ds.Visits); got != 8 {
		t.Fatalf("expected 8 visits, got %d", got)
	}
	if got := len(ds.Readings); got != 21 {
		t.Fatalf("expected 21 readings, got %d", got)
	}
	undated := 0
	for _, v := range ds.Visits {
		if v.Dated == nil {
			undated++
			if v.ID != 752 {
				t.Fatalf("unexpected undated visit %d", v.ID)
			}
		}
	}
	if undated != 1 {
		t.Fatalf("expected exactly one undated visit, got %d", undated)
	}
	unattributed := 0
	for _, r := range ds.Readings {
		if !r.Quant.Valid() {
			t.Fatalf("invalid quant %q on reading taken=%d", r.Quant, r.Taken)
		}
		if r.Person == nil {
			unattributed++
			if r.Taken != 735 {
				t.Fatalf("unexpected unattributed reading on visit %d", r.Taken)
			}
		}
	}
	if unattributed != 2 {
		t.Fatalf("expected 2 unattributed readings, got %d", unattributed)
	}
}

func TestCanonicalDatasetReferentialIntegrity(t *testing.T) {
	ds := CanonicalDataset()
	visits := ds.VisitsByID()
	people := ds.PeopleByID()
	sites := make(map[string]bool, len(ds.Sites))
	for _, s := range ds.Sites {
		sites[s.Name] = true
	}
	for _, v := range ds.Visits {
		if !sites[v.Site] {
			t.Fatalf("visit %d references unknown site %q", v.ID, v.Site)
		}
	}
	for _, r := range ds.Readings {
		if _, ok := visits[r.Taken]; !ok {
			t.Fatalf("reading references unknown visit %d", r.Taken)
		}
		if r.Person != nil {
			if _, ok := people[*r.Person]; !ok {
				t.Fatalf("reading references unknown person %q", *r.Person)
			}
		}
	}
}

func TestCanonicalResultsOrdering(t *testing.T) {
	want := CanonicalResults()

	visits := append([]VisitCount(nil), want.VisitCounts...)
	SortVisitCounts(visits)
	for i := range visits {
		if visits[i] != want.VisitCounts[i] {
			t.Fatalf("visit counts not in reference order at row %d", i)
		}
	}

	readings := append([]ReadingCount(nil), want.ReadingCounts...)
	SortReadingCounts(readings)
	for i := range readings {
		if readings[i] != want.ReadingCounts[i] {
			t.Fatalf("reading counts not in reference order at row %d", i)
		}
	}

	maxima := append([]MaxReading(nil), want.MaxReadings...)
	SortMaxReadings(maxima)
	for i := range maxima {
		if maxima[i] != want.MaxReadings[i] {
			t.Fatalf("maxima not in reference order at row %d", i)
		}
	}

	first, last := want.MaxReadings[0], want.MaxReadings[len(want.MaxReadings)-1]
	if first.Family != "Dyer" || first.Quant != QuantRadiation || first.Max != 9.82 {
		t.Fatalf("unexpected first maxima row %+v", first)
	}
	if last.Family != "Roerich" || last.Max != 11.25 {
		t.Fatalf("unexpected last maxima row %+v", last)
	}
	if len(want.MaxReadings) != 15 {
		t.Fatalf("expected 15 maxima rows, got %d", len(want.MaxReadings))
	}
}

func TestDatasetCloneIsDeep(t *testing.T) {
	ds := CanonicalDataset()
	clone := ds.Clone()
	*clone.Visits[0].Dated = Date(2000, time.January, 1)
	*clone.Readings[0].Person = "nobody"
	clone.People[0].Family = "Mutated"
	if ds.Visits[0].Dated.Equal(Date(2000, time.January, 1)) {
		t.Fatal("clone aliases visit dates")
	}
	if *ds.Readings[0].Person == "nobody" {
		t.Fatal("clone aliases reading person")
	}
	if ds.People[0].Family == "Mutated" {
		t.Fatal("clone aliases people")
	}
}

func TestDateHelpers(t *testing.T) {
	d := Date(1927, time.February, 8)
	if got := FormatDate(d); got != "1927-02-08" {
		t.Fatalf("format: got %q", got)
	}
	parsed, err := ParseDate("1927-02-08")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.Equal(d) {
		t.Fatalf("parse mismatch: %v vs %v", parsed, d)
	}
	if _, err := ParseDate("02/08/1927"); err == nil {
		t.Fatal("expected error for non-ISO date")
	}
}

func TestQueryAndQuantValidity(t *testing.T) {
	for _, q := range AllQueries() {
		if !q.Valid() {
			t.Fatalf("query %q should be valid", q)
		}
	}
	if Query("everything").Valid() {
		t.Fatal("unknown query should be invalid")
	}
	for _, q := range Quants() {
		if !q.Valid() {
			t.Fatalf("quant %q should be valid", q)
		}
	}
	if Quant("ph").Valid() {
		t.Fatal("unknown quant should be invalid")
	}
}
