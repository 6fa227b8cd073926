package core

import (
	"context"
	"fmt"

	"surveycore/pkg/domain"
)

// Divergence describes the first point at which an engine's output departs
// from the baseline for one query.
type Divergence struct {
	Query    domain.Query `json:"query"`
	Engine   string       `json:"engine"`
	Baseline string       `json:"baseline"`
	Detail   string       `json:"detail"`
}

func (d Divergence) String() string {
	return fmt.Sprintf("%s: %s diverges from %s: %s", d.Query, d.Engine, d.Baseline, d.Detail)
}

// Verifier cross-checks engines against a baseline. The canonical contract
// is that every engine returns byte-identical result tables for the same
// dataset.
type Verifier struct {
	baseline domain.Engine
	others   []domain.Engine
}

// NewVerifier builds a verifier with the first engine as baseline. At least
// one engine is required.
func NewVerifier(baseline domain.Engine, others ...domain.Engine) *Verifier {
	return &Verifier{baseline: baseline, others: others}
}

// Verify runs all three queries on every engine and reports divergences from
// the baseline. A nil slice means all engines agree.
func (v *Verifier) Verify(ctx context.Context) ([]Divergence, error) {
	want, err := Collect(ctx, v.baseline)
	if err != nil {
		return nil, fmt.Errorf("baseline %s: %w", v.baseline.Name(), err)
	}
	var divergences []Divergence
	for _, engine := range v.others {
		got, err := Collect(ctx, engine)
		if err != nil {
			return nil, fmt.Errorf("engine %s: %w", engine.Name(), err)
		}
		divergences = append(divergences, diffResults(v.baseline.Name(), engine.Name(), want, got)...)
	}
	return divergences, nil
}

// VerifyAgainst checks every engine (baseline included) against an expected
// result bundle, e.g. the published reference output.
func (v *Verifier) VerifyAgainst(ctx context.Context, want domain.Results) ([]Divergence, error) {
	var divergences []Divergence
	for _, engine := range append([]domain.Engine{v.baseline}, v.others...) {
		got, err := Collect(ctx, engine)
		if err != nil {
			return nil, fmt.Errorf("engine %s: %w", engine.Name(), err)
		}
		divergences = append(divergences, diffResults("reference", engine.Name(), want, got)...)
	}
	return divergences, nil
}

func diffResults(baseline, engine string, want, got domain.Results) []Divergence {
	var out []Divergence
	if detail := diffVisitCounts(want.VisitCounts, got.VisitCounts); detail != "" {
		out = append(out, Divergence{Query: domain.QueryVisits, Engine: engine, Baseline: baseline, Detail: detail})
	}
	if detail := diffReadingCounts(want.ReadingCounts, got.ReadingCounts); detail != "" {
		out = append(out, Divergence{Query: domain.QueryReadings, Engine: engine, Baseline: baseline, Detail: detail})
	}
	if detail := diffMaxReadings(want.MaxReadings, got.MaxReadings); detail != "" {
		out = append(out, Divergence{Query: domain.QueryMaxima, Engine: engine, Baseline: baseline, Detail: detail})
	}
	return out
}

func diffVisitCounts(want, got []domain.VisitCount) string {
	if len(want) != len(got) {
		return fmt.Sprintf("row count %d vs %d", len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Sprintf("row %d: %+v vs %+v", i, want[i], got[i])
		}
	}
	return ""
}

func diffReadingCounts(want, got []domain.ReadingCount) string {
	if len(want) != len(got) {
		return fmt.Sprintf("row count %d vs %d", len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Sprintf("row %d: %+v vs %+v", i, want[i], got[i])
		}
	}
	return ""
}

func diffMaxReadings(want, got []domain.MaxReading) string {
	if len(want) != len(got) {
		return fmt.Sprintf("row count %d vs %d", len(want), len(got))
	}
	for i := range want {
		// time.Time carries a location pointer; compare dates by instant.
		if !want[i].Dated.Equal(got[i].Dated) ||
			want[i].Personal != got[i].Personal ||
			want[i].Family != got[i].Family ||
			want[i].Quant != got[i].Quant ||
			want[i].Max != got[i].Max {
			return fmt.Sprintf("row %d: %+v vs %+v", i, want[i], got[i])
		}
	}
	return ""
}
