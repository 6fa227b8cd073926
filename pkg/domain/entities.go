// Package domain defines the survey dataset entities, the canonical query
// result rows, and the engine contract shared by every query backend.
package domain

import "time"

// Quant identifies the measurement category of a survey reading.
type Quant string

// Canonical measurement categories recorded in the survey.
const (
	// QuantRadiation is a radiation reading.
	QuantRadiation Quant = "rad"
	// QuantSalinity is a salinity reading.
	QuantSalinity Quant = "sal"
	// QuantTemperature is a temperature reading.
	QuantTemperature Quant = "temp"
)

// Quants lists every valid measurement category in ascending order.
func Quants() []Quant {
	return []Quant{QuantRadiation, QuantSalinity, QuantTemperature}
}

// Valid reports whether q is one of the canonical categories.
func (q Quant) Valid() bool {
	switch q {
	case QuantRadiation, QuantSalinity, QuantTemperature:
		return true
	}
	return false
}

// Person identifies a scientist who may be credited with readings.
type Person struct {
	ID       string `json:"id"`
	Personal string `json:"personal"`
	Family   string `json:"family"`
}

// Site is a measurement location. Sites are referenced by visits but play no
// direct role in the canonical queries beyond their name.
type Site struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

// Visit records a single visit to a site. Dated is nil when no date was
// recorded; such visits are excluded from date-keyed aggregation, never
// represented by a sentinel value.
type Visit struct {
	ID    int        `json:"id"`
	Site  string     `json:"site"`
	Dated *time.Time `json:"dated,omitempty"`
}

// Reading is a single measurement taken during a visit. Person is nil when
// the reading is unattributed; such readings still count toward site and
// category aggregates but carry no per-person grouping key.
type Reading struct {
	Taken  int     `json:"taken"`
	Person *string `json:"person,omitempty"`
	Quant  Quant   `json:"quant"`
	Value  float64 `json:"reading"`
}

// Dataset is an immutable snapshot of the four survey tables. Engines load it
// once and treat it as read-only for their lifetime.
type Dataset struct {
	People   []Person  `json:"people"`
	Sites    []Site    `json:"sites"`
	Visits   []Visit   `json:"visits"`
	Readings []Reading `json:"readings"`
}

// Clone returns a deep copy so engines can hold the data without aliasing the
// caller's slices.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		People:   append([]Person(nil), d.People...),
		Sites:    append([]Site(nil), d.Sites...),
		Visits:   make([]Visit, 0, len(d.Visits)),
		Readings: make([]Reading, 0, len(d.Readings)),
	}
	for _, v := range d.Visits {
		if v.Dated != nil {
			dated := *v.Dated
			v.Dated = &dated
		}
		out.Visits = append(out.Visits, v)
	}
	for _, r := range d.Readings {
		if r.Person != nil {
			person := *r.Person
			r.Person = &person
		}
		out.Readings = append(out.Readings, r)
	}
	return out
}

// PeopleByID indexes people by their identifier.
func (d Dataset) PeopleByID() map[string]Person {
	idx := make(map[string]Person, len(d.People))
	for _, p := range d.People {
		idx[p.ID] = p
	}
	return idx
}

// VisitsByID indexes visits by their identifier.
func (d Dataset) VisitsByID() map[int]Visit {
	idx := make(map[int]Visit, len(d.Visits))
	for _, v := range d.Visits {
		idx[v.ID] = v
	}
	return idx
}

// Date builds a UTC midnight timestamp, the normal form for visit dates.
// Keeping dates at midnight UTC makes chronological and lexicographic ISO
// ordering coincide.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DatePtr is a convenience for fixture literals with an optional date.
func DatePtr(year int, month time.Month, day int) *time.Time {
	d := Date(year, month, day)
	return &d
}

// FormatDate renders a visit date in ISO form (YYYY-MM-DD).
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDate parses an ISO date into the normal UTC midnight form.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}
