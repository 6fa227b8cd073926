package domain

import (
	"sort"
	"time"
)

// Query identifies one of the three canonical aggregate queries.
type Query string

// The canonical queries every engine must answer identically.
const (
	// QueryVisits counts visits per site.
	QueryVisits Query = "visits"
	// QueryReadings counts readings per site and category.
	QueryReadings Query = "readings"
	// QueryMaxima reports the highest reading per person, day, and category.
	QueryMaxima Query = "maxima"
)

// AllQueries lists the canonical queries in presentation order.
func AllQueries() []Query {
	return []Query{QueryVisits, QueryReadings, QueryMaxima}
}

// Valid reports whether q names a canonical query.
func (q Query) Valid() bool {
	switch q {
	case QueryVisits, QueryReadings, QueryMaxima:
		return true
	}
	return false
}

// VisitCount is one row of the visits-per-site aggregate. Sites with zero
// visits do not appear.
type VisitCount struct {
	Site   string `json:"site"`
	Visits int    `json:"visits"`
}

// ReadingCount is one row of the readings-per-site-per-category aggregate.
// Only (site, quant) pairs present after the inner join appear.
type ReadingCount struct {
	Site     string `json:"site"`
	Quant    Quant  `json:"quant"`
	Readings int    `json:"readings"`
}

// MaxReading is one row of the highest-reading-per-person-per-day aggregate.
// The grouping key is the person identifier; the name columns are determined
// by it.
type MaxReading struct {
	Personal string    `json:"personal"`
	Family   string    `json:"family"`
	Dated    time.Time `json:"dated"`
	Quant    Quant     `json:"quant"`
	Max      float64   `json:"max"`
}

// Results bundles the output of all three queries from a single engine.
type Results struct {
	VisitCounts   []VisitCount   `json:"visit_counts"`
	ReadingCounts []ReadingCount `json:"reading_counts"`
	MaxReadings   []MaxReading   `json:"max_readings"`
}

// SortVisitCounts orders rows by site ascending, the reference ordering.
func SortVisitCounts(rows []VisitCount) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Site < rows[j].Site })
}

// SortReadingCounts orders rows by site then category ascending.
func SortReadingCounts(rows []ReadingCount) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Site != rows[j].Site {
			return rows[i].Site < rows[j].Site
		}
		return rows[i].Quant < rows[j].Quant
	})
}

// SortMaxReadings orders rows by family name, personal name, date, then
// category. The ordering is total over the canonical dataset because names
// are deterministic given the person identifier.
func SortMaxReadings(rows []MaxReading) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Family != b.Family {
			return a.Family < b.Family
		}
		if a.Personal != b.Personal {
			return a.Personal < b.Personal
		}
		if !a.Dated.Equal(b.Dated) {
			return a.Dated.Before(b.Dated)
		}
		return a.Quant < b.Quant
	})
}
