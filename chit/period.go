/*
period.go - The (month, year) coordinate for all per-month entities

PURPOSE:
  Every record and summary in the ledger is keyed by a Period. Adjacent-period
  arithmetic (December wraps into January of the next year) lives here and
  ONLY here: no component is allowed to do its own month math inline.

SEE ALSO:
  - record.go: records keyed by (venture, member, period)
  - summary.go: summaries keyed by (venture, period)
  - rollover.go: the only consumer of Next() that creates state
*/
package chit

import (
	"fmt"
	"time"
)

// Period identifies one calendar month of one venture's ledger.
type Period struct {
	Month time.Month
	Year  int
}

func NewPeriod(month time.Month, year int) Period {
	return Period{Month: month, Year: year}
}

// PeriodOf derives the period containing t. This is a caller-side helper:
// the engine itself never reads the clock.
func PeriodOf(t time.Time) Period {
	return Period{Month: t.Month(), Year: t.Year()}
}

// Valid reports whether the period is well-formed.
func (p Period) Valid() bool {
	return p.Month >= time.January && p.Month <= time.December && p.Year > 0
}

// Next returns the following month, wrapping December into January.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Month: time.January, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

// Previous returns the preceding month, wrapping January into December.
func (p Period) Previous() Period {
	if p.Month == time.January {
		return Period{Month: time.December, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// Ordering is by (year, month).
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

func (p Period) After(q Period) bool { return q.Before(p) }

func (p Period) Equal(q Period) bool { return p.Month == q.Month && p.Year == q.Year }

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Latest returns the most recent of the given periods.
func Latest(periods []Period) (Period, bool) {
	if len(periods) == 0 {
		return Period{}, false
	}
	latest := periods[0]
	for _, p := range periods[1:] {
		if latest.Before(p) {
			latest = p
		}
	}
	return latest, true
}
