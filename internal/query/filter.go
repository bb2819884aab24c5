// Package query turns typed incident filters into parameterized SQL over
// the union of all source tables.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"aviation_incidents/internal/incident"
)

// Sentinel errors for caller input. Both map to client errors.
var (
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrInvalidDimension = errors.New("invalid dimension")
	ErrInvalidPage      = errors.New("invalid pagination")
)

var periodPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ParsePeriodStart expands a YYYY-MM period to the first day of the month.
func ParsePeriodStart(s string) (time.Time, error) {
	year, month, err := parsePeriod(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), nil
}

// ParsePeriodEnd expands a YYYY-MM period to the last calendar day of the
// month, leap years included.
func ParsePeriodEnd(s string) (time.Time, error) {
	year, month, err := parsePeriod(s)
	if err != nil {
		return time.Time{}, err
	}
	// Day 0 of the following month normalises to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC), nil
}

func parsePeriod(s string) (int, time.Month, error) {
	if !periodPattern.MatchString(s) {
		return 0, 0, fmt.Errorf("%w %q: expected YYYY-MM", ErrInvalidPeriod, s)
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w %q: %v", ErrInvalidPeriod, s, err)
	}
	return t.Year(), t.Month(), nil
}

// YearStart returns January 1st of year.
func YearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// YearEnd returns December 31st of year.
func YearEnd(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// Filter is the set of optional constraints an endpoint may place on the
// incident union. Empty slices and nil bounds are ignored; everything that
// is set is ANDed together.
type Filter struct {
	UIDs          []string
	Operators     []string
	Phases        []string
	AircraftTypes []string
	Locations     []string
	Categories    []string // final_category, requires the classification join

	// From and To are inclusive date bounds on origin_date.
	From *time.Time
	To   *time.Time

	// RequireDate drops incidents whose date could not be parsed.
	RequireDate bool
}

// SetPeriods applies start_period/end_period strings. Empty strings are
// ignored.
func (f *Filter) SetPeriods(start, end string) error {
	if start != "" {
		t, err := ParsePeriodStart(start)
		if err != nil {
			return err
		}
		f.From = &t
	}
	if end != "" {
		t, err := ParsePeriodEnd(end)
		if err != nil {
			return err
		}
		f.To = &t
	}
	return nil
}

// SetYears applies the coarser start_year/end_year bounds. Nil years are
// ignored.
func (f *Filter) SetYears(start, end *int) {
	if start != nil {
		t := YearStart(*start)
		f.From = &t
	}
	if end != nil {
		t := YearEnd(*end)
		f.To = &t
	}
}

// NeedsClassification reports whether the filter reads final_category.
func (f *Filter) NeedsClassification() bool {
	return len(f.Categories) > 0
}

// Predicate builds the predicate tree for the filter.
func (f *Filter) Predicate() Predicate {
	var preds And
	add := func(col incident.Column, values []string) {
		if len(values) > 0 {
			preds = append(preds, In(col, values...))
		}
	}
	add(incident.ColUID, f.UIDs)
	add(incident.ColOperator, f.Operators)
	add(incident.ColPhase, f.Phases)
	add(incident.ColAircraftType, f.AircraftTypes)
	add(incident.ColLocation, f.Locations)
	add(incident.ColFinalCategory, f.Categories)

	if f.RequireDate || f.From != nil || f.To != nil {
		preds = append(preds, NotNull(incident.ColOriginDate))
	}
	if f.From != nil {
		preds = append(preds, DateCompare(incident.ColOriginDate, OpGte, *f.From))
	}
	if f.To != nil {
		preds = append(preds, DateCompare(incident.ColOriginDate, OpLte, *f.To))
	}
	return preds
}

// SplitList flattens repeated and comma-separated query values, dropping
// blanks.
func SplitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Page is a validated skip/limit pair.
type Page struct {
	Skip  int
	Limit int
}

// PageLimits are the per-endpoint pagination defaults.
type PageLimits struct {
	Default int
	Max     int
}

// NewPage validates skip and limit. A zero limit means the endpoint
// default; anything above the maximum is clamped to it.
func NewPage(skip, limit int, lim PageLimits) (Page, error) {
	if skip < 0 {
		return Page{}, fmt.Errorf("%w: skip must be >= 0", ErrInvalidPage)
	}
	if limit < 0 {
		return Page{}, fmt.Errorf("%w: limit must be >= 1", ErrInvalidPage)
	}
	if limit == 0 {
		limit = lim.Default
	}
	if limit > lim.Max {
		limit = lim.Max
	}
	return Page{Skip: skip, Limit: limit}, nil
}
