package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"aviation_incidents/internal/query"
)

// Pagination defaults per endpoint.
var (
	classificationPage = query.PageLimits{Default: 100, Max: 1000}
	incidentPage       = query.PageLimits{Default: 1000, Max: 5000}
	classifiedPage     = query.PageLimits{Default: 100, Max: 1000}
)

// errInvalidParam marks a malformed request parameter or body.
var errInvalidParam = errors.New("invalid parameter")

func errBadParam(name, value string) error {
	return fmt.Errorf("%w %s %q", errInvalidParam, name, value)
}

// parseFilter reads the common filter parameters. List parameters may be
// repeated or comma-separated.
func parseFilter(q url.Values) (query.Filter, error) {
	f := query.Filter{
		Operators:     query.SplitList(q["operators"]),
		Phases:        query.SplitList(q["phases"]),
		AircraftTypes: query.SplitList(q["aircraft_types"]),
		Locations:     query.SplitList(q["locations"]),
		Categories:    query.SplitList(q["categories"]),
	}
	if err := f.SetPeriods(q.Get("start_period"), q.Get("end_period")); err != nil {
		return query.Filter{}, err
	}
	return f, nil
}

// optionalInt parses an optional integer parameter.
func optionalInt(q url.Values, name string) (*int, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, errBadParam(name, v)
	}
	return &n, nil
}

// intParam parses an integer parameter with a default.
func intParam(q url.Values, name string, def int) (int, error) {
	n, err := optionalInt(q, name)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return def, nil
	}
	return *n, nil
}

// parsePage reads skip and limit.
func parsePage(r *http.Request, lim query.PageLimits) (query.Page, error) {
	q := r.URL.Query()
	skip, err := intParam(q, "skip", 0)
	if err != nil {
		return query.Page{}, err
	}
	limit, err := intParam(q, "limit", 0)
	if err != nil {
		return query.Page{}, err
	}
	return query.NewPage(skip, limit, lim)
}
