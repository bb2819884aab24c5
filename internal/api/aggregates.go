package api

import (
	"net/http"

	"aviation_incidents/internal/aggregate"
	"aviation_incidents/internal/query"
)

// groupCounts parses the common filters, lets adjust refine them, and runs
// the grouped count on the aggregate reader. It writes the error response
// itself and returns ok=false on failure.
func (s *Server) groupCounts(w http.ResponseWriter, r *http.Request, q query.GroupQuery, adjust func(*query.Filter) error) ([]aggregate.GroupCount, bool) {
	f, err := parseFilter(r.URL.Query())
	if err == nil && adjust != nil {
		err = adjust(&f)
	}
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	q.Filter = f

	rows, err := s.aggregates.GroupCounts(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return rows, true
}

// Years outside this range cannot be stored as four-digit dates.
const (
	minYear = 1
	maxYear = 9999
)

// yearBounds reads start_year and end_year. Both must be four-digit years
// and end_year may not precede start_year.
func yearBounds(r *http.Request) (start, end *int, err error) {
	q := r.URL.Query()
	if start, err = optionalInt(q, "start_year"); err != nil {
		return nil, nil, err
	}
	if end, err = optionalInt(q, "end_year"); err != nil {
		return nil, nil, err
	}
	if start != nil && (*start < minYear || *start > maxYear) {
		return nil, nil, errBadParam("start_year", q.Get("start_year"))
	}
	if end != nil && (*end < minYear || *end > maxYear) {
		return nil, nil, errBadParam("end_year", q.Get("end_year"))
	}
	if start != nil && end != nil && *end < *start {
		return nil, nil, errBadParam("end_year", q.Get("end_year"))
	}
	return start, end, nil
}

func (s *Server) handleSeasonal(w http.ResponseWriter, r *http.Request) {
	start, end, err := yearBounds(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	rows, ok := s.groupCounts(w, r, query.GroupQuery{
		Dimensions:   []query.Dimension{query.DimMonth},
		SkipNullKeys: true,
	}, func(f *query.Filter) error {
		f.SetYears(start, end)
		return nil
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Seasonal(rows, start, end))
}

func (s *Server) handleRiskHeatmap(w http.ResponseWriter, r *http.Request) {
	start, end, err := yearBounds(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := intParam(r.URL.Query(), "limit", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if limit < 0 {
		s.fail(w, r, errBadParam("limit", r.URL.Query().Get("limit")))
		return
	}

	rows, ok := s.groupCounts(w, r, query.GroupQuery{
		Dimensions:   []query.Dimension{query.DimPhase, query.DimFinalCategory},
		SkipNullKeys: true,
	}, func(f *query.Filter) error {
		f.SetYears(start, end)
		return nil
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, aggregate.RiskHeatmap(rows, limit))
}

func (s *Server) handleOverTime(w http.ResponseWriter, r *http.Request) {
	bucket, err := query.ParseBucket(r.URL.Query().Get("period"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	rows, ok := s.groupCounts(w, r, query.GroupQuery{
		Dimensions:   []query.Dimension{query.BucketDimension(bucket)},
		SkipNullKeys: true,
	}, nil)
	if !ok {
		return
	}

	// Periods are zero-padded, so the encoder's sorted keys are
	// chronological.
	series := make(map[string]int64)
	for _, p := range aggregate.TimeSeries(rows) {
		series[p.Period] = p.Count
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleTopN(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dim, err := query.ParseCategory(q.Get("category"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := intParam(q, "n", 10)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if n < 1 {
		s.fail(w, r, errBadParam("n", q.Get("n")))
		return
	}

	rows, ok := s.groupCounts(w, r, query.GroupQuery{
		Dimensions:   []query.Dimension{dim},
		SkipNullKeys: true,
	}, nil)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, aggregate.TopN(rows, n))
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d1, err := query.ParseCategory(q.Get("dimension1"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d2, err := query.ParseCategory(q.Get("dimension2"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if d1 == d2 {
		writeJSON(w, http.StatusOK, []aggregate.Cell{})
		return
	}

	rows, ok := s.groupCounts(w, r, query.GroupQuery{
		Dimensions:   []query.Dimension{d1, d2},
		SkipNullKeys: true,
	}, nil)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Heatmap(rows))
}

func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.groupCounts(w, r, query.GroupQuery{
		Dimensions: []query.Dimension{query.DimOperator, query.DimAircraftType, query.DimPhase},
	}, nil)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Hierarchy(rows))
}

func (s *Server) handleByLocation(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.groupCounts(w, r, query.GroupQuery{
		Dimensions:   []query.Dimension{query.DimLocation},
		SkipNullKeys: true,
	}, nil)
	if !ok {
		return
	}

	airports, err := s.airports.Resolve(r.Context(), aggregate.LocationKeys(rows, 0))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, aggregate.ByLocation(rows, airports))
}

func (s *Server) handleLocationsOverTime(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.groupCounts(w, r, query.GroupQuery{
		Dimensions:   []query.Dimension{query.DimLocation, query.DimMonth},
		SkipNullKeys: true,
	}, nil)
	if !ok {
		return
	}

	airports, err := s.airports.Resolve(r.Context(), aggregate.LocationKeys(rows, 0))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, aggregate.LocationsOverTime(rows, airports))
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	total, err := s.aggregates.CountIncidents(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"total_incidents": total})
}
