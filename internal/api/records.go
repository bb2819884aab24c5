package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"aviation_incidents/internal/aggregate"
	"aviation_incidents/internal/incident"
	"aviation_incidents/internal/query"
)

// maxBulkUIDs bounds one bulk request.
const maxBulkUIDs = 5000

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	rec, err := s.store.GetRecord(r.Context(), uid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Record not found for the provided UID.")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleClassificationResults(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, classificationPage)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	results, err := s.store.ListClassificationResults(r.Context(), r.URL.Query().Get("evaluator_id"), page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// BulkResponse joins classifications with their origin records.
type BulkResponse struct {
	Results    map[string]incident.JoinedRecord `json:"results"`
	Aggregates any                              `json:"aggregates"`
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var uids []string
	if err := json.NewDecoder(r.Body).Decode(&uids); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: expected a list of UIDs")
		return
	}

	if len(uids) == 0 {
		writeJSON(w, http.StatusOK, BulkResponse{
			Results:    map[string]incident.JoinedRecord{},
			Aggregates: map[string]any{},
		})
		return
	}
	if len(uids) > maxBulkUIDs {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Maximum %d UIDs per bulk request", maxBulkUIDs))
		return
	}

	ctx := r.Context()
	classifications, err := s.store.ClassificationsBySourceUID(ctx, uids)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	origins, err := s.store.ListIncidents(ctx, query.Filter{UIDs: uids}, nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	byUID := make(map[string]*incident.Incident, len(origins))
	for i := range origins {
		byUID[origins[i].UID] = &origins[i]
	}

	results := make(map[string]incident.JoinedRecord)
	for _, uid := range uids {
		c, hasClass := classifications[uid]
		o := byUID[uid]
		switch {
		case hasClass:
			results[uid] = incident.Join(&c, o)
		case o != nil:
			results[uid] = incident.Join(nil, o)
		}
	}

	writeJSON(w, http.StatusOK, BulkResponse{
		Results:    results,
		Aggregates: aggregate.Summarise(origins),
	})
}

func (s *Server) handleFullClassification(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	ctx := r.Context()

	origin, err := s.store.GetRecord(ctx, uid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	classifications, err := s.store.ClassificationsBySourceUID(ctx, []string{uid})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := struct {
		Classification *incident.ClassificationResult `json:"classification"`
		Origin         *incident.Incident             `json:"origin"`
	}{Origin: origin}
	if c, ok := classifications[uid]; ok {
		resp.Classification = &c
	}

	if resp.Classification == nil && resp.Origin == nil {
		writeError(w, http.StatusNotFound, "No classification or record found for the provided UID.")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClassifiedDetailed(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, classifiedPage)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	rows, err := s.store.ListClassifiedIncidents(r.Context(), page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleUIDsByFilter(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	uids, err := s.aggregates.ListUIDs(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uids)
}

func (s *Server) handleIncidentLocations(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page, err := parsePage(r, incidentPage)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	incidents, err := s.store.ListIncidents(ctx, f, &page)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var codes []string
	for _, inc := range incidents {
		if inc.Location != nil {
			codes = append(codes, *inc.Location)
		}
	}
	airports, err := s.airports.Resolve(ctx, codes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Locate(incidents, airports))
}

func (s *Server) handleAirports(w http.ResponseWriter, r *http.Request) {
	codes := query.SplitList(r.URL.Query()["codes"])
	if len(codes) == 0 {
		writeJSON(w, http.StatusOK, map[string]incident.Airport{})
		return
	}

	airports, err := s.airports.Resolve(r.Context(), codes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, airports)
}

func (s *Server) handleAirport(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	a, err := s.airports.Lookup(r.Context(), code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "Airport not found: "+strconv.Quote(code))
		return
	}
	writeJSON(w, http.StatusOK, a)
}
