package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"aviation_incidents/internal/enrichment"
	"aviation_incidents/internal/evaluation"
	"aviation_incidents/internal/incident"
	"aviation_incidents/internal/query"
	"aviation_incidents/internal/storage"
	"aviation_incidents/internal/storage/storagetest"
)

// newTestServer wires a server to the seeded in-memory store.
func newTestServer(t *testing.T, cfg Config, accessCodes ...string) *Server {
	t.Helper()
	db := storagetest.NewSQLite(t)
	return NewServer(Backends{
		Store:       db,
		Airports:    enrichment.NewResolver(db, enrichment.Config{}, nil),
		Evaluations: evaluation.NewService(db, nil, accessCodes, nil),
	}, cfg, nil)
}

func do(t *testing.T, h http.Handler, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestServer(t, Config{Port: 8000}).Router()

	rec := do(t, router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var resp map[string]string
	decode(t, rec, &resp)
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	router := newTestServer(t, Config{AuthEnabled: true, APIKeys: []string{"test-key-123"}}).Router()

	tests := []struct {
		name           string
		target         string
		header         []string
		expectedStatus int
	}{
		{"no key", "/health", nil, http.StatusUnauthorized},
		{"invalid key", "/health", []string{"X-API-Key", "wrong-key"}, http.StatusForbidden},
		{"valid X-API-Key", "/health", []string{"X-API-Key", "test-key-123"}, http.StatusOK},
		{"valid Bearer", "/health", []string{"Authorization", "Bearer test-key-123"}, http.StatusOK},
		{"valid query param", "/health?api_key=test-key-123", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, tt.target, nil, tt.header...)
			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
		})
	}
}

func TestCORSHeaders(t *testing.T) {
	router := newTestServer(t, Config{}).Router()

	rec := do(t, router, http.MethodOptions, "/aggregates/statistics", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 for OPTIONS, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected CORS header '*', got %q", got)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errBadParam("n", "x"), http.StatusBadRequest},
		{fmt.Errorf("lookup: %w", incident.ErrInvalidUID), http.StatusBadRequest},
		{query.ErrInvalidPeriod, http.StatusBadRequest},
		{query.ErrInvalidDimension, http.StatusBadRequest},
		{query.ErrInvalidPage, http.StatusBadRequest},
		{evaluation.ErrInvalidSubmission, http.StatusBadRequest},
		{evaluation.ErrUnknownEvaluator, http.StatusForbidden},
		{evaluation.ErrAssignmentNotFound, http.StatusNotFound},
		{fmt.Errorf("clickhouse: %w", storage.ErrReadOnly), http.StatusNotImplemented},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusForError(tt.err); got != tt.want {
			t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestServerErrorsAreNotLeaked(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/aggregates/statistics", nil)

	s.fail(rec, req, errors.New("password authentication failed for user aviation"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	decode(t, rec, &resp)
	if resp["error"] != "internal server error" {
		t.Errorf("error = %q", resp["error"])
	}
}
