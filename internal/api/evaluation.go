package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aviation_incidents/internal/evaluation"
)

// statusPayload is the submit endpoint's response body.
type statusPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub evaluation.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, statusPayload{Status: "error", Message: "Invalid JSON body"})
		return
	}

	if _, err := s.evaluations.Submit(r.Context(), sub); err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			s.fail(w, r, err)
			return
		}
		msg := err.Error()
		if errors.Is(err, evaluation.ErrAssignmentNotFound) {
			msg = "Assignment not found or already completed"
		}
		writeJSON(w, status, statusPayload{Status: "error", Message: msg})
		return
	}

	writeJSON(w, http.StatusOK, statusPayload{Status: "success", Message: "Evaluation submitted"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessCode string `json:"access_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	id, err := s.evaluations.Login(req.AccessCode)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid access code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"evaluator_id": id})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, evaluation.Taxonomy())
}

func (s *Server) handleNextTask(w http.ResponseWriter, r *http.Request) {
	evaluatorID := chi.URLParam(r, "evaluator_id")

	a, err := s.evaluations.Next(r.Context(), evaluatorID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "No pending tasks for evaluator")
		return
	}
	writeJSON(w, http.StatusOK, a)
}
