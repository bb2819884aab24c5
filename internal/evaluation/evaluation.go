// Package evaluation implements the human evaluation workflow: an
// evaluator is assigned a classification result, judges it once, and the
// assignment is closed in the same transaction that records the judgment.
package evaluation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrAssignmentNotFound means there is no incomplete assignment for
	// the (classification result, evaluator) pair. Nothing was written.
	ErrAssignmentNotFound = errors.New("assignment not found or already complete")

	ErrInvalidSubmission = errors.New("invalid submission")
	ErrUnknownEvaluator  = errors.New("unknown evaluator")
)

// State is the lifecycle position of an assignment.
type State int

const (
	// Assigned is the initial state: the evaluator still owes a judgment.
	Assigned State = iota
	// Completed is terminal. A HumanEvaluation row exists for the pair.
	Completed
)

func (s State) String() string {
	switch s {
	case Assigned:
		return "assigned"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Next returns the state reached by a submit from s. Only Assigned may
// transition; anything else fails with ErrAssignmentNotFound.
func (s State) Next() (State, error) {
	if s != Assigned {
		return s, ErrAssignmentNotFound
	}
	return Completed, nil
}

// Assignment is one row of evaluation_assignments.
type Assignment struct {
	ID                     int64      `json:"assignment_id"`
	ClassificationResultID int64      `json:"classification_result_id"`
	EvaluatorID            string     `json:"evaluator_id"`
	IsComplete             bool       `json:"is_complete"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`

	// SourceUID is filled when the assignment is joined to its
	// classification result.
	SourceUID *string `json:"source_uid,omitempty"`
}

// State derives the assignment state from its completion flag.
func (a *Assignment) State() State {
	if a.IsComplete {
		return Completed
	}
	return Assigned
}

// Submission is one evaluator's judgment on one classification result.
type Submission struct {
	ClassificationResultID int64   `json:"classification_result_id"`
	EvaluatorID            string  `json:"evaluator_id"`
	HumanCategory          string  `json:"human_category"`
	HumanConfidence        float64 `json:"human_confidence"`
	HumanReasoning         string  `json:"human_reasoning"`
}

// Validate checks a submission before any query runs.
func (s *Submission) Validate() error {
	var problems []string
	if s.ClassificationResultID <= 0 {
		problems = append(problems, "classification_result_id is required")
	}
	if strings.TrimSpace(s.EvaluatorID) == "" {
		problems = append(problems, "evaluator_id is required")
	}
	if strings.TrimSpace(s.HumanCategory) == "" {
		problems = append(problems, "human_category is required")
	}
	if s.HumanConfidence < 0 || s.HumanConfidence > 1 {
		problems = append(problems, "human_confidence must be between 0.0 and 1.0")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSubmission, strings.Join(problems, "; "))
	}
	return nil
}

// Evaluation is a recorded HumanEvaluation row.
type Evaluation struct {
	ID           int64 `json:"id"`
	AssignmentID int64 `json:"assignment_id"`
	Submission
	CreatedAt time.Time `json:"created_at"`
}
