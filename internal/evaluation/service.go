package evaluation

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"aviation_incidents/internal/metrics"
)

// SubjectSubmitted is the event subject published after a submit commits.
const SubjectSubmitted = "evaluation.submitted"

// Store is the persistence the workflow needs. SubmitEvaluation must apply
// the assignment update and the evaluation insert atomically and return
// ErrAssignmentNotFound when no incomplete assignment exists.
type Store interface {
	SubmitEvaluation(ctx context.Context, sub Submission) (*Evaluation, error)
	NextAssignment(ctx context.Context, evaluatorID string) (*Assignment, error)
}

// Publisher announces completed evaluations.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Service runs the evaluation workflow.
type Service struct {
	store      Store
	publisher  Publisher
	evaluators map[string]bool
	logger     *slog.Logger
}

// NewService creates a Service. With no access codes every evaluator id is
// accepted; publisher may be nil.
func NewService(store Store, publisher Publisher, accessCodes []string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	evaluators := make(map[string]bool)
	for _, c := range accessCodes {
		if c = normaliseCode(c); c != "" {
			evaluators[c] = true
		}
	}
	return &Service{
		store:      store,
		publisher:  publisher,
		evaluators: evaluators,
		logger:     logger,
	}
}

func normaliseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Login exchanges an access code for an evaluator id.
func (s *Service) Login(code string) (string, error) {
	id := normaliseCode(code)
	if id == "" {
		return "", ErrUnknownEvaluator
	}
	if len(s.evaluators) > 0 && !s.evaluators[id] {
		return "", ErrUnknownEvaluator
	}
	return id, nil
}

// Evaluators lists the configured access codes.
func (s *Service) Evaluators() []string {
	out := make([]string, 0, len(s.evaluators))
	for id := range s.evaluators {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// evaluator returns the id stores see for evaluatorID and whether it may
// act. With access codes configured the id is the canonical code, so
// "alpha7" and "ALPHA7" share one queue. Without them the id is only
// trimmed.
func (s *Service) evaluator(evaluatorID string) (string, bool) {
	if len(s.evaluators) == 0 {
		return strings.TrimSpace(evaluatorID), true
	}
	id := normaliseCode(evaluatorID)
	return id, s.evaluators[id]
}

// Submit records a judgment and completes its assignment.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Evaluation, error) {
	if err := sub.Validate(); err != nil {
		metrics.ObserveSubmission(metrics.OutcomeRejected)
		return nil, err
	}
	id, ok := s.evaluator(sub.EvaluatorID)
	if !ok {
		metrics.ObserveSubmission(metrics.OutcomeRejected)
		return nil, ErrUnknownEvaluator
	}
	sub.EvaluatorID = id

	ev, err := s.store.SubmitEvaluation(ctx, sub)
	if err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			metrics.ObserveSubmission(metrics.OutcomeNotFound)
		} else {
			metrics.ObserveSubmission(metrics.OutcomeError)
			s.logger.Error("submit evaluation failed",
				slog.Int64("classification_result_id", sub.ClassificationResultID),
				slog.String("evaluator_id", sub.EvaluatorID),
				slog.Any("error", err))
		}
		return nil, err
	}
	metrics.ObserveSubmission(metrics.OutcomeSuccess)

	// The evaluation is committed; a lost event is logged, not returned.
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, SubjectSubmitted, ev); err != nil {
			s.logger.Warn("publish evaluation event failed",
				slog.Int64("evaluation_id", ev.ID),
				slog.Any("error", err))
		}
	}
	return ev, nil
}

// Next returns the evaluator's oldest incomplete assignment, or nil when
// none remain.
func (s *Service) Next(ctx context.Context, evaluatorID string) (*Assignment, error) {
	id, ok := s.evaluator(evaluatorID)
	if !ok {
		return nil, ErrUnknownEvaluator
	}
	return s.store.NextAssignment(ctx, id)
}
